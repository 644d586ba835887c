package badger

import (
	"encoding/binary"

	"github.com/wothmag07/cssm/core"
)

// documentPrefix namespaces review documents; the collection name follows it.
const documentPrefix = "revdoc"

// makeCollectionPrefix generates the key prefix shared by every document of a collection.
// Format: prefix:collection:
func makeCollectionPrefix(collection string) []byte {
	buf := make([]byte, 0, len(documentPrefix)+len(collection)+2)
	buf = append(buf, documentPrefix...)
	buf = append(buf, ':')
	buf = append(buf, collection...)
	buf = append(buf, ':')
	return buf
}

// makeDocumentKey generates a key for a document by collection and ID.
// Format: prefix:collection:id
func makeDocumentKey(collection string, id core.ID) []byte {
	prefix := makeCollectionPrefix(collection)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
