package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	docs := makeDocs(5)

	batches := Partition(docs, 2)
	assert.Len(t, batches, 3)
	assert.Equal(t, docs[0:2], batches[0])
	assert.Equal(t, docs[4:5], batches[2])

	assert.Nil(t, Partition(nil, 2))
	assert.Nil(t, Partition(docs, 0))
}

func TestPartition_BatchesDoNotAlias(t *testing.T) {
	docs := makeDocs(4)
	batches := Partition(docs, 2)

	batches[0] = append(batches[0], docs[3])
	assert.Equal(t, "doc2", docs[2].PageContent, "appending to a batch must not overwrite the next one")
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, int64(2), int64(nextBackoff(1, 30)))
	assert.Equal(t, int64(30), int64(nextBackoff(20, 30)))
	assert.Equal(t, int64(30), int64(nextBackoff(30, 30)))
}
