package storage

import (
	"io"

	"github.com/tmc/langchaingo/vectorstores"
)

// VectorStore stores documents alongside their embeddings and answers
// nearest-neighbor queries. Close releases connections and files.
type VectorStore interface {
	vectorstores.VectorStore
	io.Closer
}
