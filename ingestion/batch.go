package ingestion

import "github.com/tmc/langchaingo/schema"

// Partition splits docs into contiguous batches of at most size documents.
// The last batch holds the remainder. The batches share docs' backing array.
func Partition(docs []schema.Document, size int) [][]schema.Document {
	if size <= 0 || len(docs) == 0 {
		return nil
	}

	batches := make([][]schema.Document, 0, (len(docs)+size-1)/size)
	for i := 0; i < len(docs); i += size {
		end := min(i+size, len(docs))
		batches = append(batches, docs[i:end:end])
	}
	return batches
}
