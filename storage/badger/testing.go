package badger

import "github.com/wothmag07/cssm/ai"

// NewMemoryStore creates an in-memory store for testing.
// Closing the store also closes its backend.
func NewMemoryStore(embedder ai.Embedder, opts ...Option) (*Store, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	s, err := NewStore(backend, embedder, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	s.ownsBackend = true
	return s, nil
}
