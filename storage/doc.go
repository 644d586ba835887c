// Copyright 2025 The cssm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the vector store abstraction used for review documents.
//
// A VectorStore is a langchaingo vectorstores.VectorStore that also owns
// resources and must be closed. The ingestion core only needs the write half
// (AddDocuments); the search package uses SimilaritySearch.
//
// # Backends
//
// The set of backends is closed and selected once at startup:
//
//   - storage/astradb: DataStax Astra DB through its JSON Data API
//   - storage/badger: an embedded BadgerDB store for local runs and tests
//   - storage/pgvector: PostgreSQL with the pgvector extension
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.VectorStore interface to prevent
// accidental coupling to backend specifics:
//
//	store, err := badger.Open("/path/to/db", embedder)  // returns storage.VectorStore
//
// Test helpers (badger.NewMemoryStore) return concrete types so tests can
// inspect the store.
//
// # Failure Classes
//
// Backends mark errors with Retryable() so the ingestor can tell transient
// failures (timeouts, throttling, server errors) from permanent ones
// (authentication, malformed requests, a closed store). Unmarked errors are
// treated as transient.
//
// # Thread Safety
//
// All store implementations must be safe for concurrent use.
package storage
