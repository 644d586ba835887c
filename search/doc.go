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


// Package search runs similarity queries against an ingested vector store.
//
// The Searcher type asks the store for semantically close reviews, then
// re-ranks the candidates with a verbatim keyword boost: a review that
// contains every meaningful query word outranks one that is only nearby in
// embedding space.
//
// SmokeCheck wraps a single query for use right after ingestion. It logs what
// came back and never fails the caller.
package search
