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


// Package astradb implements storage.VectorStore on top of the DataStax
// Astra DB Data API.
//
// Documents are written with insertMany and searched with a find sorted by
// $vector. Every document carries its page content under "content", its
// metadata sidecar under "metadata" and its embedding under "$vector". Ids are
// name-based UUIDs derived from content and metadata, so re-sending a batch
// after a partial failure cannot create duplicates.
//
// Errors are classified for the ingestion retry loop: transport failures and
// HTTP 408, 429 and 5xx responses are retryable; every other rejection is
// permanent.
package astradb
