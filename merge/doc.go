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


// Package merge joins the review stream with product metadata.
//
// A MetadataIndex is built once from the metadata stream and is read-only
// afterwards. The Merger then streams reviews, resolves each one against the
// index and projects matched pairs into core.MergedRecord values.
//
// Reviews without an asin, or whose asin has no metadata entry, are counted
// as skipped and never logged individually. Merged records are written to
// the configured sinks as they are produced, so memory stays bounded even for
// very large inputs; keeping the records in memory is optional. Sinks are
// closed on every exit path.
package merge
