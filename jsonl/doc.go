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


// Package jsonl reads and writes line-delimited JSON record streams.
//
// A Reader decodes one object per line into a typed value. Each line is
// parsed independently: blank lines are skipped silently and malformed lines
// are logged and skipped, so one bad line never aborts a stream. Only a
// failure of the underlying source is returned as an error.
//
//	r, err := jsonl.Open[core.RawReview]("data/Electronics.jsonl")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	err = r.ForEach(ctx, func(line int, review core.RawReview) error {
//	    ...
//	})
//
// LineWriter and ArrayWriter are the matching sinks: one object per line, or
// a pretty-printed JSON array streamed element by element. Neither escapes
// HTML characters and both preserve non-ASCII text.
package jsonl
