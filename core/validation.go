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


package core

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/schema"
)

// ValidateDocument validates an embeddable document.
//
// Validation rules:
//   - PageContent must not be empty or whitespace-only
//
// NOT validated:
//   - Metadata (absent values are simply omitted from the sidecar)
func ValidateDocument(doc schema.Document) error {
	if strings.TrimSpace(doc.PageContent) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}
	return nil
}

