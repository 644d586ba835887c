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


// Package ai provides the embedding capability used to index review documents.
//
// The package defines the Embedder interface and a closed set of providers
// that implement it. A provider is chosen once at startup from Config and
// injected into the components that need embeddings; nothing looks a
// provider up by name at call time.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and OpenAI-compatible embedding APIs
//   - ai/googleai: Google Generative AI embeddings
//   - ai/ollama: a local Ollama server
//   - ai/mock: deterministic test doubles
//
// Public constructors return the ai.Embedder interface. The mock package
// returns concrete types so tests can inject behavior and inspect call
// counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderOpenAI),
//	    ai.WithModel("text-embedding-3-small"),
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := embedder.EmbedText(ctx, "Great binoculars for birding")
//
// Stores built on langchaingo take an embeddings.Embedder; AsLangchain
// adapts any ai.Embedder to that interface.
package ai
