// Copyright 2025 Poiesic Systems
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


// Package ai provides the embedding abstraction used by revec.
//
// The migration pipeline depends only on the Embedder interface; concrete
// backends live in sub-packages:
//
//   - ai/httpembed: plain JSON-over-HTTP embedding endpoints (Ollama's
//     /api/embeddings by default), with a configurable request field and
//     response path
//   - ai/ollama: Ollama's /api/embed through langchaingo
//   - ai/openai: OpenAI-compatible /v1/embeddings through langchaingo
//   - ai/mock: deterministic test doubles
//
// # Constructor Return Type Pattern
//
// Public constructors in the backend packages return ai.Embedder so callers
// cannot couple to a specific backend. mock.NewMockEmbedder returns the
// concrete type so tests can inject behavior and inspect call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"),
//	    ai.WithEmbeddingModel("nomic-embed-text"),
//	)
//	embedder, err := httpembed.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := embedder.EmbedText(ctx, "Hello world")
package ai
