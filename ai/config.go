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


package ai

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Provider selects the embedding backend.
type Provider string

const (
	// ProviderHTTP posts {model, <request field>: text} and reads the vector
	// from a configurable JSON path. Matches Ollama's /api/embeddings.
	ProviderHTTP Provider = "http"

	// ProviderOllama uses Ollama's /api/embed through langchaingo.
	ProviderOllama Provider = "ollama"

	// ProviderOpenAI uses an OpenAI-compatible /v1/embeddings endpoint.
	ProviderOpenAI Provider = "openai"
)

// Config holds configuration for the embedding service.
type Config struct {
	// Provider selects the backend. Default: "http"
	Provider Provider

	// EmbeddingHost is the base URL of the embedding service.
	// Example: "http://localhost:11434"
	EmbeddingHost string

	// EmbeddingModel is the model identifier. There is no default; the
	// destination collection is defined by this choice.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	EmbeddingModel string

	// APIKey is sent as a bearer token by the openai provider.
	APIKey string

	// RequestField names the JSON field that carries the text for the http provider.
	// Default: "prompt"
	RequestField string

	// ResponsePath is a gjson path locating the vector in the http provider's
	// response body. Default: "embedding". Use "data.0.embedding" for
	// OpenAI-shaped responses.
	ResponsePath string

	// Timeout bounds a single embedding request.
	// Default: 5m
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the embedding backend.
func WithProvider(p Provider) ConfigOption {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithRequestField sets the request field name used by the http provider.
func WithRequestField(field string) ConfigOption {
	return func(c *Config) {
		c.RequestField = field
	}
}

// WithResponsePath sets the response path used by the http provider.
func WithResponsePath(path string) ConfigOption {
	return func(c *Config) {
		c.ResponsePath = path
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// DefaultConfig returns a Config with defaults for a local Ollama server.
// EmbeddingModel is left empty and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		Provider:      ProviderHTTP,
		EmbeddingHost: "http://localhost:11434",
		RequestField:  "prompt",
		ResponsePath:  "embedding",
		Timeout:       5 * time.Minute,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//   cfg := NewConfig(
//       WithEmbeddingHost("http://gpu-box:11434"),
//       WithEmbeddingModel("nomic-embed-text"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// Trailing slashes are trimmed from the host, and the openai provider gets
// the /v1 suffix most OpenAI-compatible servers require.
func (c *Config) Normalize() {
	c.Provider = Provider(strings.ToLower(strings.TrimSpace(string(c.Provider))))
	if c.Provider == "" {
		c.Provider = ProviderHTTP
	}

	c.EmbeddingHost = strings.TrimRight(strings.TrimSpace(c.EmbeddingHost), "/")
	if c.Provider == ProviderOpenAI && c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderHTTP, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("ai config: %w: %q", ErrUnknownProvider, string(c.Provider))
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	u, err := url.Parse(c.EmbeddingHost)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ai config: EmbeddingHost %q is not an http(s) URL", c.EmbeddingHost)
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.Provider == ProviderHTTP {
		if c.RequestField == "" {
			return errors.New("ai config: RequestField is required")
		}
		if c.ResponsePath == "" {
			return errors.New("ai config: ResponsePath is required")
		}
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be greater than 0")
	}
	return nil
}
