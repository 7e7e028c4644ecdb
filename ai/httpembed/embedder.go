// Package httpembed implements ai.Embedder for JSON-over-HTTP embedding
// endpoints that take one text per request.
//
// The request body is {"model": <model>, <RequestField>: <text>} and the
// vector is read from the response with a gjson path, so the same client
// serves Ollama's /api/embeddings ("prompt" / "embedding") and
// OpenAI-shaped endpoints ("input" / "data.0.embedding").
package httpembed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/poiesic/revec/ai"
	"github.com/tidwall/gjson"
)

// DefaultPath is appended to hosts that carry no path of their own.
const DefaultPath = "/api/embeddings"

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// Embedder implements ai.Embedder over plain HTTP.
type Embedder struct {
	client       *http.Client
	endpoint     string
	model        string
	requestField string
	responsePath string
	logger       *slog.Logger
}

// NewEmbedder creates a new embedder using the provided configuration.
// If EmbeddingHost has no path, DefaultPath is used; otherwise the host is
// used verbatim as the endpoint.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config, nil)
}

func newEmbedder(config *ai.Config, client *http.Client) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	endpoint, err := resolveEndpoint(config.EmbeddingHost)
	if err != nil {
		return nil, err
	}

	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &Embedder{
		client:       client,
		endpoint:     endpoint,
		model:        config.EmbeddingModel,
		requestField: config.RequestField,
		responsePath: config.ResponsePath,
		logger:       slog.Default().With("component", "http-embedder"),
	}, nil
}

func resolveEndpoint(host string) (string, error) {
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("invalid embedding host %q: %w", host, err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPath
	}
	return u.String(), nil
}

// Endpoint returns the URL requests are posted to.
func (e *Embedder) Endpoint() string {
	return e.endpoint
}

// EmbedText posts a single text and extracts the vector from the response.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]string{
		"model":        e.model,
		e.requestField: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	e.logger.Debug("posting embedding request", "endpoint", e.endpoint, "length", len(text))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(data, maxErrorBody)}
	}

	return extractVector(data, e.responsePath)
}

// EmbedTexts embeds each text in turn; the endpoint accepts one text per request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		v, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// extractVector reads a numeric array from data at path.
func extractVector(data []byte, path string) ([]float32, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrMalformedResponse)
	}

	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return nil, fmt.Errorf("%w: no value at %q", ErrMissingEmbedding, path)
	}
	if !result.IsArray() {
		return nil, fmt.Errorf("%w: value at %q is not an array", ErrMalformedResponse, path)
	}

	elems := result.Array()
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: at %q", ai.ErrEmptyEmbedding, path)
	}

	vector := make([]float32, len(elems))
	for i, el := range elems {
		if el.Type != gjson.Number {
			return nil, fmt.Errorf("%w: element %d at %q is not a number", ErrMalformedResponse, i, path)
		}
		vector[i] = float32(el.Float())
	}
	return vector, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
