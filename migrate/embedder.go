package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/revec/ai"
	"golang.org/x/time/rate"
)

// ProbeText is embedded once before a migration to learn the model's
// output dimension.
const ProbeText = "test text"

// EmbeddingClient wraps an ai.Embedder with retries, optional rate limiting
// and a dimension check. It is safe for concurrent use.
type EmbeddingClient struct {
	embedder  ai.Embedder
	policy    RetryPolicy
	limiter   *rate.Limiter
	normalize bool
	dimension int
	logger    *slog.Logger
}

// EmbeddingOption configures an EmbeddingClient.
type EmbeddingOption func(*EmbeddingClient)

// WithRateLimit caps embedding requests at rps per second. Values <= 0
// disable limiting.
func WithRateLimit(rps float64, burst int) EmbeddingOption {
	return func(c *EmbeddingClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithNormalize scales returned vectors to unit length.
func WithNormalize(normalize bool) EmbeddingOption {
	return func(c *EmbeddingClient) {
		c.normalize = normalize
	}
}

// WithDimension sets the expected vector length. Vectors of any other
// length count as failed attempts. Zero accepts any length.
func WithDimension(dim int) EmbeddingOption {
	return func(c *EmbeddingClient) {
		c.dimension = dim
	}
}

// NewEmbeddingClient creates a client that retries according to policy.
func NewEmbeddingClient(embedder ai.Embedder, policy RetryPolicy, opts ...EmbeddingOption) (*EmbeddingClient, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	c := &EmbeddingClient{
		embedder: embedder,
		policy:   policy,
		logger:   slog.Default().With("component", "embedding-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dimension returns the expected vector length, or 0 if unknown.
func (c *EmbeddingClient) Dimension() int {
	return c.dimension
}

// Embed returns the vector for text. Blank text fails immediately with
// ErrEmptyText. Service errors, empty vectors and vectors of the wrong
// length are retried; once attempts run out the result is an
// *EmbeddingError. Cancellation returns the context error unwrapped.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	var vector []float32
	attempts, err := c.policy.Do(ctx, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		v, err := c.embedder.EmbedText(ctx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return ai.ErrEmptyEmbedding
		}
		if c.dimension > 0 && len(v) != c.dimension {
			return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), c.dimension)
		}
		vector = v
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return nil, ctxErr
		}
		return nil, &EmbeddingError{Attempts: attempts, Err: err}
	}

	if c.normalize {
		vector = NormalizeVector(vector)
	}
	return vector, nil
}

// Probe embeds ProbeText and returns the vector length. It must be called
// before concurrent use, since it fixes the expected dimension when none
// was configured.
func (c *EmbeddingClient) Probe(ctx context.Context) (int, error) {
	vector, err := c.Embed(ctx, ProbeText)
	if err != nil {
		return 0, fmt.Errorf("probe embedding dimension: %w", err)
	}
	if c.dimension == 0 {
		c.dimension = len(vector)
	}
	c.logger.Debug("probed embedding dimension", "dimension", len(vector))
	return len(vector), nil
}
