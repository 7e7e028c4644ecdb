package httpembed

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEmbedding indicates the response path matched nothing.
	ErrMissingEmbedding = errors.New("embedding missing from response")

	// ErrMalformedResponse indicates the body or the matched value has the wrong shape.
	ErrMalformedResponse = errors.New("malformed embedding response")
)

// StatusError reports a non-2xx response from the embedding service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("embedding service returned status %d: %s", e.StatusCode, e.Body)
}
