package ai

import "errors"

var (
	// ErrEmptyEmbedding indicates the service answered without a usable vector.
	ErrEmptyEmbedding = errors.New("embedding service returned an empty vector")

	// ErrEmbeddingCountMismatch indicates a batch call returned a different
	// number of vectors than texts submitted.
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match input count")

	// ErrUnknownProvider indicates Config.Provider names no known backend.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)
