// Package mock provides a test double for ai.Embedder.
//
// The mock lets tests run without an embedding service and gives
// controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Deterministic 768-dimensional vectors
//	embedder := mock.NewMockEmbedderWithDimension(768)
//
//	// Custom behavior injection
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return []float32{0.1, 0.2, 0.3}, nil
//	    })
//
//	// Check call counts
//	count := embedder.CallCount()
package mock
