package migrate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/revec/ai/mock"
	"github.com/poiesic/revec/core"
	badgerstore "github.com/poiesic/revec/storage/badger"
	"github.com/stretchr/testify/require"
)

const testDim = 4

func newTestStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	store, err := badgerstore.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedSource creates a source collection of n records with ids 1..n. text
// returns the text for record i, where "" leaves the field out.
func seedSource(t *testing.T, store *badgerstore.Store, name string, n int, text func(i int) string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, name, core.CollectionConfig{Size: 8, Distance: core.DistanceCosine}))

	points := make([]*core.Point, 0, n)
	for i := 1; i <= n; i++ {
		payload := map[string]any{"n": int64(i), "source": "handbook.pdf"}
		if s := text(i); s != "" {
			payload["text"] = s
		}
		points = append(points, &core.Point{
			ID:      core.NumericID(uint64(i)),
			Vector:  []float32{1, 0, 0, 0, 0, 0, 0, 0},
			Payload: payload,
		})
	}
	if len(points) > 0 {
		require.NoError(t, store.Upsert(ctx, name, points...))
	}
}

func recordText(i int) string {
	return fmt.Sprintf("record %d", i)
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Delay: time.Millisecond, Multiplier: 1}
}

func testConfig(opts ...Option) *Config {
	opts = append([]Option{WithRetryPolicy(fastRetry(3))}, opts...)
	return NewConfig("policies_openai", "policies_ollama", opts...)
}

// flakyEmbedder fails the first failures calls for each listed text and then
// falls back to deterministic vectors.
type flakyEmbedder struct {
	*mock.MockEmbedder
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
}

func newFlakyEmbedder(failures map[string]int) *flakyEmbedder {
	f := &flakyEmbedder{
		failures: failures,
		calls:    make(map[string]int),
	}
	f.MockEmbedder = mock.NewMockEmbedderWithDimension(testDim).WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		f.mu.Lock()
		f.calls[text]++
		n := f.calls[text]
		f.mu.Unlock()
		if n <= f.failures[text] {
			return nil, fmt.Errorf("connection reset (call %d)", n)
		}
		return mock.GenerateDeterministicVector(text, testDim), nil
	})
	return f
}

func (f *flakyEmbedder) callsFor(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}
