package revec

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/revec/ai"
	"github.com/poiesic/revec/ai/httpembed"
	"github.com/poiesic/revec/ai/ollama"
	"github.com/poiesic/revec/ai/openai"
	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StoreConfig
		wantErr bool
	}{
		{"default", DefaultStoreConfig(), false},
		{"badger", StoreConfig{Kind: StoreBadger, Path: "/tmp/x"}, false},
		{"badger upper case", StoreConfig{Kind: "BADGER", Path: "/tmp/x"}, false},
		{"memory", StoreConfig{Kind: StoreMemory}, false},
		{"qdrant without url", StoreConfig{Kind: StoreQdrant}, true},
		{"badger without path", StoreConfig{Kind: StoreBadger}, true},
		{"unknown", StoreConfig{Kind: "chroma"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOpenStore_Badger(t *testing.T) {
	t.Run("create new store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test_db")
		store, err := OpenStore(StoreConfig{Kind: StoreBadger, Path: path})
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.NoError(t, store.Close())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		store, err := OpenStore(StoreConfig{Kind: StoreBadger, Path: tmpFile})
		assert.Error(t, err)
		assert.Nil(t, store)
	})
}

func TestNewEmbedder_SelectsProvider(t *testing.T) {
	tests := []struct {
		provider ai.Provider
		check    func(t *testing.T, e ai.Embedder)
	}{
		{ai.ProviderHTTP, func(t *testing.T, e ai.Embedder) { assert.IsType(t, &httpembed.Embedder{}, e) }},
		{ai.ProviderOllama, func(t *testing.T, e ai.Embedder) { assert.IsType(t, &ollama.Embedder{}, e) }},
		{ai.ProviderOpenAI, func(t *testing.T, e ai.Embedder) { assert.IsType(t, &openai.Embedder{}, e) }},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			e, err := NewEmbedder(ai.NewConfig(
				ai.WithProvider(tt.provider),
				ai.WithEmbeddingModel("nomic-embed-text"),
			))
			require.NoError(t, err)
			tt.check(t, e)
		})
	}

	_, err := NewEmbedder(ai.NewConfig())
	assert.Error(t, err, "model is required")
}

func TestMigrator_Inspect(t *testing.T) {
	m, err := NewMigrator(WithStoreConfig(StoreConfig{Kind: StoreMemory}))
	require.NoError(t, err)
	defer m.Close()
	ctx := context.Background()

	info, err := m.Inspect(ctx, "policies_ollama")
	require.NoError(t, err)
	assert.False(t, info.Exists)

	require.NoError(t, m.Store().CreateCollection(ctx, "policies_ollama", core.CollectionConfig{Size: 2, Distance: core.DistanceDot}))
	require.NoError(t, m.Store().Upsert(ctx, "policies_ollama",
		&core.Point{ID: core.NumericID(1), Vector: []float32{1, 0}},
		&core.Point{ID: core.NumericID(2), Vector: []float32{0, 1}},
	))

	info, err = m.Inspect(ctx, "policies_ollama")
	require.NoError(t, err)
	assert.Equal(t, &CollectionInfo{
		Name:     "policies_ollama",
		Exists:   true,
		Size:     2,
		Distance: core.DistanceDot,
		Points:   2,
	}, info)
}

func TestMigrator_NewCoordinator(t *testing.T) {
	m, err := NewMigrator(WithStoreConfig(StoreConfig{Kind: StoreMemory}))
	require.NoError(t, err)
	defer m.Close()

	aiConfig := ai.NewConfig(ai.WithEmbeddingModel("nomic-embed-text"))

	t.Run("valid", func(t *testing.T) {
		coord, err := m.NewCoordinator(aiConfig, migrate.NewConfig("src", "dst"), &bytes.Buffer{})
		require.NoError(t, err)
		assert.NotNil(t, coord)
	})

	t.Run("invalid migration config", func(t *testing.T) {
		_, err := m.NewCoordinator(aiConfig, migrate.NewConfig("src", "src"), nil)
		assert.ErrorIs(t, err, migrate.ErrSameCollection)
	})

	t.Run("invalid ai config", func(t *testing.T) {
		_, err := m.NewCoordinator(ai.NewConfig(), migrate.NewConfig("src", "dst"), nil)
		assert.Error(t, err)
	})
}
