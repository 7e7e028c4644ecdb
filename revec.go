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


// Package revec migrates vector collections from one embedding model to
// another. It wires the storage backends, embedding providers and the
// migration coordinator together.
package revec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/revec/ai"
	"github.com/poiesic/revec/ai/httpembed"
	"github.com/poiesic/revec/ai/ollama"
	"github.com/poiesic/revec/ai/openai"
	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/migrate"
	"github.com/poiesic/revec/storage"
	"github.com/poiesic/revec/storage/badger"
	"github.com/poiesic/revec/storage/qdrant"
)

// StoreKind selects a storage backend.
type StoreKind string

const (
	// StoreQdrant talks to a Qdrant server over gRPC.
	StoreQdrant StoreKind = "qdrant"

	// StoreBadger keeps collections in a local BadgerDB directory.
	StoreBadger StoreKind = "badger"

	// StoreMemory keeps collections in an in-memory BadgerDB. Nothing
	// survives Close.
	StoreMemory StoreKind = "memory"
)

var ErrUnknownStore = errors.New("unknown store kind")

// StoreConfig describes the vector store holding both collections.
type StoreConfig struct {
	Kind StoreKind

	// URL and APIKey are used by the qdrant store.
	URL    string
	APIKey string

	// Path is the database directory of the badger store.
	Path string
}

// DefaultStoreConfig returns a config for a local Qdrant server.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Kind: StoreQdrant,
		URL:  "http://localhost:6334",
	}
}

// Validate checks that the config names a known backend with the settings
// it needs.
func (c *StoreConfig) Validate() error {
	c.Kind = StoreKind(strings.ToLower(strings.TrimSpace(string(c.Kind))))
	switch c.Kind {
	case StoreQdrant:
		if c.URL == "" {
			return errors.New("store config: URL is required for qdrant")
		}
	case StoreBadger:
		if c.Path == "" {
			return errors.New("store config: Path is required for badger")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("store config: %w: %q", ErrUnknownStore, string(c.Kind))
	}
	return nil
}

// OpenStore opens the configured backend.
func OpenStore(cfg StoreConfig) (storage.VectorStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case StoreQdrant:
		return qdrant.NewStore(qdrant.Config{URL: cfg.URL, APIKey: cfg.APIKey})
	case StoreBadger:
		return badger.NewStore(cfg.Path)
	default:
		store, err := badger.NewMemoryStore()
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// NewEmbedder creates the embedder selected by cfg.Provider.
func NewEmbedder(cfg *ai.Config) (ai.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderOllama:
		return ollama.NewEmbedder(cfg)
	case ai.ProviderOpenAI:
		return openai.NewEmbedder(cfg)
	default:
		return httpembed.NewEmbedder(cfg)
	}
}

// Migrator owns an open store and builds coordinators against it.
type Migrator struct {
	store  storage.VectorStore
	logger *slog.Logger
}

// MigratorOption configures a Migrator.
type MigratorOption func(*migratorOptions)

type migratorOptions struct {
	storeConfig StoreConfig
}

// WithStoreConfig selects the backend. The default is DefaultStoreConfig.
func WithStoreConfig(cfg StoreConfig) MigratorOption {
	return func(o *migratorOptions) {
		o.storeConfig = cfg
	}
}

func NewMigrator(opts ...MigratorOption) (*Migrator, error) {
	options := &migratorOptions{
		storeConfig: DefaultStoreConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	store, err := OpenStore(options.storeConfig)
	if err != nil {
		return nil, err
	}
	return NewMigratorWithStore(store), nil
}

// NewMigratorWithStore wraps an already open store. Close closes it.
func NewMigratorWithStore(store storage.VectorStore) *Migrator {
	return &Migrator{
		store:  store,
		logger: slog.Default(),
	}
}

func (m *Migrator) Close() error {
	if err := m.store.Close(); err != nil {
		m.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

func (m *Migrator) Store() storage.VectorStore {
	return m.store
}

// NewCoordinator creates the embedder described by aiConfig and a
// coordinator that migrates with it.
func (m *Migrator) NewCoordinator(aiConfig *ai.Config, config *migrate.Config, progress io.Writer) (*migrate.Coordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	embedder, err := NewEmbedder(aiConfig)
	if err != nil {
		return nil, err
	}
	return migrate.NewCoordinator(m.store, embedder, config, progress)
}

// CollectionInfo describes a collection for display.
type CollectionInfo struct {
	Name     string
	Exists   bool
	Size     int
	Distance core.Distance
	Points   uint64
}

// Inspect reports a collection's schema and size. A missing collection is
// not an error; Exists is false.
func (m *Migrator) Inspect(ctx context.Context, name string) (*CollectionInfo, error) {
	info := &CollectionInfo{Name: name}

	exists, err := m.store.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return info, nil
	}
	info.Exists = true

	cfg, err := m.store.GetCollectionConfig(ctx, name)
	if err != nil {
		return nil, err
	}
	info.Size = cfg.Size
	info.Distance = cfg.Distance

	info.Points, err = m.store.CountPoints(ctx, name)
	if err != nil {
		return nil, err
	}
	return info, nil
}
