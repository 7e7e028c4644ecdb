// Package config loads revec settings from a TOML file.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default. Unknown keys are rejected so typos surface early.
//
//	log_level = "debug"
//
//	[store]
//	kind = "qdrant"
//	url = "http://qdrant:6334"
//
//	[embedding]
//	provider = "http"
//	host = "http://gpu-box:11434"
//	model = "nomic-embed-text"
//
//	[migration]
//	source = "policies_openai"
//	destination = "policies_ollama"
//	retry_delay = "2s"
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/revec"
	"github.com/poiesic/revec/ai"
	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/migrate"
)

// Duration is a time.Duration written as a string such as "2s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Store is the [store] table.
type Store struct {
	Kind   string `toml:"kind"`
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
	Path   string `toml:"path"`
}

// Embedding is the [embedding] table.
type Embedding struct {
	Provider     string   `toml:"provider"`
	Host         string   `toml:"host"`
	Model        string   `toml:"model"`
	APIKey       string   `toml:"api_key"`
	RequestField string   `toml:"request_field"`
	ResponsePath string   `toml:"response_path"`
	Timeout      Duration `toml:"timeout"`
	RateLimit    float64  `toml:"rate_limit"`
	RateBurst    int      `toml:"rate_burst"`
}

// Migration is the [migration] table.
type Migration struct {
	Source                  string   `toml:"source"`
	Destination             string   `toml:"destination"`
	TextField               string   `toml:"text_field"`
	Distance                string   `toml:"distance"`
	BatchSize               int      `toml:"batch_size"`
	MaxRetries              int      `toml:"max_retries"`
	RetryDelay              Duration `toml:"retry_delay"`
	Concurrency             int      `toml:"concurrency"`
	ReportInterval          int      `toml:"report_interval"`
	Normalize               bool     `toml:"normalize"`
	AbortOnEmbeddingFailure bool     `toml:"abort_on_embedding_failure"`
	Recreate                bool     `toml:"recreate"`
}

// File is the whole configuration file.
type File struct {
	LogLevel  string    `toml:"log_level"`
	Store     Store     `toml:"store"`
	Embedding Embedding `toml:"embedding"`
	Migration Migration `toml:"migration"`
}

// Default returns the built-in settings.
func Default() *File {
	store := revec.DefaultStoreConfig()
	embedding := ai.DefaultConfig()
	migration := migrate.DefaultConfig()

	return &File{
		LogLevel: "info",
		Store: Store{
			Kind: string(store.Kind),
			URL:  store.URL,
		},
		Embedding: Embedding{
			Provider:     string(embedding.Provider),
			Host:         embedding.EmbeddingHost,
			RequestField: embedding.RequestField,
			ResponsePath: embedding.ResponsePath,
			Timeout:      Duration(embedding.Timeout),
			RateBurst:    migration.RateBurst,
		},
		Migration: Migration{
			TextField:      migration.TextField,
			Distance:       string(migration.Distance),
			BatchSize:      migration.BatchSize,
			MaxRetries:     migration.Retry.MaxAttempts,
			RetryDelay:     Duration(migration.Retry.Delay),
			Concurrency:    migration.Concurrency,
			ReportInterval: migration.ReportInterval,
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML from r over the defaults.
func Parse(r io.Reader) (*File, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StoreConfig returns the store settings.
func (f *File) StoreConfig() revec.StoreConfig {
	return revec.StoreConfig{
		Kind:   revec.StoreKind(f.Store.Kind),
		URL:    f.Store.URL,
		APIKey: f.Store.APIKey,
		Path:   f.Store.Path,
	}
}

// AIConfig returns the embedding service settings.
func (f *File) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.Provider(f.Embedding.Provider)),
		ai.WithEmbeddingHost(f.Embedding.Host),
		ai.WithEmbeddingModel(f.Embedding.Model),
		ai.WithAPIKey(f.Embedding.APIKey),
		ai.WithRequestField(f.Embedding.RequestField),
		ai.WithResponsePath(f.Embedding.ResponsePath),
		ai.WithTimeout(time.Duration(f.Embedding.Timeout)),
	)
}

// MigrationConfig returns the coordinator settings. An unrecognized distance
// is passed through so Validate can report it.
func (f *File) MigrationConfig() *migrate.Config {
	m := f.Migration
	distance, err := core.ParseDistance(m.Distance)
	if err != nil {
		distance = core.Distance(m.Distance)
	}

	retry := migrate.DefaultRetryPolicy()
	retry.MaxAttempts = m.MaxRetries
	retry.Delay = time.Duration(m.RetryDelay)

	return migrate.NewConfig(m.Source, m.Destination,
		migrate.WithTextField(m.TextField),
		migrate.WithDistance(distance),
		migrate.WithBatchSize(m.BatchSize),
		migrate.WithRetryPolicy(retry),
		migrate.WithConcurrency(m.Concurrency),
		migrate.WithReportInterval(m.ReportInterval),
		migrate.WithRateLimitPerSecond(f.Embedding.RateLimit),
		migrate.WithRateBurst(f.Embedding.RateBurst),
		migrate.WithNormalizedVectors(m.Normalize),
		migrate.WithAbortOnEmbeddingFailure(m.AbortOnEmbeddingFailure),
		migrate.WithRecreate(m.Recreate),
	)
}

// Validate checks every section. It makes no network calls.
func (f *File) Validate() error {
	store := f.StoreConfig()
	if err := store.Validate(); err != nil {
		return err
	}
	if err := f.AIConfig().Validate(); err != nil {
		return err
	}
	return f.MigrationConfig().Validate()
}
