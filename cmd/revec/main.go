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


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/revec"
	"github.com/poiesic/revec/config"
	"github.com/poiesic/revec/migrate"
	"github.com/urfave/cli/v2"
)

var errMemoryStoreMigrate = errors.New("the memory store starts empty and cannot be migrated from; use --store qdrant or --store badger")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "revec",
		Usage: "Re-embed a vector collection with a new embedding model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file; flags override its values",
				EnvVars: []string{"REVEC_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Copy every record of the source collection into the destination with new embeddings",
				Action: migrateCommand,
				Flags:  append(storeFlags(), migrateFlags()...),
			},
			{
				Name:   "inspect",
				Usage:  "Show a collection's vector size, distance and point count",
				Action: inspectCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "collection",
						Usage:    "Collection to inspect",
						Required: true,
					},
				),
			},
		},
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "store",
			Usage:   "Vector store backend (qdrant, badger, memory); memory starts empty and serves only inspect",
			Value:   "qdrant",
			EnvVars: []string{"REVEC_STORE"},
		},
		&cli.StringFlag{
			Name:    "store-url",
			Usage:   "Qdrant gRPC URL",
			Value:   "http://localhost:6334",
			EnvVars: []string{"QDRANT_URL"},
		},
		&cli.StringFlag{
			Name:    "store-api-key",
			Usage:   "Qdrant API key",
			EnvVars: []string{"QDRANT_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "store-path",
			Usage:   "Path to BadgerDB database directory",
			EnvVars: []string{"REVEC_STORE_PATH"},
		},
	}
}

func migrateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-provider",
			Usage:   "Embedding API flavor (http, ollama, openai)",
			Value:   "http",
			EnvVars: []string{"EMBEDDING_PROVIDER"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434",
			EnvVars: []string{"OLLAMA_URL"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{"EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "embedding-api-key",
			Usage:   "API key for the openai provider",
			EnvVars: []string{"EMBEDDING_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "request-field",
			Usage: "JSON field carrying the text (http provider)",
			Value: "prompt",
		},
		&cli.StringFlag{
			Name:  "response-path",
			Usage: "JSON path of the vector in the response (http provider)",
			Value: "embedding",
		},
		&cli.DurationFlag{
			Name:  "embedding-timeout",
			Usage: "Timeout for a single embedding request",
			Value: 5 * time.Minute,
		},
		&cli.Float64Flag{
			Name:  "rate-limit",
			Usage: "Maximum embedding requests per second (0 for no limit)",
		},
		&cli.IntFlag{
			Name:  "rate-burst",
			Usage: "Embedding requests allowed back to back under --rate-limit",
			Value: 1,
		},
		&cli.StringFlag{
			Name:    "source",
			Usage:   "Source collection",
			EnvVars: []string{"SOURCE_COLLECTION"},
		},
		&cli.StringFlag{
			Name:    "destination",
			Usage:   "Destination collection",
			EnvVars: []string{"DEST_COLLECTION"},
		},
		&cli.StringFlag{
			Name:  "text-field",
			Usage: "Payload field holding the text to embed",
			Value: "text",
		},
		&cli.StringFlag{
			Name:  "distance",
			Usage: "Distance for a newly created destination (Cosine, Euclid, Dot, Manhattan)",
			Value: "Cosine",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of records to process in each batch",
			Value: 100,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum attempts per embedding request and batch write",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Delay between attempts",
			Value: 2 * time.Second,
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Embedding requests in flight per batch",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N records",
			Value: 100,
		},
		&cli.BoolFlag{
			Name:  "normalize",
			Usage: "Scale vectors to unit length before writing",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Abort instead of skipping a record that cannot be embedded",
		},
		&cli.BoolFlag{
			Name:  "recreate",
			Usage: "Drop and recreate the destination before migrating",
		},
	}
}

// loadConfig reads --config when given and applies any flags that were set.
func loadConfig(c *cli.Context) (*config.File, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	setString(c, "store", &cfg.Store.Kind)
	setString(c, "store-url", &cfg.Store.URL)
	setString(c, "store-api-key", &cfg.Store.APIKey)
	setString(c, "store-path", &cfg.Store.Path)

	setString(c, "embedding-provider", &cfg.Embedding.Provider)
	setString(c, "embedding-host", &cfg.Embedding.Host)
	setString(c, "embedding-model", &cfg.Embedding.Model)
	setString(c, "embedding-api-key", &cfg.Embedding.APIKey)
	setString(c, "request-field", &cfg.Embedding.RequestField)
	setString(c, "response-path", &cfg.Embedding.ResponsePath)
	if c.IsSet("embedding-timeout") {
		cfg.Embedding.Timeout = config.Duration(c.Duration("embedding-timeout"))
	}
	if c.IsSet("rate-limit") {
		cfg.Embedding.RateLimit = c.Float64("rate-limit")
	}
	setInt(c, "rate-burst", &cfg.Embedding.RateBurst)

	setString(c, "source", &cfg.Migration.Source)
	setString(c, "destination", &cfg.Migration.Destination)
	setString(c, "text-field", &cfg.Migration.TextField)
	setString(c, "distance", &cfg.Migration.Distance)
	setInt(c, "batch-size", &cfg.Migration.BatchSize)
	setInt(c, "max-retries", &cfg.Migration.MaxRetries)
	setInt(c, "concurrency", &cfg.Migration.Concurrency)
	setInt(c, "report-interval", &cfg.Migration.ReportInterval)
	if c.IsSet("retry-delay") {
		cfg.Migration.RetryDelay = config.Duration(c.Duration("retry-delay"))
	}
	setBool(c, "normalize", &cfg.Migration.Normalize)
	setBool(c, "strict", &cfg.Migration.AbortOnEmbeddingFailure)
	setBool(c, "recreate", &cfg.Migration.Recreate)

	return cfg, nil
}

func setString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func setInt(c *cli.Context, name string, dst *int) {
	if c.IsSet(name) {
		*dst = c.Int(name)
	}
}

func setBool(c *cli.Context, name string, dst *bool) {
	if c.IsSet(name) {
		*dst = c.Bool(name)
	}
}

func migrateCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store := cfg.StoreConfig()
	if err := store.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// A fresh memory store never holds the source collection
	if store.Kind == revec.StoreMemory {
		return errMemoryStoreMigrate
	}

	migrator, err := revec.NewMigrator(revec.WithStoreConfig(store))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer migrator.Close()

	coordinator, err := migrator.NewCoordinator(cfg.AIConfig(), cfg.MigrationConfig(), c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}

	errw := c.App.ErrWriter
	fmt.Fprintf(errw, "Store: %s\n", storeLocation(store))
	fmt.Fprintf(errw, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(errw, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintln(errw)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := coordinator.Run(ctx)
	if report != nil {
		printReport(c.App.Writer, report)
	}
	if err != nil {
		return fmt.Errorf("migration aborted: %w", err)
	}
	return nil
}

func inspectCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	migrator, err := revec.NewMigrator(revec.WithStoreConfig(cfg.StoreConfig()))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer migrator.Close()

	info, err := migrator.Inspect(context.Background(), c.String("collection"))
	if err != nil {
		return fmt.Errorf("inspect failed: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "collection: %s\n", info.Name)
	fmt.Fprintf(w, "exists: %t\n", info.Exists)
	if info.Exists {
		fmt.Fprintf(w, "vector size: %d\n", info.Size)
		fmt.Fprintf(w, "distance: %s\n", info.Distance)
		fmt.Fprintf(w, "points: %d\n", info.Points)
	}
	return nil
}

func printReport(w io.Writer, report *migrate.Report) {
	fmt.Fprintln(w, report.String())
	fmt.Fprintf(w, "status=%s duplicates=%d skipped_empty=%d skipped_failed=%d pages=%d dimension=%d elapsed=%s\n",
		report.Status, report.Duplicates, report.SkippedEmpty, report.SkippedFailed,
		report.Pages, report.Dimension, report.Elapsed.Round(time.Millisecond))
}

func storeLocation(cfg revec.StoreConfig) string {
	switch cfg.Kind {
	case revec.StoreBadger:
		return "badger " + cfg.Path
	case revec.StoreMemory:
		return "memory"
	default:
		return string(cfg.Kind) + " " + cfg.URL
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := c.String("log-level")
	if !c.IsSet("log-level") && c.String("config") != "" {
		if cfg, err := config.Load(c.String("config")); err == nil && cfg.LogLevel != "" {
			levelStr = cfg.LogLevel
		}
	}

	level, err := parseLevel(levelStr)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}
