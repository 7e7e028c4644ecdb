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


package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/revec/ai"
	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/storage"
)

// Config holds configuration for a migration run.
type Config struct {
	// Source is the collection records are read from. It is never modified.
	Source string

	// Destination is the collection re-embedded points are written to.
	Destination string

	// TextField is the payload key holding the text to embed.
	TextField string

	// Distance is used when the destination has to be created.
	Distance core.Distance

	// BatchSize is the number of records read and written per page.
	BatchSize int

	// Retry governs both embedding calls and batch writes.
	Retry RetryPolicy

	// Concurrency is the number of embedding calls in flight within a page.
	Concurrency int

	// ReportInterval is how often to report progress (number of records).
	ReportInterval int

	// RateLimit caps embedding requests per second. Zero disables it.
	RateLimit float64

	// RateBurst is how many requests may go out at once under RateLimit.
	RateBurst int

	// Normalize scales vectors to unit length before writing.
	Normalize bool

	// AbortOnEmbeddingFailure turns a record that cannot be embedded into a
	// fatal error instead of a skip.
	AbortOnEmbeddingFailure bool

	// Recreate drops the destination before the run.
	Recreate bool
}

// Option configures a Config.
type Option func(*Config)

// WithTextField sets the payload key holding the text to embed.
func WithTextField(field string) Option {
	return func(c *Config) { c.TextField = field }
}

// WithDistance sets the distance used when creating the destination.
func WithDistance(d core.Distance) Option {
	return func(c *Config) { c.Distance = d }
}

func WithBatchSize(n int) Option {
	return func(c *Config) { c.BatchSize = n }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Config) { c.Retry = p }
}

// WithConcurrency sets how many embedding calls run at once within a page.
func WithConcurrency(n int) Option {
	return func(c *Config) { c.Concurrency = n }
}

func WithReportInterval(n int) Option {
	return func(c *Config) { c.ReportInterval = n }
}

// WithRateLimitPerSecond caps embedding requests per second.
func WithRateLimitPerSecond(rps float64) Option {
	return func(c *Config) { c.RateLimit = rps }
}

// WithRateBurst sets how many embedding requests may go out back to back
// before RateLimit applies.
func WithRateBurst(burst int) Option {
	return func(c *Config) { c.RateBurst = burst }
}

func WithNormalizedVectors(normalize bool) Option {
	return func(c *Config) { c.Normalize = normalize }
}

// WithAbortOnEmbeddingFailure makes an unembeddable record fatal.
func WithAbortOnEmbeddingFailure(abort bool) Option {
	return func(c *Config) { c.AbortOnEmbeddingFailure = abort }
}

// WithRecreate drops and recreates the destination before the run.
func WithRecreate(recreate bool) Option {
	return func(c *Config) { c.Recreate = recreate }
}

// DefaultConfig returns a Config with sensible defaults and no collections.
func DefaultConfig() *Config {
	return &Config{
		TextField:      "text",
		Distance:       core.DistanceCosine,
		BatchSize:      100,
		Retry:          DefaultRetryPolicy(),
		Concurrency:    1,
		ReportInterval: 100,
		RateBurst:      1,
	}
}

// NewConfig returns the defaults for migrating source into destination with
// opts applied.
func NewConfig(source, destination string, opts ...Option) *Config {
	cfg := DefaultConfig()
	cfg.Source = source
	cfg.Destination = destination
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks the configuration without touching any service.
func (c *Config) Validate() error {
	if c.Source == "" {
		return ErrSourceRequired
	}
	if c.Destination == "" {
		return ErrDestinationRequired
	}
	if c.Source == c.Destination {
		return fmt.Errorf("%w: %s", ErrSameCollection, c.Source)
	}
	if err := core.ValidateCollectionName(c.Source); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := core.ValidateCollectionName(c.Destination); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if c.TextField == "" {
		return errors.New("text field is required")
	}
	if err := core.ValidateDistance(c.Distance); err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}
	if c.RateBurst <= 0 {
		return ErrInvalidRateBurst
	}
	return c.Retry.Validate()
}

// State is a coordinator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateInit
	StatePaging
	StateEmbedding
	StateWriting
	StateAdvancing
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateInit:
		return "INIT"
	case StatePaging:
		return "PAGING"
	case StateEmbedding:
		return "EMBEDDING"
	case StateWriting:
		return "WRITING"
	case StateAdvancing:
		return "ADVANCING"
	case StateDone:
		return "DONE"
	case StateAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Status is the terminal outcome of a run.
type Status int

const (
	StatusCompleted Status = iota
	StatusPartiallyCompleted
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "Completed"
	case StatusPartiallyCompleted:
		return "PartiallyCompleted"
	case StatusAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Report summarizes a run.
type Report struct {
	Source      string
	Destination string

	// Total is the source size counted at start, used for progress only.
	Total uint64

	// Processed counts unique records handled, written or skipped.
	Processed int

	// Skipped is SkippedEmpty plus SkippedFailed.
	Skipped       int
	SkippedEmpty  int
	SkippedFailed int

	// Duplicates counts records whose id was already committed in this run.
	Duplicates int

	Written   int
	Pages     int
	Dimension int
	Created   bool
	Status    Status
	Elapsed   time.Duration
}

// String returns the one line summary printed at the end of a run.
func (r *Report) String() string {
	return fmt.Sprintf("processed=%d skipped=%d written=%d", r.Processed, r.Skipped, r.Written)
}

// Coordinator drives a migration from the source to the destination
// collection. A Coordinator can run more than once; each Run starts from
// the beginning of the source with fresh state.
type Coordinator struct {
	reader    *CursorReader
	writer    *CollectionWriter
	embedding *EmbeddingClient
	config    *Config
	progress  io.Writer
	state     atomic.Int32
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator. progress receives the progress line
// (typically os.Stderr); nil discards it.
func NewCoordinator(store storage.VectorStore, embedder ai.Embedder, config *Config, progress io.Writer) (*Coordinator, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	client, err := NewEmbeddingClient(embedder, config.Retry,
		WithRateLimit(config.RateLimit, config.RateBurst),
		WithNormalize(config.Normalize))
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		reader:    NewCursorReader(store, config.TextField),
		writer:    NewCollectionWriter(store),
		embedding: client,
		config:    config,
		progress:  progress,
		logger: slog.Default().With("component", "migration",
			"source", config.Source, "destination", config.Destination),
	}, nil
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debug("state", "state", s.String())
}

// run is the mutable state of a single Run.
type run struct {
	report *Report
	seen   map[core.PointID]struct{}
	cursor Cursor
}

// Run performs the migration. On success the report's status is Completed,
// or PartiallyCompleted when records were skipped after failing to embed.
// On failure the report carries status Aborted and the counts reached so
// far, and the error names the cause.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	r := &run{
		report: &Report{Source: c.config.Source, Destination: c.config.Destination},
		seen:   make(map[core.PointID]struct{}),
	}

	abort := func(err error) (*Report, error) {
		c.setState(StateAborted)
		r.report.Status = StatusAborted
		r.report.Elapsed = time.Since(start)
		c.logger.Error("migration aborted", "error", err, "progress", r.report.String())
		return r.report, err
	}

	c.setState(StateInit)
	if err := c.init(ctx, r); err != nil {
		return abort(err)
	}

	fmt.Fprintf(c.progress, "Migrating %d records from %s to %s...\n", r.report.Total, c.config.Source, c.config.Destination)
	tracker := NewProgressTracker(c.progress, int(r.report.Total), c.config.ReportInterval)
	tracker.Start()

	var pool *ants.Pool
	if c.config.Concurrency > 1 {
		var err error
		pool, err = ants.NewPool(c.config.Concurrency)
		if err != nil {
			return abort(fmt.Errorf("create embedding pool: %w", err))
		}
		defer pool.Release()
	}

	for {
		if err := ctx.Err(); err != nil {
			tracker.Finish()
			return abort(err)
		}

		c.setState(StatePaging)
		records, next, err := c.reader.NextPage(ctx, c.config.Source, r.cursor, c.config.BatchSize)
		if err != nil {
			tracker.Finish()
			return abort(err)
		}
		if len(records) == 0 {
			break
		}
		r.report.Pages++

		c.setState(StateEmbedding)
		before := *r.report
		points, err := c.embedPage(ctx, pool, r, records)
		if err != nil {
			tracker.Finish()
			return abort(err)
		}

		if len(points) > 0 {
			c.setState(StateWriting)
			if err := c.writeBatch(ctx, points); err != nil {
				tracker.Finish()
				return abort(err)
			}
			r.report.Written += len(points)
		}

		c.setState(StateAdvancing)
		tracker.Add(len(records), r.report.Skipped-before.Skipped)
		if next.equal(r.cursor) {
			tracker.Finish()
			return abort(fmt.Errorf("%w: still at %s after %d records", ErrCursorStalled, r.cursor, len(records)))
		}
		r.cursor = next
	}

	tracker.Finish()
	c.setState(StateDone)

	r.report.Elapsed = time.Since(start)
	r.report.Status = StatusCompleted
	if r.report.SkippedFailed > 0 {
		r.report.Status = StatusPartiallyCompleted
	}
	fmt.Fprintf(c.progress, "Migration complete in %v\n", r.report.Elapsed.Round(time.Millisecond))
	c.logger.Info("migration finished",
		"status", r.report.Status.String(),
		"processed", r.report.Processed,
		"skipped", r.report.Skipped,
		"written", r.report.Written,
		"duplicates", r.report.Duplicates,
		"pages", r.report.Pages)
	return r.report, nil
}

func (c *Coordinator) init(ctx context.Context, r *run) error {
	dim, err := c.embedding.Probe(ctx)
	if err != nil {
		return err
	}
	r.report.Dimension = dim

	// Read the source before touching the destination
	total, err := c.reader.Count(ctx, c.config.Source)
	if err != nil {
		return err
	}
	r.report.Total = total

	if c.config.Recreate {
		if err := c.writer.RecreateCollection(ctx, c.config.Destination, dim, c.config.Distance); err != nil {
			return err
		}
		r.report.Created = true
	} else {
		created, err := c.writer.EnsureCollection(ctx, c.config.Destination, dim, c.config.Distance)
		if err != nil {
			return err
		}
		r.report.Created = created
	}

	return nil
}

type embedResult struct {
	vector []float32
	err    error
}

// embedPage turns a page of records into points, updating the run's
// counters and seen-id set. Only the calling goroutine touches r.
func (c *Coordinator) embedPage(ctx context.Context, pool *ants.Pool, r *run, records []*core.Record) ([]*core.Point, error) {
	pending := make(map[core.PointID]struct{}, len(records))
	jobs := make([]*core.Record, 0, len(records))

	for _, rec := range records {
		if _, ok := r.seen[rec.ID]; ok {
			r.report.Duplicates++
			continue
		}
		if _, ok := pending[rec.ID]; ok {
			r.report.Duplicates++
			continue
		}
		pending[rec.ID] = struct{}{}
		jobs = append(jobs, rec)
	}

	results, err := c.embedAll(ctx, pool, jobs)
	if err != nil {
		return nil, err
	}

	points := make([]*core.Point, 0, len(jobs))
	for i, rec := range jobs {
		res := results[i]
		if res.err != nil {
			if errors.Is(res.err, ErrEmptyText) {
				r.report.Processed++
				r.report.Skipped++
				r.report.SkippedEmpty++
				c.logger.Warn("skipping record without text", "id", rec.ID.String(), "field", c.config.TextField)
				continue
			}

			var embedErr *EmbeddingError
			if !errors.As(res.err, &embedErr) {
				return nil, res.err
			}
			id := rec.ID
		embedErr.ID = &id
			if c.config.AbortOnEmbeddingFailure {
				return nil, embedErr
			}
			r.report.Processed++
			r.report.Skipped++
			r.report.SkippedFailed++
			c.logger.Warn("skipping record", "id", rec.ID.String(), "attempts", embedErr.Attempts, "error", embedErr.Err)
			continue
		}

		r.seen[rec.ID] = struct{}{}
		r.report.Processed++
		points = append(points, &core.Point{
			ID:      rec.ID,
			Vector:  res.vector,
			Payload: rec.Payload,
		})
	}
	return points, nil
}

// embedAll embeds each record's text, in parallel when a pool is given.
// Results are in the order of records. A cancelled context fails the page.
func (c *Coordinator) embedAll(ctx context.Context, pool *ants.Pool, records []*core.Record) ([]embedResult, error) {
	results := make([]embedResult, len(records))

	if pool == nil {
		for i, rec := range records {
			vector, err := c.embedding.Embed(ctx, rec.Text)
			if err != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			results[i] = embedResult{vector: vector, err: err}
		}
		return results, nil
	}

	var wg sync.WaitGroup
	for i, rec := range records {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			vector, err := c.embedding.Embed(ctx, rec.Text)
			results[i] = embedResult{vector: vector, err: err}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit embedding task: %w", err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// writeBatch upserts points, retrying the whole batch per the retry policy.
func (c *Coordinator) writeBatch(ctx context.Context, points []*core.Point) error {
	attempts, err := c.config.Retry.Do(ctx, func(ctx context.Context) error {
		return c.writer.UpsertBatch(ctx, c.config.Destination, points)
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var writeErr *WriteError
	if errors.As(err, &writeErr) {
		writeErr.Attempts = attempts
		return writeErr
	}
	return &WriteError{Op: "upsert", Collection: c.config.Destination, Points: len(points), Attempts: attempts, Err: err}
}
