package migrate

import (
	"errors"
	"fmt"

	"github.com/poiesic/revec/core"
)

var (
	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	ErrInvalidBatchSize    = errors.New("batch size must be greater than 0")
	ErrInvalidConcurrency  = errors.New("concurrency must be greater than 0")
	ErrInvalidRateBurst    = errors.New("rate burst must be greater than 0")
	ErrNilConfig           = errors.New("migration config is nil")
	ErrSourceRequired      = errors.New("source collection is required")
	ErrDestinationRequired = errors.New("destination collection is required")
	ErrSameCollection      = errors.New("source and destination must differ")
	ErrCursorStalled       = errors.New("cursor did not advance")
	ErrEmptyText           = errors.New("record has no text")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrMixedDimensions     = errors.New("batch contains vectors of different dimensions")
	ErrEmptyBatch          = errors.New("batch is empty")
)

// ReadError reports a failure to read a page from the source collection.
type ReadError struct {
	Collection string
	Err        error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Collection, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// EmbeddingError reports that a record could not be embedded after all
// attempts were used. ID is nil when the failing text had no record, as
// with the dimension probe.
type EmbeddingError struct {
	ID       *core.PointID
	Attempts int
	Err      error
}

func (e *EmbeddingError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("embed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("embed record %s after %d attempts: %v", e.ID, e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// WriteError reports a failed collection operation on the destination.
type WriteError struct {
	Op         string
	Collection string
	Points     int
	Attempts   int
	Err        error
}

func (e *WriteError) Error() string {
	if e.Points > 0 {
		return fmt.Sprintf("%s %s (%d points, %d attempts): %v", e.Op, e.Collection, e.Points, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// SchemaMismatchError reports that an existing destination collection has a
// vector size different from what the embedding model produces.
type SchemaMismatchError struct {
	Collection string
	Expected   int
	Actual     int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("collection %s has vector size %d, model produces %d", e.Collection, e.Actual, e.Expected)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrDimensionMismatch }
