package storage

import (
	"context"

	"github.com/poiesic/revec/core"
)

// CollectionManager manages collection lifecycle and schema.
type CollectionManager interface {
	// CollectionExists reports whether a collection with the given name exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a collection with the given vector schema.
	// Returns ErrCollectionExists if it already exists.
	CreateCollection(ctx context.Context, name string, cfg core.CollectionConfig) error

	// DeleteCollection drops a collection and every point in it.
	// Returns ErrNotFound if it does not exist.
	DeleteCollection(ctx context.Context, name string) error

	// GetCollectionConfig returns the vector schema of a collection.
	// Returns ErrNotFound if it does not exist.
	GetCollectionConfig(ctx context.Context, name string) (core.CollectionConfig, error)
}

// PointReader reads points from a collection.
type PointReader interface {
	// CountPoints returns the exact number of points in a collection.
	CountPoints(ctx context.Context, name string) (uint64, error)

	// Scroll returns up to limit points in id order starting at offset
	// (nil means the first point) and the id to resume from.
	// A nil next offset means there are no further points.
	// Vectors are not returned.
	Scroll(ctx context.Context, name string, offset *core.PointID, limit int, withPayload bool) ([]*core.Point, *core.PointID, error)
}

// PointWriter writes points to a collection.
type PointWriter interface {
	// Upsert inserts or replaces points by id. The call returns once the
	// write is applied. Vectors must match the collection's configured size.
	Upsert(ctx context.Context, name string, points ...*core.Point) error
}

// VectorStore is the full vector store surface used by the migration.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	CollectionManager
	PointReader
	PointWriter

	// Close releases resources held by the store.
	Close() error
}
