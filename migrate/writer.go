package migrate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/storage"
)

// CollectionWriter prepares the destination collection and writes batches
// of points to it.
type CollectionWriter struct {
	store  storage.VectorStore
	logger *slog.Logger
}

// NewCollectionWriter creates a writer over store.
func NewCollectionWriter(store storage.VectorStore) *CollectionWriter {
	return &CollectionWriter{
		store:  store,
		logger: slog.Default().With("component", "collection-writer"),
	}
}

// EnsureCollection creates name with the given vector size and distance if
// it does not exist. An existing collection is reused when its vector size
// matches; otherwise a *SchemaMismatchError is returned. A differing
// distance is logged and tolerated. created reports whether the collection
// was made by this call.
func (w *CollectionWriter) EnsureCollection(ctx context.Context, name string, size int, distance core.Distance) (bool, error) {
	cfg := core.CollectionConfig{Size: size, Distance: distance}

	exists, err := w.store.CollectionExists(ctx, name)
	if err != nil {
		return false, &WriteError{Op: "check", Collection: name, Err: err}
	}
	if !exists {
		err := w.store.CreateCollection(ctx, name, cfg)
		if err == nil {
			w.logger.Info("created collection", "name", name, "size", size, "distance", distance)
			return true, nil
		}
		// Someone else created it in the meantime
		if !errors.Is(err, storage.ErrCollectionExists) {
			return false, &WriteError{Op: "create", Collection: name, Err: err}
		}
	}

	existing, err := w.store.GetCollectionConfig(ctx, name)
	if err != nil {
		return false, &WriteError{Op: "inspect", Collection: name, Err: err}
	}
	if existing.Size != size {
		return false, &SchemaMismatchError{Collection: name, Expected: size, Actual: existing.Size}
	}
	if existing.Distance != distance {
		w.logger.Warn("reusing collection with different distance",
			"name", name, "existing", existing.Distance, "requested", distance)
	}
	w.logger.Info("reusing collection", "name", name, "size", existing.Size)
	return false, nil
}

// RecreateCollection drops name if it exists and creates it afresh.
func (w *CollectionWriter) RecreateCollection(ctx context.Context, name string, size int, distance core.Distance) error {
	exists, err := w.store.CollectionExists(ctx, name)
	if err != nil {
		return &WriteError{Op: "check", Collection: name, Err: err}
	}
	if exists {
		if err := w.store.DeleteCollection(ctx, name); err != nil {
			return &WriteError{Op: "delete", Collection: name, Err: err}
		}
		w.logger.Info("deleted collection", "name", name)
	}
	if err := w.store.CreateCollection(ctx, name, core.CollectionConfig{Size: size, Distance: distance}); err != nil {
		return &WriteError{Op: "create", Collection: name, Err: err}
	}
	w.logger.Info("created collection", "name", name, "size", size, "distance", distance)
	return nil
}

// UpsertBatch writes points in one request. All vectors must share one
// length. Points with ids already in the collection are replaced.
func (w *CollectionWriter) UpsertBatch(ctx context.Context, name string, points []*core.Point) error {
	if len(points) == 0 {
		return &WriteError{Op: "upsert", Collection: name, Err: ErrEmptyBatch}
	}
	size := len(points[0].Vector)
	for _, p := range points[1:] {
		if len(p.Vector) != size {
			return &WriteError{Op: "upsert", Collection: name, Points: len(points), Attempts: 1, Err: ErrMixedDimensions}
		}
	}

	if err := w.store.Upsert(ctx, name, points...); err != nil {
		return &WriteError{Op: "upsert", Collection: name, Points: len(points), Attempts: 1, Err: err}
	}
	w.logger.Debug("wrote batch", "collection", name, "points", len(points))
	return nil
}
