package badger

import (
	"context"
	"testing"

	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedPoints(t *testing.T, store *Store, name string, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, name, core.CollectionConfig{Size: 2, Distance: core.DistanceCosine}))
	points := make([]*core.Point, 0, n)
	for i := 1; i <= n; i++ {
		points = append(points, &core.Point{
			ID:      core.NumericID(uint64(i)),
			Vector:  []float32{float32(i), 1},
			Payload: map[string]any{"text": "doc", "n": int64(i)},
		})
	}
	require.NoError(t, store.Upsert(ctx, name, points...))
}

func TestStore_CollectionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exists, err := store.CollectionExists(ctx, "policies")
	require.NoError(t, err)
	assert.False(t, exists)

	cfg := core.CollectionConfig{Size: 768, Distance: core.DistanceCosine}
	require.NoError(t, store.CreateCollection(ctx, "policies", cfg))

	exists, err = store.CollectionExists(ctx, "policies")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.GetCollectionConfig(ctx, "policies")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	err = store.CreateCollection(ctx, "policies", cfg)
	assert.ErrorIs(t, err, storage.ErrCollectionExists)

	require.NoError(t, store.DeleteCollection(ctx, "policies"))

	exists, err = store.CollectionExists(ctx, "policies")
	require.NoError(t, err)
	assert.False(t, exists)

	err = store.DeleteCollection(ctx, "policies")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_CreateCollectionValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.CreateCollection(ctx, "bad:name", core.CollectionConfig{Size: 3, Distance: core.DistanceDot})
	assert.ErrorIs(t, err, core.ErrInvalidCollectionName)

	err = store.CreateCollection(ctx, "ok", core.CollectionConfig{Size: 0, Distance: core.DistanceDot})
	assert.ErrorIs(t, err, core.ErrInvalidVectorSize)
}

func TestStore_MissingCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetCollectionConfig(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.CountPoints(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, _, err = store.Scroll(ctx, "nope", nil, 10, true)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Upsert(ctx, "nope", &core.Point{ID: core.NumericID(1), Vector: []float32{1}})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_UpsertAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedPoints(t, store, "src", 5)

	count, err := store.CountPoints(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)

	// Upsert of an existing id replaces it
	require.NoError(t, store.Upsert(ctx, "src", &core.Point{
		ID:      core.NumericID(3),
		Vector:  []float32{9, 9},
		Payload: map[string]any{"text": "replaced"},
	}))

	count, err = store.CountPoints(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)

	point, err := store.Get(ctx, "src", core.NumericID(3))
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9}, point.Vector)
	assert.Equal(t, "replaced", point.Payload["text"])
}

func TestStore_UpsertRejectsWrongSize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedPoints(t, store, "src", 1)

	err := store.Upsert(ctx, "src",
		&core.Point{ID: core.NumericID(10), Vector: []float32{1, 2}},
		&core.Point{ID: core.NumericID(11), Vector: []float32{1, 2, 3}},
	)
	assert.ErrorIs(t, err, storage.ErrInvalidPoint)

	// Batch is atomic
	_, err = store.Get(ctx, "src", core.NumericID(10))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ScrollPages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedPoints(t, store, "src", 7)

	var (
		all    []uint64
		offset *core.PointID
		pages  int
	)
	for {
		points, next, err := store.Scroll(ctx, "src", offset, 3, true)
		require.NoError(t, err)
		pages++
		for _, p := range points {
			all = append(all, p.ID.Num())
			assert.Nil(t, p.Vector)
			assert.Equal(t, "doc", p.Payload["text"])
		}
		if next == nil {
			break
		}
		offset = next
	}

	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7}, all)
	assert.Equal(t, 3, pages)
}

func TestStore_ScrollExactMultiple(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedPoints(t, store, "src", 4)

	points, next, err := store.Scroll(ctx, "src", nil, 2, false)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.NotNil(t, next)
	assert.Equal(t, core.NumericID(3), *next)
	assert.Nil(t, points[0].Payload)

	points, next, err = store.Scroll(ctx, "src", next, 2, false)
	require.NoError(t, err)
	assert.Len(t, points, 2)
	assert.Nil(t, next)
}

func TestStore_ScrollEmptyCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, "empty", core.CollectionConfig{Size: 2, Distance: core.DistanceCosine}))

	points, next, err := store.Scroll(ctx, "empty", nil, 10, true)
	require.NoError(t, err)
	assert.Empty(t, points)
	assert.Nil(t, next)
}

func TestStore_ScrollInvalidLimit(t *testing.T) {
	store := newTestStore(t)
	_, _, err := store.Scroll(context.Background(), "src", nil, 0, true)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedPoints(t, store, "a", 3)
	seedPoints(t, store, "ab", 2)

	count, err := store.CountPoints(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	require.NoError(t, store.DeleteCollection(ctx, "a"))

	count, err = store.CountPoints(ctx, "ab")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestStore_StringIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, "s", core.CollectionConfig{Size: 1, Distance: core.DistanceDot}))
	require.NoError(t, store.Upsert(ctx, "s",
		&core.Point{ID: core.StringID("b"), Vector: []float32{1}},
		&core.Point{ID: core.NumericID(5), Vector: []float32{1}},
		&core.Point{ID: core.StringID("a"), Vector: []float32{1}},
	))

	points, next, err := store.Scroll(ctx, "s", nil, 10, false)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, points, 3)
	assert.Equal(t, core.NumericID(5), points[0].ID)
	assert.Equal(t, core.StringID("a"), points[1].ID)
	assert.Equal(t, core.StringID("b"), points[2].ID)
}

func TestStore_ClosedStore(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.CollectionExists(context.Background(), "x")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestNewStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(ctx, "persisted", core.CollectionConfig{Size: 1, Distance: core.DistanceCosine}))
	require.NoError(t, store.Upsert(ctx, "persisted", &core.Point{ID: core.NumericID(1), Vector: []float32{1}}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.CountPoints(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
