package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/storage"
	qc "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records requests and serves canned responses.
type fakeClient struct {
	collections map[string]*qc.VectorParams
	scrollPages [][]*qc.RetrievedPoint
	scrollNext  []*qc.PointId
	scrollReqs  []*qc.ScrollPoints
	upserts     []*qc.UpsertPoints
	count       uint64
	upsertErr   error
	closed      bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{collections: map[string]*qc.VectorParams{}}
}

func (f *fakeClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeClient) GetCollectionInfo(ctx context.Context, name string) (*qc.CollectionInfo, error) {
	params, ok := f.collections[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return &qc.CollectionInfo{
		Config: &qc.CollectionConfig{
			Params: &qc.CollectionParams{VectorsConfig: qc.NewVectorsConfig(params)},
		},
	}, nil
}

func (f *fakeClient) CreateCollection(ctx context.Context, req *qc.CreateCollection) error {
	f.collections[req.GetCollectionName()] = req.GetVectorsConfig().GetParams()
	return nil
}

func (f *fakeClient) DeleteCollection(ctx context.Context, name string) error {
	delete(f.collections, name)
	return nil
}

func (f *fakeClient) Count(ctx context.Context, req *qc.CountPoints) (uint64, error) {
	return f.count, nil
}

func (f *fakeClient) ScrollAndOffset(ctx context.Context, req *qc.ScrollPoints) ([]*qc.RetrievedPoint, *qc.PointId, error) {
	f.scrollReqs = append(f.scrollReqs, req)
	i := len(f.scrollReqs) - 1
	if i >= len(f.scrollPages) {
		return nil, nil, nil
	}
	return f.scrollPages[i], f.scrollNext[i], nil
}

func (f *fakeClient) Upsert(ctx context.Context, req *qc.UpsertPoints) (*qc.UpdateResult, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserts = append(f.upserts, req)
	return &qc.UpdateResult{}, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		host    string
		port    int
		tls     bool
		wantErr bool
	}{
		{name: "default port", url: "http://localhost", host: "localhost", port: DefaultPort},
		{name: "explicit port", url: "http://qdrant:6334", host: "qdrant", port: 6334},
		{name: "tls", url: "https://cloud.qdrant.io:443", host: "cloud.qdrant.io", port: 443, tls: true},
		{name: "bad scheme", url: "grpc://localhost:6334", wantErr: true},
		{name: "no host", url: "localhost:6334", wantErr: true},
		{name: "bad port", url: "http://localhost:99999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseConfig(Config{URL: tt.url, APIKey: "k"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, cfg.Host)
			assert.Equal(t, tt.port, cfg.Port)
			assert.Equal(t, tt.tls, cfg.UseTLS)
			assert.Equal(t, "k", cfg.APIKey)
		})
	}
}

func TestStore_CollectionConfig(t *testing.T) {
	fc := newFakeClient()
	store := newStore(fc)
	ctx := context.Background()

	cfg := core.CollectionConfig{Size: 768, Distance: core.DistanceCosine}
	require.NoError(t, store.CreateCollection(ctx, "policies_ollama", cfg))

	err := store.CreateCollection(ctx, "policies_ollama", cfg)
	assert.ErrorIs(t, err, storage.ErrCollectionExists)

	got, err := store.GetCollectionConfig(ctx, "policies_ollama")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	_, err = store.GetCollectionConfig(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.DeleteCollection(ctx, "policies_ollama"))
	assert.ErrorIs(t, store.DeleteCollection(ctx, "policies_ollama"), storage.ErrNotFound)
}

func TestStore_Scroll(t *testing.T) {
	fc := newFakeClient()
	fc.scrollPages = [][]*qc.RetrievedPoint{
		{
			{Id: qc.NewIDNum(1), Payload: qc.NewValueMap(map[string]any{"text": "a"})},
			{Id: qc.NewIDNum(2), Payload: qc.NewValueMap(map[string]any{"text": "b"})},
		},
		{
			{Id: qc.NewIDNum(3), Payload: qc.NewValueMap(map[string]any{"text": "c"})},
		},
	}
	fc.scrollNext = []*qc.PointId{qc.NewIDNum(3), nil}
	store := newStore(fc)
	ctx := context.Background()

	points, next, err := store.Scroll(ctx, "src", nil, 2, true)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, core.NumericID(1), points[0].ID)
	assert.Equal(t, "a", points[0].Payload["text"])
	require.NotNil(t, next)
	assert.Equal(t, core.NumericID(3), *next)

	points, next, err = store.Scroll(ctx, "src", next, 2, true)
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Nil(t, next)

	require.Len(t, fc.scrollReqs, 2)
	assert.Nil(t, fc.scrollReqs[0].GetOffset())
	assert.Equal(t, uint64(3), fc.scrollReqs[1].GetOffset().GetNum())
	assert.Equal(t, uint32(2), fc.scrollReqs[1].GetLimit())
}

func TestStore_Upsert(t *testing.T) {
	fc := newFakeClient()
	store := newStore(fc)
	ctx := context.Background()

	err := store.Upsert(ctx, "dst",
		&core.Point{ID: core.NumericID(1), Vector: []float32{1, 0}, Payload: map[string]any{"text": "a"}},
		&core.Point{ID: core.StringID("5c56c793-69f3-4fbf-87e6-c4bf54c28c26"), Vector: []float32{0, 1}},
	)
	require.NoError(t, err)

	require.Len(t, fc.upserts, 1)
	req := fc.upserts[0]
	assert.Equal(t, "dst", req.GetCollectionName())
	assert.True(t, req.GetWait())
	assert.Len(t, req.GetPoints(), 2)
}

func TestStore_UpsertRejectsBadID(t *testing.T) {
	fc := newFakeClient()
	store := newStore(fc)

	err := store.Upsert(context.Background(), "dst", &core.Point{ID: core.StringID("doc-1"), Vector: []float32{1}})
	assert.ErrorIs(t, err, storage.ErrInvalidPoint)
	assert.Empty(t, fc.upserts)
}

func TestStore_UpsertPropagatesError(t *testing.T) {
	fc := newFakeClient()
	fc.upsertErr = errors.New("unavailable")
	store := newStore(fc)

	err := store.Upsert(context.Background(), "dst", &core.Point{ID: core.NumericID(1), Vector: []float32{1}})
	assert.EqualError(t, err, "unavailable")
}

func TestStore_CountAndClose(t *testing.T) {
	fc := newFakeClient()
	fc.count = 130
	store := newStore(fc)

	n, err := store.CountPoints(context.Background(), "src")
	require.NoError(t, err)
	assert.Equal(t, uint64(130), n)

	require.NoError(t, store.Close())
	assert.True(t, fc.closed)
}
