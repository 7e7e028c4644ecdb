// Package qdrant implements storage.VectorStore against a Qdrant server
// using the official gRPC client.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"

	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/storage"
	qc "github.com/qdrant/go-client/qdrant"
)

// DefaultPort is Qdrant's gRPC port.
const DefaultPort = 6334

// client is the subset of *qc.Client the store uses.
type client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	GetCollectionInfo(ctx context.Context, collectionName string) (*qc.CollectionInfo, error)
	CreateCollection(ctx context.Context, request *qc.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Count(ctx context.Context, request *qc.CountPoints) (uint64, error)
	ScrollAndOffset(ctx context.Context, request *qc.ScrollPoints) ([]*qc.RetrievedPoint, *qc.PointId, error)
	Upsert(ctx context.Context, request *qc.UpsertPoints) (*qc.UpdateResult, error)
	Close() error
}

var _ client = (*qc.Client)(nil)

// Config describes how to reach a Qdrant server.
type Config struct {
	// URL is the server address, e.g. "http://localhost:6334".
	// An https scheme enables TLS. A missing port means DefaultPort.
	URL string

	// APIKey is sent with every request when set.
	APIKey string
}

// Store implements storage.VectorStore for Qdrant.
type Store struct {
	client client
	logger *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore connects to a Qdrant server.
//
// Returns storage.VectorStore interface to enforce abstraction.
func NewStore(cfg Config) (storage.VectorStore, error) {
	qcfg, err := parseConfig(cfg)
	if err != nil {
		return nil, err
	}
	c, err := qc.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", cfg.URL, err)
	}
	return newStore(c), nil
}

func newStore(c client) *Store {
	return &Store{
		client: c,
		logger: slog.Default().With("component", "qdrant-store"),
	}
}

func parseConfig(cfg Config) (*qc.Config, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("qdrant: invalid URL %q", cfg.URL)
	}

	var useTLS bool
	switch u.Scheme {
	case "http":
	case "https":
		useTLS = true
	default:
		return nil, fmt.Errorf("qdrant: unsupported scheme %q in %q", u.Scheme, cfg.URL)
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("qdrant: invalid port in %q", cfg.URL)
		}
	}

	return &qc.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	}, nil
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// CollectionExists reports whether a collection exists.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	return s.client.CollectionExists(ctx, name)
}

// CreateCollection creates a collection with a single unnamed dense vector.
func (s *Store) CreateCollection(ctx context.Context, name string, cfg core.CollectionConfig) error {
	if err := core.ValidateCollectionName(name); err != nil {
		return err
	}
	if err := core.ValidateCollectionConfig(cfg); err != nil {
		return err
	}
	distance, err := toDistance(cfg.Distance)
	if err != nil {
		return err
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", storage.ErrCollectionExists, name)
	}

	s.logger.Debug("creating collection", "name", name, "size", cfg.Size, "distance", cfg.Distance)
	return s.client.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: name,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     uint64(cfg.Size),
			Distance: distance,
		}),
	})
}

// DeleteCollection drops a collection.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if err := s.requireCollection(ctx, name); err != nil {
		return err
	}
	s.logger.Debug("deleting collection", "name", name)
	return s.client.DeleteCollection(ctx, name)
}

// GetCollectionConfig returns the size and distance of the collection's
// unnamed vector.
func (s *Store) GetCollectionConfig(ctx context.Context, name string) (core.CollectionConfig, error) {
	var cfg core.CollectionConfig
	if err := s.requireCollection(ctx, name); err != nil {
		return cfg, err
	}

	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return cfg, err
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return cfg, fmt.Errorf("qdrant: collection %s has no single unnamed vector", name)
	}
	if params.GetSize() > math.MaxInt32 {
		return cfg, fmt.Errorf("qdrant: collection %s reports vector size %d", name, params.GetSize())
	}

	cfg.Size = int(params.GetSize())
	cfg.Distance = fromDistance(params.GetDistance())
	return cfg, nil
}

// CountPoints returns the exact number of points in a collection.
func (s *Store) CountPoints(ctx context.Context, name string) (uint64, error) {
	return s.client.Count(ctx, &qc.CountPoints{
		CollectionName: name,
		Exact:          qc.PtrOf(true),
	})
}

// Scroll returns a page of points without vectors.
func (s *Store) Scroll(ctx context.Context, name string, offset *core.PointID, limit int, withPayload bool) ([]*core.Point, *core.PointID, error) {
	if limit <= 0 || uint64(limit) > math.MaxUint32 {
		return nil, nil, fmt.Errorf("%w: limit %d out of range", storage.ErrInvalidQuery, limit)
	}

	req := &qc.ScrollPoints{
		CollectionName: name,
		Limit:          qc.PtrOf(uint32(limit)),
		WithPayload:    qc.NewWithPayload(withPayload),
		WithVectors:    qc.NewWithVectors(false),
	}
	if offset != nil {
		id, err := toPointID(*offset)
		if err != nil {
			return nil, nil, err
		}
		req.Offset = id
	}

	retrieved, nextID, err := s.client.ScrollAndOffset(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	points := make([]*core.Point, 0, len(retrieved))
	for _, rp := range retrieved {
		id, err := fromPointID(rp.GetId())
		if err != nil {
			return nil, nil, err
		}
		points = append(points, &core.Point{ID: id, Payload: fromPayload(rp.GetPayload())})
	}

	if nextID == nil || nextID.GetPointIdOptions() == nil {
		return points, nil, nil
	}
	next, err := fromPointID(nextID)
	if err != nil {
		return nil, nil, err
	}
	return points, &next, nil
}

// Upsert writes points and waits for the server to apply them.
func (s *Store) Upsert(ctx context.Context, name string, points ...*core.Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qc.PointStruct, 0, len(points))
	for _, p := range points {
		ps, err := toPointStruct(p)
		if err != nil {
			return err
		}
		structs = append(structs, ps)
	}

	_, err := s.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: name,
		Wait:           qc.PtrOf(true),
		Points:         structs,
	})
	return err
}

func (s *Store) requireCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	return nil
}
