package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/storage"
)

// Store implements storage.VectorStore on top of a BadgerDB backend.
type Store struct {
	backend *Backend
	owned   bool
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore opens an on-disk store at path.
//
// Returns storage.VectorStore interface to enforce abstraction.
func NewStore(path string) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &Store{backend: backend, owned: true}, nil
}

// NewStoreWithBackend creates a store over an existing backend. Closing the
// store leaves the backend open.
func NewStoreWithBackend(backend *Backend) *Store {
	return &Store{backend: backend}
}

// Close closes the backend if the store opened it.
func (s *Store) Close() error {
	if !s.owned || s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

// CollectionExists reports whether a collection exists.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var exists bool
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeCollectionKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	}, false)
	return exists, err
}

// CreateCollection creates a collection with the given schema.
func (s *Store) CreateCollection(ctx context.Context, name string, cfg core.CollectionConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := core.ValidateCollectionName(name); err != nil {
		return err
	}
	if err := core.ValidateCollectionConfig(cfg); err != nil {
		return err
	}

	value := storage.MarshalCollectionConfig(cfg)

	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCollectionKey(name)
		_, err := tx.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", storage.ErrCollectionExists, name)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteCollection drops a collection and all of its points.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.GetCollectionConfig(ctx, name); err != nil {
		return err
	}

	if _, err := s.backend.DeletePrefix(makePointPrefix(name)); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCollectionKey(name)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetCollectionConfig returns a collection's schema.
func (s *Store) GetCollectionConfig(ctx context.Context, name string) (core.CollectionConfig, error) {
	var cfg core.CollectionConfig
	if err := ctx.Err(); err != nil {
		return cfg, err
	}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		cfg, err = s.readConfig(tx, name)
		return err
	}, false)
	return cfg, err
}

// CountPoints returns the number of points in a collection.
func (s *Store) CountPoints(ctx context.Context, name string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count uint64
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := s.readConfig(tx, name); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePointPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Scroll returns up to limit points in key order starting at offset.
// Vectors are never returned. The returned next offset is the id of the
// first point after the page, or nil when the page reached the end.
func (s *Store) Scroll(ctx context.Context, name string, offset *core.PointID, limit int, withPayload bool) ([]*core.Point, *core.PointID, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		return nil, nil, fmt.Errorf("%w: limit must be greater than 0", storage.ErrInvalidQuery)
	}

	var (
		points []*core.Point
		next   *core.PointID
	)

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := s.readConfig(tx, name); err != nil {
			return err
		}

		prefix := makePointPrefix(name)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = withPayload
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := prefix
		if offset != nil {
			start = makePointKey(name, *offset)
		}

		for iter.Seek(start); iter.Valid(); iter.Next() {
			item := iter.Item()
			id, err := parsePointKey(prefix, item.Key())
			if err != nil {
				return err
			}

			// One extra item tells us where the next page starts
			if len(points) == limit {
				next = &id
				return nil
			}

			point := &core.Point{ID: id}
			if withPayload {
				err := item.Value(func(val []byte) error {
					stored, err := storage.UnmarshalPoint(val)
					if err != nil {
						return err
					}
					point.Payload = stored.Payload
					return nil
				})
				if err != nil {
					return err
				}
			}
			points = append(points, point)
		}
		return nil
	}, false)
	if err != nil {
		return nil, nil, err
	}

	return points, next, nil
}

// Upsert writes points by id in a single transaction.
func (s *Store) Upsert(ctx context.Context, name string, points ...*core.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		cfg, err := s.readConfig(tx, name)
		if err != nil {
			return err
		}

		for _, point := range points {
			if err := core.ValidatePoint(point); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrInvalidPoint, err)
			}
			if len(point.Vector) != cfg.Size {
				return fmt.Errorf("%w: point %s has vector size %d, collection %s expects %d",
					storage.ErrInvalidPoint, point.ID, len(point.Vector), name, cfg.Size)
			}

			value, err := storage.MarshalPoint(point)
			if err != nil {
				return err
			}
			if err := tx.Set(makePointKey(name, point.ID), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Get returns a single point including its vector.
func (s *Store) Get(ctx context.Context, name string, id core.PointID) (*core.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var point *core.Point
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makePointKey(name, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: point %s in %s", storage.ErrNotFound, id, name)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			point, err = storage.UnmarshalPoint(val)
			return err
		})
	}, false)
	return point, err
}

func (s *Store) readConfig(tx *badger.Txn, name string) (core.CollectionConfig, error) {
	var cfg core.CollectionConfig
	item, err := tx.Get(makeCollectionKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return cfg, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	if err != nil {
		return cfg, err
	}
	err = item.Value(func(val []byte) error {
		var err error
		cfg, err = storage.UnmarshalCollectionConfig(val)
		return err
	})
	return cfg, err
}
