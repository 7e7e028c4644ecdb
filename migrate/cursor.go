package migrate

import (
	"context"
	"log/slog"

	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/storage"
)

// Cursor is an opaque position in a source collection. The zero value
// starts at the beginning.
type Cursor struct {
	offset *core.PointID
	done   bool
}

// Done reports whether the collection has been read to the end.
func (c Cursor) Done() bool {
	return c.done
}

func (c Cursor) String() string {
	switch {
	case c.done:
		return "end"
	case c.offset == nil:
		return "start"
	default:
		return c.offset.String()
	}
}

func (c Cursor) equal(other Cursor) bool {
	if c.done != other.done {
		return false
	}
	if c.offset == nil || other.offset == nil {
		return c.offset == nil && other.offset == nil
	}
	return *c.offset == *other.offset
}

// CursorReader pages through a source collection, extracting the text field
// from each record's payload.
type CursorReader struct {
	store     storage.PointReader
	textField string
	logger    *slog.Logger
}

// NewCursorReader creates a reader that takes record text from textField.
func NewCursorReader(store storage.PointReader, textField string) *CursorReader {
	return &CursorReader{
		store:     store,
		textField: textField,
		logger:    slog.Default().With("component", "cursor-reader"),
	}
}

// NextPage returns up to pageSize records starting at cursor and the cursor
// for the following page. Reading from a finished cursor returns an empty
// page without touching the store. Records without a usable text field come
// back with empty Text.
func (r *CursorReader) NextPage(ctx context.Context, collection string, cursor Cursor, pageSize int) ([]*core.Record, Cursor, error) {
	if cursor.done {
		return nil, cursor, nil
	}
	if pageSize <= 0 {
		return nil, cursor, ErrInvalidBatchSize
	}

	points, next, err := r.store.Scroll(ctx, collection, cursor.offset, pageSize, true)
	if err != nil {
		return nil, cursor, &ReadError{Collection: collection, Err: err}
	}

	records := make([]*core.Record, 0, len(points))
	for _, p := range points {
		records = append(records, &core.Record{
			ID:      p.ID,
			Payload: p.Payload,
			Text:    core.TextFromPayload(p.Payload, r.textField),
		})
	}

	nextCursor := Cursor{offset: next, done: next == nil}
	r.logger.Debug("read page", "collection", collection, "cursor", cursor.String(), "records", len(records), "next", nextCursor.String())
	return records, nextCursor, nil
}

// Count returns the number of records in collection.
func (r *CursorReader) Count(ctx context.Context, collection string) (uint64, error) {
	n, err := r.store.CountPoints(ctx, collection)
	if err != nil {
		return 0, &ReadError{Collection: collection, Err: err}
	}
	return n, nil
}
