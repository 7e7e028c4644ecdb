package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PointID identifies a point within a collection.
// It is either an unsigned integer or a string; vector stores that accept
// only UUID strings (Qdrant) validate the string form themselves.
// PointID is comparable and may be used as a map key.
type PointID struct {
	num   uint64
	str   string
	isStr bool
}

// NumericID returns a PointID backed by an unsigned integer.
func NumericID(n uint64) PointID {
	return PointID{num: n}
}

// StringID returns a PointID backed by a string.
func StringID(s string) PointID {
	return PointID{str: s, isStr: true}
}

// IsNumeric reports whether the id is an unsigned integer.
func (id PointID) IsNumeric() bool {
	return !id.isStr
}

// Num returns the numeric value. Only meaningful when IsNumeric is true.
func (id PointID) Num() uint64 {
	return id.num
}

// Str returns the string value. Only meaningful when IsNumeric is false.
func (id PointID) Str() string {
	return id.str
}

// String renders the id for logs and summaries.
func (id PointID) String() string {
	if id.isStr {
		return id.str
	}
	return strconv.FormatUint(id.num, 10)
}

// MarshalJSON encodes numeric ids as JSON numbers and string ids as JSON strings.
func (id PointID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.str)
	}
	return []byte(strconv.FormatUint(id.num, 10)), nil
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *PointID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPointID, string(data))
	}
	*id = NumericID(n)
	return nil
}

// Distance is the similarity metric a collection is configured with.
type Distance string

const (
	DistanceCosine    Distance = "Cosine"
	DistanceEuclid    Distance = "Euclid"
	DistanceDot       Distance = "Dot"
	DistanceManhattan Distance = "Manhattan"
)

// CollectionConfig describes the vector schema of a collection.
type CollectionConfig struct {
	Size     int      `json:"size"`
	Distance Distance `json:"distance"`
}

// Record is a source point as seen by the migration: its identity, its full
// payload, and the text extracted from the payload's designated text field.
type Record struct {
	ID      PointID
	Payload map[string]any
	Text    string
}

// Point is the unit persisted to a collection.
type Point struct {
	ID      PointID        `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// TextFromPayload returns the string stored under field, or "" when the field
// is missing or not a string.
func TextFromPayload(payload map[string]any, field string) string {
	if payload == nil {
		return ""
	}
	s, ok := payload[field].(string)
	if !ok {
		return ""
	}
	return s
}
