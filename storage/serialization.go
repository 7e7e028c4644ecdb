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


package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/revec/core"
)

// pointRecord is the stored form of a Point. The payload is kept as JSON
// since its shape is up to the source collection.
type pointRecord struct {
	ID      core.PointID
	Vector  []float32
	Payload []byte
}

var pointRecordMUS = pointRecordSer{}

type pointRecordSer struct{}

func (pointRecordSer) Marshal(v pointRecord, bs []byte) (n int) {
	n = core.PointIDMUS.Marshal(v.ID, bs)
	n += varint.PositiveInt.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n + ord.ByteSlice.Marshal(v.Payload, bs[n:])
}

func (pointRecordSer) Unmarshal(bs []byte) (v pointRecord, n int, err error) {
	v.ID, n, err = core.PointIDMUS.Unmarshal(bs)
	if err != nil {
		return
	}

	length, n1, err := varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	// raw float32 is 4 bytes
	if length < 0 || length > (len(bs)-n)/4 {
		err = fmt.Errorf("vector length %d exceeds data", length)
		return
	}
	if length > 0 {
		v.Vector = make([]float32, length)
		for i := range v.Vector {
			v.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}

	v.Payload, n1, err = ord.ByteSlice.Unmarshal(bs[n:])
	n += n1
	return
}

func (pointRecordSer) Size(v pointRecord) int {
	size := core.PointIDMUS.Size(v.ID) + varint.PositiveInt.Size(len(v.Vector))
	for _, f := range v.Vector {
		size += raw.Float32.Size(f)
	}
	return size + ord.ByteSlice.Size(v.Payload)
}

// MarshalPoint serializes a Point to bytes.
func MarshalPoint(point *core.Point) ([]byte, error) {
	rec := pointRecord{ID: point.ID, Vector: point.Vector}
	if point.Payload != nil {
		payload, err := json.Marshal(point.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: payload: %w", ErrSerializationFailed, err)
		}
		rec.Payload = payload
	}

	buf := make([]byte, pointRecordMUS.Size(rec))
	pointRecordMUS.Marshal(rec, buf)
	return buf, nil
}

// UnmarshalPoint deserializes a Point from bytes.
// Payload numbers decode as int64 when integral and float64 otherwise.
func UnmarshalPoint(data []byte) (*core.Point, error) {
	rec, _, err := pointRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	payload, err := UnmarshalPayload(rec.Payload)
	if err != nil {
		return nil, err
	}

	return &core.Point{ID: rec.ID, Vector: rec.Vector, Payload: payload}, nil
}

// MarshalCollectionConfig serializes a CollectionConfig to bytes.
func MarshalCollectionConfig(cfg core.CollectionConfig) []byte {
	buf := make([]byte, core.CollectionConfigMUS.Size(cfg))
	core.CollectionConfigMUS.Marshal(cfg, buf)
	return buf
}

// UnmarshalCollectionConfig deserializes a CollectionConfig from bytes.
func UnmarshalCollectionConfig(data []byte) (core.CollectionConfig, error) {
	cfg, _, err := core.CollectionConfigMUS.Unmarshal(data)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return cfg, nil
}

// UnmarshalPayload decodes a JSON object into a payload map. Empty input or
// JSON null yields a nil map.
func UnmarshalPayload(data []byte) (map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrSerializationFailed, err)
	}

	for k, v := range payload {
		payload[k] = normalizeNumbers(v)
	}
	return payload, nil
}

// normalizeNumbers replaces json.Number values so payloads only hold types
// every backend accepts.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) {
			return t.String()
		}
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeNumbers(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalizeNumbers(inner)
		}
		return t
	default:
		return v
	}
}
