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


package core

import (
	"fmt"
	"strings"
	"unicode"
)

const maxCollectionNameLength = 255

// ValidatePoint validates a Point before it is written.
//
// Validation rules:
//   - Vector must not be empty
//   - String ids must not be empty
//
// NOT validated:
//   - Payload (may be nil)
//   - Vector length against the collection (checked by the store)
func ValidatePoint(point *Point) error {
	if point == nil {
		return fmt.Errorf("%w: point is nil", ErrInvalidPoint)
	}

	if !point.ID.IsNumeric() && point.ID.Str() == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, ErrInvalidPointID)
	}

	if len(point.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, ErrEmptyVector)
	}

	return nil
}

// ValidateCollectionName checks that a collection name is usable as a store key.
// Names must be non-empty, at most 255 bytes, and free of '/', ':', NUL and whitespace.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidCollectionName)
	}
	if len(name) > maxCollectionNameLength {
		return fmt.Errorf("%w: name exceeds %d bytes", ErrInvalidCollectionName, maxCollectionNameLength)
	}
	if strings.ContainsAny(name, "/:\x00") || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidCollectionName, name)
	}
	return nil
}

// ValidateDistance validates that a Distance has a known value.
func ValidateDistance(d Distance) error {
	switch d {
	case DistanceCosine, DistanceEuclid, DistanceDot, DistanceManhattan:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDistance, string(d))
}

// ParseDistance parses a distance name case-insensitively.
func ParseDistance(s string) (Distance, error) {
	for _, d := range []Distance{DistanceCosine, DistanceEuclid, DistanceDot, DistanceManhattan} {
		if strings.EqualFold(s, string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDistance, s)
}

// ValidateCollectionConfig validates a collection schema.
func ValidateCollectionConfig(cfg CollectionConfig) error {
	if cfg.Size <= 0 {
		return ErrInvalidVectorSize
	}
	return ValidateDistance(cfg.Distance)
}
