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

import "errors"

// Domain validation errors
var (
	// ErrInvalidPoint indicates a Point failed validation.
	ErrInvalidPoint = errors.New("invalid point")

	// ErrInvalidPointID indicates a point id could not be parsed.
	ErrInvalidPointID = errors.New("invalid point id")

	// ErrEmptyVector indicates the Vector field is empty.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrInvalidCollectionName indicates a collection name is empty or malformed.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrInvalidDistance indicates an unknown distance metric.
	ErrInvalidDistance = errors.New("invalid distance")

	// ErrInvalidVectorSize indicates a non-positive vector size.
	ErrInvalidVectorSize = errors.New("vector size must be greater than 0")
)
