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


// Package storage provides the vector store abstraction for revec.
//
// This package defines the interfaces that decouple the migration pipeline
// from any particular vector database. Two backends are provided:
//
//   - storage/qdrant: a Qdrant server over gRPC
//   - storage/badger: an embedded BadgerDB collection store, also usable
//     in memory for tests
//
// # Constructor Return Type Pattern
//
// Public constructors return the VectorStore interface:
//
//	store, err := badger.NewStore(path)  // returns storage.VectorStore
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Architecture
//
//   - CollectionManager: create, drop and inspect collections
//   - PointReader: count and scroll points in id order
//   - PointWriter: upsert points by id
//   - VectorStore: all of the above plus Close
//
// # Scrolling
//
// Scroll returns a page of points and the id to resume from. A nil next
// offset means the collection has no further points; callers must not feed
// a nil offset back in expecting anything other than the first page.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
package storage
