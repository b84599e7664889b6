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


// Package storage provides the storage abstraction layer for recall.
//
// This package defines store interfaces that decouple the storage
// implementation from the search and fusion logic. It allows different
// storage backends (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Architecture
//
// Two stores back a retrieval engine:
//
//   - VectorStore: append-only storage of documents with embeddings,
//     scanned in insertion order to build similarity-search snapshots
//   - DocumentStore: append-only, identifier-keyed storage of full
//     document records, used to hydrate search results
//
// Both stores grow monotonically: no update or delete operation exists.
// Duplicate identifiers accumulate rather than deduplicate.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces to
// enforce abstraction:
//
//	store, err := badger.NewVectorStore(backend, "chunks")  // returns storage.VectorStore
//
// # Concurrency
//
// Appends are single-writer by design and must be serialized by the caller.
// Reads, including Scan, may run concurrently with each other; each Scan
// observes an internally consistent snapshot of the store.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific
// timeout requirements.
package storage
