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


// Package reindex rebuilds the vector branches from the stored document
// records, typically after switching to a different embedding model.
//
// The reindexer streams parent records out of the document store, re-embeds
// parents and their re-segmented chunks in batches, and appends the new
// embeddings into fresh vector store namespaces. The old branches stay
// untouched; switching the engine over to the new branch names is the
// caller's cut-over step. Embedding dimensionality may change between runs,
// which is why the target branches must be fresh: a vector store rejects
// records that do not match its established dimensionality.
package reindex
