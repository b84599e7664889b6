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


// Package ingest feeds parent documents into the retrieval stores.
//
// For each parent the pipeline stores the full record, segments the text
// into sentence chunks, embeds parents and chunks concurrently on a worker
// pool, and appends the embeddings to the document and chunk retrieval
// branches. Store appends are serialized internally: the underlying stores
// are single-writer by design.
package ingest
