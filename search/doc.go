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


// Package search provides the similarity computations of recall.
//
// Two pure, CPU-bound stages make up a search:
//
//   - Selector: batched cosine top-k selection over a Corpus, an immutable
//     snapshot of one vector store. For k smaller than the corpus a partial
//     selection isolates the k best candidates in average O(N) before
//     sorting only that subset.
//   - Fuse: weighted rank fusion of the per-branch match lists into one
//     deduplicated ranking keyed by parent document identifier.
//
// Both stages are deterministic: similarity ties break on ascending
// insertion index, relevance ties on first-seen order. Neither stage blocks
// on I/O once a Corpus is loaded, so callers can fan batches out to worker
// pools freely.
package search
