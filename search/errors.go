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


package search

import "errors"

var (
	// ErrInvalidTopK is returned when top_k is not a positive integer.
	ErrInvalidTopK = errors.New("top_k must be positive")

	// ErrInvalidWeight is returned when a branch weight is not positive.
	ErrInvalidWeight = errors.New("branch weight must be positive")

	// ErrCorpusRequired is returned when a corpus snapshot is not provided.
	ErrCorpusRequired = errors.New("corpus required")
)
