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


// Package segment splits parent documents into sentence chunks for the
// chunk retrieval branch.
//
// Each chunk is a core.Document carrying the cleaned sentence text, its
// ordinal offset, its character span within the parent text, a fusion
// weight, and a root_doc_id tag resolving it back to the parent.
package segment
