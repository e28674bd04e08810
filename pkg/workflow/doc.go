// Copyright 2025 Tom Barlow
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

// Package workflow defines the in-memory dependency graph at the heart of
// the build engine: resources addressed by URL, the processes that produce
// them, and the signature store that records what was last built.
//
// The graph owns its processes and resources exclusively. Back-references
// from a resource to the process that creates it are not stored on the
// resource itself — they are resolved through the workflow's URL table, so
// that serializing and reloading the graph never has to chase pointers.
package workflow
