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

package workflow

// Resource is an externally observable artefact addressed by a URL: a file,
// an HTTP endpoint, a database object. Concrete resource kinds live outside
// this package (internal/resourcekind); the graph only depends on this
// capability set.
type Resource interface {
	// URL returns the resource's address. It is the resource's unique key
	// within a workflow.
	URL() string

	// Exists reports whether the resource is currently present. It must be
	// idempotent and side-effect-free.
	Exists() (bool, error)

	// Signature returns an opaque string whose equality means "the
	// resource's observable content has not changed". It may read files or
	// make network/database calls, but must not mutate the resource.
	Signature() (string, error)

	// Remove deletes the resource. Called by the invalidation engine on a
	// best-effort basis; the caller decides whether a failure here is fatal.
	Remove() error
}

// ResourceKind constructs a Resource from a URL whose scheme it owns.
// Registered in internal/registry, keyed by scheme.
type ResourceKind interface {
	// Scheme is the URL scheme this kind handles (e.g. "file", "http").
	Scheme() string

	// New builds a Resource for the given URL. Returns
	// *tuttleerrors.MalformedURLError if the URL is not valid for this
	// scheme.
	New(url string) (Resource, error)
}
