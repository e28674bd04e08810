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

// Package registry maps URL schemes to resource constructors and processor
// names to processor kinds. It is the only place dispatch happens on those
// two strings; everything downstream works against the workflow package's
// Resource and Processor interfaces.
package registry

import (
	"strings"

	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
	"github.com/tombee/tuttle/pkg/workflow"
)

// defaultProcessorName is the processor a section resolves to when it does
// not name one explicitly.
const defaultProcessorName = "default"

// Registry holds the open set of resource kinds and processor kinds known
// at a point in time. Built empty and populated by callers with the
// built-in kinds from internal/resourcekind and internal/processorkind.
type Registry struct {
	resourceKinds  map[string]workflow.ResourceKind
	processorKinds map[string]workflow.Processor

	// defaultProcessor is what "default" resolves to. Always shell once
	// RegisterProcessor("shell", ...) has been called and aliased.
	defaultProcessor string
}

// New returns an empty registry. Callers register built-in kinds before
// using it to build a workflow.
func New() *Registry {
	return &Registry{
		resourceKinds:    make(map[string]workflow.ResourceKind),
		processorKinds:   make(map[string]workflow.Processor),
		defaultProcessor: "shell",
	}
}

// RegisterResourceKind adds or replaces the constructor for a URL scheme.
func (r *Registry) RegisterResourceKind(kind workflow.ResourceKind) {
	r.resourceKinds[kind.Scheme()] = kind
}

// RegisterProcessor adds or replaces a processor by name. Registering a
// processor named "shell" also makes it the target of the "default" name,
// matching the teacher's ProcessBuilder which maps both "shell" and
// "default" to the same class.
func (r *Registry) RegisterProcessor(p workflow.Processor) {
	r.processorKinds[p.Name()] = p
	if p.Name() == "shell" {
		r.defaultProcessor = "shell"
	}
}

// ExtractScheme splits url at the first "://" and returns the part before
// it. Returns ("", false) if url has no scheme separator.
func ExtractScheme(url string) (string, bool) {
	idx := strings.Index(url, "://")
	if idx == -1 {
		return "", false
	}
	return url[:idx], true
}

// BuildResource constructs the resource for url using its scheme's
// registered kind. Returns a *tuttleerrors.MalformedURLError if the scheme
// is missing or unregistered.
func (r *Registry) BuildResource(url string) (workflow.Resource, error) {
	scheme, ok := ExtractScheme(url)
	if !ok {
		return nil, &tuttleerrors.MalformedURLError{URL: url, Reason: "missing scheme separator \"://\""}
	}
	kind, ok := r.resourceKinds[scheme]
	if !ok {
		return nil, &tuttleerrors.MalformedURLError{URL: url, Reason: "unknown scheme " + strings.ToUpper(scheme)}
	}
	res, err := kind.New(url)
	if err != nil {
		return nil, &tuttleerrors.MalformedURLError{URL: url, Reason: err.Error()}
	}
	return res, nil
}

// BuildProcessor resolves a processor by name. An empty name resolves to
// the default processor (shell). Returns a *tuttleerrors.ParsingError if
// the name is neither empty, "default", nor a registered processor.
func (r *Registry) BuildProcessor(name string) (workflow.Processor, error) {
	if name == "" {
		name = defaultProcessorName
	}
	if name == defaultProcessorName {
		p, ok := r.processorKinds[r.defaultProcessor]
		if !ok {
			return nil, &tuttleerrors.ParsingError{Reason: "no default processor registered"}
		}
		return p, nil
	}
	p, ok := r.processorKinds[name]
	if !ok {
		return nil, &tuttleerrors.ParsingError{Reason: "unknown processor " + name}
	}
	return p, nil
}
