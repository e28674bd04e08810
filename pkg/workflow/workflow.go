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

import (
	"fmt"

	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
)

// Workflow is a dependency graph of processes and the resources they read
// and write. It owns its processes and resources exclusively; the
// signature store is owned here too, but kept in a separate type so it can
// be serialized independently.
type Workflow struct {
	resources map[string]Resource
	processes []*Process

	// creators maps a resource URL to the process that produces it.
	// Back-references are logical relations resolved through this table,
	// never an ownership edge stored on the resource.
	creators map[string]*Process

	Signatures *SignatureStore
}

// New creates an empty workflow.
func New() *Workflow {
	return &Workflow{
		resources:  make(map[string]Resource),
		creators:   make(map[string]*Process),
		Signatures: NewSignatureStore(),
	}
}

// AddResource registers r if its URL is not already known, returning the
// existing resource for that URL otherwise. Callers building a graph from a
// parsed file should always route resource construction through this so
// that shared inputs/outputs resolve to one instance.
func (w *Workflow) AddResource(r Resource) Resource {
	if existing, ok := w.resources[r.URL()]; ok {
		return existing
	}
	w.resources[r.URL()] = r
	return r
}

// Resource looks up a resource by URL.
func (w *Workflow) Resource(url string) (Resource, bool) {
	r, ok := w.resources[url]
	return r, ok
}

// Creator returns the process that produces url, if any.
func (w *Workflow) Creator(url string) (*Process, bool) {
	p, ok := w.creators[url]
	return p, ok
}

// AddProcess appends p to the workflow. Every output of p must not already
// have a creator; violating this returns a *errors.WorkflowError and leaves
// the workflow unmodified.
func (w *Workflow) AddProcess(p *Process) error {
	for _, o := range p.Outputs {
		if existing, ok := w.creators[o.URL()]; ok {
			return &tuttleerrors.WorkflowError{
				Message: fmt.Sprintf("%s has already been defined in the workflow (processor: %s)", o.URL(), existing.Processor),
			}
		}
	}
	for _, in := range p.Inputs {
		w.AddResource(in)
	}
	for _, o := range p.Outputs {
		w.AddResource(o)
		w.creators[o.URL()] = p
	}
	w.processes = append(w.processes, p)
	return nil
}

// MissingInputs returns primary resources (no creator process) that do not
// exist.
func (w *Workflow) MissingInputs() ([]Resource, error) {
	var missing []Resource
	seen := make(map[string]bool)
	for _, p := range w.processes {
		for _, in := range p.Inputs {
			url := in.URL()
			if seen[url] {
				continue
			}
			if _, hasCreator := w.creators[url]; hasCreator {
				continue
			}
			seen[url] = true
			ok, err := in.Exists()
			if err != nil {
				return nil, fmt.Errorf("checking existence of %s: %w", url, err)
			}
			if !ok {
				missing = append(missing, in)
			}
		}
	}
	return missing, nil
}

// CircularReferences returns the resources participating in a dependency
// cycle, found by DFS colouring over the creator-process edges.
func (w *Workflow) CircularReferences() []Resource {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(w.resources))
	var inCycle []Resource
	inCycleSet := make(map[string]bool)

	var visit func(url string) bool
	visit = func(url string) bool {
		color[url] = gray
		defer func() { color[url] = black }()

		creator, ok := w.creators[url]
		if ok {
			for _, in := range creator.Inputs {
				inURL := in.URL()
				switch color[inURL] {
				case gray:
					if !inCycleSet[url] {
						inCycleSet[url] = true
						inCycle = append(inCycle, w.resources[url])
					}
					if !inCycleSet[inURL] {
						inCycleSet[inURL] = true
						inCycle = append(inCycle, w.resources[inURL])
					}
				case white:
					if visit(inURL) {
						if !inCycleSet[url] {
							inCycleSet[url] = true
							inCycle = append(inCycle, w.resources[url])
						}
					}
				}
			}
		}
		return inCycleSet[url]
	}

	for url := range w.resources {
		if color[url] == white {
			visit(url)
		}
	}

	return inCycle
}

// RunnableProcesses returns processes that have not started and whose
// inputs are all either primary and existing, or produced by a process
// that succeeded in this run.
func (w *Workflow) RunnableProcesses() []*Process {
	var runnable []*Process
	for _, p := range w.processes {
		if p.Start != nil {
			continue
		}
		if w.inputsReady(p) {
			runnable = append(runnable, p)
		}
	}
	return runnable
}

func (w *Workflow) inputsReady(p *Process) bool {
	for _, in := range p.Inputs {
		creator, hasCreator := w.creators[in.URL()]
		if !hasCreator {
			ok, err := in.Exists()
			if err != nil || !ok {
				return false
			}
			continue
		}
		if creator.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// DiscoverRunnableProcesses returns downstream processes that became
// runnable as a consequence of justFinished completing successfully.
func (w *Workflow) DiscoverRunnableProcesses(justFinished *Process) []*Process {
	if justFinished.Status != StatusSuccess {
		return nil
	}
	outputURLs := make(map[string]bool, len(justFinished.Outputs))
	for _, o := range justFinished.Outputs {
		outputURLs[o.URL()] = true
	}

	var runnable []*Process
	for _, p := range w.processes {
		if p.Start != nil {
			continue
		}
		dependsOnFinished := false
		for _, in := range p.Inputs {
			if outputURLs[in.URL()] {
				dependsOnFinished = true
				break
			}
		}
		if !dependsOnFinished {
			continue
		}
		if w.inputsReady(p) {
			runnable = append(runnable, p)
		}
	}
	return runnable
}

// IterProcesses returns the processes in insertion order.
func (w *Workflow) IterProcesses() []*Process {
	out := make([]*Process, len(w.processes))
	copy(out, w.processes)
	return out
}

// IterOutputs returns every resource that has a creator process, in
// process insertion order.
func (w *Workflow) IterOutputs() []Resource {
	var out []Resource
	for _, p := range w.processes {
		out = append(out, p.Outputs...)
	}
	return out
}

// IterInputs returns every distinct resource used as an input by some
// process, in first-use order.
func (w *Workflow) IterInputs() []Resource {
	seen := make(map[string]bool)
	var out []Resource
	for _, p := range w.processes {
		for _, in := range p.Inputs {
			if seen[in.URL()] {
				continue
			}
			seen[in.URL()] = true
			out = append(out, in)
		}
	}
	return out
}

// ResourcesNotCreatedByTuttle returns resources that exist on disk but are
// neither a process's input nor its output: registered directly (e.g. by
// an embedder pre-declaring a resource) rather than discovered through the
// graph. A primary input is expected to exist with no creator; this check
// is only interested in resources the graph never actually references,
// the kind of stale or mistyped entry that invalidation's per-resource
// reasons never see because nothing depends on it either way. Reported as
// a separate warning pass, not folded into per-resource invalidation
// reasons.
func (w *Workflow) ResourcesNotCreatedByTuttle() ([]Resource, error) {
	referenced := make(map[string]bool, len(w.resources))
	for _, p := range w.processes {
		for _, in := range p.Inputs {
			referenced[in.URL()] = true
		}
		for _, o := range p.Outputs {
			referenced[o.URL()] = true
		}
	}

	var out []Resource
	for url, r := range w.resources {
		if referenced[url] {
			continue
		}
		ok, err := r.Exists()
		if err != nil {
			return nil, fmt.Errorf("checking existence of %s: %w", url, err)
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}
