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

// Package build turns parsed workflow-file sections into a
// *workflow.Workflow: it resolves each section's processor and resource
// URLs through a registry, runs each processor's static check, and wires
// the resulting processes into the graph. Grounded on the original
// engine's ProcessBuilder.process_from_section/workflow_from_project.
package build

import (
	"fmt"

	"github.com/tombee/tuttle/internal/parser"
	"github.com/tombee/tuttle/pkg/workflow"
)

// Registry is the subset of internal/registry.Registry the builder needs.
type Registry interface {
	BuildResource(url string) (workflow.Resource, error)
	BuildProcessor(name string) (workflow.Processor, error)
}

// idFor derives a process's stable ID from its first output URL, falling
// back to an engine-assigned name for preprocesses that emit none.
func idFor(section parser.Section, index int) string {
	if section.Output != "" {
		return section.Output
	}
	return fmt.Sprintf("preprocess-%d", index)
}

// FromSections builds a workflow from parsed sections, in order. A
// section naming an unknown scheme or processor fails the whole build —
// nothing partially executes, matching spec §7's ParsingError semantics.
func FromSections(sections []parser.Section, reg Registry) (*workflow.Workflow, error) {
	wf := workflow.New()

	for i, section := range sections {
		proc, err := reg.BuildProcessor(section.Processor)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i+1, err)
		}

		p := &workflow.Process{
			ID:        idFor(section, i),
			Processor: proc.Name(),
			Code:      section.Code,
		}

		for _, url := range section.Inputs {
			res, err := existingOrBuilt(wf, reg, url)
			if err != nil {
				return nil, fmt.Errorf("section %d input %q: %w", i+1, url, err)
			}
			p.Inputs = append(p.Inputs, res)
		}

		if section.Output != "" {
			res, err := existingOrBuilt(wf, reg, section.Output)
			if err != nil {
				return nil, fmt.Errorf("section %d output %q: %w", i+1, section.Output, err)
			}
			p.Outputs = append(p.Outputs, res)
		}

		if err := proc.StaticCheck(p); err != nil {
			return nil, fmt.Errorf("section %d: %w", i+1, err)
		}

		if err := wf.AddProcess(p); err != nil {
			return nil, err
		}
	}

	return wf, nil
}

// existingOrBuilt returns wf's existing resource for url, or builds and
// registers a new one, so shared inputs/outputs across sections resolve to
// one instance (matching the original's `resources` dict threaded through
// process_from_section).
func existingOrBuilt(wf *workflow.Workflow, reg Registry, url string) (workflow.Resource, error) {
	if existing, ok := wf.Resource(url); ok {
		return existing, nil
	}
	res, err := reg.BuildResource(url)
	if err != nil {
		return nil, err
	}
	return wf.AddResource(res), nil
}
