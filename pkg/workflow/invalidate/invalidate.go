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

// Package invalidate compares a freshly parsed workflow against the one
// persisted from the previous invocation and decides which outputs are out
// of date.
package invalidate

import (
	"fmt"
	"sort"

	"github.com/tombee/tuttle/pkg/workflow"
)

// Reason identifies why a resource was invalidated. Order matters: when
// more than one reason applies, the first one in this list wins.
type Reason int

const (
	// ReasonNotProduced means the resource is no longer produced by any
	// process in the current workflow.
	ReasonNotProduced Reason = iota
	// ReasonCodeChanged means the creator process's code differs from its
	// previous run.
	ReasonCodeChanged
	// ReasonDependenciesChanged means the creator's set of input URLs
	// differs from the previous run.
	ReasonDependenciesChanged
	// ReasonInputChanged means a primary input's signature differs from
	// the one recorded previously.
	ReasonInputChanged
	// ReasonPreviousRunFailed means the producing process failed or never
	// completed in the previous run.
	ReasonPreviousRunFailed
	// ReasonModifiedOutsideTuttle means the resource's current signature
	// differs from the one recorded, though nothing about the process that
	// produced it changed.
	ReasonModifiedOutsideTuttle
	// ReasonUpstreamInvalidated is used for every resource invalidated only
	// because an ancestor was invalidated.
	ReasonUpstreamInvalidated
)

// String implements fmt.Stringer, matching the wording of spec reasons.
func (r Reason) String() string {
	switch r {
	case ReasonNotProduced:
		return "resource not produced anymore"
	case ReasonCodeChanged:
		return "process code changed"
	case ReasonDependenciesChanged:
		return "dependencies changed"
	case ReasonInputChanged:
		return "input changed"
	case ReasonPreviousRunFailed:
		return "previous run failed"
	case ReasonModifiedOutsideTuttle:
		return "resource was modified outside of tuttle"
	case ReasonUpstreamInvalidated:
		return "upstream invalidated"
	default:
		return "unknown reason"
	}
}

// Invalidation pairs a resource URL with why it was invalidated.
type Invalidation struct {
	URL    string
	Reason Reason
	Detail string
}

// Previous is the subset of a persisted workflow the invalidation engine
// needs: per-URL creator code, input sets, and last-run status, plus
// recorded signatures. internal/state builds this from the serialized
// form; tests can construct it directly.
type Previous struct {
	// CreatorCode maps an output URL to the code of the process that
	// produced it in the previous run.
	CreatorCode map[string]string

	// CreatorInputs maps an output URL to the ordered input URLs of the
	// process that produced it in the previous run.
	CreatorInputs map[string][]string

	// CreatorSucceeded maps an output URL to whether the process that
	// produced it finished successfully in the previous run.
	CreatorSucceeded map[string]bool

	// Signatures maps a resource URL to its recorded signature.
	Signatures map[string]string
}

// Compute diffs current against previous and returns every invalidated
// resource with its reason, including downstream closure. Resources are
// removed from current's signature store as they are invalidated; Remove()
// is called best-effort and a failure to remove is only fatal if the
// resource still exists() afterwards.
func Compute(current *workflow.Workflow, previous *Previous) ([]Invalidation, error) {
	if previous == nil {
		previous = &Previous{}
	}

	directReason := make(map[string]Reason)
	directDetail := make(map[string]string)

	for _, p := range current.IterProcesses() {
		for _, out := range p.Outputs {
			url := out.URL()

			prevCode, hadCreator := previous.CreatorCode[url]
			if !hadCreator {
				// Never produced before: nothing to invalidate, this is a
				// fresh output. Not an invalidation reason by itself.
				continue
			}

			if prevCode != p.Code {
				directReason[url] = ReasonCodeChanged
				continue
			}

			if !sameInputSet(previous.CreatorInputs[url], p.InputURLs()) {
				directReason[url] = ReasonDependenciesChanged
				continue
			}

			if reason, detail, changed := primaryInputChanged(current, p, previous.Signatures); changed {
				directReason[url] = reason
				directDetail[url] = detail
				continue
			}

			if !previous.CreatorSucceeded[url] {
				directReason[url] = ReasonPreviousRunFailed
				continue
			}

			prevSig, hadSig := previous.Signatures[url]
			if hadSig {
				curSig, err := out.Signature()
				if err != nil {
					return nil, fmt.Errorf("computing signature for %s: %w", url, err)
				}
				if curSig != prevSig {
					directReason[url] = ReasonModifiedOutsideTuttle
				}
			}
		}
	}

	// A resource that used to be produced and no longer is gets reported
	// too, so its stale signature and on-disk artefact are cleaned up.
	for url := range previous.CreatorCode {
		if _, stillProduced := current.Creator(url); !stillProduced {
			directReason[url] = ReasonNotProduced
		}
	}

	closure := closeDownstream(current, directReason)

	var out []Invalidation
	for url, reason := range closure {
		inv := Invalidation{URL: url, Reason: reason}
		if reason == ReasonInputChanged {
			inv.Detail = directDetail[url]
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })

	if err := apply(current, out); err != nil {
		return nil, err
	}

	return out, nil
}

// primaryInputChanged checks whether any primary (no-creator) input of p
// has a signature different from what was previously recorded.
func primaryInputChanged(current *workflow.Workflow, p *workflow.Process, prevSignatures map[string]string) (Reason, string, bool) {
	for _, in := range p.Inputs {
		url := in.URL()
		if _, derived := current.Creator(url); derived {
			continue
		}
		prevSig, ok := prevSignatures[url]
		if !ok {
			continue
		}
		curSig, err := in.Signature()
		if err != nil {
			continue
		}
		if curSig != prevSig {
			return ReasonInputChanged, fmt.Sprintf("%s changed", url), true
		}
	}
	return 0, "", false
}

func sameInputSet(prev, cur []string) bool {
	if len(prev) != len(cur) {
		return false
	}
	prevSet := make(map[string]bool, len(prev))
	for _, u := range prev {
		prevSet[u] = true
	}
	for _, u := range cur {
		if !prevSet[u] {
			return false
		}
	}
	return true
}

// closeDownstream expands direct invalidations to every derived resource
// that transitively depends on one, tagging the new entries with
// ReasonUpstreamInvalidated.
func closeDownstream(current *workflow.Workflow, direct map[string]Reason) map[string]Reason {
	result := make(map[string]Reason, len(direct))
	for url, reason := range direct {
		result[url] = reason
	}

	changed := true
	for changed {
		changed = false
		for _, p := range current.IterProcesses() {
			for _, out := range p.Outputs {
				url := out.URL()
				if _, already := result[url]; already {
					continue
				}
				for _, in := range p.Inputs {
					if _, invalidated := result[in.URL()]; invalidated {
						result[url] = ReasonUpstreamInvalidated
						changed = true
						break
					}
				}
			}
		}
	}

	return result
}

// apply removes every invalidated resource and drops its signature entry.
// A failure to remove is only fatal if the resource still exists afterward.
func apply(current *workflow.Workflow, invalidations []Invalidation) error {
	for _, inv := range invalidations {
		r, ok := current.Resource(inv.URL)
		if !ok {
			continue
		}
		removeErr := r.Remove()
		current.Signatures.Delete(inv.URL)

		if removeErr != nil {
			stillExists, existsErr := r.Exists()
			if existsErr == nil && stillExists {
				return fmt.Errorf("removing invalidated resource %s: %w", inv.URL, removeErr)
			}
		}
	}
	return nil
}
