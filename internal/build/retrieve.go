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

package build

import (
	"time"

	"github.com/tombee/tuttle/internal/state"
	"github.com/tombee/tuttle/pkg/workflow"
	"github.com/tombee/tuttle/pkg/workflow/invalidate"
)

// RetrieveExecutionInfo carries forward the previous run's outcome onto
// every process whose outputs were not invalidated this time, so the
// scheduler never re-admits work that is still valid. Grounded on the
// original engine's workflow.retrieve_execution_info: a process that
// produced its outputs successfully last run, unchanged, needs no second
// look this run.
func RetrieveExecutionInfo(wf *workflow.Workflow, invalidations []invalidate.Invalidation, doc *state.Document) {
	if doc == nil {
		return
	}

	invalidated := make(map[string]bool, len(invalidations))
	for _, inv := range invalidations {
		invalidated[inv.URL] = true
	}

	records := make(map[string]state.ProcessRecord, len(doc.Processes))
	for _, rec := range doc.Processes {
		records[rec.ID] = rec
	}

	for _, p := range wf.IterProcesses() {
		if len(p.Outputs) == 0 {
			continue
		}
		rec, ok := records[p.ID]
		if !ok || !rec.Succeeded {
			continue
		}

		stillValid := true
		for _, o := range p.Outputs {
			if invalidated[o.URL()] {
				stillValid = false
				break
			}
		}
		if !stillValid {
			continue
		}

		p.Start = rec.Start
		p.End = rec.End
		if p.Start == nil {
			now := time.Now()
			p.Start = &now
		}
		if p.End == nil {
			p.End = p.Start
		}
		p.Status = workflow.StatusSuccess

		for _, url := range rec.OutputURLs {
			if entry, ok := doc.Signatures[url]; ok {
				wf.Signatures.Set(url, entry)
			}
		}
	}
}
