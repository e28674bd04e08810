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

// Package preflight implements the check the engine runs before admitting
// any work: if a process that failed in the previous run is present in
// the current workflow unchanged, the engine refuses to run at all rather
// than retrying it, matching the original runner's behaviour in
// run_tuttlefile.
package preflight

import (
	"github.com/tombee/tuttle/internal/state"
	"github.com/tombee/tuttle/pkg/workflow"
)

// Check returns the ID of a process that is recorded as failed in
// prevProcesses and is still present in wf with the same code and the
// same ordered input URLs. A process whose code or inputs changed is not
// "the same failure" — it gets a fresh attempt through normal
// invalidation instead of a refusal.
func Check(wf *workflow.Workflow, prevProcesses []state.ProcessRecord) (string, bool) {
	byID := make(map[string]state.ProcessRecord, len(prevProcesses))
	for _, pr := range prevProcesses {
		byID[pr.ID] = pr
	}

	for _, p := range wf.IterProcesses() {
		pr, ok := byID[p.ID]
		if !ok || pr.Succeeded {
			continue
		}
		if pr.Code == p.Code && sameURLs(pr.InputURLs, p.InputURLs()) {
			return p.ID, true
		}
	}
	return "", false
}

func sameURLs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
