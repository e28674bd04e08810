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
	"context"
	"time"
)

// Status is the tri-state outcome of a process run: unknown until it
// finishes, then true or false.
type Status int

const (
	// StatusUnknown means the process has not finished (or not started).
	StatusUnknown Status = iota
	// StatusSuccess means the process finished and its post-conditions held.
	StatusSuccess
	// StatusFailure means the process finished unsuccessfully, or its
	// post-conditions did not hold.
	StatusFailure
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Process wraps a unit of work: a processor, some code, ordered input and
// output resources, and the bookkeeping the scheduler needs to run it once
// and record what happened.
type Process struct {
	// ID is a stable identifier, derived from the process's first output
	// URL, or engine-assigned when it produces none (a preprocess).
	ID string

	// Processor is the name of the processor kind that runs Code
	// (e.g. "shell", "download"). Resolved through the registry.
	Processor string

	// Code is the textual process body, interpreted by the processor.
	Code string

	// Preprocess marks a process that runs before the main DAG, with
	// TUTTLE_ENV set, and typically emits workflow fragments rather than
	// build outputs.
	Preprocess bool

	// TuttleEnv is the value the engine exposes to this process's own
	// environment as TUTTLE_ENV, set by whatever assembles the process
	// (internal/build for preprocesses, internal/scheduler for the main
	// DAG) rather than through a shared global, since main-DAG processes
	// run concurrently.
	TuttleEnv string

	Inputs  []Resource
	Outputs []Resource

	// WorkingDir is the process's reserved directory,
	// .tuttle/processes/<id>/.
	WorkingDir string

	// StdoutPath and StderrPath are the process's log files.
	StdoutPath string
	StderrPath string

	// Start and End are wall-clock timestamps; nil until set.
	Start *time.Time
	End   *time.Time

	Status       Status
	ErrorMessage string
}

// InputURLs returns the process's input resource URLs in order.
func (p *Process) InputURLs() []string {
	urls := make([]string, len(p.Inputs))
	for i, r := range p.Inputs {
		urls[i] = r.URL()
	}
	return urls
}

// OutputURLs returns the process's output resource URLs in order.
func (p *Process) OutputURLs() []string {
	urls := make([]string, len(p.Outputs))
	for i, r := range p.Outputs {
		urls[i] = r.URL()
	}
	return urls
}

// Duration returns the process's run time, or zero if it has not finished.
func (p *Process) Duration() time.Duration {
	if p.Start == nil || p.End == nil {
		return 0
	}
	return p.End.Sub(*p.Start)
}

// Processor is a pure value identified by name that knows how to validate
// and execute process code. Concrete processors live outside this package
// (internal/processorkind); the scheduler only depends on this interface.
type Processor interface {
	// Name is the processor's registry key.
	Name() string

	// StaticCheck validates the process at parse time: code shape, resource
	// schemes the processor can accept. Called before any resource exists.
	StaticCheck(p *Process) error

	// PreCheck validates the process immediately before it would run, e.g.
	// "the download processor requires exactly one http(s) input and one
	// file output". Called with all resources constructed.
	PreCheck(p *Process) error

	// Run executes p's code synchronously, writing to the reserved
	// directory and the given log paths. Recognized process failures are
	// returned as errors.TuttleError; anything else is treated as an
	// unexpected failure by the scheduler.
	Run(ctx context.Context, p *Process, reservedDir, stdoutPath, stderrPath string) error
}
