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

// Package scheduler runs a workflow's processes under a bounded worker
// pool: it dispatches runnable processes, drains their completions,
// checks post-conditions, records signatures, and persists state on
// every transition.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	tuttlelog "github.com/tombee/tuttle/internal/log"
	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
	"github.com/tombee/tuttle/pkg/workflow"
)

// idleSleep is how long the main loop waits when neither a dispatch nor a
// completion occurred in an iteration.
const idleSleep = 100 * time.Millisecond

// ProcessorResolver resolves a processor by name; implemented by
// internal/registry.Registry.
type ProcessorResolver interface {
	BuildProcessor(name string) (workflow.Processor, error)
}

// Persister is called after every workflow state transition so the run
// can be resumed from the last good point after a crash. Implemented by
// internal/state.Manager.
type Persister interface {
	Save(w *workflow.Workflow) error
}

// MetricsRecorder receives process start/finish events for observability.
// Implemented by internal/metrics.
type MetricsRecorder interface {
	RecordProcessStart(processor string)
	RecordProcessComplete(processor string, success bool, duration time.Duration)
}

// Tracer starts a span around one process's execution and returns a
// function that ends it. Implemented by internal/tracing.
type Tracer interface {
	StartProcessSpan(ctx context.Context, processID string) (context.Context, func(success bool))
}

// Config configures a Scheduler.
type Config struct {
	// Workers is the bounded worker pool size. Zero means
	// DefaultWorkerCount().
	Workers int

	// KeepGoing makes the scheduler continue scheduling unrelated work
	// after a failure instead of stopping admission of new work.
	KeepGoing bool

	// BaseDir is the root for per-process reserved working directories
	// (BaseDir/processes/<id>) and log files.
	BaseDir string

	// RunID tags every process-start/outcome log line so a run's
	// processes can be grepped out of a shared log stream.
	RunID string

	// TuttleEnv is set on every dispatched process as TUTTLE_ENV, the
	// same contract internal/build gives preprocesses: a process run by
	// the main DAG can shell out to tuttle-extend-workflow just as a
	// preprocess can.
	TuttleEnv string

	Persister Persister
	Metrics   MetricsRecorder
	Tracer    Tracer
	Logger    *slog.Logger
}

// DefaultWorkerCount reproduces the original engine's worker-count
// formula exactly: integer division of (cpu_count+1)/2, not a
// GOMAXPROCS-style heuristic.
func DefaultWorkerCount() int {
	n := (runtime.NumCPU() + 1) / 2
	if n < 1 {
		return 1
	}
	return n
}

// Result is the final tally of a scheduler run.
type Result struct {
	Success []*workflow.Process
	Failure []*workflow.Process
}

// Scheduler runs wf's processes to completion or until a failure stops
// admission of new work (when KeepGoing is false).
type Scheduler struct {
	wf       *workflow.Workflow
	resolver ProcessorResolver
	cfg      Config
	logger   *slog.Logger
}

// New creates a Scheduler for wf, resolving processors by name via
// resolver.
func New(wf *workflow.Workflow, resolver ProcessorResolver, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkerCount()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{wf: wf, resolver: resolver, cfg: cfg, logger: logger}
}

type completion struct {
	process *workflow.Process
	err     error
}

// Run executes the scheduling loop described in spec §4.6 and returns the
// final success/failure lists. It only returns an error for a
// programming-bug condition in the scheduler itself; per-process failures
// are reported via Result, not the error return.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	runnables := s.wf.RunnableProcesses()
	active := 0
	completions := make(chan completion, len(s.wf.IterProcesses())+1)

	var success, failure []*workflow.Process

	persist := func() {
		if s.cfg.Persister == nil {
			return
		}
		if err := s.cfg.Persister.Save(s.wf); err != nil {
			s.logger.Error("failed to persist workflow state", "error", err)
		}
	}

	for (s.cfg.KeepGoing || len(failure) == 0) && (active > 0 || len(completions) > 0 || len(runnables) > 0) {
		progressed := false

		for active < s.cfg.Workers && len(runnables) > 0 {
			p := runnables[0]
			runnables = runnables[1:]
			now := time.Now()
			p.Start = &now
			p.TuttleEnv = s.cfg.TuttleEnv
			active++
			progressed = true
			go s.dispatch(ctx, p, completions)
		}

	drain:
		for {
			select {
			case c := <-completions:
				active--
				progressed = true
				if c.err == nil {
					success = append(success, c.process)
					runnables = append(runnables, s.wf.DiscoverRunnableProcesses(c.process)...)
				} else {
					failure = append(failure, c.process)
				}
				persist()
			default:
				break drain
			}
		}

		if !progressed {
			time.Sleep(idleSleep)
		}
	}

	// Drain phase: the main condition is now false (failure without
	// keep_going, or nothing left to do); finish whatever is already
	// in flight without admitting new work.
	for active > 0 {
		c := <-completions
		active--
		if c.err == nil {
			success = append(success, c.process)
		} else {
			failure = append(failure, c.process)
		}
		persist()
	}

	return &Result{Success: success, Failure: failure}, nil
}

// dispatch runs one process to completion and reports the outcome on
// completions. It never panics out: any failure mode becomes either a
// failure completion or, after the post-condition checks, a success one.
func (s *Scheduler) dispatch(ctx context.Context, p *workflow.Process, completions chan<- completion) {
	spanCtx := ctx
	var endSpan func(bool)
	if s.cfg.Tracer != nil {
		spanCtx, endSpan = s.cfg.Tracer.StartProcessSpan(ctx, p.ID)
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordProcessStart(p.Processor)
	}

	run := &tuttlelog.ProcessRun{ProcessID: p.ID, Processor: p.Processor, RunID: s.cfg.RunID}
	tuttlelog.LogProcessStart(s.logger, run)

	start := time.Now()
	err := s.run(spanCtx, p)
	duration := time.Since(start)

	now := time.Now()
	p.End = &now

	if err != nil {
		p.Status = workflow.StatusFailure
		p.ErrorMessage = err.Error()
	} else {
		p.Status = workflow.StatusSuccess
	}

	tuttlelog.LogProcessOutcome(s.logger, run, &tuttlelog.ProcessOutcome{
		Success:    err == nil,
		DurationMs: duration.Milliseconds(),
		Error:      p.ErrorMessage,
	})

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordProcessComplete(p.Processor, err == nil, duration)
	}
	if endSpan != nil {
		endSpan(err == nil)
	}

	completions <- completion{process: p, err: err}
}

// run resolves the processor, prepares the reserved working directory and
// log files, executes the processor, and applies the post-condition
// checks from spec §4.6 in order.
func (s *Scheduler) run(ctx context.Context, p *workflow.Process) error {
	proc, err := s.resolver.BuildProcessor(p.Processor)
	if err != nil {
		return err
	}

	reservedDir := filepath.Join(s.cfg.BaseDir, "processes", p.ID)
	if err := os.MkdirAll(reservedDir, 0o755); err != nil {
		return fmt.Errorf("creating working directory for %s: %w", p.ID, err)
	}
	p.WorkingDir = reservedDir
	p.StdoutPath = filepath.Join(reservedDir, "stdout.log")
	p.StderrPath = filepath.Join(reservedDir, "stderr.log")

	if err := proc.PreCheck(p); err != nil {
		return err
	}

	stdoutTail := startTailer(s.logger, s.cfg.RunID, p.ID, "stdout", p.StdoutPath)
	stderrTail := startTailer(s.logger, s.cfg.RunID, p.ID, "stderr", p.StderrPath)
	runErr := proc.Run(ctx, p, reservedDir, p.StdoutPath, p.StderrPath)
	stdoutTail.Stop()
	stderrTail.Stop()

	if runErr != nil {
		if tuttleErr, ok := runErr.(tuttleerrors.TuttleError); ok {
			return fmt.Errorf("FAILLURE_IN_PROCESS: %s", tuttleErr.Error())
		}
		return fmt.Errorf("ERROR_IN_PROCESS: %w", runErr)
	}

	missing := missingOutputs(p)
	if len(missing) > 0 {
		return fmt.Errorf("MISSING_OUTPUT: %v", missing)
	}

	sigs, err := computeSignatures(p)
	if err != nil {
		return fmt.Errorf("ERROR_IN_SIGNATURE: %w", err)
	}
	for url, sig := range sigs {
		s.wf.Signatures.Set(url, workflow.SignatureEntry{Signature: sig, ProducerID: p.ID})
	}

	return nil
}

func missingOutputs(p *workflow.Process) []string {
	var missing []string
	for _, o := range p.Outputs {
		ok, err := o.Exists()
		if err != nil || !ok {
			missing = append(missing, o.URL())
		}
	}
	return missing
}

func computeSignatures(p *workflow.Process) (map[string]string, error) {
	sigs := make(map[string]string, len(p.Outputs))
	for _, o := range p.Outputs {
		sig, err := o.Signature()
		if err != nil {
			return nil, fmt.Errorf("signature of %s: %w", o.URL(), err)
		}
		sigs[o.URL()] = sig
	}
	return sigs, nil
}
