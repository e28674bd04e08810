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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tombee/tuttle/internal/build"
	"github.com/tombee/tuttle/internal/config"
	"github.com/tombee/tuttle/internal/extend"
	tuttlelog "github.com/tombee/tuttle/internal/log"
	"github.com/tombee/tuttle/internal/metrics"
	"github.com/tombee/tuttle/internal/parser"
	"github.com/tombee/tuttle/internal/preflight"
	"github.com/tombee/tuttle/internal/registry"
	"github.com/tombee/tuttle/internal/scheduler"
	"github.com/tombee/tuttle/internal/state"
	"github.com/tombee/tuttle/internal/tracing"
	"github.com/tombee/tuttle/internal/watch"
	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
	"github.com/tombee/tuttle/pkg/workflow"
	"github.com/tombee/tuttle/pkg/workflow/invalidate"
)

// exitParseOrFailure is spec §6's exit code for a parse/structural error
// or any process failure.
const exitParseOrFailure = 2

func newRunCommand() *cobra.Command {
	var (
		configPath string
		workers    int
		keepGoing  bool
		watchMode  bool
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Build a workflow file's out-of-date outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("keep-going") {
				cfg.KeepGoing = keepGoing
			}

			logger := tuttlelog.New(&tuttlelog.Config{
				Level:     cfg.Log.Level,
				Format:    tuttlelog.Format(cfg.Log.Format),
				Output:    cmd.ErrOrStderr(),
				AddSource: cfg.Log.Source,
			})

			reg, err := buildRegistry()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runOnce := func() (*workflow.Workflow, *scheduler.Result, []invalidate.Invalidation, error) {
				return executeWorkflow(ctx, args[0], reg, cfg, logger)
			}

			if !watchMode {
				_, result, invalidations, err := runOnce()
				return reportAndExit(cmd.OutOrStdout(), result, invalidations, err)
			}

			return watchAndRun(ctx, args[0], cfg, logger, runOnce, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "tuttle.yaml", "path to the engine config file")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = (cpu_count+1)/2)")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "keep scheduling unrelated work after a failure")
	cmd.Flags().BoolVar(&watchMode, "watch", false, "rebuild whenever a primary input changes")

	return cmd
}

// executeWorkflow runs the full spec §4 pipeline once: parse, run
// preprocesses, merge extension fragments, build the graph, check
// structural invariants, run the pre-flight check, invalidate, and
// schedule.
func executeWorkflow(ctx context.Context, path string, reg *registry.Registry, cfg config.Config, logger *slog.Logger) (*workflow.Workflow, *scheduler.Result, []invalidate.Invalidation, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading workflow file: %w", err)
	}

	sections, err := parser.Parse(string(text))
	if err != nil {
		return nil, nil, nil, err
	}
	preprocessSecs, mainSecs := build.ExtractPreprocess(sections)

	stateDir, err := filepath.Abs(cfg.StateDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolving state directory: %w", err)
	}

	if err := build.RunPreprocesses(ctx, preprocessSecs, reg, stateDir, stateDir, logger); err != nil {
		return nil, nil, nil, err
	}

	fragments, err := extend.LoadFragments(stateDir)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, frag := range fragments {
		fragSections, err := parser.Parse(frag)
		if err != nil {
			return nil, nil, nil, err
		}
		mainSecs = append(mainSecs, fragSections...)
	}

	wf, err := build.FromSections(mainSecs, reg)
	if err != nil {
		return nil, nil, nil, err
	}

	missing, err := wf.MissingInputs()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(missing) > 0 {
		return nil, nil, nil, &tuttleerrors.WorkflowError{Message: fmt.Sprintf("missing inputs: %s", joinURLs(missing))}
	}
	if cyc := wf.CircularReferences(); len(cyc) > 0 {
		return nil, nil, nil, &tuttleerrors.WorkflowError{Message: fmt.Sprintf("circular references: %s", joinURLs(cyc))}
	}

	stray, err := wf.ResourcesNotCreatedByTuttle()
	if err != nil {
		return nil, nil, nil, err
	}
	for _, r := range stray {
		logger.Warn("not created by tuttle", "url", r.URL())
	}

	mgr, err := state.NewManager(stateDir)
	if err != nil {
		return nil, nil, nil, err
	}
	doc, err := mgr.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	if doc != nil {
		if failedID, found := preflight.Check(wf, doc.Processes); found {
			return nil, nil, nil, &tuttleerrors.AbortError{
				Reason: fmt.Sprintf("Workflow already failed on process '%s'. Fix the process and run tuttle again", failedID),
			}
		}
	}

	var prev *invalidate.Previous
	if doc != nil {
		prev = doc.ToPrevious()
	}
	invalidations, err := invalidate.Compute(wf, prev)
	if err != nil {
		return nil, nil, nil, err
	}
	if doc != nil {
		build.RetrieveExecutionInfo(wf, invalidations, doc)
	}

	tracer, tp, err := tracing.New()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building tracer: %w", err)
	}
	defer tp.Shutdown(ctx)

	sched := scheduler.New(wf, reg, scheduler.Config{
		Workers:   cfg.Workers,
		KeepGoing: cfg.KeepGoing,
		BaseDir:   stateDir,
		RunID:     uuid.NewString(),
		TuttleEnv: stateDir,
		Persister: mgr,
		Metrics:   metrics.NewRecorder(),
		Tracer:    tracer,
		Logger:    logger,
	})

	result, err := sched.Run(ctx)
	if err != nil {
		return wf, nil, invalidations, err
	}
	return wf, result, invalidations, nil
}

func joinURLs(resources []workflow.Resource) string {
	urls := make([]string, len(resources))
	for i, r := range resources {
		urls[i] = r.URL()
	}
	out := ""
	for i, u := range urls {
		if i > 0 {
			out += ", "
		}
		out += u
	}
	return out
}

// reportAndExit prints the run's outcome and returns a cobra-compatible
// error that sets the process exit code without re-printing Go's default
// "Error: " prefix for expected, already-reported failures.
func reportAndExit(w io.Writer, result *scheduler.Result, invalidations []invalidate.Invalidation, err error) error {
	if err != nil {
		if abortErr, ok := err.(*tuttleerrors.AbortError); ok {
			fmt.Fprintln(w, abortErr.Reason)
			return exitError{code: exitParseOrFailure}
		}
		fmt.Fprintln(w, err.Error())
		return exitError{code: exitParseOrFailure}
	}

	printReport(w, invalidations, result)

	if len(result.Failure) > 0 {
		return exitError{code: exitParseOrFailure}
	}
	return nil
}

func printReport(w io.Writer, invalidations []invalidate.Invalidation, result *scheduler.Result) {
	for _, inv := range invalidations {
		fmt.Fprintf(w, "invalidated %s: %s\n", inv.URL, inv.Reason)
	}
	for _, p := range result.Success {
		fmt.Fprintf(w, "Process %s succeeded\n", p.ID)
	}
	for _, p := range result.Failure {
		fmt.Fprintf(w, "Process %s has failled: %s\n", p.ID, p.ErrorMessage)
	}
}

// watchAndRun runs the workflow once, then again every time a primary
// file:// input changes, until the context is canceled.
func watchAndRun(ctx context.Context, path string, cfg config.Config, logger *slog.Logger, runOnce func() (*workflow.Workflow, *scheduler.Result, []invalidate.Invalidation, error), w io.Writer) error {
	wf, result, invalidations, err := runOnce()
	if err := reportAndExit(w, result, invalidations, err); err != nil {
		fmt.Fprintln(w, "continuing to watch despite the failure above")
	}

	exclude, err := watch.NewExcludeMatcher(watch.DefaultExcludePatterns())
	if err != nil {
		return err
	}

	watchPaths := primaryFilePaths(wf)
	watcher, err := watch.New(watchPaths, watch.DefaultDebounce, exclude, logger)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		watcher.Stop()
	}()

	watcher.Run(func() {
		logger.Info("rebuild triggered by filesystem change")
		wf, result, invalidations, err = runOnce()
		reportAndExit(w, result, invalidations, err)
	})

	return nil
}

func primaryFilePaths(wf *workflow.Workflow) []string {
	if wf == nil {
		return nil
	}
	var paths []string
	for _, r := range wf.IterInputs() {
		const filePrefix = "file://"
		url := r.URL()
		if _, derived := wf.Creator(url); derived {
			continue
		}
		if len(url) > len(filePrefix) && url[:len(filePrefix)] == filePrefix {
			paths = append(paths, url[len(filePrefix):])
		}
	}
	return paths
}

// exitError carries the process exit code for an already-reported
// failure, so main can set os.Exit without cobra printing a second
// "Error: ..." line.
type exitError struct{ code int }

func (e exitError) Error() string { return "" }
