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
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/tuttle/internal/config"
	"github.com/tombee/tuttle/internal/resourcekind"
	"github.com/tombee/tuttle/internal/scheduler"
	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
	"github.com/tombee/tuttle/pkg/workflow"
	"github.com/tombee/tuttle/pkg/workflow/invalidate"
)

func fileResource(t *testing.T, url string) workflow.Resource {
	t.Helper()
	r, err := resourcekind.FileKind{}.New(url)
	require.NoError(t, err)
	return r
}

func TestJoinURLs(t *testing.T) {
	resources := []workflow.Resource{
		fileResource(t, "file:///a"),
		fileResource(t, "file:///b"),
	}

	assert.Equal(t, "file:///a, file:///b", joinURLs(resources))
}

func TestJoinURLs_Empty(t *testing.T) {
	assert.Equal(t, "", joinURLs(nil))
}

func TestPrintReport_InvalidationsAndOutcomes(t *testing.T) {
	var buf bytes.Buffer
	invalidations := []invalidate.Invalidation{
		{URL: "file:///out", Reason: invalidate.ReasonCodeChanged},
	}
	result := &scheduler.Result{
		Success: []*workflow.Process{{ID: "file:///out"}},
		Failure: []*workflow.Process{{ID: "file:///other", ErrorMessage: "exit status 1"}},
	}

	printReport(&buf, invalidations, result)

	out := buf.String()
	assert.Contains(t, out, "invalidated file:///out: process code changed")
	assert.Contains(t, out, "Process file:///out succeeded")
	assert.Contains(t, out, fmt.Sprintf("Process %s has failled: %s", "file:///other", "exit status 1"))
}

func TestReportAndExit_AbortErrorPrintsReasonVerbatim(t *testing.T) {
	var buf bytes.Buffer
	abortErr := &tuttleerrors.AbortError{Reason: "Workflow already failed on process 'file:///out'. Fix the process and run tuttle again"}

	err := reportAndExit(&buf, nil, nil, abortErr)

	require.Error(t, err)
	ee, ok := err.(exitError)
	require.True(t, ok)
	assert.Equal(t, exitParseOrFailure, ee.code)
	assert.Equal(t, "Workflow already failed on process 'file:///out'. Fix the process and run tuttle again\n", buf.String())
}

func TestReportAndExit_SuccessReturnsNilError(t *testing.T) {
	var buf bytes.Buffer
	result := &scheduler.Result{Success: []*workflow.Process{{ID: "file:///out"}}}

	err := reportAndExit(&buf, result, nil, nil)

	assert.NoError(t, err)
}

func TestReportAndExit_ProcessFailureSetsExitCode(t *testing.T) {
	var buf bytes.Buffer
	result := &scheduler.Result{Failure: []*workflow.Process{{ID: "file:///out", ErrorMessage: "boom"}}}

	err := reportAndExit(&buf, result, nil, nil)

	require.Error(t, err)
	ee, ok := err.(exitError)
	require.True(t, ok)
	assert.Equal(t, exitParseOrFailure, ee.code)
}

func TestPrimaryFilePaths_OnlyFileScheme(t *testing.T) {
	wf := workflow.New()
	p := &workflow.Process{
		ID:      "file:///out",
		Inputs:  []workflow.Resource{fileResource(t, "file:///src/a.go")},
		Outputs: []workflow.Resource{fileResource(t, "file:///out")},
	}
	require.NoError(t, wf.AddProcess(p))

	paths := primaryFilePaths(wf)

	assert.Equal(t, []string{"/src/a.go"}, paths)
}

func TestPrimaryFilePaths_NilWorkflow(t *testing.T) {
	assert.Nil(t, primaryFilePaths(nil))
}

// TestExecuteWorkflow_SecondRunRebuildsNothing exercises spec §8's
// idempotence law end to end: a second invocation of the same workflow
// file, with no change to inputs or code, must not re-run any process.
func TestExecuteWorkflow_SecondRunRebuildsNothing(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.txt")
	bPath := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(aPath, []byte("hello"), 0o644))

	workflowPath := filepath.Join(dir, "build.tuttle")
	contents := fmt.Sprintf("file://%s <- #! shell file://%s\n\tcp %s %s\n", bPath, aPath, aPath, bPath)
	require.NoError(t, os.WriteFile(workflowPath, []byte(contents), 0o644))

	reg, err := buildRegistry()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.StateDir = filepath.Join(dir, ".tuttle")
	cfg.Workers = 1
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, result1, _, err := executeWorkflow(context.Background(), workflowPath, reg, cfg, logger)
	require.NoError(t, err)
	require.Len(t, result1.Success, 1)

	_, result2, invalidations2, err := executeWorkflow(context.Background(), workflowPath, reg, cfg, logger)
	require.NoError(t, err)
	assert.Empty(t, invalidations2)
	assert.Empty(t, result2.Success)
	assert.Empty(t, result2.Failure)
}
