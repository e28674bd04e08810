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

// Package processorkind provides the built-in shell and download
// processors, registered against internal/registry at startup.
package processorkind

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
	"github.com/tombee/tuttle/pkg/workflow"
)

// ShellProcessor runs a process's code as a shell script in its reserved
// working directory, with stdout/stderr redirected to the files the
// scheduler's log tailer watches and TUTTLE_ENV set from p.TuttleEnv.
type ShellProcessor struct {
	// Shell is the interpreter invoked with "-c <code>". Defaults to "sh"
	// when empty.
	Shell string
}

// Name implements workflow.Processor.
func (ShellProcessor) Name() string { return "shell" }

// StaticCheck implements workflow.Processor: a shell process needs
// non-empty code.
func (ShellProcessor) StaticCheck(p *workflow.Process) error {
	if strings.TrimSpace(p.Code) == "" {
		return &tuttleerrors.ParsingError{Source: p.ID, Reason: "shell process has no code"}
	}
	return nil
}

// PreCheck implements workflow.Processor; shell has nothing to verify
// beyond StaticCheck before running.
func (ShellProcessor) PreCheck(*workflow.Process) error { return nil }

// Run implements workflow.Processor. A nonzero exit status is reported as
// a *tuttleerrors.ProcessError naming the process and its exit status, matching
// spec's FAILLURE_IN_PROCESS path: the scheduler shows a ProcessError's
// message verbatim rather than wrapping it as an unexpected failure.
func (s ShellProcessor) Run(ctx context.Context, p *workflow.Process, reservedDir, stdoutPath, stderrPath string) error {
	shell := s.Shell
	if shell == "" {
		shell = "sh"
	}

	stdout, err := os.Create(stdoutPath)
	if err != nil {
		return fmt.Errorf("creating stdout file: %w", err)
	}
	defer stdout.Close()

	stderr, err := os.Create(stderrPath)
	if err != nil {
		return fmt.Errorf("creating stderr file: %w", err)
	}
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, shell, "-c", p.Code)
	cmd.Dir = reservedDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = os.Environ()
	if p.TuttleEnv != "" {
		cmd.Env = append(cmd.Env, "TUTTLE_ENV="+p.TuttleEnv)
	}

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &tuttleerrors.ProcessError{
				Message: fmt.Sprintf("process %s exited with status %d", p.ID, exitErr.ExitCode()),
			}
		}
		return fmt.Errorf("running process %s: %w", p.ID, err)
	}
	return nil
}
