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

package errors

import (
	"fmt"
	"time"
)

// ParsingError represents a structural or syntactic problem in a workflow
// file, or in an extension fragment spliced into one. Nothing executes
// when this is returned; callers exit 2.
type ParsingError struct {
	// Source identifies the file or fragment that failed to parse.
	Source string

	// Reason is the human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *ParsingError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("parsing %s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("parsing error: %s", e.Reason)
}

// MalformedURLError is raised by a resource constructor when a URL cannot
// be turned into a resource of its scheme. internal/build returns it
// unwrapped; the CLI reports it like a ParsingError, with exit code 2.
type MalformedURLError struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e *MalformedURLError) Error() string {
	return fmt.Sprintf("malformed url %q: %s", e.URL, e.Reason)
}

// WorkflowError represents a structural problem with the dependency graph:
// a duplicate producer, a missing primary input, or a cycle (spec §4.2).
type WorkflowError struct {
	Message string
}

// Error implements the error interface.
func (e *WorkflowError) Error() string { return e.Message }

// TuttleError is implemented by errors a processor raises to report a
// recognized, expected failure of the user's process (a nonzero exit code,
// a malformed input the processor itself rejected, …). The scheduler records
// a TuttleError's message unchanged after a FAILLURE_IN_PROCESS tag; any
// other error is recorded after an ERROR_IN_PROCESS tag with its message
// only. No stack trace is captured.
type TuttleError interface {
	error
	IsTuttleError()
}

// ProcessError is the concrete TuttleError returned by the shipped
// processor kinds (shell, download) when the underlying command or
// transfer fails in a recognized way.
type ProcessError struct {
	Message string
}

// Error implements the error interface.
func (e *ProcessError) Error() string { return e.Message }

// IsTuttleError marks ProcessError as a recognized processor failure.
func (e *ProcessError) IsTuttleError() {}

// ExtendError is raised by the tuttle-extend-workflow helper (spec §4.5).
// Its message is printed to stderr verbatim and the process exits 1.
type ExtendError struct {
	Message string
}

// Error implements the error interface.
func (e *ExtendError) Error() string { return e.Message }

// AbortError indicates a run was stopped before any process was admitted:
// cmd/tuttle returns it when the pre-flight check refuses to retry a
// process that failed last time with identical code and inputs. A user
// interrupt does not produce an AbortError. The CLI prints Reason to the
// user verbatim; Error() adds an "aborted:" prefix for contexts (logs,
// wrapped errors) that want the TuttleError's own voice.
type AbortError struct {
	Reason string
}

// Error implements the error interface.
func (e *AbortError) Error() string { return fmt.Sprintf("aborted: %s", e.Reason) }

// ConfigError represents configuration file problems: missing settings or
// invalid values in the engine's own YAML config.
type ConfigError struct {
	Key    string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error { return e.Cause }

// TimeoutError represents a process exceeding its configured timeout.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TimeoutError) Unwrap() error { return e.Cause }
