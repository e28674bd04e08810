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

package log

import (
	"log/slog"
	"time"
)

// ProcessRun describes a process about to be executed by the scheduler,
// for logging purposes.
type ProcessRun struct {
	// ProcessID identifies the process (its first output's URL, or an
	// engine-assigned id when it produces no output).
	ProcessID string

	// Processor is the processor kind name (shell, download, ...).
	Processor string

	// RunID is the build run this process execution belongs to.
	RunID string

	// InvalidationReason is why the scheduler decided to run this process.
	InvalidationReason string

	// Metadata contains additional fields (input/output counts, ...).
	Metadata map[string]interface{}
}

// ProcessOutcome describes how a process execution completed.
type ProcessOutcome struct {
	// Success indicates the process finished without error.
	Success bool

	// Error is the error message if the process failed.
	Error string

	// DurationMs is the wall-clock duration of the run in milliseconds.
	DurationMs int64

	// Metadata contains additional fields (exit code, bytes written, ...).
	Metadata map[string]interface{}
}

// LogProcessStart logs a process about to run.
func LogProcessStart(logger *slog.Logger, run *ProcessRun) {
	attrs := []any{
		"event", "process_start",
		ProcessIDKey, run.ProcessID,
		ProcessorKey, run.Processor,
	}

	if run.RunID != "" {
		attrs = append(attrs, RunIDKey, run.RunID)
	}

	if run.InvalidationReason != "" {
		attrs = append(attrs, "invalidation_reason", run.InvalidationReason)
	}

	for k, v := range run.Metadata {
		attrs = append(attrs, k, v)
	}

	logger.Info("process starting", attrs...)
}

// LogProcessOutcome logs how a process execution completed.
func LogProcessOutcome(logger *slog.Logger, run *ProcessRun, outcome *ProcessOutcome) {
	attrs := []any{
		"event", "process_complete",
		ProcessIDKey, run.ProcessID,
		ProcessorKey, run.Processor,
		"success", outcome.Success,
		DurationKey, outcome.DurationMs,
	}

	if run.RunID != "" {
		attrs = append(attrs, RunIDKey, run.RunID)
	}

	if outcome.Error != "" {
		attrs = append(attrs, "error", outcome.Error)
	}

	for k, v := range outcome.Metadata {
		attrs = append(attrs, k, v)
	}

	level := slog.LevelInfo
	message := "process completed"

	if !outcome.Success {
		level = slog.LevelError
		message = "process failed"
	}

	logger.Log(nil, level, message, attrs...)
}

// ProcessMiddleware wraps process execution with start/outcome logging.
type ProcessMiddleware struct {
	logger *slog.Logger
}

// NewProcessMiddleware creates a new process logging middleware.
func NewProcessMiddleware(logger *slog.Logger) *ProcessMiddleware {
	return &ProcessMiddleware{logger: logger}
}

// Run executes handler, logging its start and outcome.
func (m *ProcessMiddleware) Run(run *ProcessRun, handler func() error) error {
	start := time.Now()

	LogProcessStart(m.logger, run)

	err := handler()

	outcome := &ProcessOutcome{
		Success:    err == nil,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		outcome.Error = err.Error()
	}

	LogProcessOutcome(m.logger, run, outcome)

	return err
}

// RunWithMetadata executes handler, logging its start and outcome along
// with metadata the handler reports back (exit code, bytes written, ...).
func (m *ProcessMiddleware) RunWithMetadata(run *ProcessRun, handler func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	start := time.Now()

	LogProcessStart(m.logger, run)

	metadata, err := handler()

	outcome := &ProcessOutcome{
		Success:    err == nil,
		DurationMs: time.Since(start).Milliseconds(),
		Metadata:   metadata,
	}
	if err != nil {
		outcome.Error = err.Error()
	}

	LogProcessOutcome(m.logger, run, outcome)

	return metadata, err
}
