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
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogProcessStart(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{Level: "info", Format: FormatJSON, Output: &buf}
	logger := New(cfg)

	run := &ProcessRun{
		ProcessID:          "file://out.txt",
		Processor:          "shell",
		RunID:              "run-123",
		InvalidationReason: "process code changed",
		Metadata: map[string]interface{}{
			"inputs": 2,
		},
	}

	LogProcessStart(logger, run)

	output := buf.String()

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if logEntry["event"] != "process_start" {
		t.Errorf("expected event to be 'process_start', got: %v", logEntry["event"])
	}

	if logEntry[ProcessIDKey] != "file://out.txt" {
		t.Errorf("expected %s to be 'file://out.txt', got: %v", ProcessIDKey, logEntry[ProcessIDKey])
	}

	if logEntry[ProcessorKey] != "shell" {
		t.Errorf("expected %s to be 'shell', got: %v", ProcessorKey, logEntry[ProcessorKey])
	}

	if logEntry["invalidation_reason"] != "process code changed" {
		t.Errorf("expected invalidation_reason to be set, got: %v", logEntry["invalidation_reason"])
	}

	if logEntry["inputs"] != float64(2) {
		t.Errorf("expected inputs to be 2, got: %v", logEntry["inputs"])
	}
}

func TestLogProcessStart_MinimalFields(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{Level: "info", Format: FormatJSON, Output: &buf}
	logger := New(cfg)

	run := &ProcessRun{ProcessID: "file://out.txt", Processor: "shell"}
	LogProcessStart(logger, run)

	output := buf.String()

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if _, ok := logEntry["invalidation_reason"]; ok {
		t.Errorf("expected no invalidation_reason field when unset")
	}

	if _, ok := logEntry[RunIDKey]; ok {
		t.Errorf("expected no %s field when unset", RunIDKey)
	}
}

func TestLogProcessOutcome_Success(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{Level: "info", Format: FormatJSON, Output: &buf}
	logger := New(cfg)

	run := &ProcessRun{ProcessID: "file://out.txt", Processor: "shell", RunID: "run-123"}
	outcome := &ProcessOutcome{
		Success:    true,
		DurationMs: 150,
		Metadata: map[string]interface{}{
			"exit_code": 0,
		},
	}

	LogProcessOutcome(logger, run, outcome)

	output := buf.String()

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if logEntry["event"] != "process_complete" {
		t.Errorf("expected event to be 'process_complete', got: %v", logEntry["event"])
	}

	if logEntry["success"] != true {
		t.Errorf("expected success to be true, got: %v", logEntry["success"])
	}

	if logEntry["duration_ms"] != float64(150) {
		t.Errorf("expected duration_ms to be 150, got: %v", logEntry["duration_ms"])
	}

	if logEntry["level"] != "INFO" {
		t.Errorf("expected level to be 'INFO', got: %v", logEntry["level"])
	}

	if logEntry["msg"] != "process completed" {
		t.Errorf("expected msg to be 'process completed', got: %v", logEntry["msg"])
	}

	if logEntry["exit_code"] != float64(0) {
		t.Errorf("expected exit_code to be 0, got: %v", logEntry["exit_code"])
	}

	if _, ok := logEntry["error"]; ok {
		t.Errorf("expected no error field for successful outcome")
	}
}

func TestLogProcessOutcome_Error(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{Level: "info", Format: FormatJSON, Output: &buf}
	logger := New(cfg)

	run := &ProcessRun{ProcessID: "file://out.txt", Processor: "shell", RunID: "run-123"}
	outcome := &ProcessOutcome{Success: false, Error: "exit status 1", DurationMs: 50}

	LogProcessOutcome(logger, run, outcome)

	output := buf.String()

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if logEntry["success"] != false {
		t.Errorf("expected success to be false, got: %v", logEntry["success"])
	}

	if logEntry["error"] != "exit status 1" {
		t.Errorf("expected error to be 'exit status 1', got: %v", logEntry["error"])
	}

	if logEntry["level"] != "ERROR" {
		t.Errorf("expected level to be 'ERROR', got: %v", logEntry["level"])
	}

	if logEntry["msg"] != "process failed" {
		t.Errorf("expected msg to be 'process failed', got: %v", logEntry["msg"])
	}
}

func TestProcessMiddleware_Run_Success(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{Level: "info", Format: FormatJSON, Output: &buf}
	logger := New(cfg)
	middleware := NewProcessMiddleware(logger)

	run := &ProcessRun{ProcessID: "file://out.txt", Processor: "shell"}

	handlerCalled := false
	err := middleware.Run(run, func() error {
		handlerCalled = true
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got: %v", err)
	}

	if !handlerCalled {
		t.Errorf("expected handler to be called")
	}

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), output)
	}

	var startLog map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &startLog); err != nil {
		t.Fatalf("expected valid JSON for start log: %v", err)
	}
	if startLog["event"] != "process_start" {
		t.Errorf("expected first log to be process_start, got: %v", startLog["event"])
	}

	var completeLog map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &completeLog); err != nil {
		t.Fatalf("expected valid JSON for complete log: %v", err)
	}
	if completeLog["event"] != "process_complete" {
		t.Errorf("expected second log to be process_complete, got: %v", completeLog["event"])
	}
	if completeLog["success"] != true {
		t.Errorf("expected success to be true, got: %v", completeLog["success"])
	}
	if _, ok := completeLog["duration_ms"]; !ok {
		t.Errorf("expected duration_ms to be present")
	}
}

func TestProcessMiddleware_Run_Error(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{Level: "info", Format: FormatJSON, Output: &buf}
	logger := New(cfg)
	middleware := NewProcessMiddleware(logger)

	run := &ProcessRun{ProcessID: "file://out.txt", Processor: "shell"}

	testErr := errors.New("handler error")
	err := middleware.Run(run, func() error {
		return testErr
	})

	if err != testErr {
		t.Errorf("expected error to be returned, got: %v", err)
	}

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	var completeLog map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &completeLog); err != nil {
		t.Fatalf("expected valid JSON for complete log: %v", err)
	}

	if completeLog["success"] != false {
		t.Errorf("expected success to be false, got: %v", completeLog["success"])
	}

	if completeLog["error"] != "handler error" {
		t.Errorf("expected error to be 'handler error', got: %v", completeLog["error"])
	}

	if completeLog["level"] != "ERROR" {
		t.Errorf("expected level to be ERROR, got: %v", completeLog["level"])
	}
}

func TestProcessMiddleware_RunWithMetadata_Success(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{Level: "info", Format: FormatJSON, Output: &buf}
	logger := New(cfg)
	middleware := NewProcessMiddleware(logger)

	run := &ProcessRun{ProcessID: "file://out.txt", Processor: "shell"}

	expectedMetadata := map[string]interface{}{
		"exit_code": 0,
		"output":    "success",
	}

	metadata, err := middleware.RunWithMetadata(run, func() (map[string]interface{}, error) {
		return expectedMetadata, nil
	})

	if err != nil {
		t.Errorf("expected no error, got: %v", err)
	}

	if metadata["exit_code"] != 0 {
		t.Errorf("expected exit_code to be 0, got: %v", metadata["exit_code"])
	}

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	var completeLog map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &completeLog); err != nil {
		t.Fatalf("expected valid JSON for complete log: %v", err)
	}

	if completeLog["exit_code"] != float64(0) {
		t.Errorf("expected exit_code in log to be 0, got: %v", completeLog["exit_code"])
	}

	if completeLog["output"] != "success" {
		t.Errorf("expected output in log to be 'success', got: %v", completeLog["output"])
	}
}

func TestProcessMiddleware_RunWithMetadata_Error(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{Level: "info", Format: FormatJSON, Output: &buf}
	logger := New(cfg)
	middleware := NewProcessMiddleware(logger)

	run := &ProcessRun{ProcessID: "file://out.txt", Processor: "shell"}

	partialMetadata := map[string]interface{}{"exit_code": 1}
	testErr := errors.New("command failed")

	metadata, err := middleware.RunWithMetadata(run, func() (map[string]interface{}, error) {
		return partialMetadata, testErr
	})

	if err != testErr {
		t.Errorf("expected error to be returned, got: %v", err)
	}

	if metadata["exit_code"] != 1 {
		t.Errorf("expected exit_code to be 1, got: %v", metadata["exit_code"])
	}

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	var completeLog map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &completeLog); err != nil {
		t.Fatalf("expected valid JSON for complete log: %v", err)
	}

	if completeLog["success"] != false {
		t.Errorf("expected success to be false, got: %v", completeLog["success"])
	}

	if completeLog["error"] != "command failed" {
		t.Errorf("expected error to be 'command failed', got: %v", completeLog["error"])
	}

	if completeLog["exit_code"] != float64(1) {
		t.Errorf("expected exit_code in log to be 1, got: %v", completeLog["exit_code"])
	}
}

func TestNewProcessMiddleware(t *testing.T) {
	logger := New(nil)
	middleware := NewProcessMiddleware(logger)

	if middleware == nil {
		t.Errorf("expected non-nil middleware")
	}

	if middleware.logger != logger {
		t.Errorf("expected middleware to use provided logger")
	}
}
