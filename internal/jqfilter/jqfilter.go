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

// Package jqfilter evaluates a jq expression against tuttle status's JSON
// view of a workflow, for `tuttle status --jq`.
package jqfilter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
)

// DefaultTimeout bounds how long a single jq expression may run.
const DefaultTimeout = 1 * time.Second

// Filter evaluates jq expressions with a timeout, so a pathological
// expression (or an accidentally infinite generator) cannot hang the
// status command.
type Filter struct {
	timeout time.Duration
}

// New creates a Filter. A zero timeout falls back to DefaultTimeout.
func New(timeout time.Duration) *Filter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Filter{timeout: timeout}
}

// Validate parses and compiles expression without running it, so a
// command-line can report a bad --jq expression before doing any work.
func (f *Filter) Validate(expression string) error {
	if expression == "" {
		return nil
	}
	query, err := gojq.Parse(expression)
	if err != nil {
		return fmt.Errorf("invalid jq expression: %w", err)
	}
	if _, err := gojq.Compile(query); err != nil {
		return fmt.Errorf("jq compilation failed: %w", err)
	}
	return nil
}

// Run evaluates expression against data (typically the result of
// json.Marshal-ing a status document, round-tripped through
// json.Unmarshal into interface{} so gojq sees plain maps/slices). An
// empty expression passes data through unchanged. Multiple emitted
// values are returned as a slice; zero values as nil.
func (f *Filter) Run(ctx context.Context, expression string, data interface{}) (interface{}, error) {
	if expression == "" {
		return data, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resultCh := make(chan interface{}, 1)
	errCh := make(chan error, 1)

	go func() {
		iter := code.Run(data)
		var results []interface{}
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				errCh <- err
				return
			}
			results = append(results, v)
		}
		switch len(results) {
		case 0:
			resultCh <- nil
		case 1:
			resultCh <- results[0]
		default:
			resultCh <- results
		}
	}()

	select {
	case result := <-resultCh:
		return result, nil
	case err := <-errCh:
		return nil, err
	case <-runCtx.Done():
		return nil, fmt.Errorf("jq execution timed out after %v", f.timeout)
	}
}

// RunJSON is Run for a value that isn't already built from plain
// maps/slices: it round-trips v through JSON so gojq operates on the
// same shape that would appear in the rendered status output.
func (f *Filter) RunJSON(ctx context.Context, expression string, v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling status for jq filtering: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("unmarshaling status for jq filtering: %w", err)
	}
	return f.Run(ctx, expression, generic)
}
