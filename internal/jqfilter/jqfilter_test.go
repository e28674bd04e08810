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

package jqfilter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/tuttle/internal/jqfilter"
)

func TestRun_EmptyExpression_PassesThrough(t *testing.T) {
	f := jqfilter.New(0)
	data := map[string]interface{}{"a": 1}
	got, err := f.Run(context.Background(), "", data)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRun_FieldSelection(t *testing.T) {
	f := jqfilter.New(0)
	data := map[string]interface{}{"processes": []interface{}{
		map[string]interface{}{"id": "p1", "status": "success"},
		map[string]interface{}{"id": "p2", "status": "failure"},
	}}
	got, err := f.Run(context.Background(), ".processes[] | select(.status == \"failure\") | .id", data)
	require.NoError(t, err)
	assert.Equal(t, "p2", got)
}

func TestRun_InvalidExpression(t *testing.T) {
	f := jqfilter.New(0)
	_, err := f.Run(context.Background(), ".[invalid", map[string]interface{}{})
	assert.Error(t, err)
}

func TestValidate_RejectsBadSyntax(t *testing.T) {
	f := jqfilter.New(0)
	assert.Error(t, f.Validate(".[invalid"))
	assert.NoError(t, f.Validate(".processes[].id"))
}

func TestRun_Timeout(t *testing.T) {
	f := jqfilter.New(5 * time.Millisecond)
	_, err := f.Run(context.Background(), "def f: f; f", nil)
	assert.Error(t, err)
}

func TestRunJSON_RoundTripsStruct(t *testing.T) {
	type status struct {
		ID string `json:"id"`
	}
	f := jqfilter.New(0)
	got, err := f.RunJSON(context.Background(), ".id", status{ID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", got)
}
