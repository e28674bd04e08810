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

package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
)

func TestWrap(t *testing.T) {
	original := stderrors.New("original error")
	wrapped := tuttleerrors.Wrap(original, "additional context")

	require.Error(t, wrapped)
	assert.Contains(t, wrapped.Error(), "additional context")
	assert.Contains(t, wrapped.Error(), "original error")
	assert.True(t, stderrors.Is(wrapped, original))

	assert.Nil(t, tuttleerrors.Wrap(nil, "context"))
}

func TestWrapf(t *testing.T) {
	original := stderrors.New("file not found")
	wrapped := tuttleerrors.Wrapf(original, "loading file %s", "/path/to/file")

	require.Error(t, wrapped)
	assert.Contains(t, wrapped.Error(), "loading file /path/to/file")
	assert.Contains(t, wrapped.Error(), "file not found")
	assert.Nil(t, tuttleerrors.Wrapf(nil, "loading %s", "x"))
}

func TestIs(t *testing.T) {
	target := &tuttleerrors.WorkflowError{Message: "cycle detected"}
	wrapped := tuttleerrors.Wrap(target, "wrapper")

	assert.True(t, tuttleerrors.Is(wrapped, target))

	other := &tuttleerrors.WorkflowError{Message: "duplicate output"}
	assert.False(t, tuttleerrors.Is(target, other))
	assert.False(t, tuttleerrors.Is(nil, target))
}

func TestAs(t *testing.T) {
	original := &tuttleerrors.ParsingError{Source: "Tuttlefile", Reason: "bad syntax"}
	wrapped := tuttleerrors.Wrap(original, "parse failed")

	var target *tuttleerrors.ParsingError
	require.True(t, tuttleerrors.As(wrapped, &target))
	assert.Equal(t, "Tuttlefile", target.Source)

	var wrongTarget *tuttleerrors.WorkflowError
	assert.False(t, tuttleerrors.As(wrapped, &wrongTarget))
}

func TestUnwrap(t *testing.T) {
	original := stderrors.New("root")
	wrapped := tuttleerrors.Wrap(original, "ctx")

	assert.Equal(t, original, tuttleerrors.Unwrap(wrapped))
	assert.Nil(t, tuttleerrors.Unwrap(original))
}

func TestNew(t *testing.T) {
	err := tuttleerrors.New("boom")
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
}
