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

package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
	"github.com/tombee/tuttle/internal/registry"
	"github.com/tombee/tuttle/pkg/workflow"
)

type stubResource struct{ url string }

func (s *stubResource) URL() string                  { return s.url }
func (s *stubResource) Exists() (bool, error)         { return true, nil }
func (s *stubResource) Signature() (string, error)    { return "sig", nil }
func (s *stubResource) Remove() error                 { return nil }

type fileKind struct{}

func (fileKind) Scheme() string { return "file" }
func (fileKind) New(url string) (workflow.Resource, error) {
	return &stubResource{url: url}, nil
}

type shellProcessor struct{}

func (shellProcessor) Name() string                { return "shell" }
func (shellProcessor) StaticCheck(*workflow.Process) error { return nil }
func (shellProcessor) PreCheck(*workflow.Process) error    { return nil }
func (shellProcessor) Run(ctx context.Context, p *workflow.Process, reservedDir, stdout, stderr string) error {
	return nil
}

func TestExtractScheme(t *testing.T) {
	scheme, ok := registry.ExtractScheme("file:///tmp/a")
	require.True(t, ok)
	assert.Equal(t, "file", scheme)

	_, ok = registry.ExtractScheme("no-scheme-here")
	assert.False(t, ok)
}

func TestBuildResource(t *testing.T) {
	r := registry.New()
	r.RegisterResourceKind(fileKind{})

	res, err := r.BuildResource("file:///tmp/a")
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/a", res.URL())
}

func TestBuildResource_UnknownScheme(t *testing.T) {
	r := registry.New()
	_, err := r.BuildResource("ftp://host/path")

	require.Error(t, err)
	var malformed *tuttleerrors.MalformedURLError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, err.Error(), "FTP")
}

func TestBuildResource_NoSchemeSeparator(t *testing.T) {
	r := registry.New()
	_, err := r.BuildResource("not-a-url")

	require.Error(t, err)
	var malformed *tuttleerrors.MalformedURLError
	require.ErrorAs(t, err, &malformed)
}

func TestBuildProcessor_DefaultResolvesToShell(t *testing.T) {
	r := registry.New()
	r.RegisterProcessor(shellProcessor{})

	p, err := r.BuildProcessor("")
	require.NoError(t, err)
	assert.Equal(t, "shell", p.Name())

	p, err = r.BuildProcessor("default")
	require.NoError(t, err)
	assert.Equal(t, "shell", p.Name())
}

func TestBuildProcessor_Named(t *testing.T) {
	r := registry.New()
	r.RegisterProcessor(shellProcessor{})

	p, err := r.BuildProcessor("shell")
	require.NoError(t, err)
	assert.Equal(t, "shell", p.Name())
}

func TestBuildProcessor_Unknown(t *testing.T) {
	r := registry.New()
	_, err := r.BuildProcessor("nonexistent")

	require.Error(t, err)
	var parseErr *tuttleerrors.ParsingError
	require.ErrorAs(t, err, &parseErr)
}
