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

package resourcekind_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/tuttle/internal/resourcekind"
)

func TestHTTPResource_PrefersETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	kind, err := resourcekind.NewHTTPKind("http")
	require.NoError(t, err)

	res, err := kind.New(srv.URL)
	require.NoError(t, err)

	sig, err := res.Signature()
	require.NoError(t, err)
	assert.Equal(t, `"abc123"`, sig)
}

func TestHTTPResource_FallsBackToLastModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	kind, err := resourcekind.NewHTTPKind("http")
	require.NoError(t, err)

	res, err := kind.New(srv.URL)
	require.NoError(t, err)

	sig, err := res.Signature()
	require.NoError(t, err)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", sig)
}

func TestHTTPResource_FallsBackToSHA1Prefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("some body content"))
	}))
	defer srv.Close()

	kind, err := resourcekind.NewHTTPKind("http")
	require.NoError(t, err)

	res, err := kind.New(srv.URL)
	require.NoError(t, err)

	sig, err := res.Signature()
	require.NoError(t, err)
	assert.Contains(t, sig, "sha1-32k:")
}

func TestHTTPResource_Exists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	kind, err := resourcekind.NewHTTPKind("http")
	require.NoError(t, err)

	res, err := kind.New(srv.URL)
	require.NoError(t, err)

	exists, err := res.Exists()
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestHTTPResource_Remove_IsUnsupported(t *testing.T) {
	kind, err := resourcekind.NewHTTPKind("https")
	require.NoError(t, err)

	res, err := kind.New("https://example.com/a")
	require.NoError(t, err)

	assert.Error(t, res.Remove())
}
