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

// Package resourcekind provides the built-in file and http(s) resource
// kinds, registered against internal/registry at startup.
package resourcekind

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tombee/tuttle/pkg/workflow"
)

// FileKind implements workflow.ResourceKind for the "file" scheme. URLs are
// of the form "file:///abs/path"; the text after "file://" is used as a
// literal path, and wildcard characters in it are not expanded.
type FileKind struct{}

// Scheme implements workflow.ResourceKind.
func (FileKind) Scheme() string { return "file" }

// New implements workflow.ResourceKind.
func (FileKind) New(url string) (workflow.Resource, error) {
	path := strings.TrimPrefix(url, "file://")
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	return &FileResource{url: url, path: path}, nil
}

// FileResource is a resource backed by a local file. Its signature is
// mtime+size, cheap and sufficient to detect the overwhelming majority of
// changes; a full content hash is only computed as the HTTP kind's
// sha1-32K fallback, not here, since local stat is already exact enough
// for make-like incremental builds.
type FileResource struct {
	url  string
	path string
}

// URL implements workflow.Resource.
func (r *FileResource) URL() string { return r.url }

// Exists implements workflow.Resource.
func (r *FileResource) Exists() (bool, error) {
	_, err := os.Stat(r.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Signature implements workflow.Resource as mtime+size.
func (r *FileResource) Signature() (string, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("signature of %s: file does not exist", r.url)
		}
		return "", err
	}
	return fmt.Sprintf("mtime=%d,size=%d", info.ModTime().UnixNano(), info.Size()), nil
}

// Remove implements workflow.Resource.
func (r *FileResource) Remove() error {
	err := os.Remove(r.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// sha1Prefix hashes the first n bytes read from f, used by the HTTP kind's
// last-resort signature. The result is always tagged "sha1-32k:".
func sha1Prefix(f io.Reader, n int64) (string, error) {
	h := sha1.New()
	if _, err := io.CopyN(h, f, n); err != nil && err != io.EOF {
		return "", err
	}
	return "sha1-32k:" + hex.EncodeToString(h.Sum(nil)), nil
}
