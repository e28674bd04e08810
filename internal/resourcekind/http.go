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

package resourcekind

import (
	"fmt"
	"io"
	"net/http"

	"github.com/tombee/tuttle/pkg/httpclient"
	"github.com/tombee/tuttle/pkg/workflow"
)

// httpPrefixBytes is how much of the body gets hashed when neither ETag
// nor Last-Modified is present.
const httpPrefixBytes = 32 * 1024

// HTTPKind implements workflow.ResourceKind for "http" and "https". It is
// registered twice, once per scheme; each NewHTTPKind call builds its own
// client.
type HTTPKind struct {
	Scheme_ string
	Client  *http.Client
}

// NewHTTPKind builds an HTTPKind for scheme ("http" or "https"). Exists
// and Signature are cheap probes run once per resource on every
// invalidation pass, so the client uses httpclient.ResourceCheckConfig
// rather than the heavier retry budget the download processor needs for
// an actual transfer.
func NewHTTPKind(scheme string) (HTTPKind, error) {
	client, err := httpclient.New(httpclient.ResourceCheckConfig())
	if err != nil {
		return HTTPKind{}, err
	}
	return HTTPKind{Scheme_: scheme, Client: client}, nil
}

// Scheme implements workflow.ResourceKind.
func (k HTTPKind) Scheme() string { return k.Scheme_ }

// New implements workflow.ResourceKind.
func (k HTTPKind) New(url string) (workflow.Resource, error) {
	return &HTTPResource{url: url, client: k.Client}, nil
}

// HTTPResource is a resource backed by a remote URL. Remove is
// unsupported: a process cannot "undo" an HTTP GET, so invalidation of an
// HTTP-derived resource can only ever apply to resources it produced
// locally, not to the URL itself.
type HTTPResource struct {
	url    string
	client *http.Client
}

// URL implements workflow.Resource.
func (r *HTTPResource) URL() string { return r.url }

// Exists implements workflow.Resource by issuing a HEAD request.
func (r *HTTPResource) Exists() (bool, error) {
	req, err := http.NewRequest(http.MethodHead, r.url, nil)
	if err != nil {
		return false, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// Signature implements workflow.Resource: prefer the ETag, then
// Last-Modified, then a sha1 of the first 32 KiB of the body.
func (r *HTTPResource) Signature() (string, error) {
	req, err := http.NewRequest(http.MethodGet, r.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if etag := resp.Header.Get("ETag"); etag != "" {
		io.Copy(io.Discard, resp.Body)
		return etag, nil
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		io.Copy(io.Discard, resp.Body)
		return lastMod, nil
	}
	return sha1Prefix(resp.Body, httpPrefixBytes)
}

// Remove implements workflow.Resource; always an error, see the type doc.
func (r *HTTPResource) Remove() error {
	return fmt.Errorf("cannot remove http resource %s", r.url)
}
