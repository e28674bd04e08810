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

package processorkind

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
	"github.com/tombee/tuttle/pkg/workflow"
)

// downloadDotInterval is how often a "..." marker is written to stdout
// while a transfer is in flight, satisfying the "log dots" property for
// long downloads.
const downloadDotInterval = 2 * time.Second

// DownloadProcessor fetches exactly one http(s) input to exactly one file
// output. It never runs shell code; code in a section naming it is
// neither run nor checked.
type DownloadProcessor struct {
	Client *http.Client
}

// Name implements workflow.Processor.
func (DownloadProcessor) Name() string { return "download" }

// StaticCheck implements workflow.Processor; download never runs code, so
// there is nothing to check before resources are resolved.
func (DownloadProcessor) StaticCheck(*workflow.Process) error { return nil }

// PreCheck implements workflow.Processor: exactly one http(s) input and
// exactly one file output.
func (DownloadProcessor) PreCheck(p *workflow.Process) error {
	if len(p.Inputs) != 1 || !isHTTPURL(p.Inputs[0].URL()) {
		return &tuttleerrors.ParsingError{
			Source: p.ID,
			Reason: "Download processor requires exactly one http(s):// input",
		}
	}
	if len(p.Outputs) != 1 || !strings.HasPrefix(p.Outputs[0].URL(), "file://") {
		return &tuttleerrors.ParsingError{
			Source: p.ID,
			Reason: "Download processor requires exactly one file:// output",
		}
	}
	return nil
}

// Run implements workflow.Processor: streams the input URL to the output
// path, writing a "..." marker to stdout every downloadDotInterval while
// the body is still being read.
func (d DownloadProcessor) Run(ctx context.Context, p *workflow.Process, reservedDir, stdoutPath, stderrPath string) error {
	stdout, err := os.Create(stdoutPath)
	if err != nil {
		return fmt.Errorf("creating stdout file: %w", err)
	}
	defer stdout.Close()

	stderr, err := os.Create(stderrPath)
	if err != nil {
		return fmt.Errorf("creating stderr file: %w", err)
	}
	defer stderr.Close()

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	srcURL := p.Inputs[0].URL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", srcURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(stderr, "download failed: %v\n", err)
		return &tuttleerrors.ProcessError{Message: fmt.Sprintf("downloading %s: %v", srcURL, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &tuttleerrors.ProcessError{Message: fmt.Sprintf("downloading %s: HTTP %d", srcURL, resp.StatusCode)}
	}

	destPath := strings.TrimPrefix(p.Outputs[0].URL(), "file://")
	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", destPath, err)
	}
	defer dest.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(downloadDotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Fprint(stdout, "...")
			}
		}
	}()

	if _, err := io.Copy(dest, resp.Body); err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	fmt.Fprintln(stdout, "done")
	return nil
}

func isHTTPURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
