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

package scheduler

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
	"time"

	tuttlelog "github.com/tombee/tuttle/internal/log"
)

// tailPollInterval is how often an active process's log file is checked
// for newly appended lines.
const tailPollInterval = 200 * time.Millisecond

// tailer follows one process's stdout or stderr file and forwards each
// completed line to the engine's trace logger, prefixed with the
// process id, while the process is active. No dedicated tailing library
// appears anywhere in the example corpus, so this polls like tail -f
// rather than reaching for fsnotify, which reports directory events, not
// a read offset into a single growing file.
type tailer struct {
	stopCh chan struct{}
	doneCh chan struct{}
}

// startTailer launches a tailer for path in the background. path need
// not exist yet: the processor creates its stdout/stderr files only
// after Run begins, so the tailer retries until the file appears. Stop
// must be called once the process has finished, so the tailer can
// perform a final drain of whatever was written between its last poll
// and the process's exit.
func startTailer(logger *slog.Logger, runID, processID, stream, path string) *tailer {
	t := &tailer{stopCh: make(chan struct{}), doneCh: make(chan struct{})}
	go t.run(logger, runID, processID, stream, path)
	return t
}

func (t *tailer) run(logger *slog.Logger, runID, processID, stream, path string) {
	defer close(t.doneCh)

	var f *os.File
	var reader *bufio.Reader
	defer func() {
		if f != nil {
			f.Close()
		}
	}()

	open := func() bool {
		if f != nil {
			return true
		}
		opened, err := os.Open(path)
		if err != nil {
			return false
		}
		f = opened
		reader = bufio.NewReader(f)
		return true
	}

	var partial string
	drain := func(final bool) {
		if !open() {
			return
		}
		for {
			line, err := reader.ReadString('\n')
			line = partial + line
			partial = ""
			if err != nil && !final {
				// Hold an unterminated line until its newline arrives
				// or Stop forces the final drain.
				partial = line
				return
			}
			if line != "" {
				tuttlelog.Trace(logger, strings.TrimRight(line, "\n"),
					tuttlelog.String(tuttlelog.RunIDKey, runID),
					tuttlelog.String(tuttlelog.ProcessIDKey, processID),
					tuttlelog.String("stream", stream))
			}
			if err != nil {
				return
			}
		}
	}

	ticker := time.NewTicker(tailPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			drain(true)
			return
		case <-ticker.C:
			drain(false)
		}
	}
}

// Stop signals the tailer to perform a final drain and waits for it to
// finish, so no line written right before the process exited is lost.
func (t *tailer) Stop() {
	close(t.stopCh)
	<-t.doneCh
}
