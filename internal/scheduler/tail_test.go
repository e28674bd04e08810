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
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tuttlelog "github.com/tombee/tuttle/internal/log"
)

func traceLogger(buf *bytes.Buffer) *slog.Logger {
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: tuttlelog.LevelTrace})
	return slog.New(handler)
}

func TestTailer_ForwardsLinesWrittenBeforeStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdout.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	var buf bytes.Buffer
	logger := traceLogger(&buf)

	tl := startTailer(logger, "run-1", "p1", "stdout", path)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("first line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		return bytes.Contains(buf.Bytes(), []byte("first line"))
	}, time.Second, 10*time.Millisecond)

	tl.Stop()
	assert.Contains(t, buf.String(), "p1")
}

func TestTailer_DrainsPartialLineWrittenBeforeStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdout.log")
	require.NoError(t, os.WriteFile(path, []byte("no trailing newline"), 0o644))

	var buf bytes.Buffer
	logger := traceLogger(&buf)

	tl := startTailer(logger, "run-1", "p1", "stdout", path)
	tl.Stop()

	assert.Contains(t, buf.String(), "no trailing newline")
}

func TestTailer_ToleratesFileNotYetCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdout.log")

	var buf bytes.Buffer
	logger := traceLogger(&buf)

	tl := startTailer(logger, "run-1", "p1", "stdout", path)
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("late line\n"), 0o644))

	require.Eventually(t, func() bool {
		return bytes.Contains(buf.Bytes(), []byte("late line"))
	}, time.Second, 10*time.Millisecond)

	tl.Stop()
}
