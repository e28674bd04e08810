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

package watch_test

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tombee/tuttle/internal/watch"
)

func TestWatcher_TriggersRebuildOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	w, err := watch.New([]string{dir}, 20*time.Millisecond, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	var calls int32
	go w.Run(func() { atomic.AddInt32(&calls, 1) })

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("2"), 0o644))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	w, err := watch.New([]string{dir}, 50*time.Millisecond, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	var calls int32
	go w.Run(func() { atomic.AddInt32(&calls, 1) })

	time.Sleep(10 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("burst"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 5*time.Millisecond)
}
