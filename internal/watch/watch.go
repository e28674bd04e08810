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

// Package watch implements tuttle's --watch mode: it observes the
// filesystem paths backing a workflow's primary file:// resources and
// triggers a rebuild whenever one of them changes, debouncing bursts of
// events (an editor's save is often a temp-file rename plus a write).
package watch

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for events to settle
// before triggering a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Watcher observes a fixed set of filesystem paths and calls Rebuild,
// debounced, on every event for them that the exclude matcher does not
// filter out, whatever the kind of operation.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
	exclude  *ExcludeMatcher

	mu      sync.Mutex
	timer   *time.Timer
	pending bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Watcher for paths. A path that cannot be watched (for
// instance one that does not exist yet) is logged and skipped rather than
// treated as fatal. A nil exclude matches nothing.
func New(paths []string, debounce time.Duration, exclude *ExcludeMatcher, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]bool)
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if err := fsw.Add(p); err != nil {
			logger.Warn("cannot watch path", "path", p, "error", err)
		}
	}

	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		logger:   logger,
		exclude:  exclude,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Run blocks, calling rebuild each time a debounced batch of filesystem
// events settles, until Stop is called.
func (w *Watcher) Run(rebuild func()) {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			w.drainTimer()
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.exclude != nil && w.exclude.Excluded(event.Name) {
				continue
			}
			w.logger.Debug("watch event", "path", event.Name, "op", event.Op.String())
			w.scheduleRebuild(rebuild)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) scheduleRebuild(rebuild func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = true
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.pending = false
		w.mu.Unlock()
		rebuild()
	})
}

func (w *Watcher) drainTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Stop stops watching and waits for Run to return.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	<-w.doneCh
	return w.fsw.Close()
}
