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

// Package state persists a workflow's graph topology, signatures, and
// per-process run records across invocations, so the next run can diff
// against what actually happened last time.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/tuttle/pkg/workflow"
	"github.com/tombee/tuttle/pkg/workflow/invalidate"
)

// formatVersion is bumped whenever the persisted shape changes
// incompatibly. Manager.Load rejects a file from a newer major version.
const formatVersion = 1

// ProcessRecord is the persisted view of one process: everything the
// invalidation engine and the status reporter need, without pulling in
// workflow.Process's in-memory Resource references.
type ProcessRecord struct {
	ID           string     `json:"id"`
	Processor    string     `json:"processor"`
	Code         string     `json:"code"`
	InputURLs    []string   `json:"input_urls"`
	OutputURLs   []string   `json:"output_urls"`
	Start        *time.Time `json:"start,omitempty"`
	End          *time.Time `json:"end,omitempty"`
	Succeeded    bool       `json:"succeeded"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Document is the full persisted payload: graph topology, signatures, and
// per-process timing/status, version-tagged for forward/backward
// compatibility within a major version.
type Document struct {
	Version int `json:"version"`

	// RunID identifies one Save call: a fresh uuid is generated on every
	// Save. It is not the run ID the scheduler attaches to log lines.
	RunID string `json:"run_id"`

	Processes  []ProcessRecord                    `json:"processes"`
	Signatures map[string]workflow.SignatureEntry `json:"signatures"`
	SavedAt    time.Time                          `json:"saved_at"`
}

// Manager handles atomic persistence of a workflow's state to a single
// file. Unlike a multi-run checkpoint store, Tuttle keeps exactly one
// document per .tuttle directory: the previous run's full workflow.
type Manager struct {
	mu   sync.Mutex
	path string
}

// NewManager creates a manager persisting to dir/last_workflow.json.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &Manager{path: filepath.Join(dir, "last_workflow.json")}, nil
}

// Save builds a Document from w and writes it atomically: a sibling temp
// file is written, fsynced, then renamed over the destination, so a crash
// mid-write never leaves a partially-written document in place.
func (m *Manager) Save(w *workflow.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := Document{
		Version:    formatVersion,
		RunID:      uuid.NewString(),
		Signatures: w.Signatures.Snapshot(),
		SavedAt:    time.Now(),
	}
	for _, p := range w.IterProcesses() {
		doc.Processes = append(doc.Processes, ProcessRecord{
			ID:           p.ID,
			Processor:    p.Processor,
			Code:         p.Code,
			InputURLs:    p.InputURLs(),
			OutputURLs:   p.OutputURLs(),
			Start:        p.Start,
			End:          p.End,
			Succeeded:    p.Status == workflow.StatusSuccess,
			ErrorMessage: p.ErrorMessage,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling workflow state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".last_workflow-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsyncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("renaming temp state file into place: %w", err)
	}
	return nil
}

// Load reads the persisted document. A missing or malformed file is
// treated as "no previous workflow": (nil, nil), not an error.
func (m *Manager) Load() (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil
	}
	if doc.Version > formatVersion {
		return nil, nil
	}
	return &doc, nil
}

// ToPrevious converts a loaded Document into the shape
// pkg/workflow/invalidate.Compute needs.
func (d *Document) ToPrevious() *invalidate.Previous {
	prev := &invalidate.Previous{
		CreatorCode:      make(map[string]string),
		CreatorInputs:    make(map[string][]string),
		CreatorSucceeded: make(map[string]bool),
		Signatures:       make(map[string]string),
	}
	for _, p := range d.Processes {
		for _, out := range p.OutputURLs {
			prev.CreatorCode[out] = p.Code
			prev.CreatorInputs[out] = p.InputURLs
			prev.CreatorSucceeded[out] = p.Succeeded
		}
	}
	for url, entry := range d.Signatures {
		prev.Signatures[url] = entry.Signature
	}
	return prev
}
