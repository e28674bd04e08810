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

package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tombee/tuttle/internal/parser"
	"github.com/tombee/tuttle/pkg/workflow"
)

// preprocessMarker is the processor token a section uses to mean "run
// before the main DAG" (spec §4.5's "#! preprocess"), rather than naming
// a registered processor kind.
const preprocessMarker = "preprocess"

// ExtractPreprocess splits sections into those marked "#! preprocess" and
// the rest, preserving each group's relative order. Preprocess sections
// never enter the main workflow graph; they run once, ahead of it.
func ExtractPreprocess(sections []parser.Section) (preprocess, main []parser.Section) {
	for _, s := range sections {
		if s.Processor == preprocessMarker {
			preprocess = append(preprocess, s)
		} else {
			main = append(main, s)
		}
	}
	return preprocess, main
}

// RunPreprocesses executes sections (as produced by ExtractPreprocess) in
// order, each as a default-processor run with TUTTLE_ENV set to
// tuttleEnv. Preprocesses have no inputs or outputs of their own — they
// exist to call tuttle-extend-workflow and write fragments under
// tuttleEnv/extensions — so there is no dependency ordering to discover,
// only insertion order.
func RunPreprocesses(ctx context.Context, sections []parser.Section, reg Registry, tuttleEnv, baseDir string, logger *slog.Logger) error {
	if len(sections) == 0 {
		return nil
	}

	proc, err := reg.BuildProcessor("")
	if err != nil {
		return fmt.Errorf("resolving default processor for preprocess phase: %w", err)
	}

	logger.Info("RUNNING PREPROCESSES")
	for i, section := range sections {
		id := fmt.Sprintf("preprocess-%d", i)
		p := &workflow.Process{ID: id, Processor: proc.Name(), Code: section.Code, Preprocess: true, TuttleEnv: tuttleEnv}

		reservedDir := filepath.Join(baseDir, "processes", id)
		if err := os.MkdirAll(reservedDir, 0o755); err != nil {
			return fmt.Errorf("creating working directory for %s: %w", id, err)
		}
		stdoutPath := filepath.Join(reservedDir, "stdout.log")
		stderrPath := filepath.Join(reservedDir, "stderr.log")

		if err := proc.Run(ctx, p, reservedDir, stdoutPath, stderrPath); err != nil {
			return fmt.Errorf("preprocess %s: %w", id, err)
		}
	}
	logger.Info("END OF PREPROCESSES... RUNNING THE WORKFLOW")
	return nil
}
