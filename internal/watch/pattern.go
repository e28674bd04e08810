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

package watch

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// ExcludeMatcher filters editor/VCS noise out of rebuild triggers: a
// workflow's declared inputs rarely include swap files or .git
// internals, but the directories fsnotify watches do contain them.
type ExcludeMatcher struct {
	patterns []string
}

// DefaultExcludePatterns covers common editor temp files so a save in
// vim or emacs does not trigger two rebuilds.
func DefaultExcludePatterns() []string {
	return []string{
		"*.swp", "*.swo", "*.swn", ".*.sw?",
		"*~", "#*#", ".#*",
		".git/**", ".tuttle/**",
	}
}

// NewExcludeMatcher validates patterns up front so a typo surfaces at
// startup, not on the first missed rebuild.
func NewExcludeMatcher(patterns []string) (*ExcludeMatcher, error) {
	for _, p := range patterns {
		if _, err := doublestar.Match(p, "test"); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
	}
	return &ExcludeMatcher{patterns: patterns}, nil
}

// Excluded reports whether path matches any exclude pattern, checked
// against the full path and against every trailing run of its components
// (so ".tuttle/**" matches "/project/.tuttle/x", and "*.swp" the base
// filename).
func (m *ExcludeMatcher) Excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, p := range m.patterns {
		if matched, _ := doublestar.PathMatch(p, path); matched {
			return true
		}
		for i := 0; i < len(slashed); i++ {
			if slashed[i] != '/' {
				continue
			}
			if matched, _ := doublestar.Match(p, slashed[i+1:]); matched {
				return true
			}
		}
	}
	return false
}
