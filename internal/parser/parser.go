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

// Package parser turns workflow file text into a sequence of section
// dicts, the only interface internal/registry and pkg/workflow consume.
// The underlying grammar is intentionally minimal and undocumented beyond
// what spec examples show; a richer grammar is out of scope.
//
// A section looks like:
//
//	file://B <- file://A
//	    echo A produces B > B
//
// or, naming a processor explicitly:
//
//	http://example.com/file <- #! download
//
// The header line is "<output> <- [#! processor] [input ...]"; every
// indented line following it is appended to the section's code with its
// leading and trailing whitespace trimmed.
package parser

import (
	"errors"
	"strconv"
	"strings"

	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
)

// Section is one parsed block: an output, the processor named for it (may
// be empty, meaning "default"), its ordered inputs, and its code body.
type Section struct {
	Output    string
	Processor string
	Inputs    []string
	Code      string
}

// Parse splits text into sections. Returns a *tuttleerrors.ParsingError
// for a header line that has no "<-" separator or names no output.
func Parse(text string) ([]Section, error) {
	lines := strings.Split(text, "\n")

	var sections []Section
	var current *Section
	var codeLines []string

	flush := func() {
		if current != nil {
			current.Code = strings.Join(codeLines, "\n")
			sections = append(sections, *current)
		}
		current = nil
		codeLines = nil
	}

	for i, raw := range lines {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t") {
			if current == nil {
				return nil, &tuttleerrors.ParsingError{Reason: "indented line with no preceding header"}
			}
			codeLines = append(codeLines, strings.TrimSpace(raw))
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(raw), "#") {
			continue
		}

		flush()

		sec, err := parseHeader(raw)
		if err != nil {
			return nil, &tuttleerrors.ParsingError{
				Source: lineLabel(i),
				Reason: err.Error(),
			}
		}
		current = sec
	}
	flush()

	return sections, nil
}

func lineLabel(i int) string {
	return "line " + strconv.Itoa(i+1)
}

func parseHeader(line string) (*Section, error) {
	lhs, rhs, ok := strings.Cut(line, "<-")
	if !ok {
		return nil, errors.New("missing \"<-\" in header line")
	}
	output := strings.TrimSpace(lhs)
	if output == "" {
		return nil, errors.New("header line names no output")
	}

	tokens := strings.Fields(rhs)
	sec := &Section{Output: output}

	if len(tokens) > 0 && tokens[0] == "#!" {
		if len(tokens) < 2 {
			return nil, errors.New("\"#!\" marker names no processor")
		}
		sec.Processor = tokens[1]
		sec.Inputs = tokens[2:]
	} else {
		sec.Inputs = tokens
	}

	return sec, nil
}
