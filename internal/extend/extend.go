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

// Package extend implements the tuttle-extend-workflow helper: it renders
// a strict-undefined template into a workflow fragment file under
// <TUTTLE_ENV>/extensions, naming it so concurrent preprocesses never
// collide.
package extend

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
)

// ExtractVariables parses positional KEY=VALUE and array KEY[]=V0 V1 …
// arguments into a mapping. Array collection for a KEY[] token continues
// until the next token that itself contains "=". A token without "=" when
// not collecting into an array is a parse error.
func ExtractVariables(args []string) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	i := 0
	for i < len(args) {
		tok := args[i]
		name, value, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, &tuttleerrors.ExtendError{
				Message: fmt.Sprintf("Can't extract variable from parameter %q", tok),
			}
		}
		i++
		if strings.HasSuffix(name, "[]") {
			name = strings.TrimSuffix(name, "[]")
			array := []string{value}
			for i < len(args) && !strings.Contains(args[i], "=") {
				array = append(array, args[i])
				i++
			}
			result[name] = array
		} else {
			result[name] = value
		}
	}
	return result, nil
}

// GetAName returns the path under extensionsDir that should be used for a
// fragment named prefix: prefix itself if free, else the smallest
// prefix+N (N >= 2) that does not already exist.
func GetAName(extensionsDir, prefix string) string {
	candidate := filepath.Join(extensionsDir, prefix)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}
	for i := 2; ; i++ {
		candidate = filepath.Join(extensionsDir, fmt.Sprintf("%s%d", prefix, i))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// LoadTemplate reads templatePath and parses it with a strict-undefined
// policy: any variable referenced but not supplied at render time is a
// render-time error rather than silently expanding to "<no value>".
func LoadTemplate(templatePath string) (*template.Template, error) {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, &tuttleerrors.ExtendError{
			Message: fmt.Sprintf("Can't find template file %q", templatePath),
		}
	}
	tmpl, err := template.New(filepath.Base(templatePath)).Option("missingkey=error").Parse(string(data))
	if err != nil {
		return nil, &tuttleerrors.ExtendError{
			Message: fmt.Sprintf("Can't find template file %q", templatePath),
		}
	}
	return tmpl, nil
}

// TuttleEnv reads TUTTLE_ENV from the preprocess's environment.
func TuttleEnv(lookupEnv func(string) (string, bool)) (string, error) {
	env, ok := lookupEnv("TUTTLE_ENV")
	if !ok || env == "" {
		return "", &tuttleerrors.ExtendError{
			Message: "Can't find workspace... Maybe you are not running tuttle-extend-workflow from a preprocessor in a tuttle project",
		}
	}
	return env, nil
}

// RenderExtension renders tmpl with vars and writes the result to a fresh
// name under tuttleEnv/extensions, returning the path written. Extension
// has its own strict-undefined detection: text/template surfaces a
// missing key as an execution error, which is reformatted to match the
// helper's failure message.
func RenderExtension(tuttleEnv, name string, tmpl *template.Template, vars map[string]interface{}) (string, error) {
	extensionsDir := filepath.Join(tuttleEnv, "extensions")
	if err := os.MkdirAll(extensionsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating extensions directory: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", &tuttleerrors.ExtendError{
			Message: fmt.Sprintf("Missing value for a template variable. %s", err.Error()),
		}
	}

	path := GetAName(extensionsDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing extension fragment %s: %w", path, err)
	}
	return path, nil
}

// LoadFragments reads every file under tuttleEnv/extensions, sorted by
// write order (modification time, falling back to name for ties), and
// returns their contents in that order. A missing extensions directory
// (no preprocess ever ran) yields no fragments, not an error.
func LoadFragments(tuttleEnv string) ([]string, error) {
	extensionsDir := filepath.Join(tuttleEnv, "extensions")
	entries, err := os.ReadDir(extensionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading extensions directory: %w", err)
	}

	type fragment struct {
		name    string
		modTime int64
	}
	var frags []fragment
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat extension fragment %s: %w", e.Name(), err)
		}
		frags = append(frags, fragment{name: e.Name(), modTime: info.ModTime().UnixNano()})
	}
	sort.Slice(frags, func(i, j int) bool {
		if frags[i].modTime != frags[j].modTime {
			return frags[i].modTime < frags[j].modTime
		}
		return frags[i].name < frags[j].name
	})

	out := make([]string, 0, len(frags))
	for _, f := range frags {
		data, err := os.ReadFile(filepath.Join(extensionsDir, f.name))
		if err != nil {
			return nil, fmt.Errorf("reading extension fragment %s: %w", f.name, err)
		}
		out = append(out, string(data))
	}
	return out, nil
}

// Run performs the full tuttle-extend-workflow operation: load the
// template, parse the variable arguments, resolve TUTTLE_ENV, render, and
// write the fragment. Returns the path written.
func Run(templatePath string, args []string, name string, lookupEnv func(string) (string, bool)) (string, error) {
	tmpl, err := LoadTemplate(templatePath)
	if err != nil {
		return "", err
	}
	vars, err := ExtractVariables(args)
	if err != nil {
		return "", err
	}
	tuttleEnv, err := TuttleEnv(lookupEnv)
	if err != nil {
		return "", err
	}
	return RenderExtension(tuttleEnv, name, tmpl, vars)
}
