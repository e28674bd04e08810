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

// Package config loads tuttle.yaml: worker count, keep-going default,
// the .tuttle state directory, and logging settings.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
)

// Config is the complete engine configuration.
type Config struct {
	// Version is the config format version (1 = initial release).
	Version int `yaml:"version,omitempty"`

	// Workers is the worker pool size; 0 means
	// scheduler.DefaultWorkerCount().
	Workers int `yaml:"workers,omitempty"`

	// KeepGoing is the default for --keep-going when the flag is not
	// passed on the command line.
	KeepGoing bool `yaml:"keep_going,omitempty"`

	// StateDir is where .tuttle's working directories, logs, extensions,
	// and last_workflow.json live. Defaults to ".tuttle".
	StateDir string `yaml:"state_dir,omitempty"`

	Log LogConfig `yaml:"log,omitempty"`
}

// LogConfig configures internal/log's logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	Source bool   `yaml:"source,omitempty"`
}

// Default returns a Config with sensible defaults; StateDir is always
// ".tuttle" per spec §6's directory layout.
func Default() Config {
	return Config{
		Version:   1,
		StateDir:  ".tuttle",
		KeepGoing: false,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses a YAML config file, merging it over Default().
// A missing file is not an error; it returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, &tuttleerrors.ConfigError{Key: path, Reason: "cannot read config file", Cause: err}
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &tuttleerrors.ConfigError{Key: path, Reason: "cannot parse config file", Cause: err}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants Load cannot express through YAML typing
// alone.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return &tuttleerrors.ConfigError{Key: "workers", Reason: "must be >= 0"}
	}
	if c.StateDir == "" {
		return &tuttleerrors.ConfigError{Key: "state_dir", Reason: "must not be empty"}
	}
	return nil
}
