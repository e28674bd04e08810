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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/tuttle/internal/config"
)

func TestLoad_MissingPath_ReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ".tuttle", cfg.StateDir)
	assert.False(t, cfg.KeepGoing)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "tuttle.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ".tuttle", cfg.StateDir)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuttle.yaml")
	body := "workers: 4\nkeep_going: true\nstate_dir: /var/tuttle\nlog:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.KeepGoing)
	assert.Equal(t, "/var/tuttle", cfg.StateDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MalformedYAML_IsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuttle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [this is not valid"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate_NegativeWorkers(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyStateDir(t *testing.T) {
	cfg := config.Default()
	cfg.StateDir = ""
	assert.Error(t, cfg.Validate())
}
