// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskroster/taskroster/pkg/errutil"
)

func TestConfigDir(t *testing.T) {
	t.Run("env var", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		assert.Equal(t, "/custom/config/taskroster", ConfigDir())
	})

	t.Run("falls back to home", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/testuser")
		assert.Equal(t, "/home/testuser/.config/taskroster", ConfigDir())
	})
}

func TestConfigFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		path, err := ConfigFile()
		require.NoError(t, err)
		assert.Empty(t, path)
	})

	t.Run("existing file", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		dir := filepath.Join(base, "taskroster")
		require.NoError(t, os.MkdirAll(dir, 0o700))
		want := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(want, []byte("log:\n  level: debug\n"), 0o600))

		path, err := ConfigFile()
		require.NoError(t, err)
		assert.Equal(t, want, path)
	})

	t.Run("directory in place of file", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		require.NoError(t, os.MkdirAll(filepath.Join(base, "taskroster", "config.yaml"), 0o700))

		_, err := ConfigFile()
		errutil.AssertErrorCode(t, err, "CONFIG_LOOKUP_FAILED")
	})
}
