// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

// Package xdg locates Taskroster's files under the XDG Base Directory layout.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const (
	appName        = "taskroster"
	configFileName = "config.yaml"
)

// ConfigDir returns the XDG config directory for taskroster.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default config file path when that file exists.
// An empty path with a nil error means there is no default config.
func ConfigFile() (string, error) {
	path := filepath.Join(ConfigDir(), configFileName)
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	case err != nil:
		return "", oops.Code("CONFIG_LOOKUP_FAILED").With("path", path).Wrap(err)
	case info.IsDir():
		return "", oops.Code("CONFIG_LOOKUP_FAILED").With("path", path).Errorf("config path is a directory")
	}
	return path, nil
}
