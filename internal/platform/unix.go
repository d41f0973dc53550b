// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"os"
	"path/filepath"
)

// UnixPlatform implements Platform for Unix-like systems (Linux, macOS, etc.).
type UnixPlatform struct{}

// GetConfigDir honors the XDG Base Directory specification, falling
// back to ~/.uits when XDG_CONFIG_HOME is unset.
func (u *UnixPlatform) GetConfigDir() string {
	if dir := os.Getenv("UITS_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "uits")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".uits")
}

// GetTempDir returns the Unix temporary directory.
func (u *UnixPlatform) GetTempDir() string {
	if tmpDir := os.Getenv("TMPDIR"); tmpDir != "" {
		return tmpDir
	}
	return "/tmp"
}
