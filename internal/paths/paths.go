// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package paths resolves uitsctl's cross-platform config locations on
// top of internal/platform, the way the teacher's internal/paths sits
// on top of internal/platform for ferret-scan's config/suppressions
// files.
package paths

import (
	"path/filepath"

	"github.com/protocol7/uits-go/internal/platform"
)

// GetConfigDir returns uitsctl's configuration directory: an explicit
// UITS_CONFIG_DIR override if set, otherwise the platform default
// (XDG on Unix, APPDATA on Windows).
func GetConfigDir() string {
	return platform.GetPlatform().GetConfigDir()
}

// GetConfigFile returns the path to the default uitsctl config file.
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}
