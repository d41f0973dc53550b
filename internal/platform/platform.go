// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package platform abstracts the OS-specific rules uitsctl needs for
// locating its config directory: where it lives, and what name the
// override environment variable carries. Ground truth is the
// teacher's internal/platform, trimmed to GetConfigDir (the one
// operation internal/paths calls) and GetTempDir.
package platform

import "runtime"

// Platform defines the config/temp-directory rules that differ
// between Windows and Unix-like systems.
type Platform interface {
	GetConfigDir() string
	GetTempDir() string
}

// GetPlatform returns the appropriate platform implementation for the
// current OS.
func GetPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return &WindowsPlatform{}
	default:
		return &UnixPlatform{}
	}
}

// IsWindows returns true if running on Windows.
func IsWindows() bool {
	return runtime.GOOS == "windows"
}
