// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"os"
	"path/filepath"
)

// WindowsPlatform implements Platform for Windows systems.
type WindowsPlatform struct{}

// GetConfigDir prefers APPDATA, per Windows application convention.
func (w *WindowsPlatform) GetConfigDir() string {
	if dir := os.Getenv("UITS_CONFIG_DIR"); dir != "" {
		return dir
	}
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "uits")
	}
	if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
		return filepath.Join(userProfile, ".uits")
	}
	return ".uits"
}

// GetTempDir returns the Windows temporary directory.
func (w *WindowsPlatform) GetTempDir() string {
	if temp := os.Getenv("TEMP"); temp != "" {
		return temp
	}
	if tmp := os.Getenv("TMP"); tmp != "" {
		return tmp
	}
	return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local", "Temp")
}
