// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPlatformMatchesRuntimeGOOS(t *testing.T) {
	p := GetPlatform()
	if runtime.GOOS == "windows" {
		assert.IsType(t, &WindowsPlatform{}, p)
		assert.True(t, IsWindows())
	} else {
		assert.IsType(t, &UnixPlatform{}, p)
		assert.False(t, IsWindows())
	}
}

func TestUnixPlatformConfigDirHonorsOverride(t *testing.T) {
	t.Setenv("UITS_CONFIG_DIR", "/override/uits")
	u := &UnixPlatform{}
	assert.Equal(t, "/override/uits", u.GetConfigDir())
}

func TestUnixPlatformConfigDirFallsBackToXDG(t *testing.T) {
	t.Setenv("UITS_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	u := &UnixPlatform{}
	assert.Equal(t, "/xdg/uits", u.GetConfigDir())
}
