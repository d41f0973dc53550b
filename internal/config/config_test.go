// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigOrDefaultNoFile(t *testing.T) {
	cfg := LoadConfigOrDefault("")
	require.NotNil(t, cfg)
	assert.Equal(t, "RSA2048", cfg.Defaults.Algorithm)
}

func TestLoadConfigOrDefaultNonexistentFile(t *testing.T) {
	cfg := LoadConfigOrDefault("/nonexistent/path/config.yaml")
	require.NotNil(t, cfg)
	assert.Equal(t, "RSA2048", cfg.Defaults.Algorithm)
}

func TestLoadConfigOrDefaultValidFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "uits.yaml")

	content := `
defaults:
  algorithm: DSA2048
  pad_bytes: 128
key_paths:
  mykey: /keys/mykey.priv
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	cfg := LoadConfigOrDefault(configPath)
	require.NotNil(t, cfg)
	assert.Equal(t, "DSA2048", cfg.Defaults.Algorithm)
	assert.Equal(t, 128, cfg.Defaults.PadBytes)
	path, ok := cfg.KeyPath("mykey")
	assert.True(t, ok)
	assert.Equal(t, "/keys/mykey.priv", path)
}

func TestLoadConfigOrDefaultInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(":::invalid yaml:::"), 0o600))

	cfg := LoadConfigOrDefault(configPath)
	require.NotNil(t, cfg)
	assert.Equal(t, "RSA2048", cfg.Defaults.Algorithm)
}

func TestLoadConfigRejectsUnsupportedAlgorithm(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "uits.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("defaults:\n  algorithm: ROT13\n"), 0o600))

	_, err := LoadConfig(configPath)
	assert.Error(t, err)
}

func TestDefaultHasEmptyXSDPathsForBothProfiles(t *testing.T) {
	cfg := Default()
	assert.Contains(t, cfg.XSDPaths, "uits")
	assert.Contains(t, cfg.XSDPaths, "cmeuits")
}

func TestFindConfigFilePrefersCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(cwd) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "uits.yaml"), []byte("defaults:\n  algorithm: RSA2048\n"), 0o600))
	assert.Equal(t, "uits.yaml", FindConfigFile())
}
