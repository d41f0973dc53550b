// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the optional uitsctl defaults file. A missing
// file is not an error — every field has a built-in default, mirroring
// the teacher's LoadConfig("")/LoadConfigOrDefault pattern.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/protocol7/uits-go/internal/paths"
	"github.com/protocol7/uits-go/internal/token"
)

// Config holds the defaults uitsctl falls back to when a flag isn't
// set on the command line.
type Config struct {
	// Defaults across all profiles. uitsctl's subcommands fall back to
	// Algorithm and PadBytes when the matching flag is unset; Multiline
	// and Distributor are loaded but no subcommand applies them.
	Defaults struct {
		Algorithm   string `yaml:"algorithm"`     // "RSA2048" or "DSA2048"
		PadBytes    int    `yaml:"pad_bytes"`     // MP3 zero-pad appended after the PRIV frame
		Multiline   bool   `yaml:"multiline_b64"` // wrap signature Base64 at 64 chars
		Distributor string `yaml:"distributor"`
	} `yaml:"defaults"`

	// XSDPaths maps a token profile Name ("uits", "cmeuits") to the
	// schema file used for ValidateSchema. Empty disables schema
	// validation for that profile.
	XSDPaths map[string]string `yaml:"xsd_paths"`

	// KeyPaths maps a logical key name to a PEM file path, so
	// `--key mykey` can be used instead of a full path on the CLI.
	KeyPaths map[string]string `yaml:"key_paths"`

	// Profiles holds named token field presets, analogous to the
	// teacher's scanning profiles: a saved set of descriptor defaults
	// (distributor, product ID, copyright notice). uitsctl's
	// subcommands load but do not apply these presets.
	Profiles map[string]FieldPreset `yaml:"profiles"`
}

// FieldPreset is a named, reusable set of token field defaults.
type FieldPreset struct {
	Distributor string `yaml:"distributor"`
	Copyright   string `yaml:"copyright"`
	ProductID   string `yaml:"product_id"`
	Description string `yaml:"description"`
}

// Default returns the built-in configuration used when no config file
// is present or specified.
func Default() *Config {
	cfg := &Config{
		XSDPaths: map[string]string{
			token.PerTrack.Name: "", // "uits"
			token.Package.Name:  "", // "cmeuits"
		},
		KeyPaths: map[string]string{},
		Profiles: map[string]FieldPreset{},
	}
	cfg.Defaults.Algorithm = "RSA2048"
	cfg.Defaults.PadBytes = 0
	cfg.Defaults.Multiline = true
	return cfg
}

// LoadConfig loads configuration from configPath. An empty configPath
// returns Default(). A config file is merged on top of the defaults:
// only fields present in the YAML override the built-in values.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FindConfigFile searches, in order, ./uits.yaml, then the
// platform-appropriate config file resolved by internal/paths (XDG on
// Unix, APPDATA on Windows, or an explicit UITS_CONFIG_DIR override).
// It returns "" if neither exists, matching the teacher's
// FindConfigFile convention of a fall-through search chain.
func FindConfigFile() string {
	if fileExists("uits.yaml") {
		return "uits.yaml"
	}

	if candidate := paths.GetConfigFile(); fileExists(candidate) {
		return candidate
	}

	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// LoadConfigOrDefault loads configuration from configFile (or searches
// standard locations when configFile is empty). If loading fails, it
// returns the built-in default configuration — uitsctl should not
// crash on a missing or malformed config file.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Default()
	}
	return cfg
}

// ValidateConfig checks that every configured path and algorithm name
// is well-formed.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	switch cfg.Defaults.Algorithm {
	case "", "RSA2048", "DSA2048":
	default:
		return fmt.Errorf("unsupported default algorithm %q", cfg.Defaults.Algorithm)
	}
	if cfg.Defaults.PadBytes < 0 {
		return fmt.Errorf("pad_bytes cannot be negative")
	}
	for profile, path := range cfg.XSDPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("xsd path for profile %q does not exist: %s", profile, path)
		}
	}
	return nil
}

// XSDPathFor returns the configured schema path for profileName, or ""
// if none is configured.
func (c *Config) XSDPathFor(profileName string) string {
	if c == nil {
		return ""
	}
	return c.XSDPaths[profileName]
}

// KeyPath resolves a logical key name to its configured PEM path. ok
// is false if no such key is configured.
func (c *Config) KeyPath(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	p, ok := c.KeyPaths[name]
	return p, ok
}

// Preset resolves a named field preset. ok is false if no such
// profile is configured.
func (c *Config) Preset(name string) (FieldPreset, bool) {
	if c == nil {
		return FieldPreset{}, false
	}
	p, ok := c.Profiles[name]
	return p, ok
}
