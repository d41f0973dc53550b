// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteGeneralHelpListsAllSubcommands(t *testing.T) {
	h := NewSystem(true)
	var buf bytes.Buffer
	h.writeGeneralHelp(&buf)

	out := buf.String()
	for _, want := range []string{"create", "verify", "extract", "hash", "key", "keygen", "errors", "version", "help"} {
		assert.Contains(t, out, want)
	}
}

func TestWriteGeneralHelpListsGlobalFlags(t *testing.T) {
	h := NewSystem(true)
	var buf bytes.Buffer
	h.writeGeneralHelp(&buf)

	out := buf.String()
	for _, want := range []string{"--verbose", "--debug", "--silent", "--xsd", "--config"} {
		assert.Contains(t, out, want)
	}
}

func TestWriteErrorTaxonomyListsEveryKind(t *testing.T) {
	h := NewSystem(true)
	var buf bytes.Buffer
	h.writeErrorTaxonomy(&buf)

	out := buf.String()
	for _, want := range []string{"MP3", "MP4", "FLAC", "AIFF", "WAV", "SIG", "SSL", "SCHEMA"} {
		assert.Contains(t, out, want)
	}
}

func TestNewSystemNoColorDisablesColorGlobally(t *testing.T) {
	h := NewSystem(true)
	assert.True(t, h.noColor)
}
