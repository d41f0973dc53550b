package html

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = "<html><head><title>t</title></head><body>hi</body></html>"

func TestIsValidDetectsHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(sampleHTML), 0o644))

	h := New()
	ok, err := h.IsValid(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsValidRejectsNonHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02}, 0o644))

	h := New()
	ok, err := h.IsValid(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmbedThenExtractRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(sampleHTML), 0o644))

	h := New()
	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	outPath := filepath.Join(dir, "embedded.html")
	require.NoError(t, h.Embed(path, outPath, token, 0, nil))

	extracted, err := h.Extract(outPath, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte(`<uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`), extracted)
}

func TestEmbedRejectsFileAlreadyCarryingToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(sampleHTML), 0o644))

	h := New()
	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	once := filepath.Join(dir, "once.html")
	require.NoError(t, h.Embed(path, once, token, 0, nil))

	twice := filepath.Join(dir, "twice.html")
	err := h.Embed(once, twice, token, 0, nil)
	assert.Error(t, err)
}

func TestMediaHashStableAcrossEmbed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(sampleHTML), 0o644))

	h := New()
	before, err := h.MediaHash(path, nil)
	require.NoError(t, err)

	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	outPath := filepath.Join(dir, "embedded.html")
	require.NoError(t, h.Embed(path, outPath, token, 0, nil))

	after, err := h.MediaHash(outPath, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
