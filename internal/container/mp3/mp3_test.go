package mp3

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protocol7/uits-go/internal/endian"
)

// buildMinimalMP3 writes a tiny ID3v2.3-tagged file: a header, one
// TIT2 frame, and a handful of fake "audio" bytes that are not a real
// MPEG stream but are sufficient to exercise tag/frame parsing.
func buildMinimalMP3(t *testing.T, dir string, audio []byte) string {
	t.Helper()
	path := filepath.Join(dir, "track.mp3")

	titleFrame := frame{ID: [4]byte{'T', 'I', 'T', '2'}, Body: []byte("Test Title")}
	body := titleFrame.encode()

	var header [10]byte
	header[0], header[1], header[2] = 'I', 'D', '3'
	header[3] = 3
	sz := endian.EncodeSyncsafe28(uint32(len(body)))
	copy(header[6:10], sz[:])

	data := append(append(header[:], body...), audio...)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestIsValidDetectsID3v23(t *testing.T) {
	dir := t.TempDir()
	path := buildMinimalMP3(t, dir, []byte{0xFF, 0xFB, 0x90, 0x00})

	h := New()
	ok, err := h.IsValid(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsValidRejectsWrongVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.mp3")
	data := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 0}
	require.NoError(t, os.WriteFile(path, data, 0o600))

	h := New()
	_, err := h.IsValid(path)
	assert.Error(t, err)
}

func TestEmbedThenExtractRoundTrips(t *testing.T) {
	dir := t.TempDir()
	audio := []byte{0xFF, 0xFB, 0x90, 0x00, 0x01, 0x02, 0x03, 0x04}
	path := buildMinimalMP3(t, dir, audio)

	h := New()
	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	outPath := filepath.Join(dir, "embedded.mp3")
	require.NoError(t, h.Embed(path, outPath, token, 4, nil))

	extracted, err := h.Extract(outPath, nil)
	require.NoError(t, err)
	assert.Equal(t, token, extracted)
}

func TestEmbedRejectsFileAlreadyCarryingToken(t *testing.T) {
	dir := t.TempDir()
	audio := []byte{0xFF, 0xFB, 0x90, 0x00}
	path := buildMinimalMP3(t, dir, audio)

	h := New()
	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	once := filepath.Join(dir, "once.mp3")
	require.NoError(t, h.Embed(path, once, token, 0, nil))

	twice := filepath.Join(dir, "twice.mp3")
	err := h.Embed(once, twice, token, 0, nil)
	assert.Error(t, err)
}

func TestMediaHashStableAcrossEmbed(t *testing.T) {
	dir := t.TempDir()
	audio := []byte{0xFF, 0xFB, 0x90, 0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	path := buildMinimalMP3(t, dir, audio)

	h := New()
	before, err := h.MediaHash(path, nil)
	require.NoError(t, err)

	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	outPath := filepath.Join(dir, "embedded.mp3")
	require.NoError(t, h.Embed(path, outPath, token, 0, nil))

	after, err := h.MediaHash(outPath, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
