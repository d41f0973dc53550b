package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMinimalWAV(t *testing.T, dir string, sampleData []byte) string {
	t.Helper()
	path := filepath.Join(dir, "track.wav")

	var data []byte
	data = append(data, []byte("data")...)
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(sampleData)))
	data = append(data, sizeBuf[:]...)
	data = append(data, sampleData...)

	fmtChunk := append([]byte("fmt "), make([]byte, 20)...)
	var fmtSize [4]byte
	binary.LittleEndian.PutUint32(fmtSize[:], 16)
	fmtChunk = append([]byte("fmt "), fmtSize[:]...)
	fmtChunk = append(fmtChunk, make([]byte, 16)...)

	riffBody := append([]byte("WAVE"), fmtChunk...)
	riffBody = append(riffBody, data...)
	var riffSize [4]byte
	binary.LittleEndian.PutUint32(riffSize[:], uint32(len(riffBody)))

	out := append([]byte("RIFF"), riffSize[:]...)
	out = append(out, riffBody...)

	require.NoError(t, os.WriteFile(path, out, 0o644))
	return path
}

func TestIsValidDetectsWAVE(t *testing.T) {
	dir := t.TempDir()
	path := buildMinimalWAV(t, dir, []byte{1, 2, 3, 4})

	h := New()
	ok, err := h.IsValid(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsValidRejectsNonRIFF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte("FORMxxxxAIFF"), 0o644))

	h := New()
	ok, err := h.IsValid(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmbedThenExtractRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := buildMinimalWAV(t, dir, []byte{0x11, 0x22, 0x33, 0x44})

	h := New()
	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	outPath := filepath.Join(dir, "embedded.wav")
	require.NoError(t, h.Embed(path, outPath, token, 0, nil))

	extracted, err := h.Extract(outPath, nil)
	require.NoError(t, err)
	assert.Equal(t, token, extracted)
}

func TestEmbedGrowsRiffSize(t *testing.T) {
	dir := t.TempDir()
	path := buildMinimalWAV(t, dir, []byte{0x01, 0x02})

	h := New()
	token := []byte("odd") // length 3, expects a trailing pad byte
	outPath := filepath.Join(dir, "embedded.wav")
	require.NoError(t, h.Embed(path, outPath, token, 0, nil))

	before, err := os.Stat(path)
	require.NoError(t, err)
	after, err := os.Stat(outPath)
	require.NoError(t, err)

	wantAppended := int64(chunkHeaderSize) + int64(len(token)) + 1
	assert.Equal(t, before.Size()+wantAppended, after.Size())

	riff, err := readChunkHeader(mustOpen(t, outPath), 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(after.Size())-8, riff.Size)
}

func TestEmbedRejectsFileAlreadyCarryingToken(t *testing.T) {
	dir := t.TempDir()
	path := buildMinimalWAV(t, dir, []byte{0x01})

	h := New()
	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	once := filepath.Join(dir, "once.wav")
	require.NoError(t, h.Embed(path, once, token, 0, nil))

	twice := filepath.Join(dir, "twice.wav")
	err := h.Embed(once, twice, token, 0, nil)
	assert.Error(t, err)
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
