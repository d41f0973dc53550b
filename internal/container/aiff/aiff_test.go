package aiff

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMinimalAIFF(t *testing.T, dir string, sampleData []byte) string {
	t.Helper()
	path := filepath.Join(dir, "track.aiff")

	ssndData := make([]byte, 8+len(sampleData)) // offset(4) + blockSize(4) + samples
	copy(ssndData[8:], sampleData)

	var ssnd []byte
	ssnd = append(ssnd, []byte("SSND")...)
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(ssndData)))
	ssnd = append(ssnd, sizeBuf[:]...)
	ssnd = append(ssnd, ssndData...)

	formBody := append([]byte("AIFF"), ssnd...)
	var formSize [4]byte
	binary.BigEndian.PutUint32(formSize[:], uint32(len(formBody)))

	data := append([]byte("FORM"), formSize[:]...)
	data = append(data, formBody...)

	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIsValidDetectsAIFF(t *testing.T) {
	dir := t.TempDir()
	path := buildMinimalAIFF(t, dir, []byte{1, 2, 3, 4})

	h := New()
	ok, err := h.IsValid(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsValidRejectsNonAIFF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte("RIFFxxxxWAVE"), 0o644))

	h := New()
	ok, err := h.IsValid(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmbedThenExtractRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := buildMinimalAIFF(t, dir, []byte{0x11, 0x22, 0x33})

	h := New()
	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	outPath := filepath.Join(dir, "embedded.aiff")
	require.NoError(t, h.Embed(path, outPath, token, 0, nil))

	extracted, err := h.Extract(outPath, nil)
	require.NoError(t, err)
	assert.Equal(t, token, extracted)
}

func TestEmbedGrowsFormSizeAndPadsOddPayload(t *testing.T) {
	dir := t.TempDir()
	path := buildMinimalAIFF(t, dir, []byte{0x01, 0x02})

	before, err := os.Stat(path)
	require.NoError(t, err)

	h := New()
	token := []byte("odd") // length 3 -> odd payload, expects one pad byte
	outPath := filepath.Join(dir, "embedded.aiff")
	require.NoError(t, h.Embed(path, outPath, token, 0, nil))

	after, err := os.Stat(outPath)
	require.NoError(t, err)

	wantAppended := int64(chunkHeaderSize) + int64(4+len(token)) + 1 // +1 pad since 4+3=7 is odd
	assert.Equal(t, before.Size()+wantAppended, after.Size())

	form, err := readChunkHeader(mustOpen(t, outPath), 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(after.Size())-8, form.Size)
}

func TestEmbedRejectsFileAlreadyCarryingToken(t *testing.T) {
	dir := t.TempDir()
	path := buildMinimalAIFF(t, dir, []byte{0x01})

	h := New()
	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	once := filepath.Join(dir, "once.aiff")
	require.NoError(t, h.Embed(path, once, token, 0, nil))

	twice := filepath.Join(dir, "twice.aiff")
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
