package mp4

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(typ string, body []byte) []byte {
	b := make([]byte, 8+len(body))
	binary.BigEndian.PutUint32(b[0:4], uint32(len(b)))
	copy(b[4:8], typ)
	copy(b[8:], body)
	return b
}

func stcoBox(entries ...uint32) []byte {
	body := make([]byte, 8+4*len(entries))
	binary.BigEndian.PutUint32(body[4:8], uint32(len(entries)))
	for i, e := range entries {
		binary.BigEndian.PutUint32(body[8+4*i:12+4*i], e)
	}
	return box("stco", body)
}

// buildMinimalMP4 assembles ftyp, moov/udta (empty), moov/trak/mdia/minf/stbl/stco
// with the given chunk offsets, and a mdat body of mdatBody, in that order.
func buildMinimalMP4(t *testing.T, dir string, chunkOffsets []uint32, mdatBody []byte) (path string, mdatBodyStart int64) {
	t.Helper()
	ftyp := box("ftyp", []byte("isomiso2"))
	udta := box("udta", nil)
	stco := stcoBox(chunkOffsets...)
	stbl := box("stbl", stco)
	minf := box("minf", stbl)
	mdia := box("mdia", minf)
	trak := box("trak", mdia)
	moovBody := append(append([]byte{}, trak...), udta...)
	moov := box("moov", moovBody)
	mdat := box("mdat", mdatBody)

	data := append(append(append([]byte{}, ftyp...), moov...), mdat...)
	path = filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	mdatBodyStart = int64(len(ftyp) + len(moov) + 8)
	return path, mdatBodyStart
}

func TestIsValidDetectsFtyp(t *testing.T) {
	dir := t.TempDir()
	path, _ := buildMinimalMP4(t, dir, []uint32{1000}, []byte{0x01, 0x02, 0x03})

	h := New()
	ok, err := h.IsValid(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsValidRejectsNonMP4(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notmp4.bin")
	require.NoError(t, os.WriteFile(path, []byte("not an mp4 file at all"), 0o644))

	h := New()
	ok, err := h.IsValid(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMediaHashCoversMdatBody(t *testing.T) {
	dir := t.TempDir()
	audio := make([]byte, 256)
	for i := range audio {
		audio[i] = byte(i)
	}
	path, _ := buildMinimalMP4(t, dir, []uint32{2000}, audio)

	h := New()
	digest, err := h.MediaHash(path, nil)
	require.NoError(t, err)
	assert.Len(t, digest, 32)
}

func TestEmbedAdjustsChunkOffsetsAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	offsets := []uint32{51232, 90000}
	path, _ := buildMinimalMP4(t, dir, offsets, make([]byte, 1000))

	h := New()
	token := make([]byte, 500)
	copy(token, []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`))
	outPath := filepath.Join(dir, "embedded.mp4")
	require.NoError(t, h.Embed(path, outPath, token, 0, nil))

	extracted, err := h.Extract(outPath, nil)
	require.NoError(t, err)
	assert.Equal(t, token, extracted)

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)

	topBoxes, err := readBoxes(bytes.NewReader(out), 0, int64(len(out)))
	require.NoError(t, err)
	moov, ok := findBox(topBoxes, "moov")
	require.True(t, ok)
	stcoBoxes, err := allBoxesMatching(bytes.NewReader(out), moov.BodyStart, moov.BodyEnd, "stco")
	require.NoError(t, err)
	require.Len(t, stcoBoxes, 1)

	body := out[stcoBoxes[0].BodyStart:stcoBoxes[0].BodyEnd]
	count := binary.BigEndian.Uint32(body[4:8])
	require.EqualValues(t, len(offsets), count)
	for i, want := range offsets {
		got := binary.BigEndian.Uint32(body[8+4*i : 12+4*i])
		assert.EqualValues(t, uint64(want)+uint64(8+len(token)), got)
	}
}

func TestEmbedRejectsFileAlreadyCarryingToken(t *testing.T) {
	dir := t.TempDir()
	path, _ := buildMinimalMP4(t, dir, []uint32{1000}, make([]byte, 100))

	h := New()
	token := []byte(`<?xml version="1.0"?><uits:UITS xmlns:uits="x"><metadata/></uits:UITS>`)
	once := filepath.Join(dir, "once.mp4")
	require.NoError(t, h.Embed(path, once, token, 0, nil))

	twice := filepath.Join(dir, "twice.mp4")
	err := h.Embed(once, twice, token, 0, nil)
	assert.Error(t, err)
}
