// Package wav implements the RIFF/WAVE container handler: RIFF-chunk
// detection, media-hash over the data chunk, custom "UITS" chunk token
// embedding with RIFF-size fixup, and extraction. Ground truth is
// uitsWAVManager.c; WAV is always little-endian, the mirror image of
// the aiff package's big-endian FORM/chunk handler.
package wav

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"os"

	"github.com/protocol7/uits-go/internal/errs"
	"github.com/protocol7/uits-go/internal/observability"
	"github.com/protocol7/uits-go/internal/streamio"
)

const (
	chunkHeaderSize = 8
	uitsChunkID     = "UITS"
)

type chunkHeader struct {
	ID     [4]byte
	Size   uint32
	Offset int64
}

func (c chunkHeader) dataStart() int64 { return c.Offset + chunkHeaderSize }
func (c chunkHeader) paddedSize() int64 {
	if c.Size%2 == 1 {
		return int64(c.Size) + 1
	}
	return int64(c.Size)
}

func readChunkHeader(r io.ReaderAt, offset int64) (chunkHeader, error) {
	var buf [8]byte
	if _, err := r.ReadAt(buf[:], offset); err != nil {
		return chunkHeader{}, errs.Wrap(errs.WAV, "wav.readChunkHeader", err)
	}
	var id [4]byte
	copy(id[:], buf[0:4])
	return chunkHeader{ID: id, Size: binary.LittleEndian.Uint32(buf[4:8]), Offset: offset}, nil
}

func findChunk(r io.ReaderAt, offset, end int64, id string) (chunkHeader, bool, error) {
	for offset < end {
		h, err := readChunkHeader(r, offset)
		if err != nil {
			return chunkHeader{}, false, err
		}
		if string(h.ID[:]) == id {
			return h, true, nil
		}
		offset = h.dataStart() + h.paddedSize()
	}
	return chunkHeader{}, false, nil
}

// Handler implements container.Handler for RIFF/WAVE files.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "wav" }

func (h *Handler) IsValid(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errs.Wrap(errs.File, "wav.IsValid", err)
	}
	defer f.Close()

	riff, err := readChunkHeader(f, 0)
	if err != nil {
		return false, nil
	}
	if string(riff.ID[:]) != "RIFF" {
		return false, nil
	}
	var waveID [4]byte
	if _, err := f.ReadAt(waveID[:], chunkHeaderSize); err != nil {
		return false, nil
	}
	return string(waveID[:]) == "WAVE", nil
}

// MediaHash hashes the bytes inside the "data" chunk.
func (h *Handler) MediaHash(path string, obs *observability.StandardObserver) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "wav.MediaHash", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.File, "wav.MediaHash", err)
	}

	data, ok, err := findChunk(f, chunkHeaderSize+4, info.Size(), "data")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.WAV, "wav.MediaHash", "data chunk not found")
	}

	if _, err := f.Seek(data.dataStart(), io.SeekStart); err != nil {
		return nil, errs.Wrap(errs.File, "wav.MediaHash", err)
	}
	hasher := sha256.New()
	if _, err := io.CopyN(hasher, f, int64(data.Size)); err != nil {
		return nil, errs.Wrap(errs.WAV, "wav.MediaHash", err)
	}
	if obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "wav", Operation: "MediaHash", FilePath: path, Success: true,
		})
	}
	return hasher.Sum(nil), nil
}

// Embed appends a custom "UITS" chunk holding the raw token bytes to
// the end of the file and grows the RIFF chunk's declared size. The
// file grows by 8 + len(T) bytes, plus one pad byte when len(T) is odd.
func (h *Handler) Embed(inPath, outPath string, tokenXML []byte, padHint int, obs *observability.StandardObserver) error {
	in, err := os.Open(inPath)
	if err != nil {
		return errs.Wrap(errs.File, "wav.Embed", err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return errs.Wrap(errs.File, "wav.Embed", err)
	}

	riff, err := readChunkHeader(in, 0)
	if err != nil || string(riff.ID[:]) != "RIFF" {
		return errs.New(errs.WAV, "wav.Embed", "not a WAV file")
	}

	if _, ok, err := findChunk(in, chunkHeaderSize+4, info.Size(), uitsChunkID); err != nil {
		return err
	} else if ok {
		return errs.New(errs.Embed, "wav.Embed", "file already carries a uits token")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return errs.Wrap(errs.File, "wav.Embed", err)
	}
	defer out.Close()

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return errs.Wrap(errs.File, "wav.Embed", err)
	}
	if err := streamio.CopyAll(out, in); err != nil {
		return errs.Wrap(errs.File, "wav.Embed", err)
	}

	tokenSize := uint32(len(tokenXML))
	appended := int64(chunkHeaderSize) + int64(tokenSize)
	if tokenSize%2 == 1 {
		appended++
	}

	newRiffSize := riff.Size + uint32(appended)
	var riffSizeBuf [4]byte
	binary.LittleEndian.PutUint32(riffSizeBuf[:], newRiffSize)
	if _, err := out.WriteAt(riffSizeBuf[:], 4); err != nil {
		return errs.Wrap(errs.File, "wav.Embed", err)
	}

	if _, err := out.Seek(0, io.SeekEnd); err != nil {
		return errs.Wrap(errs.File, "wav.Embed", err)
	}
	if _, err := out.WriteString(uitsChunkID); err != nil {
		return errs.Wrap(errs.File, "wav.Embed", err)
	}
	if err := binary.Write(out, binary.LittleEndian, tokenSize); err != nil {
		return errs.Wrap(errs.File, "wav.Embed", err)
	}
	if _, err := out.Write(tokenXML); err != nil {
		return errs.Wrap(errs.File, "wav.Embed", err)
	}
	if tokenSize%2 == 1 {
		if err := streamio.ZeroPad(out, 1); err != nil {
			return errs.Wrap(errs.File, "wav.Embed", err)
		}
	}

	if obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "wav", Operation: "Embed", FilePath: outPath, Success: true,
			Metadata: map[string]interface{}{"appended_bytes": appended},
		})
	}
	return nil
}

// Extract returns the UITS chunk's payload, or (nil, nil) if absent.
func (h *Handler) Extract(path string, obs *observability.StandardObserver) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "wav.Extract", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.File, "wav.Extract", err)
	}

	chunk, ok, err := findChunk(f, chunkHeaderSize+4, info.Size(), uitsChunkID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	payload := make([]byte, chunk.Size)
	if _, err := f.ReadAt(payload, chunk.dataStart()); err != nil {
		return nil, errs.Wrap(errs.File, "wav.Extract", err)
	}
	return payload, nil
}
