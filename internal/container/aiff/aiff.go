// Package aiff implements the AIFF/AIFC container handler: FORM-chunk
// detection, media-hash over the SSND sample data, APPL-chunk ("UITS"
// OSType) token embedding with FORM-size fixup, and extraction. Ground
// truth is uitsAIFFManager.c; all multi-byte fields are big-endian.
package aiff

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
	chunkHeaderSize = 8 // 4-byte ID + 4-byte big-endian size, excluded from the size field itself
	applOSType      = "UITS"
)

type chunkHeader struct {
	ID     [4]byte
	Size   uint32
	Offset int64 // offset of the ID byte
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
		return chunkHeader{}, errs.Wrap(errs.AIFF, "aiff.readChunkHeader", err)
	}
	var id [4]byte
	copy(id[:], buf[0:4])
	return chunkHeader{ID: id, Size: binary.BigEndian.Uint32(buf[4:8]), Offset: offset}, nil
}

// findChunk scans sibling chunks starting at offset (pointing at a
// chunk ID) until end, returning the first with the requested ID and,
// if chunkType is non-empty, whose first 4 data bytes equal chunkType
// (the OSType convention used by APPL chunks).
func findChunk(r io.ReaderAt, offset, end int64, id, chunkType string) (chunkHeader, bool, error) {
	for offset < end {
		h, err := readChunkHeader(r, offset)
		if err != nil {
			return chunkHeader{}, false, err
		}
		matches := string(h.ID[:]) == id
		if matches && chunkType != "" {
			var typeBuf [4]byte
			if _, err := r.ReadAt(typeBuf[:], h.dataStart()); err != nil {
				return chunkHeader{}, false, errs.Wrap(errs.AIFF, "aiff.findChunk", err)
			}
			matches = string(typeBuf[:]) == chunkType
		}
		if matches {
			return h, true, nil
		}
		offset = h.dataStart() + h.paddedSize()
	}
	return chunkHeader{}, false, nil
}

// Handler implements container.Handler for AIFF/AIFC files.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "aiff" }

func (h *Handler) IsValid(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errs.Wrap(errs.File, "aiff.IsValid", err)
	}
	defer f.Close()

	form, err := readChunkHeader(f, 0)
	if err != nil {
		return false, nil
	}
	if string(form.ID[:]) != "FORM" {
		return false, nil
	}
	var formType [4]byte
	if _, err := f.ReadAt(formType[:], chunkHeaderSize); err != nil {
		return false, nil
	}
	t := string(formType[:])
	return t == "AIFF" || t == "AIFC", nil
}

// MediaHash hashes the sound-data bytes inside the SSND chunk, per
// spec.md §4.1.4.
func (h *Handler) MediaHash(path string, obs *observability.StandardObserver) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "aiff.MediaHash", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.File, "aiff.MediaHash", err)
	}

	ssnd, ok, err := findChunk(f, chunkHeaderSize+4, info.Size(), "SSND", "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.AIFF, "aiff.MediaHash", "SSND chunk not found")
	}
	// SSND data begins with 8 bytes of offset/blockSize fields before the
	// actual sample data, per the AIFF specification.
	sampleStart := ssnd.dataStart() + 8
	sampleLen := int64(ssnd.Size) - 8
	if sampleLen < 0 {
		return nil, errs.New(errs.AIFF, "aiff.MediaHash", "SSND chunk too small")
	}

	if _, err := f.Seek(sampleStart, io.SeekStart); err != nil {
		return nil, errs.Wrap(errs.File, "aiff.MediaHash", err)
	}
	hasher := sha256.New()
	if _, err := io.CopyN(hasher, f, sampleLen); err != nil {
		return nil, errs.Wrap(errs.AIFF, "aiff.MediaHash", err)
	}
	if obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "aiff", Operation: "MediaHash", FilePath: path, Success: true,
		})
	}
	return hasher.Sum(nil), nil
}

// Embed appends a new APPL chunk with OSType "UITS" to the end of the
// file and grows the FORM chunk's declared size accordingly. The
// chunk's size field covers the 4-byte OSType plus the token, per
// uitsAIFFManager.c's aiffExtractPayload, which reads chunkSize-4 bytes
// of payload after skipping the OSType.
func (h *Handler) Embed(inPath, outPath string, tokenXML []byte, padHint int, obs *observability.StandardObserver) error {
	in, err := os.Open(inPath)
	if err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}

	form, err := readChunkHeader(in, 0)
	if err != nil || string(form.ID[:]) != "FORM" {
		return errs.New(errs.AIFF, "aiff.Embed", "not an AIFF file")
	}

	if _, ok, err := findChunk(in, chunkHeaderSize+4, info.Size(), "APPL", applOSType); err != nil {
		return err
	} else if ok {
		return errs.New(errs.Embed, "aiff.Embed", "file already carries a uits token")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}
	defer out.Close()

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}
	if err := streamio.CopyAll(out, in); err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}

	applDataSize := uint32(4 + len(tokenXML))
	appended := int64(chunkHeaderSize) + int64(applDataSize)
	if applDataSize%2 == 1 {
		appended++
	}

	newFormSize := form.Size + uint32(appended)
	var formSizeBuf [4]byte
	binary.BigEndian.PutUint32(formSizeBuf[:], newFormSize)
	if _, err := out.WriteAt(formSizeBuf[:], 4); err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}

	if _, err := out.Seek(0, io.SeekEnd); err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}
	if _, err := out.WriteString("APPL"); err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}
	if err := binary.Write(out, binary.BigEndian, applDataSize); err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}
	if _, err := out.WriteString(applOSType); err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}
	if _, err := out.Write(tokenXML); err != nil {
		return errs.Wrap(errs.File, "aiff.Embed", err)
	}
	if applDataSize%2 == 1 {
		if err := streamio.ZeroPad(out, 1); err != nil {
			return errs.Wrap(errs.File, "aiff.Embed", err)
		}
	}

	if obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "aiff", Operation: "Embed", FilePath: outPath, Success: true,
			Metadata: map[string]interface{}{"appended_bytes": appended},
		})
	}
	return nil
}

// Extract returns the UITS APPL chunk's payload, or (nil, nil) if the
// file carries none.
func (h *Handler) Extract(path string, obs *observability.StandardObserver) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "aiff.Extract", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.File, "aiff.Extract", err)
	}

	appl, ok, err := findChunk(f, chunkHeaderSize+4, info.Size(), "APPL", applOSType)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	payloadLen := int64(appl.Size) - 4
	if payloadLen < 0 {
		return nil, errs.New(errs.AIFF, "aiff.Extract", "APPL chunk too small")
	}
	payload := make([]byte, payloadLen)
	if _, err := f.ReadAt(payload, appl.dataStart()+4); err != nil {
		return nil, errs.Wrap(errs.File, "aiff.Extract", err)
	}
	return payload, nil
}
