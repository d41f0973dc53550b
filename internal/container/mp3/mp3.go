// Package mp3 implements the ID3v2.3 container handler: detection,
// media-hash computation over the audio region (with VBR-header and
// ID3v1-footer awareness), PRIV-frame token embedding, and extraction.
// Ground truth for the byte-level shape is uitsMP3Manager.c, cross
// checked against Nerggg-Audio-Steganography-LSB's
// service/audio_service.go (syncsafe encode/decode, PRIV construction)
// and the ID3v2.3 frame references in other_examples/.
package mp3

import (
	"bytes"
	"crypto/sha256"
	"io"
	"os"

	"github.com/protocol7/uits-go/internal/endian"
	"github.com/protocol7/uits-go/internal/errs"
	"github.com/protocol7/uits-go/internal/observability"
	"github.com/protocol7/uits-go/internal/streamio"
)

const (
	tagHeaderSize = 10
	id3v1Size     = 128
	privOwner     = "mailto:uits-info@umusic.com"
)

// Handler implements container.Handler for ID3v2.3-tagged MP3 files.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "mp3" }

// IsValid reports whether path begins with an ID3v2.3 tag. A file that
// starts with the ID3 magic but a different major version is a
// detection failure reported as an error, not a miss: a
// malformed/unsupported ID3 version on an otherwise ID3 file is a hard
// error the caller must see, and the registry's Detect stops at it.
func (h *Handler) IsValid(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errs.Wrap(errs.File, "mp3.IsValid", err)
	}
	defer f.Close()

	var header [tagHeaderSize]byte
	n, err := io.ReadFull(f, header[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return false, nil
		}
		return false, errs.Wrap(errs.File, "mp3.IsValid", err)
	}
	if n < tagHeaderSize || header[0] != 'I' || header[1] != 'D' || header[2] != '3' {
		return false, nil
	}
	if header[3] != 3 {
		return false, errs.New(errs.MP3, "mp3.IsValid", "unsupported ID3v2 major version")
	}
	return true, nil
}

func readTagHeader(f *os.File) (size uint32, err error) {
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return 0, errs.Wrap(errs.File, "mp3.readTagHeader", err)
	}
	var header [tagHeaderSize]byte
	if _, err = io.ReadFull(f, header[:]); err != nil {
		return 0, errs.Wrap(errs.File, "mp3.readTagHeader", err)
	}
	var sz [4]byte
	copy(sz[:], header[6:10])
	return endian.DecodeSyncsafe28(sz), nil
}

// MediaHash implements spec.md §4.1.1's media-hash region: just past
// the declared tag boundary, skipping any unaccounted zero-pad run,
// skipping one VBR header frame (Xing/Info/VBRI) if present, and
// stopping 128 bytes short of EOF when a trailing ID3v1 footer exists.
func (h *Handler) MediaHash(path string, obs *observability.StandardObserver) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "mp3.MediaHash", err)
	}
	defer f.Close()

	tagSize, err := readTagHeader(f)
	if err != nil {
		return nil, err
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.File, "mp3.MediaHash", err)
	}

	start := int64(tagHeaderSize) + int64(tagSize)

	skipped, err := skipZeroPad(f, start, fileInfo.Size())
	if err != nil {
		return nil, err
	}
	if skipped > 0 && obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "mp3", Operation: "MediaHash", FilePath: path, Success: true,
			Metadata: map[string]interface{}{"warning": "skipped unaccounted zero-pad bytes", "count": skipped},
		})
	}
	start += int64(skipped)

	vbrLen, err := vbrFrameLength(f, start, fileInfo.Size())
	if err != nil {
		return nil, err
	}
	if vbrLen > 0 && obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "mp3", Operation: "MediaHash", FilePath: path, Success: true,
			Metadata: map[string]interface{}{"notice": "skipped VBR header frame", "bytes": vbrLen},
		})
	}
	start += int64(vbrLen)

	end := fileInfo.Size()
	if end-start >= id3v1Size {
		var footer [3]byte
		if _, err := f.ReadAt(footer[:], end-id3v1Size); err == nil && string(footer[:]) == "TAG" {
			end -= id3v1Size
		}
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, errs.Wrap(errs.File, "mp3.MediaHash", err)
	}
	hasher := sha256.New()
	if _, err := io.CopyN(hasher, f, end-start); err != nil {
		return nil, errs.Wrap(errs.MP3, "mp3.MediaHash", err)
	}
	return hasher.Sum(nil), nil
}

func skipZeroPad(f *os.File, start, limit int64) (int, error) {
	count := 0
	buf := make([]byte, 1)
	for start+int64(count) < limit {
		if _, err := f.ReadAt(buf, start+int64(count)); err != nil {
			return 0, errs.Wrap(errs.File, "mp3.skipZeroPad", err)
		}
		if buf[0] != 0 {
			break
		}
		count++
	}
	return count, nil
}

// vbrFrameLength returns the length of a leading Xing/Info/VBRI frame
// at offset start, or 0 if the first audio frame there is not a VBR
// header frame.
func vbrFrameLength(f *os.File, start, limit int64) (int, error) {
	if start+4 > limit {
		return 0, nil
	}
	var head [4]byte
	if _, err := f.ReadAt(head[:], start); err != nil {
		return 0, errs.Wrap(errs.File, "mp3.vbrFrameLength", err)
	}
	mh, ok := parseMPEGHeader(head[:])
	if !ok {
		return 0, nil
	}
	frameLen := mh.frameLength()
	if frameLen <= 0 || start+int64(frameLen) > limit {
		return 0, nil
	}
	markerOffset := 4 + mh.vbrHeaderOffset()
	if int64(markerOffset)+4 > int64(frameLen) {
		return 0, nil
	}
	marker := make([]byte, 4)
	if _, err := f.ReadAt(marker, start+int64(markerOffset)); err != nil {
		return 0, errs.Wrap(errs.File, "mp3.vbrFrameLength", err)
	}
	switch string(marker) {
	case "Xing", "Info", "VBRI":
		return frameLen, nil
	default:
		return 0, nil
	}
}

// Embed copies the tag header and every existing frame verbatim,
// drops existing padding, appends the PRIV token frame and the
// caller-requested zero pad, recomputes the syncsafe tag size, and
// streams the audio frames and any ID3v1 footer through unchanged. By
// construction the PRIV frame is always written to the output buffer
// before any audio byte is touched, so the "fatal before PRIV" rule
// from spec.md §4.1.1 cannot be violated.
func (h *Handler) Embed(inPath, outPath string, tokenXML []byte, padHint int, obs *observability.StandardObserver) error {
	in, err := os.Open(inPath)
	if err != nil {
		return errs.Wrap(errs.File, "mp3.Embed", err)
	}
	defer in.Close()

	tagSize, err := readTagHeader(in)
	if err != nil {
		return err
	}
	tagBody := make([]byte, tagSize)
	if _, err := io.ReadFull(in, tagBody); err != nil {
		return errs.Wrap(errs.File, "mp3.Embed", err)
	}
	frames, _, err := readFrames(tagBody)
	if err != nil {
		return errs.Wrap(errs.MP3, "mp3.Embed", err)
	}
	for _, fr := range frames {
		if isPrivFrame(fr) {
			if _, ok := privPayload(fr); ok {
				return errs.New(errs.Embed, "mp3.Embed", "file already carries a uits token")
			}
		}
	}

	var body bytes.Buffer
	for _, fr := range frames {
		body.Write(fr.encode())
	}
	body.Write(newPrivFrame(tokenXML).encode())
	if padHint > 0 {
		if err := streamio.ZeroPad(&body, padHint); err != nil {
			return errs.Wrap(errs.File, "mp3.Embed", err)
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return errs.Wrap(errs.File, "mp3.Embed", err)
	}
	defer out.Close()

	var header [tagHeaderSize]byte
	header[0], header[1], header[2] = 'I', 'D', '3'
	header[3], header[4] = 3, 0
	header[5] = 0
	sz := endian.EncodeSyncsafe28(uint32(body.Len()))
	copy(header[6:10], sz[:])
	if _, err := out.Write(header[:]); err != nil {
		return errs.Wrap(errs.File, "mp3.Embed", err)
	}
	if _, err := out.Write(body.Bytes()); err != nil {
		return errs.Wrap(errs.File, "mp3.Embed", err)
	}

	if _, err := in.Seek(int64(tagHeaderSize)+int64(tagSize), io.SeekStart); err != nil {
		return errs.Wrap(errs.File, "mp3.Embed", err)
	}
	if err := streamio.CopyAll(out, in); err != nil {
		return errs.Wrap(errs.File, "mp3.Embed", err)
	}

	if obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "mp3", Operation: "Embed", FilePath: outPath, Success: true,
			Metadata: map[string]interface{}{"tag_size": body.Len()},
		})
	}
	return nil
}

// Extract walks the ID3v2.3 frames looking for a PRIV frame carrying a
// uits token, stopping as soon as the audio region (the first byte
// past the declared tag boundary) would be reached.
func (h *Handler) Extract(path string, obs *observability.StandardObserver) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "mp3.Extract", err)
	}
	defer f.Close()

	tagSize, err := readTagHeader(f)
	if err != nil {
		return nil, err
	}
	tagBody := make([]byte, tagSize)
	if _, err := io.ReadFull(f, tagBody); err != nil {
		return nil, errs.Wrap(errs.File, "mp3.Extract", err)
	}
	frames, _, err := readFrames(tagBody)
	if err != nil {
		return nil, errs.Wrap(errs.MP3, "mp3.Extract", err)
	}
	for _, fr := range frames {
		if !isPrivFrame(fr) {
			continue
		}
		if payload, ok := privPayload(fr); ok {
			return payload, nil
		}
	}
	return nil, nil
}
