package mp4

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"os"

	"github.com/protocol7/uits-go/internal/errs"
	"github.com/protocol7/uits-go/internal/observability"
)

// Handler implements container.Handler for ISO-BMFF (MP4/M4A) files.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "mp4" }

// IsValid reports whether path's first atom is ftyp. A file whose
// first atom is not ftyp is a miss; for a file that does start with
// ftyp, a malformed top-level atom tree is reported as an error. Only
// top-level atoms are read here: a co64 nested under moov is found by
// Embed's stco walk, which fails before any output is written.
func (h *Handler) IsValid(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, errs.Wrap(errs.File, "mp4.IsValid", err)
	}
	if info.Size() < 8 {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, errs.Wrap(errs.File, "mp4.IsValid", err)
	}
	defer f.Close()

	var head [8]byte
	if _, err := f.ReadAt(head[:], 0); err != nil || string(head[4:8]) != "ftyp" {
		return false, nil
	}
	boxes, err := readBoxes(f, 0, info.Size())
	if err != nil {
		if isMP4DetectionError(err) {
			return false, err
		}
		return false, nil
	}
	_, ok := findBox(boxes, "ftyp")
	return ok, nil
}

func isMP4DetectionError(err error) bool {
	var coded *errs.CodedError
	if ce, ok := err.(*errs.CodedError); ok {
		coded = ce
	}
	return coded != nil && coded.Kind == errs.MP4
}

// MediaHash hashes the body of the first top-level mdat atom.
func (h *Handler) MediaHash(path string, obs *observability.StandardObserver) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "mp4.MediaHash", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "mp4.MediaHash", err)
	}
	defer f.Close()

	boxes, err := readBoxes(f, 0, info.Size())
	if err != nil {
		return nil, errs.Wrap(errs.MP4, "mp4.MediaHash", err)
	}
	mdat, ok := findBox(boxes, "mdat")
	if !ok {
		return nil, errs.New(errs.MP4, "mp4.MediaHash", "mdat atom not found")
	}

	hasher := sha256.New()
	buf := make([]byte, 64*1024)
	remaining := mdat.BodyEnd - mdat.BodyStart
	offset := mdat.BodyStart
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, err := f.ReadAt(buf[:n], offset)
		if err != nil {
			return nil, errs.Wrap(errs.File, "mp4.MediaHash", err)
		}
		hasher.Write(buf[:read])
		offset += int64(read)
		remaining -= int64(read)
	}
	if obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "mp4", Operation: "MediaHash", FilePath: path, Success: true,
			Metadata: map[string]interface{}{"mdat_size": mdat.BodyEnd - mdat.BodyStart},
		})
	}
	return hasher.Sum(nil), nil
}

// Embed inserts a UITS leaf atom at the head of moov/udta's children,
// grows moov's and udta's declared sizes by the inserted byte count,
// and adds that same byte count to every stco chunk-offset entry
// anywhere under moov, per spec.md §4.1.2 and the 508-byte worked
// example in its end-to-end test scenario.
func (h *Handler) Embed(inPath, outPath string, tokenXML []byte, padHint int, obs *observability.StandardObserver) error {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return errs.Wrap(errs.File, "mp4.Embed", err)
	}
	r := bytes.NewReader(raw)

	topBoxes, err := readBoxes(r, 0, int64(len(raw)))
	if err != nil {
		return errs.Wrap(errs.MP4, "mp4.Embed", err)
	}
	moov, ok := findBox(topBoxes, "moov")
	if !ok {
		return errs.New(errs.MP4, "mp4.Embed", "moov atom not found")
	}
	udta, err := descend(r, moov.BodyStart, moov.BodyEnd, "udta")
	if err != nil {
		return errs.New(errs.Embed, "mp4.Embed", "moov/udta atom not found")
	}

	udtaChildren, err := readBoxes(r, udta.BodyStart, udta.BodyEnd)
	if err != nil {
		return errs.Wrap(errs.MP4, "mp4.Embed", err)
	}
	if _, exists := findBox(udtaChildren, "UITS"); exists {
		return errs.New(errs.Embed, "mp4.Embed", "file already carries a uits token")
	}

	boxLen := int64(8 + len(tokenXML))
	tokenBox := make([]byte, boxLen)
	binary.BigEndian.PutUint32(tokenBox[0:4], uint32(boxLen))
	copy(tokenBox[4:8], "UITS")
	copy(tokenBox[8:], tokenXML)

	patched := make([]byte, len(raw))
	copy(patched, raw)
	binary.BigEndian.PutUint32(patched[moov.Start:moov.Start+4], uint32(moov.Size()+boxLen))
	binary.BigEndian.PutUint32(patched[udta.Start:udta.Start+4], uint32(udta.Size()+boxLen))

	var final bytes.Buffer
	final.Write(patched[:udta.BodyStart])
	final.Write(tokenBox)
	final.Write(patched[udta.BodyStart:])
	out := final.Bytes()

	if err := fixupChunkOffsets(out, moov, boxLen); err != nil {
		return err
	}

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return errs.Wrap(errs.File, "mp4.Embed", err)
	}
	if obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "mp4", Operation: "Embed", FilePath: outPath, Success: true,
			Metadata: map[string]interface{}{"inserted_bytes": boxLen},
		})
	}
	return nil
}

// fixupChunkOffsets adds delta to every stco table entry found anywhere
// under the (already-grown) moov atom in out, rewriting each entry in
// place.
func fixupChunkOffsets(out []byte, moov Box, delta int64) error {
	r := bytes.NewReader(out)
	stcoBoxes, err := allBoxesMatching(r, moov.BodyStart, moov.BodyEnd+delta, "stco")
	if err != nil {
		return errs.Wrap(errs.MP4, "mp4.fixupChunkOffsets", err)
	}
	for _, stco := range stcoBoxes {
		body := out[stco.BodyStart:stco.BodyEnd]
		if len(body) < 8 {
			continue
		}
		count := binary.BigEndian.Uint32(body[4:8])
		for i := uint32(0); i < count; i++ {
			off := 8 + i*4
			if int(off+4) > len(body) {
				break
			}
			val := binary.BigEndian.Uint32(body[off : off+4])
			binary.BigEndian.PutUint32(body[off:off+4], uint32(int64(val)+delta))
		}
	}
	return nil
}

// Extract returns the UITS atom body under moov/udta, or (nil, nil) if
// none is present.
func (h *Handler) Extract(path string, obs *observability.StandardObserver) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "mp4.Extract", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "mp4.Extract", err)
	}
	defer f.Close()

	topBoxes, err := readBoxes(f, 0, info.Size())
	if err != nil {
		return nil, errs.Wrap(errs.MP4, "mp4.Extract", err)
	}
	moov, ok := findBox(topBoxes, "moov")
	if !ok {
		return nil, nil
	}
	udta, err := descend(f, moov.BodyStart, moov.BodyEnd, "udta")
	if err != nil {
		return nil, nil
	}
	udtaChildren, err := readBoxes(f, udta.BodyStart, udta.BodyEnd)
	if err != nil {
		return nil, errs.Wrap(errs.MP4, "mp4.Extract", err)
	}
	uits, ok := findBox(udtaChildren, "UITS")
	if !ok {
		return nil, nil
	}
	payload := make([]byte, uits.BodyEnd-uits.BodyStart)
	if _, err := f.ReadAt(payload, uits.BodyStart); err != nil {
		return nil, errs.Wrap(errs.File, "mp4.Extract", err)
	}
	return payload, nil
}
