// Package mp4 implements the ISO-BMFF container handler: atom tree
// walking, media-hash over the top-level mdat body, UITS-atom
// embedding under moov/udta with the mandatory stco chunk-offset
// fixup, and extraction. Ground truth for the byte-level shape is
// uitsMP4Manager.c; atom naming and container/full-box classification
// are grounded on other_examples/488b4829_tetsuo-isobmff__box.go.go.
package mp4

import (
	"encoding/binary"
	"io"

	"github.com/protocol7/uits-go/internal/errs"
)

// Box is one parsed atom: its type, its header size (8 normally, would
// be 16 for the unsupported extended-size form), and the absolute file
// offsets of its header and body.
type Box struct {
	Type       [4]byte
	HeaderSize int64
	Start      int64 // offset of the 4-byte size field
	BodyStart  int64
	BodyEnd    int64 // exclusive
}

func (b Box) Size() int64 { return b.BodyEnd - b.Start }

func (b Box) TypeString() string { return string(b.Type[:]) }

// readBoxes parses every direct child atom in the half-open byte range
// [start, end) of r.
func readBoxes(r io.ReaderAt, start, end int64) ([]Box, error) {
	var boxes []Box
	offset := start
	for offset < end {
		var header [8]byte
		if _, err := r.ReadAt(header[:], offset); err != nil {
			return nil, errs.Wrap(errs.MP4, "mp4.readBoxes", err)
		}
		size := int64(binary.BigEndian.Uint32(header[0:4]))
		var typ [4]byte
		copy(typ[:], header[4:8])

		if typ == ([4]byte{'c', 'o', '6', '4'}) {
			return nil, errs.New(errs.MP4, "mp4.readBoxes", "co64 64-bit chunk-offset table is not supported")
		}

		headerSize := int64(8)
		bodyStart := offset + 8
		switch size {
		case 0:
			boxes = append(boxes, Box{Type: typ, HeaderSize: headerSize, Start: offset, BodyStart: bodyStart, BodyEnd: end})
			return boxes, nil
		case 1:
			return nil, errs.New(errs.MP4, "mp4.readBoxes", "64-bit extended-size atoms are not supported")
		default:
			bodyEnd := offset + size
			if bodyEnd > end {
				return nil, errs.New(errs.MP4, "mp4.readBoxes", "atom size exceeds container boundary")
			}
			boxes = append(boxes, Box{Type: typ, HeaderSize: headerSize, Start: offset, BodyStart: bodyStart, BodyEnd: bodyEnd})
			offset = bodyEnd
		}
	}
	return boxes, nil
}

func findBox(boxes []Box, typeName string) (Box, bool) {
	for _, b := range boxes {
		if b.TypeString() == typeName {
			return b, true
		}
	}
	return Box{}, false
}

// descend finds the first box at each successive level of path,
// starting from the top-level boxes already parsed at [start,end).
func descend(r io.ReaderAt, start, end int64, path ...string) (Box, error) {
	boxes, err := readBoxes(r, start, end)
	if err != nil {
		return Box{}, err
	}
	current, ok := findBox(boxes, path[0])
	if !ok {
		return Box{}, errs.New(errs.MP4, "mp4.descend", "atom "+path[0]+" not found")
	}
	if len(path) == 1 {
		return current, nil
	}
	return descend(r, current.BodyStart, current.BodyEnd, path[1:]...)
}

// allBoxesMatching returns every box named typeName at any depth under
// [start, end), recursing into every container box it encounters.
// Used to find every stco table across every trak.
func allBoxesMatching(r io.ReaderAt, start, end int64, typeName string) ([]Box, error) {
	boxes, err := readBoxes(r, start, end)
	if err != nil {
		return nil, err
	}
	var found []Box
	for _, b := range boxes {
		if b.TypeString() == typeName {
			found = append(found, b)
			continue
		}
		if isContainerType(b.TypeString()) {
			nested, err := allBoxesMatching(r, b.BodyStart, b.BodyEnd, typeName)
			if err != nil {
				return nil, err
			}
			found = append(found, nested...)
		}
	}
	return found, nil
}

// isContainerType lists the atom types this handler recurses into
// while walking the moov tree looking for stco tables.
func isContainerType(t string) bool {
	switch t {
	case "moov", "trak", "mdia", "minf", "stbl", "udta", "edts":
		return true
	default:
		return false
	}
}
