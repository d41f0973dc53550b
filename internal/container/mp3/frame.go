package mp3

import (
	"encoding/binary"

	"github.com/protocol7/uits-go/internal/errs"
)

// frame is one ID3v2.3 frame: a 4-byte ASCII id, a plain 32-bit
// big-endian size (ID3v2.3 frame sizes are not syncsafe — syncsafe
// sizing was introduced in v2.4 and applies only to the tag header),
// two flag bytes, and the frame body.
type frame struct {
	ID    [4]byte
	Flags [2]byte
	Body  []byte
}

// readFrames walks an ID3v2.3 tag body (the bytes between the 10-byte
// tag header and the declared tag boundary), returning every frame in
// order and the number of trailing zero-pad bytes consumed once a
// frame ID of all zero bytes is encountered.
func readFrames(body []byte) (frames []frame, padLen int, err error) {
	offset := 0
	for offset < len(body) {
		if offset+10 > len(body) {
			padLen = len(body) - offset
			break
		}
		var id [4]byte
		copy(id[:], body[offset:offset+4])
		if id == ([4]byte{0, 0, 0, 0}) {
			padLen = len(body) - offset
			break
		}
		size := binary.BigEndian.Uint32(body[offset+4 : offset+8])
		var flags [2]byte
		copy(flags[:], body[offset+8:offset+10])
		bodyStart := offset + 10
		bodyEnd := bodyStart + int(size)
		if bodyEnd > len(body) {
			return nil, 0, errs.New(errs.MP3, "mp3.readFrames", "frame size exceeds tag boundary")
		}
		frames = append(frames, frame{ID: id, Flags: flags, Body: append([]byte(nil), body[bodyStart:bodyEnd]...)})
		offset = bodyEnd
	}
	return frames, padLen, nil
}

// encode renders f back to its 10-byte-headed on-wire form.
func (f frame) encode() []byte {
	out := make([]byte, 10+len(f.Body))
	copy(out[0:4], f.ID[:])
	binary.BigEndian.PutUint32(out[4:8], uint32(len(f.Body)))
	copy(out[8:10], f.Flags[:])
	copy(out[10:], f.Body)
	return out
}

func isPrivFrame(f frame) bool {
	return string(f.ID[:]) == "PRIV"
}

// newPrivFrame builds the PRIV frame uits embeds tokens in: body is
// the owner identifier, a NUL, the token XML, and a second NUL — both
// NULs are required.
func newPrivFrame(tokenXML []byte) frame {
	body := make([]byte, 0, len(privOwner)+1+len(tokenXML)+1)
	body = append(body, []byte(privOwner)...)
	body = append(body, 0)
	body = append(body, tokenXML...)
	body = append(body, 0)
	return frame{ID: [4]byte{'P', 'R', 'I', 'V'}, Body: body}
}

// privPayload skips the PRIV frame's NUL-terminated owner string and
// returns the token bytes from "<?xml" up to the next NUL (or the end
// of the frame), or false if the remainder does not look like a uits
// token.
func privPayload(f frame) ([]byte, bool) {
	nul := indexByte(f.Body, 0)
	if nul < 0 {
		return nil, false
	}
	remainder := f.Body[nul+1:]
	idx := indexString(remainder, ":UITS")
	if idx < 0 {
		return nil, false
	}
	start := indexString(remainder, "<?xml")
	if start < 0 {
		return nil, false
	}
	payload := remainder[start:]
	if end := indexByte(payload, 0); end >= 0 {
		payload = payload[:end]
	}
	return payload, true
}

func indexByte(b []byte, target byte) int {
	for i, c := range b {
		if c == target {
			return i
		}
	}
	return -1
}

func indexString(b []byte, target string) int {
	t := []byte(target)
	for i := 0; i+len(t) <= len(b); i++ {
		match := true
		for j := range t {
			if b[i+j] != t[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
