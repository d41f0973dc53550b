// Package endian collects the byte-order and bit-packing primitives the
// container handlers share: ID3v2 syncsafe integers, and thin wrappers
// around encoding/binary for the big- and little-endian fields each
// format mixes together (MP4 is big-endian throughout, RIFF/WAV is
// little-endian, AIFF is big-endian, ID3v2 sizes are syncsafe).
package endian

import "encoding/binary"

// EncodeSyncsafe28 packs the low 28 bits of n into four bytes, 7 bits per
// byte with the high bit of each byte clear, matching ID3v2.3 tag-size
// encoding.
func EncodeSyncsafe28(n uint32) [4]byte {
	var b [4]byte
	b[0] = byte((n >> 21) & 0x7F)
	b[1] = byte((n >> 14) & 0x7F)
	b[2] = byte((n >> 7) & 0x7F)
	b[3] = byte(n & 0x7F)
	return b
}

// DecodeSyncsafe28 reverses EncodeSyncsafe28.
func DecodeSyncsafe28(b [4]byte) uint32 {
	return uint32(b[0])<<21 | uint32(b[1])<<14 | uint32(b[2])<<7 | uint32(b[3])
}

// Big and Little name the two encoding/binary byte orders used
// throughout the container handlers, so call sites read as "big-endian
// 32-bit field" rather than needing to know which library constant that is.
var (
	Big    = binary.BigEndian
	Little = binary.LittleEndian
)
