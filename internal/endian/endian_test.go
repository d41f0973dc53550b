package endian

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncsafeRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 16384, 2097151, 0x0FFFFFFF}
	for _, n := range cases {
		enc := EncodeSyncsafe28(n)
		for _, byt := range enc {
			assert.Zero(t, byt&0x80, "syncsafe byte must have high bit clear")
		}
		assert.Equal(t, n, DecodeSyncsafe28(enc))
	}
}
