package mp3

// mpegHeader decodes the fields of a 4-byte MPEG audio frame header
// needed to locate and size a VBR header frame (Xing/Info/VBRI).
type mpegHeader struct {
	VersionID   int // 0=MPEG2.5, 2=MPEG2, 3=MPEG1
	Layer       int // 1, 2, or 3
	Bitrate     int // kbps
	SampleRate  int // Hz
	Padding     int // 0 or 1
	ChannelMode int // 0=stereo,1=joint,2=dual,3=mono
}

var bitrateV1 = map[int][]int{
	1: {0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
	2: {0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
	3: {0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
}

var bitrateV2 = map[int][]int{
	1: {0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
	2: {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	3: {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
}

var sampleRateV1 = []int{44100, 48000, 32000}
var sampleRateV2 = []int{22050, 24000, 16000}
var sampleRateV25 = []int{11025, 12000, 8000}

// parseMPEGHeader decodes a 4-byte MPEG audio frame header, returning
// false if the sync pattern is absent or the header encodes a reserved
// field combination.
func parseMPEGHeader(b []byte) (mpegHeader, bool) {
	if len(b) < 4 {
		return mpegHeader{}, false
	}
	if b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return mpegHeader{}, false
	}
	versionBits := (b[1] >> 3) & 0x03
	layerBits := (b[1] >> 1) & 0x03
	bitrateIdx := int((b[2] >> 4) & 0x0F)
	sampleRateIdx := int((b[2] >> 2) & 0x03)
	padding := int((b[2] >> 1) & 0x01)
	channelMode := int((b[3] >> 6) & 0x03)

	layer := map[byte]int{0b01: 3, 0b10: 2, 0b11: 1}[layerBits]
	if layer == 0 || bitrateIdx == 0 || bitrateIdx == 15 || sampleRateIdx == 3 {
		return mpegHeader{}, false
	}

	var bitrate, sampleRate int
	switch versionBits {
	case 0b11: // MPEG1
		bitrate = bitrateV1[layer][bitrateIdx]
		sampleRate = sampleRateV1[sampleRateIdx]
	case 0b10: // MPEG2
		bitrate = bitrateV2[layer][bitrateIdx]
		sampleRate = sampleRateV2[sampleRateIdx]
	case 0b00: // MPEG2.5
		bitrate = bitrateV2[layer][bitrateIdx]
		sampleRate = sampleRateV25[sampleRateIdx]
	default:
		return mpegHeader{}, false
	}

	versionID := 3
	if versionBits == 0b10 {
		versionID = 2
	} else if versionBits == 0b00 {
		versionID = 0
	}

	return mpegHeader{
		VersionID:   versionID,
		Layer:       layer,
		Bitrate:     bitrate,
		SampleRate:  sampleRate,
		Padding:     padding,
		ChannelMode: channelMode,
	}, true
}

// isMono reports whether the channel-mode field selects mono (single
// channel) as opposed to any of the stereo variants.
func (h mpegHeader) isMono() bool {
	return h.ChannelMode == 3
}

// vbrHeaderOffset is the byte offset of a Xing/Info/VBRI marker within
// the frame body: 17 for mono, 32 for stereo, per uitsMP3Manager.c.
func (h mpegHeader) vbrHeaderOffset() int {
	if h.isMono() {
		return 17
	}
	return 32
}

// frameLength returns the total length in bytes of the MPEG audio
// frame described by h, including its 4-byte header.
func (h mpegHeader) frameLength() int {
	if h.SampleRate == 0 {
		return 0
	}
	if h.Layer == 1 {
		return (12*h.Bitrate*1000/h.SampleRate + h.Padding) * 4
	}
	if h.VersionID == 3 {
		return 144*h.Bitrate*1000/h.SampleRate + h.Padding
	}
	return 72*h.Bitrate*1000/h.SampleRate + h.Padding
}
