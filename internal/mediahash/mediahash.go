// Package mediahash implements the three-way comparison policy between
// a reference hash (computed from the audio region, supplied on the
// command line, or read from a file) and the hash text stored in a
// token's <Media> element.
package mediahash

import (
	"encoding/hex"
	"strings"

	"github.com/protocol7/uits-go/internal/cryptosurface"
	"github.com/protocol7/uits-go/internal/errs"
)

// Warning names a non-fatal diagnostic returned alongside a successful
// comparison.
type Warning string

const (
	NoWarning     Warning = ""
	WarningBase64 Warning = "token hash is the Base64 encoding of the reference hash"
	WarningCase   Warning = "token hash matches the reference hash case-insensitively"
)

// Compare implements spec.md §4.3's ordered acceptance policy:
//  1. exact byte-for-byte (string) match,
//  2. Base64(reference) equals the token text (line-wrapping detected by
//     the presence of '\n' in the token text),
//  3. case-insensitive match.
//
// referenceHex is the lowercase hex SHA-256 computed over the audio
// region; tokenText is the <Media> element's text content.
func Compare(referenceHex, tokenText string) (Warning, error) {
	if tokenText == referenceHex {
		return NoWarning, nil
	}

	if refBytes, err := hex.DecodeString(referenceHex); err == nil {
		multiline := strings.Contains(tokenText, "\n")
		candidate := cryptosurface.Base64Encode(refBytes, multiline)
		if candidate == tokenText {
			return WarningBase64, nil
		}
	}

	if strings.EqualFold(tokenText, referenceHex) {
		return WarningCase, nil
	}

	return NoWarning, errs.New(errs.Hash, "mediahash.Compare", "media hash mismatch")
}
