// Package html implements the HTML container handler: the token is
// inserted as literal text immediately before the closing </head> tag
// rather than in a structured chunk/atom, per spec.md §4.1.6. Ground
// truth is uitsHTMLManager.c's strstr/strcasestr-based approach,
// reimplemented with Go string search instead of an XML parser since
// the payload boundary is textual, not structural.
package html

import (
	"bytes"
	"crypto/sha256"
	"os"

	"github.com/protocol7/uits-go/internal/errs"
	"github.com/protocol7/uits-go/internal/observability"
)

const (
	uitsMarker = "<uits:UITS"
	headClose  = "</head>"
)

// caseInsensitiveIndex finds needle in haystack ignoring case.
func caseInsensitiveIndex(haystack []byte, needle string) int {
	return bytes.Index(bytes.ToLower(haystack), []byte(bytes.ToLower([]byte(needle))))
}

// Handler implements container.Handler for HTML documents.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "html" }

// IsValid treats any file containing an <html or <head tag as HTML.
// This is deliberately permissive, mirroring the original's use of a
// lenient opaque-mode XML/HTML parser as a near-universal fallthrough.
func (h *Handler) IsValid(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errs.Wrap(errs.File, "html.IsValid", err)
	}
	lower := bytes.ToLower(data)
	return bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<head")), nil
}

// MediaHash hashes the document with any existing UITS payload
// stripped back out, so the hash reflects only the original content.
func (h *Handler) MediaHash(path string, obs *observability.StandardObserver) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "html.MediaHash", err)
	}

	hashable := data
	if start := bytes.Index(data, []byte(uitsMarker)); start >= 0 {
		end := caseInsensitiveIndex(data, headClose)
		if end < 0 || end < start {
			return nil, errs.New(errs.UITS, "html.MediaHash", "couldn't find end of UITS payload")
		}
		hashable = append(append([]byte{}, data[:start]...), data[end:]...)
	}
	hasher := sha256.New()
	hasher.Write(hashable)
	if obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "html", Operation: "MediaHash", FilePath: path, Success: true,
		})
	}
	return hasher.Sum(nil), nil
}

// Embed inserts tokenXML, with any XML prolog stripped, as literal
// text immediately before the closing </head> tag.
func (h *Handler) Embed(inPath, outPath string, tokenXML []byte, padHint int, obs *observability.StandardObserver) error {
	if existing, err := h.Extract(inPath, nil); err != nil {
		return err
	} else if existing != nil {
		return errs.New(errs.Embed, "html.Embed", "file already carries a uits token")
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		return errs.Wrap(errs.File, "html.Embed", err)
	}
	stripped := tokenXML
	if start := bytes.Index(tokenXML, []byte(uitsMarker)); start >= 0 {
		stripped = tokenXML[start:]
	}

	insertAt := caseInsensitiveIndex(data, headClose)
	if insertAt < 0 {
		return errs.New(errs.UITS, "html.Embed", "couldn't find </head> in input file")
	}

	var out bytes.Buffer
	out.Write(data[:insertAt])
	out.Write(stripped)
	out.Write(data[insertAt:])

	if err := os.WriteFile(outPath, out.Bytes(), 0o644); err != nil {
		return errs.Wrap(errs.File, "html.Embed", err)
	}
	if obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "html", Operation: "Embed", FilePath: outPath, Success: true,
			Metadata: map[string]interface{}{"inserted_bytes": len(stripped)},
		})
	}
	return nil
}

// Extract returns the literal text between <uits:UITS and </head>, or
// (nil, nil) if the document carries no payload.
func (h *Handler) Extract(path string, obs *observability.StandardObserver) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "html.Extract", err)
	}
	start := bytes.Index(data, []byte(uitsMarker))
	if start < 0 {
		return nil, nil
	}
	end := caseInsensitiveIndex(data, headClose)
	if end < 0 || end < start {
		return nil, errs.New(errs.UITS, "html.Extract", "couldn't find end of UITS payload")
	}
	payload := make([]byte, end-start)
	copy(payload, data[start:end])
	return payload, nil
}
