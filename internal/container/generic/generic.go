// Package generic implements the whole-file-hash fallback container
// handler used when no other format is recognized. Embedding is not
// supported; per spec.md §4.1.7 the orchestrator falls back to writing
// a standalone token file instead. Ground truth is
// uitsGenericManager.c, which always matches and always errors on
// embed/extract.
package generic

import (
	"crypto/sha256"
	"io"
	"os"

	"github.com/protocol7/uits-go/internal/errs"
	"github.com/protocol7/uits-go/internal/observability"
)

// Handler implements container.Handler as the always-matching,
// embed-less fallback.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "generic" }

// IsValid always reports true; Generic must be registered last in the
// container.Registry so format-specific handlers get first refusal.
func (h *Handler) IsValid(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return false, errs.Wrap(errs.File, "generic.IsValid", err)
	}
	return true, nil
}

// MediaHash hashes the entire file.
func (h *Handler) MediaHash(path string, obs *observability.StandardObserver) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "generic.MediaHash", err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, errs.Wrap(errs.File, "generic.MediaHash", err)
	}
	if obs != nil {
		obs.LogOperation(observability.StandardObservabilityData{
			Component: "generic", Operation: "MediaHash", FilePath: path, Success: true,
		})
	}
	return hasher.Sum(nil), nil
}

// Embed is unsupported for unrecognized file types and always returns
// an error. orchestrator.Create does not call it: for this handler it
// writes the token as a standalone file at the output path instead.
func (h *Handler) Embed(inPath, outPath string, tokenXML []byte, padHint int, obs *observability.StandardObserver) error {
	return errs.New(errs.Embed, "generic.Embed", "embedding is not supported for unrecognized file types")
}

// Extract always reports that no embedded token can exist.
func (h *Handler) Extract(path string, obs *observability.StandardObserver) ([]byte, error) {
	return nil, nil
}
