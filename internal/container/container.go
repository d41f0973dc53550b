// Package container defines the capability set every audio-container
// format handler implements, and the format-detection dispatch table
// that routes a file to its handler. Ground truth for the dispatch
// shape is the original C source's process-global array of function
// pointers keyed by detected format (uitsPayloadManager.c); this port
// reifies it as a small interface and an ordered detection list, per
// SPEC_FULL.md / spec.md §9's "Dynamic dispatch table" design note.
package container

import (
	"github.com/protocol7/uits-go/internal/errs"
	"github.com/protocol7/uits-go/internal/observability"
)

// Handler is the four-operation capability set every container format
// exposes: detect, media-hash, embed, extract. Every method takes the
// observer explicitly rather than reading a package-global, per
// SPEC_FULL.md's logging design (the orchestrator threads one observer
// through the whole operation; obs may be nil).
type Handler interface {
	// Name identifies the format for logging and error messages.
	Name() string

	// IsValid reports whether the file at path is a well-formed
	// instance of this format.
	IsValid(path string) (bool, error)

	// MediaHash returns the SHA-256 digest of the format-specific
	// audio-sample region.
	MediaHash(path string, obs *observability.StandardObserver) ([]byte, error)

	// Embed splices tokenXML into the container, writing the result to
	// outPath. padHint is the number of caller-requested zero-pad bytes
	// (only meaningful to formats that support padding, namely MP3).
	Embed(inPath, outPath string, tokenXML []byte, padHint int, obs *observability.StandardObserver) error

	// Extract returns the embedded token, or (nil, nil) if the file
	// carries none.
	Extract(path string, obs *observability.StandardObserver) ([]byte, error)
}

// Registry resolves a file to its Handler by detection, in priority
// order. Generic is always last and always matches, so Detect never
// fails to resolve a handler — only IsValid calls can fail.
type Registry struct {
	handlers []Handler
}

// NewRegistry builds the registry in detection priority order: each
// format-specific handler is tried before the Generic fallback.
func NewRegistry(handlers ...Handler) *Registry {
	return &Registry{handlers: handlers}
}

// Detect returns the first handler whose IsValid reports true for path.
func (r *Registry) Detect(path string) (Handler, error) {
	for _, h := range r.handlers {
		ok, err := h.IsValid(path)
		if err != nil {
			return nil, errs.Wrap(errs.Audio, "container.Detect", err)
		}
		if ok {
			return h, nil
		}
	}
	return nil, errs.New(errs.Audio, "container.Detect", "no handler recognized "+path)
}
