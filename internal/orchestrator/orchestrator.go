// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator composes the container, token, xmltoken,
// mediahash, and cryptosurface packages into the five top-level
// operations uitsctl exposes: create, verify, extract, hash, and key
// (plus keygen, a test-key-material utility with no counterpart in
// the original uits_tool command set). Ground truth for the
// composition order (detect format, compute media hash, build/verify
// token, splice into container) is uitsPayloadManager.c's top-level
// uitsCreatePayload/uitsVerifyPayload dispatch functions; GenKey's
// "hash the public key file" shape is uitsGenKey.
package orchestrator

import (
	"crypto"
	"encoding/hex"
	"os"
	"strings"

	"github.com/protocol7/uits-go/internal/container"
	"github.com/protocol7/uits-go/internal/container/aiff"
	"github.com/protocol7/uits-go/internal/container/flac"
	"github.com/protocol7/uits-go/internal/container/generic"
	"github.com/protocol7/uits-go/internal/container/html"
	"github.com/protocol7/uits-go/internal/container/mp3"
	"github.com/protocol7/uits-go/internal/container/mp4"
	"github.com/protocol7/uits-go/internal/container/wav"
	"github.com/protocol7/uits-go/internal/cryptosurface"
	"github.com/protocol7/uits-go/internal/errs"
	"github.com/protocol7/uits-go/internal/observability"
	"github.com/protocol7/uits-go/internal/token"
	"github.com/protocol7/uits-go/internal/xmltoken"
)

// NewRegistry builds the default container.Registry in detection
// priority order, with Generic always last.
func NewRegistry() *container.Registry {
	return container.NewRegistry(
		mp3.New(),
		mp4.New(),
		flac.New(),
		aiff.New(),
		wav.New(),
		html.New(),
		generic.New(),
	)
}

// FieldAssignment is one --set element=value pair from the command
// line, applied to the token descriptor before signing.
type FieldAssignment struct {
	Element string
	Attr    string // empty for the element's own value
	Value   string
}

// CreateOptions configures Create.
type CreateOptions struct {
	InputPath  string // media file to embed into, or "" for a standalone token
	OutputPath string // embedded-file destination, or standalone token destination
	Profile    token.Profile
	Fields     []FieldAssignment
	PrivateKey crypto.PrivateKey
	Algorithm  cryptosurface.Algorithm
	KeyID      string
	Multiline  bool
	PadBytes   int
	Observer   *observability.StandardObserver
}

// CreateResult reports what Create actually did.
type CreateResult struct {
	Standalone bool // true if no container embedding occurred
	MediaHash  string
}

// Create builds a descriptor from opts.Fields, computes and fills the
// media hash (when an input file is given), signs it, and either
// embeds the resulting document in InputPath or writes it standalone
// to OutputPath.
func Create(opts CreateOptions) (CreateResult, error) {
	var result CreateResult
	d := newDescriptor(opts.Profile)

	for _, f := range opts.Fields {
		if err := applyField(d, f); err != nil {
			return result, err
		}
	}

	var reg *container.Registry
	var handler container.Handler
	if opts.InputPath != "" {
		reg = NewRegistry()
		h, err := reg.Detect(opts.InputPath)
		if err != nil {
			return result, err
		}
		handler = h

		mediaSlot := d.Slot("Media")
		if mediaSlot != nil && !mediaSlot.Present {
			digest, err := handler.MediaHash(opts.InputPath, opts.Observer)
			if err != nil {
				return result, errs.Wrap(errs.Hash, "orchestrator.Create", err)
			}
			hexHash := hex.EncodeToString(digest)
			if err := d.Set("Media", hexHash); err != nil {
				return result, err
			}
			result.MediaHash = hexHash
		}
	}

	doc, err := xmltoken.Sign(d, opts.PrivateKey, opts.Algorithm, opts.KeyID, opts.Multiline)
	if err != nil {
		return result, err
	}

	if handler == nil {
		result.Standalone = true
		if err := os.WriteFile(opts.OutputPath, doc, 0o644); err != nil {
			return result, errs.Wrap(errs.File, "orchestrator.Create", err)
		}
		return result, nil
	}

	if _, isGeneric := handler.(*generic.Handler); isGeneric {
		result.Standalone = true
		if err := os.WriteFile(opts.OutputPath, doc, 0o644); err != nil {
			return result, errs.Wrap(errs.File, "orchestrator.Create", err)
		}
		return result, nil
	}

	if err := handler.Embed(opts.InputPath, opts.OutputPath, doc, opts.PadBytes, opts.Observer); err != nil {
		return result, err
	}
	return result, nil
}

// VerifyOptions configures Verify. The reference hash checked against
// the token's <Media> element comes from exactly one of three sources,
// in precedence order: ReferenceHash (given directly on the command
// line), HashFilePath (a file holding the hash), or AudioPath
// (recomputed from the container's audio region) — mirroring
// uitsVerify's --hash/--hashfile/--audio trio.
type VerifyOptions struct {
	AudioPath     string // media file; its embedded token is extracted if present, and it is the hash-recompute source
	TokenPath     string // standalone token file, used when AudioPath carries no embedded token
	ReferenceHash string // explicit reference hash (hex or Base64), takes precedence over AudioPath
	HashFilePath  string // file containing the reference hash, takes precedence over AudioPath
	PublicKey     crypto.PublicKey
	Profile       token.Profile
	XSDPath       string
	CheckHash     bool
	Observer      *observability.StandardObserver
}

// Verify extracts the token to check — from AudioPath's embedded
// payload if given, falling back to TokenPath as a standalone document
// — resolves the reference hash from whichever of ReferenceHash,
// HashFilePath, or AudioPath was supplied, and verifies schema, hash,
// and signature in that order.
func Verify(opts VerifyOptions) (result xmltoken.VerifyResult, err error) {
	var reg *container.Registry
	var handler container.Handler
	var doc []byte

	if opts.Observer != nil && opts.Observer.DebugObserver != nil {
		source := opts.AudioPath
		if source == "" {
			source = opts.TokenPath
		}
		finish := opts.Observer.DebugObserver.StartStep("orchestrator", "Verify", source)
		defer func() { finish(err == nil, "") }()
	}

	if opts.AudioPath != "" {
		reg = NewRegistry()
		handler, err = reg.Detect(opts.AudioPath)
		if err != nil {
			return result, err
		}
		doc, err = handler.Extract(opts.AudioPath, opts.Observer)
		if err != nil {
			return result, err
		}
	}
	if doc == nil {
		if opts.TokenPath == "" {
			err = errs.New(errs.Param, "orchestrator.Verify", "no embedded token in --audio and no --uits file given")
			return result, err
		}
		doc, err = os.ReadFile(opts.TokenPath)
		if err != nil {
			err = errs.Wrap(errs.File, "orchestrator.Verify", err)
			return result, err
		}
	}

	referenceHash := opts.ReferenceHash
	if opts.CheckHash && referenceHash == "" && opts.HashFilePath != "" {
		var raw []byte
		raw, err = os.ReadFile(opts.HashFilePath)
		if err != nil {
			err = errs.Wrap(errs.File, "orchestrator.Verify", err)
			return result, err
		}
		referenceHash = strings.TrimSpace(string(raw))
	}
	if opts.CheckHash && referenceHash == "" && opts.AudioPath != "" {
		if handler == nil {
			reg = NewRegistry()
			handler, err = reg.Detect(opts.AudioPath)
			if err != nil {
				return result, err
			}
		}
		var digest []byte
		digest, err = handler.MediaHash(opts.AudioPath, opts.Observer)
		if err != nil {
			err = errs.Wrap(errs.Hash, "orchestrator.Verify", err)
			return result, err
		}
		referenceHash = hex.EncodeToString(digest)
	}
	if opts.CheckHash && referenceHash == "" {
		err = errs.New(errs.Param, "orchestrator.Verify", "hash validation requires --audio, --hash, or --hashfile")
		return result, err
	}

	result, err = xmltoken.Verify(doc, xmltoken.VerifyOptions{
		Profile:       opts.Profile,
		PublicKey:     opts.PublicKey,
		XSDPath:       opts.XSDPath,
		CheckHash:     opts.CheckHash,
		ReferenceHash: referenceHash,
	})
	return result, err
}

// Extract returns the raw, unverified token document embedded in
// path, or nil if the detected handler carries none.
func Extract(path string, obs *observability.StandardObserver) ([]byte, error) {
	reg := NewRegistry()
	handler, err := reg.Detect(path)
	if err != nil {
		return nil, err
	}
	return handler.Extract(path, obs)
}

// Hash returns the SHA-256 of path's format-specific audio region,
// independent of any embedded token, as lowercase hex or — when base64
// is set — Base64, the two <Media> encodings spec.md §3 allows.
func Hash(path string, base64 bool, obs *observability.StandardObserver) (string, error) {
	reg := NewRegistry()
	handler, err := reg.Detect(path)
	if err != nil {
		return "", err
	}
	digest, err := handler.MediaHash(path, obs)
	if err != nil {
		return "", err
	}
	if base64 {
		return cryptosurface.Base64Encode(digest, false), nil
	}
	return hex.EncodeToString(digest), nil
}

// GenKey computes the key ID for a public key file: the lowercase hex
// SHA-1 fingerprint of its DER encoding, per uitsGenKey. It does not
// generate keys — see GenerateKeyPair for that.
func GenKey(pubKeyPath string) (string, error) {
	der, err := cryptosurface.PublicKeyDER(pubKeyPath)
	if err != nil {
		return "", err
	}
	return cryptosurface.SHA1Fingerprint(der), nil
}

// KeyGenOptions configures GenerateKeyPair.
type KeyGenOptions struct {
	Algorithm      cryptosurface.Algorithm
	PrivateKeyPath string
	PublicKeyPath  string
}

// GenerateKeyPair creates a fresh key pair under opts.Algorithm and
// writes both halves to disk as PEM files. Unlike GenKey, this has no
// counterpart in the original uits_tool — it backs the standalone
// keygen utility subcommand used to produce test key material.
func GenerateKeyPair(opts KeyGenOptions) error {
	priv, pub, err := cryptosurface.GenerateKeyPair(opts.Algorithm)
	if err != nil {
		return err
	}
	if err := cryptosurface.SavePrivateKeyPEM(opts.PrivateKeyPath, priv); err != nil {
		return err
	}
	if err := cryptosurface.SavePublicKeyPEM(opts.PublicKeyPath, pub); err != nil {
		return err
	}
	return nil
}

func newDescriptor(profile token.Profile) *token.Descriptor {
	if profile.Name == token.Package.Name {
		return token.NewPackageDescriptor()
	}
	return token.NewPerTrackDescriptor()
}

func applyField(d *token.Descriptor, f FieldAssignment) error {
	if f.Attr == "" {
		return d.Set(f.Element, f.Value)
	}
	return d.SetAttr(f.Element, f.Attr, f.Value)
}

// FormatXSDPath resolves the configured schema path for profile,
// falling back to "" (schema existence check skipped) when unset.
func FormatXSDPath(xsdPaths map[string]string, profile token.Profile) string {
	return xsdPaths[profile.Name]
}
