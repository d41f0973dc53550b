// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package help renders uitsctl's general usage text and its error
// taxonomy listing, in the teacher's tabwriter-plus-color style.
package help

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/protocol7/uits-go/internal/errs"
)

// System renders help and diagnostic text with optional colorization.
type System struct {
	noColor bool
	colors  map[string]*color.Color
}

// NewSystem creates a help system. When noColor is true, all output is
// plain text regardless of terminal capability.
func NewSystem(noColor bool) *System {
	if noColor {
		color.NoColor = true
	}
	return &System{
		noColor: noColor,
		colors: map[string]*color.Color{
			"title":   color.New(color.FgWhite, color.Bold),
			"header":  color.New(color.FgBlue, color.Bold),
			"item":    color.New(color.FgCyan),
			"warning": color.New(color.FgYellow),
		},
	}
}

// ShowGeneralHelp writes the top-level usage summary for uitsctl.
func (h *System) ShowGeneralHelp() {
	h.writeGeneralHelp(os.Stdout)
}

func (h *System) writeGeneralHelp(w io.Writer) {
	h.colors["title"].Fprintln(w, "uitsctl - UITS proof-of-purchase token tool")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w)

	h.colors["header"].Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  uitsctl <command> [options]")
	fmt.Fprintln(w)

	h.colors["header"].Fprintln(w, "COMMANDS:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  create\tBuild and sign a token, standalone or embedded in a media file")
	fmt.Fprintln(tw, "  verify\tVerify a token's signature, schema, and media hash")
	fmt.Fprintln(tw, "  extract\tExtract an embedded token from a container without verifying it")
	fmt.Fprintln(tw, "  hash\tCompute the media-hash region of a container without touching any token")
	fmt.Fprintln(tw, "  key\tGenerate a key ID (SHA-1 fingerprint) for a public key file")
	fmt.Fprintln(tw, "  keygen\tGenerate an RSA2048 or DSA2048 key pair")
	fmt.Fprintln(tw, "  errors\tList the exit-code taxonomy")
	fmt.Fprintln(tw, "  version\tPrint the uitsctl version")
	fmt.Fprintln(tw, "  help\tShow this text")
	tw.Flush()
	fmt.Fprintln(w)

	h.colors["header"].Fprintln(w, "GLOBAL OPTIONS:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  -v, --verbose\t\tEnable verbose step-by-step logging")
	fmt.Fprintln(tw, "  -w, --debug\t\tEnable debug-level tracing of every component")
	fmt.Fprintln(tw, "  -s, --silent\t\tSuppress all non-error output")
	fmt.Fprintln(tw, "  -x, --xsd\t<path>\tOverride the schema file used for validation")
	fmt.Fprintln(tw, "  --config\t<path>\tPath to a uitsctl YAML defaults file")
	fmt.Fprintln(tw, "  --no-color\t\tDisable colored output")
	tw.Flush()
	fmt.Fprintln(w)

	h.colors["header"].Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  uitsctl create --profile pertrack --set nonce=N1 --set Distributor=D --set ProductID=P \\")
	fmt.Fprintln(w, "      --set AssetID=A --set TID=T1 --algorithm RSA2048 --key k.priv --key-id KID \\")
	fmt.Fprintln(w, "      --input track.mp3 --output track.signed.mp3")
	fmt.Fprintln(w, "  uitsctl verify --audio track.signed.mp3 --public-key k.pub")
	fmt.Fprintln(w, "  uitsctl verify --uits track.xml --hash <hex> --public-key k.pub")
	fmt.Fprintln(w, "  uitsctl extract --input track.signed.mp3")
	fmt.Fprintln(w, "  uitsctl hash --input track.mp3 --b64")
	fmt.Fprintln(w, "  uitsctl key --pub k.pub")
	fmt.Fprintln(w, "  uitsctl keygen --algorithm RSA2048 --out-private k.priv --out-public k.pub")
}

// ShowErrorTaxonomy lists every errs.Kind, its numeric exit code, and
// its description, in taxonomy order.
func (h *System) ShowErrorTaxonomy() {
	h.writeErrorTaxonomy(os.Stdout)
}

func (h *System) writeErrorTaxonomy(w io.Writer) {
	h.colors["title"].Fprintln(w, "uitsctl exit-code taxonomy")
	fmt.Fprintln(w, "==========================")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tKIND\tDESCRIPTION")
	for _, kind := range errs.All() {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", kind.ExitCode(), kind, kind.Description())
	}
	tw.Flush()
}
