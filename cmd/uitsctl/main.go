// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/protocol7/uits-go/internal/config"
	"github.com/protocol7/uits-go/internal/cryptosurface"
	"github.com/protocol7/uits-go/internal/errs"
	"github.com/protocol7/uits-go/internal/help"
	"github.com/protocol7/uits-go/internal/observability"
	"github.com/protocol7/uits-go/internal/orchestrator"
	"github.com/protocol7/uits-go/internal/token"
	"github.com/protocol7/uits-go/internal/version"
)

// globalFlags holds the options every subcommand's FlagSet registers,
// mirroring the teacher's per-subcommand configFlags/finalConfiguration
// split: register once, resolve once.
type globalFlags struct {
	verbose    bool
	debug      bool
	silent     bool
	noColor    bool
	xsdPath    string
	configFile string
}

func registerGlobalFlags(fs *flag.FlagSet, g *globalFlags) {
	fs.BoolVar(&g.verbose, "verbose", false, "Enable verbose step-by-step logging")
	fs.BoolVar(&g.verbose, "v", false, "Enable verbose step-by-step logging (shorthand)")
	fs.BoolVar(&g.debug, "debug", false, "Enable debug-level tracing of every component")
	fs.BoolVar(&g.debug, "w", false, "Enable debug-level tracing (shorthand)")
	fs.BoolVar(&g.silent, "silent", false, "Suppress all non-error output")
	fs.BoolVar(&g.silent, "s", false, "Suppress all non-error output (shorthand)")
	fs.StringVar(&g.xsdPath, "xsd", "", "Override the schema file used for validation")
	fs.StringVar(&g.xsdPath, "x", "", "Override the schema file (shorthand)")
	fs.StringVar(&g.configFile, "config", "", "Path to a uitsctl YAML defaults file")
	fs.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
}

func (g *globalFlags) observer() *observability.StandardObserver {
	level := observability.ObservabilityOff
	if g.verbose {
		level = observability.ObservabilityMetrics
	}
	if g.debug {
		level = observability.ObservabilityDebug
	}
	return observability.NewStandardObserver(level, os.Stderr)
}

func wantColor(noColor bool) bool {
	if noColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		help.NewSystem(!wantColor(false)).ShowGeneralHelp()
		return 1
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "create":
		return runCreate(rest)
	case "verify":
		return runVerify(rest)
	case "extract":
		return runExtract(rest)
	case "hash":
		return runHash(rest)
	case "key":
		return runKey(rest)
	case "keygen":
		return runKeygen(rest)
	case "errors":
		return runErrors(rest)
	case "version":
		fmt.Println(version.Info())
		return 0
	case "help", "-h", "--help":
		return runHelp(rest)
	default:
		fmt.Fprintf(os.Stderr, "uitsctl: unknown command %q\n\n", cmd)
		help.NewSystem(!wantColor(false)).ShowGeneralHelp()
		return int(errs.Param)
	}
}

func runHelp(args []string) int {
	fs := flag.NewFlagSet("help", flag.ContinueOnError)
	var g globalFlags
	registerGlobalFlags(fs, &g)
	if err := fs.Parse(args); err != nil {
		return int(errs.Parse)
	}
	help.NewSystem(!wantColor(g.noColor)).ShowGeneralHelp()
	return 0
}

func runErrors(args []string) int {
	fs := flag.NewFlagSet("errors", flag.ContinueOnError)
	var g globalFlags
	registerGlobalFlags(fs, &g)
	if err := fs.Parse(args); err != nil {
		return int(errs.Parse)
	}
	help.NewSystem(!wantColor(g.noColor)).ShowErrorTaxonomy()
	return 0
}

func profileFromName(name string) (token.Profile, error) {
	switch strings.ToLower(name) {
	case "", "pertrack", "uits":
		return token.PerTrack, nil
	case "package", "cmeuits":
		return token.Package, nil
	default:
		return token.Profile{}, errs.New(errs.Param, "main.profileFromName", "unknown profile "+name)
	}
}

func algorithmFromName(name, fallback string) (cryptosurface.Algorithm, error) {
	val := name
	if val == "" {
		val = fallback
	}
	switch strings.ToUpper(val) {
	case "RSA2048":
		return cryptosurface.RSA2048, nil
	case "DSA2048":
		return cryptosurface.DSA2048, nil
	default:
		return "", errs.New(errs.Param, "main.algorithmFromName", "unsupported algorithm "+val)
	}
}

// fieldFlags accumulates repeated -set element=value or
// -set element.attr=value assignments.
type fieldFlags struct {
	assignments []orchestrator.FieldAssignment
}

func (f *fieldFlags) String() string { return "" }

func (f *fieldFlags) Set(raw string) error {
	eq := strings.IndexByte(raw, '=')
	if eq < 0 {
		return errs.New(errs.Parse, "main.fieldFlags.Set", "expected element=value, got "+raw)
	}
	key, value := raw[:eq], raw[eq+1:]
	element, attr, _ := strings.Cut(key, ".")
	f.assignments = append(f.assignments, orchestrator.FieldAssignment{
		Element: element,
		Attr:    attr,
		Value:   value,
	})
	return nil
}

func runCreate(args []string) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	var g globalFlags
	registerGlobalFlags(fs, &g)

	input := fs.String("input", "", "Media file to embed the token into")
	output := fs.String("output", "", "Destination path (embedded file, or standalone token when --input is unset)")
	profileName := fs.String("profile", "pertrack", "Token profile: pertrack or package")
	keyPath := fs.String("key", "", "Path to the signer's private key")
	keyID := fs.String("key-id", "", "Key identifier recorded in the <signature> element")
	algoName := fs.String("algorithm", "", "Signature algorithm: RSA2048 or DSA2048")
	multiline := fs.Bool("multiline", true, "Wrap the Base64-encoded signature at 64 characters")
	padBytes := fs.Int("pad", 0, "Zero-pad bytes appended after the embedded frame (MP3 only)")
	var fields fieldFlags
	fs.Var(&fields, "set", "Assign a token field, element=value or element.attr=value (repeatable)")

	if err := fs.Parse(args); err != nil {
		return int(errs.Parse)
	}

	cfg := config.LoadConfigOrDefault(g.configFile)
	profile, err := profileFromName(*profileName)
	if err != nil {
		return fail(err)
	}
	algoStr := *algoName
	if algoStr == "" {
		algoStr = cfg.Defaults.Algorithm
	}
	algorithm, err := algorithmFromName(algoStr, "RSA2048")
	if err != nil {
		return fail(err)
	}
	if *keyPath == "" {
		return fail(errs.New(errs.Param, "main.runCreate", "--key is required"))
	}
	keyFile := *keyPath
	if p, ok := cfg.KeyPath(keyFile); ok {
		keyFile = p
	}
	priv, err := cryptosurface.LoadPrivateKey(keyFile, algorithm)
	if err != nil {
		return fail(err)
	}
	pad := *padBytes
	if pad == 0 {
		pad = cfg.Defaults.PadBytes
	}

	result, err := orchestrator.Create(orchestrator.CreateOptions{
		InputPath:  *input,
		OutputPath: *output,
		Profile:    profile,
		Fields:     fields.assignments,
		PrivateKey: priv,
		Algorithm:  algorithm,
		KeyID:      *keyID,
		Multiline:  *multiline,
		PadBytes:   pad,
		Observer:   g.observer(),
	})
	if err != nil {
		return fail(err)
	}
	if !g.silent {
		if result.Standalone {
			fmt.Printf("wrote standalone token to %s\n", *output)
		} else {
			fmt.Printf("embedded token into %s (media hash %s)\n", *output, result.MediaHash)
		}
	}
	return 0
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	var g globalFlags
	registerGlobalFlags(fs, &g)

	audio := fs.String("audio", "", "Audio file to verify; its embedded token is extracted")
	uitsPath := fs.String("uits", "", "Standalone token file to verify, when no embedded audio is given")
	pubKeyPath := fs.String("public-key", "", "Path to the signer's public key")
	algoName := fs.String("algorithm", "", "Signature algorithm: RSA2048 or DSA2048")
	profileName := fs.String("profile", "pertrack", "Token profile: pertrack or package")
	skipHash := fs.Bool("skip-hash", false, "Skip media-hash comparison")
	refHash := fs.String("hash", "", "Reference media hash to compare against, instead of recomputing from --audio")
	hashFile := fs.String("hashfile", "", "File containing the reference media hash to compare against")
	fs.StringVar(hashFile, "f", "", "File containing the reference media hash (shorthand)")

	if err := fs.Parse(args); err != nil {
		return int(errs.Parse)
	}

	cfg := config.LoadConfigOrDefault(g.configFile)
	profile, err := profileFromName(*profileName)
	if err != nil {
		return fail(err)
	}
	algoStr := *algoName
	if algoStr == "" {
		algoStr = cfg.Defaults.Algorithm
	}
	algorithm, err := algorithmFromName(algoStr, "RSA2048")
	if err != nil {
		return fail(err)
	}
	if *pubKeyPath == "" {
		return fail(errs.New(errs.Param, "main.runVerify", "--public-key is required"))
	}
	pub, err := cryptosurface.LoadPublicKey(*pubKeyPath, algorithm)
	if err != nil {
		return fail(err)
	}
	if *audio == "" && *uitsPath == "" {
		return fail(errs.New(errs.Param, "main.runVerify", "--audio or --uits is required"))
	}
	xsdPath := g.xsdPath
	if xsdPath == "" {
		xsdPath = cfg.XSDPathFor(profile.Name)
	}

	result, err := orchestrator.Verify(orchestrator.VerifyOptions{
		AudioPath:     *audio,
		TokenPath:     *uitsPath,
		ReferenceHash: *refHash,
		HashFilePath:  *hashFile,
		PublicKey:     pub,
		Profile:       profile,
		XSDPath:       xsdPath,
		CheckHash:     !*skipHash,
		Observer:      g.observer(),
	})
	if err != nil {
		return fail(err)
	}
	if !g.silent {
		fmt.Println("OK")
		if result.HashWarning != "" {
			fmt.Fprintf(os.Stderr, "warning: %s\n", result.HashWarning)
		}
	}
	return 0
}

func runExtract(args []string) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	var g globalFlags
	registerGlobalFlags(fs, &g)
	input := fs.String("input", "", "File to extract the embedded token from")
	output := fs.String("output", "", "Destination for the extracted token; stdout if unset")

	if err := fs.Parse(args); err != nil {
		return int(errs.Parse)
	}

	doc, err := orchestrator.Extract(*input, g.observer())
	if err != nil {
		return fail(err)
	}
	if doc == nil {
		return fail(errs.New(errs.Extract, "main.runExtract", "no embedded token found"))
	}
	if *output == "" {
		os.Stdout.Write(doc)
		return 0
	}
	if err := os.WriteFile(*output, doc, 0o644); err != nil {
		return fail(errs.Wrap(errs.File, "main.runExtract", err))
	}
	return 0
}

func runHash(args []string) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	var g globalFlags
	registerGlobalFlags(fs, &g)
	input := fs.String("input", "", "File to hash")
	b64 := fs.Bool("b64", false, "Base64-encode the media hash (default is hex)")
	fs.BoolVar(b64, "c", false, "Base64-encode the media hash (shorthand)")
	output := fs.String("output", "", "Output file to write the hash to (default stdout)")

	if err := fs.Parse(args); err != nil {
		return int(errs.Parse)
	}

	digest, err := orchestrator.Hash(*input, *b64, g.observer())
	if err != nil {
		return fail(err)
	}
	if *output == "" {
		fmt.Println(digest)
		return 0
	}
	if err := os.WriteFile(*output, []byte(digest), 0o644); err != nil {
		return fail(errs.Wrap(errs.File, "main.runHash", err))
	}
	if !g.silent {
		fmt.Printf("wrote hash to %s\n", *output)
	}
	return 0
}

// runKey implements GenKey: the key ID for a public key file is the
// hex SHA-1 fingerprint of its DER encoding, not a freshly generated
// key pair. See runKeygen for key-pair generation.
func runKey(args []string) int {
	fs := flag.NewFlagSet("key", flag.ContinueOnError)
	var g globalFlags
	registerGlobalFlags(fs, &g)
	pubPath := fs.String("pub", "", "Name of the file containing the public key")
	output := fs.String("output", "", "Output file to write the key ID to (default stdout)")

	if err := fs.Parse(args); err != nil {
		return int(errs.Parse)
	}
	if *pubPath == "" {
		return fail(errs.New(errs.Param, "main.runKey", "--pub is required"))
	}

	keyID, err := orchestrator.GenKey(*pubPath)
	if err != nil {
		return fail(err)
	}
	if *output == "" {
		fmt.Println(keyID)
		return 0
	}
	if err := os.WriteFile(*output, []byte(keyID), 0o644); err != nil {
		return fail(errs.Wrap(errs.File, "main.runKey", err))
	}
	if !g.silent {
		fmt.Printf("wrote key ID to %s\n", *output)
	}
	return 0
}

// runKeygen generates a fresh key pair. It has no counterpart in the
// original uits_tool's command set; it exists so test keys can be
// produced without an external openssl dependency.
func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	var g globalFlags
	registerGlobalFlags(fs, &g)
	algoName := fs.String("algorithm", "RSA2048", "Signature algorithm: RSA2048 or DSA2048")
	outPriv := fs.String("out-private", "", "Destination for the generated private key")
	outPub := fs.String("out-public", "", "Destination for the generated public key")

	if err := fs.Parse(args); err != nil {
		return int(errs.Parse)
	}

	algorithm, err := algorithmFromName(*algoName, "RSA2048")
	if err != nil {
		return fail(err)
	}
	if *outPriv == "" || *outPub == "" {
		return fail(errs.New(errs.Param, "main.runKeygen", "--out-private and --out-public are required"))
	}

	if err := orchestrator.GenerateKeyPair(orchestrator.KeyGenOptions{
		Algorithm:      algorithm,
		PrivateKeyPath: *outPriv,
		PublicKeyPath:  *outPub,
	}); err != nil {
		return fail(err)
	}
	if !g.silent {
		fmt.Printf("wrote %s and %s\n", *outPriv, *outPub)
	}
	return 0
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "uitsctl: %v\n", err)
	return errs.ExitCode(err)
}
