// Package errs reifies the uits error taxonomy as a closed set of Kind
// values and a single wrapping error type. Every exit code a caller of
// uitsctl can observe traces back to exactly one Kind.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies which region of the system raised an error. The
// numeric values match the historical uitsError enum so that a CodedError's
// ExitCode is stable across the life of the taxonomy.
type Kind int

const (
	UITS Kind = iota + 128
	File
	Value
	Parse
	Param
	Payload
	Create
	Verify
	Extract
	Embed
	Audio
	MP4
	MP3
	FLAC
	AIFF
	WAV
	Schema
	Hash
	Signature
	SSL
)

var names = map[Kind]string{
	UITS:      "UITS",
	File:      "FILE",
	Value:     "VALUE",
	Parse:     "PARSE",
	Param:     "PARAM",
	Payload:   "PAYLOAD",
	Create:    "CREATE",
	Verify:    "VERIFY",
	Extract:   "EXTRACT",
	Embed:     "EMBED",
	Audio:     "AUDIO",
	MP4:       "MP4",
	MP3:       "MP3",
	FLAC:      "FLAC",
	AIFF:      "AIFF",
	WAV:       "WAV",
	Schema:    "SCHEMA",
	Hash:      "HASH",
	Signature: "SIG",
	SSL:       "SSL",
}

var descriptions = map[Kind]string{
	UITS:      "generic uits error",
	File:      "error opening, reading, or seeking a file",
	Value:     "invalid value",
	Parse:     "error parsing a command-line option",
	Param:     "missing command-line parameter",
	Payload:   "error in the payload manager",
	Create:    "error creating a payload",
	Verify:    "error verifying a payload",
	Extract:   "error extracting a payload",
	Embed:     "error embedding a payload",
	Audio:     "error in the audio file manager",
	MP4:       "error in the MP4 manager",
	MP3:       "error in the MP3 manager",
	FLAC:      "error in the FLAC manager",
	AIFF:      "error in the AIFF manager",
	WAV:       "error in the WAV file manager",
	Schema:    "error validating the schema against the payload XML",
	Hash:      "error verifying the media hash",
	Signature: "error verifying the signature",
	SSL:       "error in the cryptographic surface",
}

// String returns the taxonomy name, e.g. "MP3" for Kind MP3.
func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "UNKNOWN"
}

// Description returns the one-line description shown by `uitsctl errors`.
func (k Kind) Description() string {
	if d, ok := descriptions[k]; ok {
		return d
	}
	return "unrecognized error kind"
}

// ExitCode returns the process exit status associated with a Kind. It is
// simply the Kind's numeric value, mirroring the original 128+ enum.
func (k Kind) ExitCode() int {
	return int(k)
}

// All returns every Kind in ascending, stable order — used to render the
// `uitsctl errors` taxonomy listing.
func All() []Kind {
	kinds := make([]Kind, 0, len(names))
	for k := UITS; k <= SSL; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// CodedError pairs a Kind with a message and an optional wrapped cause.
// It implements error and supports errors.Is/As via Unwrap.
type CodedError struct {
	Kind    Kind
	Op      string // operation or component that raised the error, e.g. "mp3.Embed"
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	prefix := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.Message != "" {
		prefix = fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	}
	return prefix
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New builds a CodedError with no wrapped cause.
func New(kind Kind, op, message string) *CodedError {
	return &CodedError{Kind: kind, Op: op, Message: message}
}

// Wrap builds a CodedError around cause, tagging it with kind and op.
// Wrap(kind, op, nil) returns a nil *CodedError; once converted to the
// error interface that value is not == nil.
func Wrap(kind Kind, op string, cause error) *CodedError {
	if cause == nil {
		return nil
	}
	return &CodedError{Kind: kind, Op: op, Cause: cause}
}

// ExitCode extracts the exit code for err: the Kind of the first
// CodedError found by unwrapping, or errs.UITS's code if err is a
// plain, uncoded error. A nil err yields exit code 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Kind.ExitCode()
	}
	return UITS.ExitCode()
}
