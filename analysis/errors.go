package analysis

import (
	"errors"

	"github.com/onnwee/chatpulse/fsio"
	"github.com/onnwee/chatpulse/transcript"
	"github.com/onnwee/chatpulse/window"
)

// ErrEmptyInput marks a run that found no parseable records. Run does not
// return it; the result is an empty table. It exists so callers that insist
// on data (the HTTP API) can report the condition uniformly.
var ErrEmptyInput = errors.New("no parseable chat records")

// ErrorKind groups pipeline errors by how the run should react to them.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindMissingFile: an input or keyword path does not exist. Fatal.
	KindMissingFile
	// KindMalformedLine: one transcript line could not be parsed. Local.
	KindMalformedLine
	// KindInvalidInterval: the interval specification is unusable. Fatal.
	KindInvalidInterval
	// KindEmptyInput: nothing to count. Not an error for Run.
	KindEmptyInput
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindMissingFile:
		return "MissingFile"
	case KindMalformedLine:
		return "MalformedLine"
	case KindInvalidInterval:
		return "InvalidInterval"
	case KindEmptyInput:
		return "EmptyInput"
	default:
		return "Unknown"
	}
}

// ClassifyError maps err onto an ErrorKind by unwrapping sentinel errors.
func ClassifyError(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, fsio.ErrMissingFile):
		return KindMissingFile
	case errors.Is(err, window.ErrInvalidInterval):
		return KindInvalidInterval
	case errors.Is(err, transcript.ErrMalformedLine):
		return KindMalformedLine
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	default:
		return KindUnknown
	}
}

// IsFatal reports whether err must abort the run before any processing.
// Malformed lines and empty input are local; unknown errors are fatal.
func IsFatal(err error) bool {
	switch ClassifyError(err) {
	case KindMalformedLine, KindEmptyInput:
		return false
	default:
		return err != nil
	}
}
