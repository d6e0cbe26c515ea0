// Package porerr defines the closed error-kind enum for the PoR engine.
//
// Grounded on original_source/src/error.rs (NovaPoRError, built with
// thiserror): the teacher repo never needed a typed error enum (its own
// functions return bare wrapped errors), but the original Rust
// implementation this spec was distilled from does, and spec.md §7 requires
// one. Error.Kind gives callers the same dispatchable surface thiserror's
// enum gives Rust callers, while Error itself still composes with
// fmt.Errorf's %w the way every other teacher package does.
package porerr

import "fmt"

// Kind identifies one of the closed set of error categories from spec.md §7.
type Kind int

const (
	InvalidInput Kind = iota
	EmptyData
	TooManyFiles
	FileNotFound
	FileNotInLedger
	ChallengeMismatch
	InvalidChallengeCount
	InvalidChunkSize
	MetadataMismatch
	ErasureCoding
	LedgerValidation
	Cryptographic
	Serialization
	IO
	IndexOutOfBounds
	InvalidChunkEncoding
	Snark
	MerkleTree
	Circuit
)

var kindNames = map[Kind]string{
	InvalidInput:          "invalid input",
	EmptyData:             "empty data",
	TooManyFiles:          "too many files",
	FileNotFound:          "file not found",
	FileNotInLedger:       "file not in ledger",
	ChallengeMismatch:     "challenge mismatch",
	InvalidChallengeCount: "invalid challenge count",
	InvalidChunkSize:      "invalid chunk size",
	MetadataMismatch:      "metadata mismatch",
	ErasureCoding:         "erasure coding error",
	LedgerValidation:      "ledger validation failed",
	Cryptographic:         "cryptographic error",
	Serialization:         "serialization error",
	IO:                    "io error",
	IndexOutOfBounds:      "index out of bounds",
	InvalidChunkEncoding:  "invalid chunk encoding",
	Snark:                 "snark error",
	MerkleTree:            "merkle tree error",
	Circuit:               "circuit error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown error"
}

// Error is the single error type surfaced by every exported PoR operation.
// It carries a Kind for programmatic dispatch plus a human message, and
// optionally wraps an underlying cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, porerr.New(porerr.FileNotInLedger, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an Error with no underlying cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error carrying an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}
