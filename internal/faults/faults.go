// Package faults classifies the failures the attestation tooling can hit so
// the CLI can report a stable category and operators can tell coordination
// problems apart from on-chain rejections.
package faults

import (
	"errors"
	"fmt"
)

// Category identifies a failure class. Local categories (everything up to
// InsufficientQuorum) are fail-fast and never retried; LedgerRejection is
// terminal for the invocation but safe to retry after the cause is fixed.
type Category string

const (
	// Validation covers malformed inputs caught before any I/O.
	Validation Category = "validation"
	// Authorization means the derived signer address is not an ODDAO member.
	Authorization Category = "authorization"
	// Precondition means the release is in the wrong state for the requested
	// operation (e.g. revoking a release that was never published).
	Precondition Category = "precondition"
	// NoAttestations means the store holds nothing for the current nonce.
	NoAttestations Category = "no_attestations"
	// Consistency means artifacts for the same nonce disagree on signed fields.
	Consistency Category = "consistency"
	// InsufficientQuorum means fewer unique signers than the threshold.
	InsufficientQuorum Category = "insufficient_quorum"
	// LedgerRejection surfaces an on-chain revert or failed transaction.
	LedgerRejection Category = "ledger_rejection"
	// PostconditionFailed means the transaction succeeded but the resulting
	// on-chain state does not match what was signed.
	PostconditionFailed Category = "postcondition_failed"
)

// Error attaches a Category to an underlying error.
type Error struct {
	Cat Category
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Cat, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error from a format string.
func New(cat Category, format string, args ...any) error {
	return &Error{Cat: cat, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. Returns nil if err is nil.
func Wrap(cat Category, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Cat: cat, Err: err}
}

// CategoryOf extracts the classification from an error chain. The second
// return is false for unclassified errors.
func CategoryOf(err error) (Category, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Cat, true
	}
	return "", false
}

// Is reports whether err carries the given category.
func Is(err error, cat Category) bool {
	got, ok := CategoryOf(err)
	return ok && got == cat
}
