package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind int

const (
	KindUnknown Kind = iota

	// KindValidation — malformed input (lengths, zero amounts, bad splits).
	KindValidation

	// KindAuthorization — caller is not admin/creator/winner.
	KindAuthorization

	// KindState — operation attempted in the wrong lifecycle state
	// (already graduated, already finalized, already claimed, ...).
	KindState

	// KindInsufficiency — payment below required cost, or custody below payout.
	KindInsufficiency

	// KindInvariant — the LP-value check failed. Unreachable under correct
	// trade math; indicates a composition bug, not user error.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindInsufficiency:
		return "insufficiency"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is the typed rejection every mutating operation returns.
// Callers must inspect and propagate; an error means no state changed.
type Error struct {
	Kind Kind
	Op   string // operation that rejected, e.g. "engine.Buy"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a typed error with a formatted message.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches kind and op to an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsFatal reports whether the error indicates a composition bug rather
// than a rejected user operation.
func IsFatal(err error) bool {
	return KindOf(err) == KindInvariant
}
