// ABOUTME: Error taxonomy for the service proxy
// ABOUTME: Every failure maps to exactly one Kind with a stable wire name

package proxy

import (
	"errors"
	"fmt"
)

// Kind classifies a proxy failure. The string values are the stable names
// returned to callers in error envelopes.
type Kind string

const (
	// KindUnauthenticated: no caller identity was presented
	KindUnauthenticated Kind = "unauthenticated"
	// KindInvalidArgument: malformed request shape
	KindInvalidArgument Kind = "invalid-argument"
	// KindFailedPrecondition: the server-held credential for the capability is absent
	KindFailedPrecondition Kind = "failed-precondition"
	// KindNotFound: the upstream returned no usable payload
	KindNotFound Kind = "not-found"
	// KindInternal: upstream transport or parse failure
	KindInternal Kind = "internal"
)

// Error is a classified proxy failure. Exactly one Kind per failure; the
// proxy never retries and never returns partial results alongside an Error.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// E creates a proxy error with no underlying cause
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a proxy error around an underlying cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain. Unclassified errors are
// reported as KindInternal.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}
