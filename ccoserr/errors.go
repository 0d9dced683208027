// Package ccoserr defines the error taxonomy shared across CCOS components
// (spec §7). Errors carry a Kind so callers can branch on failure class
// without parsing messages or doing type assertions per package.
package ccoserr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into the taxonomy every subsystem shares.
type Kind string

const (
	KindParseError           Kind = "ParseError"
	KindSchemaError          Kind = "SchemaError"
	KindUnknownCapability    Kind = "UnknownCapability"
	KindExportMissing        Kind = "ExportMissing"
	KindModuleNotFound       Kind = "ModuleNotFound"
	KindPermissionDenied     Kind = "PermissionDenied"
	KindSecurityViolation    Kind = "SecurityViolation"
	KindTimeout              Kind = "Timeout"
	KindResourceLimitExceeded Kind = "ResourceLimitExceeded"
	KindProviderError        Kind = "ProviderError"
	KindCycleDetected        Kind = "CycleDetected"
	KindConflict             Kind = "Conflict"
	KindIntegrityError       Kind = "IntegrityError"
	KindCancelled            Kind = "Cancelled"
	KindInternalError        Kind = "InternalError"
)

// Error is the concrete error type threaded through CCOS. It wraps an
// underlying cause (if any) and tags it with a Kind so `errors.As` callers
// can branch on failure class.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Reasons carries structured detail for kinds like PermissionDenied where
	// the caller (and the audit trail) wants more than a string.
	Reasons []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithReasons attaches structured reasons (e.g. denied isolation rules) and
// returns the same *Error for chaining at the call site.
func (e *Error) WithReasons(reasons ...string) *Error {
	e.Reasons = append(e.Reasons, reasons...)
	return e
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error, otherwise reports KindInternalError.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalError
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the error kind is one the spec allows an
// automatic retry for idempotent operations (ProviderError only, per §7).
func Retryable(err error) bool {
	return KindOf(err) == KindProviderError
}
