// Package apierr defines the error taxonomy shared by the provider clients
// and the tool layer. Every failure a client can produce carries a Kind tag
// so callers can classify it without string matching.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the result envelope.
type Kind string

const (
	// KindConfig is a missing or invalid credential, fatal at construction.
	KindConfig Kind = "configuration"
	// KindAuth is an HTTP 401 from a provider.
	KindAuth Kind = "authentication"
	// KindForbidden is an HTTP 403 from a provider.
	KindForbidden Kind = "authorization"
	// KindRateLimit is an HTTP 429 from a provider. No retry is attempted.
	KindRateLimit Kind = "rate_limit"
	// KindTransport is a connectivity failure (no response at all).
	KindTransport Kind = "transport"
	// KindProvider is any other non-2xx status; Details carries the raw body.
	KindProvider Kind = "provider"
	// KindShape is a 2xx response whose JSON does not match the expected schema.
	KindShape Kind = "shape"
	// KindArgument is malformed user input at the command surface.
	KindArgument Kind = "argument"
	// KindUnexpected covers any other failure.
	KindUnexpected Kind = "unexpected"
)

// Error is a classified failure. It is the only error type the provider
// clients return.
type Error struct {
	Kind    Kind
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetails returns a copy of e carrying diagnostic detail text.
func (e *Error) WithDetails(details string) *Error {
	out := *e
	out.Details = details
	return &out
}

// KindOf extracts the Kind from err, unwrapping as needed. Errors that are
// not *Error report KindUnexpected.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}

// MessageOf returns the bare message of a classified error, or err.Error()
// for anything else.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

// DetailsOf returns the diagnostic detail of a classified error, if any.
func DetailsOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Details
	}
	return ""
}
