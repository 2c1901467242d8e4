// Package errors provides the error types shared by the passcheck
// evaluator and its HTTP boundary.
//
// Every error that reaches the boundary is reduced to a Kind, which picks
// the HTTP status, and a message, which becomes the {"error": ...} body.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// Base Error Types
// =============================================================================

// Error is the base error type for all passcheck errors.
type Error struct {
	// Kind indicates the category of error
	Kind Kind

	// Op is the operation being performed (e.g., "server.handleCheck")
	Op string

	// Message is a human-readable description
	Message string

	// Err is the underlying error
	Err error
}

// Kind represents the kind/category of error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindMethodNotAllowed
	KindPayloadTooLarge
	KindUnsupportedMediaType
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindUnsupportedMediaType:
		return "unsupported_media_type"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// HTTPStatus returns the status code a boundary should answer with.
// Unknown kinds are treated as internal failures.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// =============================================================================
// API Error
// =============================================================================

// APIError is the JSON body written for every failed request.
type APIError struct {
	// StatusCode is the HTTP status code
	StatusCode int `json:"-"`

	// Message is the client-facing error text
	Message string `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", http.StatusText(e.StatusCode), e.Message)
}

// ToAPIError reduces any error to the body and status a client sees.
//
// The status comes from the first Kind set along the chain and the message
// from the first non-empty Message. Errors outside this package become 500
// with their own text.
func ToAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr
	}

	msg := ""
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if e, ok := cur.(*Error); ok && e.Message != "" {
			msg = e.Message
			break
		}
	}
	if msg == "" {
		msg = err.Error()
	}
	return &APIError{StatusCode: GetKind(err).HTTPStatus(), Message: msg}
}

// =============================================================================
// Constructors
// =============================================================================

// E constructs an Error from the given arguments.
// Arguments can be: Kind, string (Op or Message), error.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	return e
}

// Wrap wraps an error with additional context.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Internal wraps an unexpected failure. The message shown to clients is
// the underlying error text.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindInternal, Op: op, Message: err.Error(), Err: err}
}

// =============================================================================
// Error Checkers
// =============================================================================

// GetKind returns the first Kind set along the error chain, or KindUnknown.
func GetKind(err error) Kind {
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if e, ok := cur.(*Error); ok && e.Kind != KindUnknown {
			return e.Kind
		}
	}
	return KindUnknown
}

// IsAPIError checks if err is an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsInternal checks if the error is an unexpected internal failure.
// Errors without a kind count as internal, matching Kind.HTTPStatus.
func IsInternal(err error) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	kind := GetKind(err)
	return kind == KindInternal || kind == KindUnknown
}

// =============================================================================
// Common Errors
// =============================================================================

var (
	// ErrPasswordRequired is returned when the request has no password
	// left after trimming whitespace.
	ErrPasswordRequired = &Error{Kind: KindInvalidInput, Message: "Password is required"}

	// ErrPayloadTooLarge is returned when the request body exceeds the
	// configured limit.
	ErrPayloadTooLarge = &Error{Kind: KindPayloadTooLarge, Message: "Request body too large"}

	// ErrUnsupportedEncoding is returned when the request body uses a
	// Content-Encoding the server cannot decode.
	ErrUnsupportedEncoding = &Error{Kind: KindUnsupportedMediaType, Message: "Unsupported content encoding"}

	// ErrNotFound is returned for unknown routes.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "Not found"}

	// ErrMethodNotAllowed is returned when a route exists but not for the
	// request method.
	ErrMethodNotAllowed = &Error{Kind: KindMethodNotAllowed, Message: "Method not allowed"}

	// ErrInvalidConfig is returned for invalid configuration.
	ErrInvalidConfig = &Error{Kind: KindInvalidInput, Message: "invalid configuration"}
)
