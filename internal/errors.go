package internal

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the API rejects the credential
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotLoggedIn is returned when no usable credential is stored
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrTurnInFlight is returned when a send is attempted while a reply is streaming
	ErrTurnInFlight = errors.New("a reply is already streaming")
	// ErrEmptyMessage is returned for blank input
	ErrEmptyMessage = errors.New("message is empty")
)

// TransportError represents a failed round trip to the API
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError represents a non-2xx API response
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string // truncated response body
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// StreamError represents a failure while consuming a streamed reply
type StreamError struct {
	SessionID string
	Op        string // "read", "decode"
	Err       error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error [%s] %s: %v", e.SessionID, e.Op, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// AuthError represents a failure in the identity provider flow
type AuthError struct {
	Op  string // "authorize", "exchange", "refresh", "sync", "load", "save"
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// CacheError represents errors accessing the local transcript cache
type CacheError struct {
	Path string
	Op   string // "open", "read", "write", "clear"
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err means the credential must be renewed
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotLoggedIn)
}

// ErrorMessage maps err to the single generic string shown for its category.
// Raw error detail is only ever logged.
func ErrorMessage(err error) string {
	var (
		statusErr *StatusError
		streamErr *StreamError
		authErr   *AuthError
	)
	switch {
	case err == nil:
		return ""
	case IsUnauthorized(err), errors.As(err, &authErr):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, context.Canceled):
		return ""
	case errors.As(err, &streamErr):
		return "The response was interrupted. Please try again."
	case errors.As(err, &statusErr) && statusErr.StatusCode == 404:
		return "That conversation could not be found."
	default:
		return "Something went wrong talking to the assistant. Please try again."
	}
}
