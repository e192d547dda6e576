package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorTypes_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{"transport", &TransportError{Method: "GET", Path: "/sessions", Err: cause}, []string{"transport error", "GET /sessions"}},
		{"stream", &StreamError{SessionID: "s1", Op: "read", Err: cause}, []string{"stream error", "[s1]", "read"}},
		{"auth", &AuthError{Op: "refresh", Err: cause}, []string{"auth error", "refresh"}},
		{"cache", &CacheError{Path: "/tmp/x.db", Op: "open", Err: cause}, []string{"cache error", "/tmp/x.db"}},
		{"export", &ExportError{Format: "md", Path: "out.md", Err: cause}, []string{"export error", "[md]", "out.md"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range append(tt.contains, "boom") {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
			if !errors.Is(tt.err, cause) {
				t.Error("errors.Is() should find the wrapped cause")
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Method: "POST", Path: "/sessions", StatusCode: 500}
	if got := err.Error(); got != "POST /sessions: unexpected status 500" {
		t.Errorf("Error() = %q", got)
	}
	err.Body = `{"detail":"db down"}`
	if !strings.HasSuffix(err.Error(), `: {"detail":"db down"}`) {
		t.Errorf("Error() = %q, want body suffix", err.Error())
	}
}

func TestIsUnauthorized(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrUnauthorized, true},
		{fmt.Errorf("GET /sessions: %w", ErrUnauthorized), true},
		{ErrNotLoggedIn, true},
		{&AuthError{Op: "load", Err: ErrNotLoggedIn}, true},
		{&StatusError{StatusCode: 403}, false},
		{errors.New("other"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsUnauthorized(tt.err); got != tt.want {
			t.Errorf("IsUnauthorized(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	const generic = "Something went wrong talking to the assistant. Please try again."
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"cancelled", fmt.Errorf("turn: %w", context.Canceled), ""},
		{"unauthorized", fmt.Errorf("x: %w", ErrUnauthorized), "Your session has expired. Please sign in again."},
		{"auth flow", &AuthError{Op: "exchange", Err: errors.New("bad code")}, "Your session has expired. Please sign in again."},
		{"stream", &StreamError{SessionID: "s", Op: "read", Err: errors.New("reset")}, "The response was interrupted. Please try again."},
		{"not found", &StatusError{StatusCode: 404, Body: "secret detail"}, "That conversation could not be found."},
		{"server error", &StatusError{StatusCode: 500, Body: "secret detail"}, generic},
		{"transport", &TransportError{Err: errors.New("dial tcp: refused")}, generic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorMessage(tt.err)
			if got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
			if strings.Contains(got, "secret") || strings.Contains(got, "refused") {
				t.Errorf("ErrorMessage() leaked detail: %q", got)
			}
		})
	}
}
