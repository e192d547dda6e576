package auth

import (
	"context"
	"sync"

	"github.com/joao-cainglet/fss-va-2025/internal"
)

// StaticCredentials serves a fixed development token. Clearing it only
// disables it for the rest of the process.
type StaticCredentials struct {
	mu      sync.Mutex
	token   string
	cleared bool
}

// NewStaticCredentials wraps token
func NewStaticCredentials(token string) *StaticCredentials {
	return &StaticCredentials{token: token}
}

func (s *StaticCredentials) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleared || s.token == "" {
		return "", internal.ErrNotLoggedIn
	}
	return s.token, nil
}

func (s *StaticCredentials) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = true
	return nil
}
