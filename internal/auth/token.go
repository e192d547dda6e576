package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joao-cainglet/fss-va-2025/internal"
	"golang.org/x/oauth2"
)

// StoredToken is the on-disk form of a credential
type StoredToken struct {
	oauth2.Token
	IDToken string `json:"id_token,omitempty"`
}

// Bearer returns the value to send as the bearer credential
func (t *StoredToken) Bearer() string {
	if t.AccessToken != "" {
		return t.AccessToken
	}
	return t.IDToken
}

// TokenStore persists a single token as JSON with owner-only permissions
type TokenStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenStore creates a store backed by path
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the backing file path
func (s *TokenStore) Path() string {
	return s.path
}

// Load returns the stored token, or internal.ErrNotLoggedIn if none exists
func (s *TokenStore) Load() (*StoredToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, internal.ErrNotLoggedIn
	}
	if err != nil {
		return nil, &internal.AuthError{Op: "load", Err: err}
	}

	var tok StoredToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, &internal.AuthError{Op: "load", Err: fmt.Errorf("parse %s: %w", s.path, err)}
	}
	return &tok, nil
}

// Save writes tok, replacing any previous token
func (s *TokenStore) Save(tok *StoredToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return &internal.AuthError{Op: "save", Err: err}
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return &internal.AuthError{Op: "save", Err: err}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return &internal.AuthError{Op: "save", Err: err}
	}
	return nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &internal.AuthError{Op: "clear", Err: err}
	}
	return nil
}

// Identity is what the client knows about the signed-in user
type Identity struct {
	Subject    string
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	ExpiresAt  time.Time
}

type idClaims struct {
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	jwt.RegisteredClaims
}

// ParseIdentity reads the claims of an ID token. The signature is not
// checked here; the API verifies every token it receives.
func ParseIdentity(idToken string) (*Identity, error) {
	if idToken == "" {
		return nil, errors.New("no id token")
	}
	var claims idClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}

	id := &Identity{
		Subject:    claims.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
	}
	if id.Email == "" {
		id.Email = claims.PreferredUsername
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
