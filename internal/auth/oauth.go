// Package auth runs the identity provider sign-in and keeps the resulting
// credential fresh. Protocol detail is left to golang.org/x/oauth2.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// Settings configures a Manager
type Settings struct {
	ClientID     string
	TenantID     string
	Authority    string // full authority URL; overrides TenantID when set
	Scopes       []string
	RedirectPort int // 0 picks a free port
	TokenPath    string
}

// SettingsFromConfig derives Settings from the client config
func SettingsFromConfig(cfg *internal.Config) Settings {
	return Settings{
		ClientID:     cfg.ClientID,
		TenantID:     cfg.TenantID,
		Authority:    cfg.Authority,
		Scopes:       cfg.Scopes,
		RedirectPort: cfg.RedirectPort,
		TokenPath:    cfg.TokenPath(),
	}
}

// Manager owns the OAuth configuration and the stored credential.
// It satisfies api.CredentialSource.
type Manager struct {
	settings Settings
	conf     *oauth2.Config
	store    *TokenStore

	mu    sync.Mutex
	token *StoredToken
}

// NewManager creates a Manager
func NewManager(settings Settings) *Manager {
	endpoint := microsoft.AzureADEndpoint(settings.TenantID)
	if settings.Authority != "" {
		authority := strings.TrimRight(settings.Authority, "/")
		endpoint = oauth2.Endpoint{
			AuthURL:  authority + "/oauth2/v2.0/authorize",
			TokenURL: authority + "/oauth2/v2.0/token",
		}
	}
	return &Manager{
		settings: settings,
		conf: &oauth2.Config{
			ClientID: settings.ClientID,
			Endpoint: endpoint,
			Scopes:   settings.Scopes,
		},
		store: NewTokenStore(settings.TokenPath),
	}
}

// Token returns a valid bearer token, refreshing it if it has expired
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		tok, err := m.store.Load()
		if err != nil {
			return "", err
		}
		m.token = tok
	}

	if m.token.Valid() {
		return m.token.Bearer(), nil
	}

	if m.token.RefreshToken == "" {
		m.token = nil
		return "", fmt.Errorf("credential expired: %w", internal.ErrNotLoggedIn)
	}

	internal.LogDebug("Refreshing expired access token")
	fresh, err := m.conf.TokenSource(ctx, &m.token.Token).Token()
	if err != nil {
		m.token = nil
		internal.LogWarn("Token refresh failed: %v", err)
		return "", fmt.Errorf("%w: %v", internal.ErrNotLoggedIn, &internal.AuthError{Op: "refresh", Err: err})
	}

	stored := &StoredToken{Token: *fresh, IDToken: idTokenOf(fresh, m.token.IDToken)}
	if err := m.store.Save(stored); err != nil {
		internal.LogWarn("Failed to persist refreshed token: %v", err)
	}
	m.token = stored
	return stored.Bearer(), nil
}

// Clear forgets the credential in memory and on disk
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()
	return m.store.Clear()
}

// Identity returns the claims of the stored ID token
func (m *Manager) Identity() (*Identity, error) {
	m.mu.Lock()
	tok := m.token
	m.mu.Unlock()

	if tok == nil {
		var err error
		if tok, err = m.store.Load(); err != nil {
			return nil, err
		}
	}
	return ParseIdentity(tok.IDToken)
}

// LoggedIn reports whether a credential is stored
func (m *Manager) LoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != nil {
		return true
	}
	_, err := m.store.Load()
	return err == nil
}

// Login runs the authorization code flow with PKCE. openURL is handed the
// provider's sign-in page (typically it launches a browser); the provider
// redirects back to a loopback listener started here.
func (m *Manager) Login(ctx context.Context, openURL func(string) error) (*StoredToken, error) {
	if m.settings.ClientID == "" {
		return nil, &internal.AuthError{Op: "authorize", Err: errors.New("client id is not configured (set FSSVA_CLIENT_ID)")}
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", m.settings.RedirectPort))
	if err != nil {
		return nil, &internal.AuthError{Op: "authorize", Err: fmt.Errorf("listen for callback: %w", err)}
	}

	conf := *m.conf
	conf.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", listener.Addr().(*net.TCPAddr).Port)

	state, err := randomState()
	if err != nil {
		listener.Close()
		return nil, &internal.AuthError{Op: "authorize", Err: err}
	}
	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	server := &http.Server{
		Handler:           callbackHandler(state, codeCh, errCh),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	internal.LogDebug("Waiting for sign-in callback on %s", conf.RedirectURL)
	if err := openURL(authURL); err != nil {
		return nil, &internal.AuthError{Op: "authorize", Err: err}
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, &internal.AuthError{Op: "authorize", Err: err}
	case <-ctx.Done():
		return nil, &internal.AuthError{Op: "authorize", Err: ctx.Err()}
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &internal.AuthError{Op: "exchange", Err: err}
	}

	stored := &StoredToken{Token: *tok, IDToken: idTokenOf(tok, "")}
	if err := m.store.Save(stored); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.token = stored
	m.mu.Unlock()
	return stored, nil
}

func callbackHandler(expectedState string, codeCh chan<- string, errCh chan<- error) http.Handler {
	var once sync.Once
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var result error
		switch {
		case q.Get("state") != expectedState:
			result = errors.New("invalid state received")
		case q.Get("error") != "":
			result = fmt.Errorf("%s: %s", q.Get("error"), q.Get("error_description"))
		case q.Get("code") == "":
			result = errors.New("no code received")
		}

		if result != nil {
			http.Error(w, "Sign-in failed: "+result.Error(), http.StatusBadRequest)
			once.Do(func() {
				select {
				case errCh <- result:
				default:
				}
			})
			return
		}

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h1>Signed in</h1><p>You can close this tab and return to the terminal.</p>
<script>window.close();</script></body></html>`))
		once.Do(func() { codeCh <- q.Get("code") })
	})
	return mux
}

func idTokenOf(tok *oauth2.Token, fallback string) string {
	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" {
		return raw
	}
	return fallback
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
