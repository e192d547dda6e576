// Package api talks to the assistant backend: session CRUD, the login sync
// call and the raw streaming endpoint for replies.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joao-cainglet/fss-va-2025/internal"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics
const maxErrorBody = 4 * 1024

// CredentialSource supplies the bearer token attached to every call
type CredentialSource interface {
	// Token returns the current access token, or internal.ErrNotLoggedIn
	Token(ctx context.Context) (string, error)
	// Clear drops any locally stored credential
	Clear() error
}

// Client is an authenticated client for the assistant API
type Client struct {
	baseURL        string
	httpClient     *http.Client
	streamClient   *http.Client
	creds          CredentialSource
	onUnauthorized []func()
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the client used for REST calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithStreamClient sets the client used for streamed replies. It should not
// carry an overall timeout; a reply may legitimately take minutes.
func WithStreamClient(hc *http.Client) Option {
	return func(c *Client) { c.streamClient = hc }
}

// WithTimeout sets the overall timeout of REST calls
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// OnUnauthorized registers fn to run whenever the API rejects the credential
// or no credential is available. Used to force a fresh login.
func OnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = append(c.onUnauthorized, fn) }
}

// New creates a Client for the API rooted at baseURL
func New(baseURL string, creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
		creds:        creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

type createSessionRequest struct {
	Title  string          `json:"title"`
	Intent internal.Intent `json:"intent"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type queryRequest struct {
	Query string `json:"query"`
}

// Login syncs the signed-in identity with the backend user record
func (c *Client) Login(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/login", nil, nil)
}

// CreateSession creates a new conversation titled after the first message
func (c *Client) CreateSession(ctx context.Context, title string, intent internal.Intent) (*internal.ChatSession, error) {
	var session internal.ChatSession
	if err := c.do(ctx, http.MethodPost, "/sessions", createSessionRequest{Title: title, Intent: intent}, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, fmt.Errorf("create session: response carried no id")
	}
	return &session, nil
}

// ListSessions returns the user's sessions in server order
func (c *Client) ListSessions(ctx context.Context) ([]internal.ChatSession, error) {
	var sessions []internal.ChatSession
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []internal.ChatSession{}
	}
	return sessions, nil
}

// GetSession returns a session with its message history
func (c *Client) GetSession(ctx context.Context, id string) (*internal.SessionDetail, error) {
	var detail internal.SessionDetail
	if err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id), nil, &detail); err != nil {
		return nil, err
	}
	if detail.ID == "" {
		detail.ID = id
	}
	return &detail, nil
}

// RenameSession changes a session's title
func (c *Client) RenameSession(ctx context.Context, id, title string) error {
	return c.do(ctx, http.MethodPatch, "/sessions/"+url.PathEscape(id)+"/rename", renameRequest{Title: title}, nil)
}

// DeleteSession permanently removes a session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil)
}

// StreamReply posts query to the session and returns the raw reply body.
// The caller owns the returned reader and must close it.
func (c *Client) StreamReply(ctx context.Context, sessionID, query string) (io.ReadCloser, error) {
	path := "/regulatory-data/" + url.PathEscape(sessionID)
	resp, err := c.send(ctx, c.streamClient, http.MethodPost, path, queryRequest{Query: query})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.send(ctx, c.httpClient, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &internal.TransportError{Method: method, Path: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// send performs the request and returns the response only for 2xx statuses
func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, body interface{}) (*http.Response, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		if errors.Is(err, internal.ErrNotLoggedIn) {
			c.unauthorized()
		}
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)

	internal.LogDebug("%s %s (request %s)", method, path, requestID)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &internal.TransportError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		internal.LogWarn("%s %s rejected the credential (request %s)", method, path, requestID)
		c.unauthorized()
		return nil, fmt.Errorf("%s %s: %w", method, path, internal.ErrUnauthorized)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &internal.StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
		}
	}

	return resp, nil
}

func (c *Client) unauthorized() {
	if err := c.creds.Clear(); err != nil {
		internal.LogWarn("Failed to clear stored credential: %v", err)
	}
	for _, fn := range c.onUnauthorized {
		fn()
	}
}
