package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/joao-cainglet/fss-va-2025/testutil"
)

type fakeCreds struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (f *fakeCreds) Token(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token == "" {
		return "", internal.ErrNotLoggedIn
	}
	return f.token, nil
}

func (f *fakeCreds) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared++
	return nil
}

func newTestClient(t *testing.T, sessions ...testutil.FakeSession) (*Client, *testutil.FakeAPI, *fakeCreds, *int) {
	t.Helper()
	server := testutil.NewFakeAPI(t, sessions...)
	server.RequireToken("tok")
	creds := &fakeCreds{token: "tok"}
	hooks := 0
	client := New(server.URL+"/", creds, OnUnauthorized(func() { hooks++ }))
	return client, server, creds, &hooks
}

func TestClient_ListSessions(t *testing.T) {
	client, server, _, _ := newTestClient(t, testutil.SampleSessions()...)

	sessions, err := client.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "sess-basel", sessions[0].ID)
	assert.Equal(t, internal.IntentRegulatory, sessions[0].Intent)
	assert.Equal(t, 2025, sessions[0].CreatedAt.Year())
	assert.Equal(t, internal.IntentSpeech, sessions[2].Intent)

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer tok", reqs[0].Auth)
	_, err = uuid.Parse(reqs[0].RequestID)
	assert.NoError(t, err, "X-Request-ID should be a uuid")
}

func TestClient_ListSessionsEmpty(t *testing.T) {
	client, _, _, _ := newTestClient(t)

	sessions, err := client.ListSessions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestClient_SessionCRUD(t *testing.T) {
	client, server, _, _ := newTestClient(t, testutil.SampleSessions()...)
	ctx := context.Background()

	created, err := client.CreateSession(ctx, "What is CET1?", internal.IntentInternal)
	require.NoError(t, err)
	assert.Equal(t, "sess-new-1", created.ID)
	assert.Equal(t, "What is CET1?", created.Title)
	assert.Equal(t, internal.IntentInternal, created.Intent)

	detail, err := client.GetSession(ctx, "sess-basel")
	require.NoError(t, err)
	assert.Equal(t, "Basel III capital buffers", detail.Title)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, internal.RoleAssistant, detail.Messages[1].Role)

	require.NoError(t, client.RenameSession(ctx, "sess-basel", "Renamed"))
	require.NoError(t, client.DeleteSession(ctx, "sess-speech"))

	var titles []string
	for _, s := range server.Sessions() {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"What is CET1?", "Renamed", "Data retention policy"}, titles)
}

func TestClient_NotFound(t *testing.T) {
	client, _, _, _ := newTestClient(t)

	_, err := client.GetSession(context.Background(), "missing")
	var statusErr *internal.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "Session not found")
	assert.Equal(t, "/sessions/missing", statusErr.Path)
}

func TestClient_UnauthorizedClearsCredential(t *testing.T) {
	client, server, creds, hooks := newTestClient(t)
	server.RequireToken("other")

	_, err := client.ListSessions(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, internal.ErrUnauthorized)
	assert.True(t, internal.IsUnauthorized(err))
	assert.Equal(t, 1, creds.cleared)
	assert.Equal(t, 1, *hooks)

	// with the credential gone the next call fails before reaching the server
	before := len(server.Requests())
	_, err = client.ListSessions(context.Background())
	assert.ErrorIs(t, err, internal.ErrNotLoggedIn)
	assert.Len(t, server.Requests(), before)
	assert.Equal(t, 2, *hooks)
}

func TestClient_ServerError(t *testing.T) {
	client, server, creds, _ := newTestClient(t)
	server.FailNext(http.MethodPost, "/login", http.StatusInternalServerError)

	err := client.Login(context.Background())
	var statusErr *internal.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Zero(t, creds.cleared)

	require.NoError(t, client.Login(context.Background()))
	assert.Equal(t, 1, server.Logins())
}

func TestClient_TransportError(t *testing.T) {
	client := New("http://127.0.0.1:1", &fakeCreds{token: "tok"}, WithTimeout(2*time.Second))

	_, err := client.ListSessions(context.Background())
	var transportErr *internal.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.MethodGet, transportErr.Method)
}

func TestClient_StreamReply(t *testing.T) {
	client, server, _, _ := newTestClient(t, testutil.SampleSessions()...)
	server.SetReply(func(q string) []string { return []string{"Hi ", "there", "!"} }, 5*time.Millisecond)

	body, err := client.StreamReply(context.Background(), "sess-basel", "hello")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", string(data))

	msgs := server.Sessions()[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "hello", msgs[2].Content)
}

func TestClient_StreamReplyErrorStatus(t *testing.T) {
	client, _, _, _ := newTestClient(t)

	_, err := client.StreamReply(context.Background(), "missing", "hello")
	var statusErr *internal.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestClient_StreamReplyCancel(t *testing.T) {
	client, server, _, _ := newTestClient(t, testutil.SampleSessions()...)
	server.SetReply(func(q string) []string { return []string{"a", "b", "c", "d"} }, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	body, err := client.StreamReply(ctx, "sess-basel", "hello")
	require.NoError(t, err)
	defer body.Close()

	buf := make([]byte, 1)
	_, err = io.ReadFull(body, buf)
	require.NoError(t, err)
	assert.Equal(t, "a", string(buf))

	cancel()
	_, err = io.ReadAll(body)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "canceled"))
}

func TestNew_TrimsBaseURL(t *testing.T) {
	c := New("https://api.example.com///", &fakeCreds{})
	assert.Equal(t, "https://api.example.com", c.BaseURL())
}
