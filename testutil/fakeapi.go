package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// RecordedRequest is one request seen by FakeAPI
type RecordedRequest struct {
	Method    string
	Path      string
	RequestID string
	Auth      string
}

// FakeAPI is an in-process stand-in for the assistant backend
type FakeAPI struct {
	*httptest.Server

	mu         sync.Mutex
	token      string
	sessions   []*FakeSession
	requests   []RecordedRequest
	failures   map[string]int
	reply      func(query string) []string
	chunkDelay time.Duration
	nextID     int
	logins     int
}

// NewFakeAPI starts a server seeded with sessions. It is closed when the test
// ends.
func NewFakeAPI(t *testing.T, sessions ...FakeSession) *FakeAPI {
	t.Helper()
	f := &FakeAPI{failures: make(map[string]int)}
	for i := range sessions {
		s := sessions[i]
		f.sessions = append(f.sessions, &s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", f.handleLogin)
	mux.HandleFunc("GET /sessions", f.handleList)
	mux.HandleFunc("POST /sessions", f.handleCreate)
	mux.HandleFunc("GET /sessions/{id}", f.handleGet)
	mux.HandleFunc("DELETE /sessions/{id}", f.handleDelete)
	mux.HandleFunc("PATCH /sessions/{id}/rename", f.handleRename)
	mux.HandleFunc("POST /regulatory-data/{id}", f.handleQuery)

	f.Server = httptest.NewServer(f.middleware(mux))
	t.Cleanup(f.Close)
	return f
}

// RequireToken makes every request without "Bearer token" fail with 401
func (f *FakeAPI) RequireToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// FailNext makes the next request matching method and path answer status
func (f *FakeAPI) FailNext(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = status
}

// SetReply sets the chunks streamed for a query and the pause between them
func (f *FakeAPI) SetReply(fn func(query string) []string, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = fn
	f.chunkDelay = delay
}

// Sessions returns a copy of the server-side sessions
func (f *FakeAPI) Sessions() []FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeSession, len(f.sessions))
	for i, s := range f.sessions {
		out[i] = *s
		out[i].Messages = append([]FakeMessage(nil), s.Messages...)
	}
	return out
}

// Requests returns the requests seen so far
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// Logins returns how many times POST /login was called
func (f *FakeAPI) Logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *FakeAPI) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: r.Header.Get("X-Request-ID"),
			Auth:      auth,
		})
		key := r.Method + " " + r.URL.Path
		status, fail := f.failures[key]
		delete(f.failures, key)
		token := f.token
		f.mu.Unlock()

		if token != "" && auth != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		if fail {
			writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.logins++
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (f *FakeAPI) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := make([]FakeSession, len(f.sessions))
	for i, s := range f.sessions {
		out[i] = *s
		out[i].Messages = nil
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string `json:"title"`
		Intent string `json:"intent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	f.nextID++
	s := &FakeSession{
		ID:        fmt.Sprintf("sess-new-%d", f.nextID),
		Title:     req.Title,
		Intent:    req.Intent,
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
		UserID:    "user-1",
	}
	f.sessions = append([]*FakeSession{s}, f.sessions...)
	out := *s
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	s := f.find(r.PathValue("id"))
	var out FakeSession
	if s != nil {
		out = *s
		out.Messages = append([]FakeMessage{}, s.Messages...)
	}
	f.mu.Unlock()

	if s == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	found := false
	for i, s := range f.sessions {
		if s.ID == id {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			found = true
			break
		}
	}
	f.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) handleRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	s := f.find(r.PathValue("id"))
	if s != nil {
		s.Title = req.Title
	}
	f.mu.Unlock()

	if s == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session renamed"})
}

func (f *FakeAPI) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	s := f.find(r.PathValue("id"))
	reply, delay := f.reply, f.chunkDelay
	f.mu.Unlock()
	if s == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
		return
	}

	chunks := []string{"You asked: ", req.Query}
	if reply != nil {
		chunks = reply(req.Query)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for i, chunk := range chunks {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	f.mu.Lock()
	s.Messages = append(s.Messages,
		FakeMessage{Role: "user", Content: req.Query},
		FakeMessage{Role: "assistant", Content: strings.Join(chunks, "")},
	)
	f.mu.Unlock()
}

func (f *FakeAPI) find(id string) *FakeSession {
	for _, s := range f.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
