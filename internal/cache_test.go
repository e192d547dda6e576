package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joao-cainglet/fss-va-2025/testutil"
)

func newTestCache(t *testing.T) *TranscriptCache {
	t.Helper()
	db := testutil.CreateInMemoryDB(t)
	cache, err := NewTranscriptCache(db, ":memory:")
	if err != nil {
		t.Fatalf("NewTranscriptCache() error = %v", err)
	}
	cache.now = func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }
	return cache
}

func TestOpenTranscriptCache_CreatesDirectory(t *testing.T) {
	path := filepath.Join(testutil.CreateTempDir(t), "data", "transcripts.db")
	cache, err := OpenTranscriptCache(path)
	if err != nil {
		t.Fatalf("OpenTranscriptCache() error = %v", err)
	}
	defer cache.Close()

	if cache.Path() != path {
		t.Errorf("Path() = %q, want %q", cache.Path(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestTranscriptCache_RecordAndGet(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	detail := CreateTestDetail("s1", "Capital rules", IntentRegulatory,
		UserMessage("q1"), AssistantMessage("a1"))
	if err := cache.RecordSession(detail); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}

	got, err := cache.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Title != "Capital rules" || got.Intent != IntentRegulatory {
		t.Errorf("GetSession() = %+v", got.ChatSession)
	}
	if !got.CreatedAt.Equal(detail.CreatedAt.Time) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, detail.CreatedAt)
	}
	if len(got.Messages) != 2 || got.Messages[0] != UserMessage("q1") || got.Messages[1] != AssistantMessage("a1") {
		t.Errorf("Messages = %+v", got.Messages)
	}

	// recording again replaces the transcript
	detail.Messages = []Message{UserMessage("only")}
	if err := cache.RecordSession(detail); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}
	got, err = cache.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "only" {
		t.Errorf("Messages after re-record = %+v", got.Messages)
	}
}

func TestTranscriptCache_AppendMessages(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	session := ChatSession{ID: "s1", Title: "First", Intent: IntentInternal}

	if err := cache.AppendMessages(session, UserMessage("q1"), AssistantMessage("a1")); err != nil {
		t.Fatalf("AppendMessages() error = %v", err)
	}
	// an id-only session keeps the cached title and intent
	if err := cache.AppendMessages(ChatSession{ID: "s1"}, UserMessage("q2"), AssistantMessage("a2")); err != nil {
		t.Fatalf("AppendMessages() error = %v", err)
	}

	got, err := cache.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Title != "First" || got.Intent != IntentInternal {
		t.Errorf("metadata = %+v", got.ChatSession)
	}
	want := []string{"q1", "a1", "q2", "a2"}
	if len(got.Messages) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got.Messages), len(want))
	}
	for i, w := range want {
		if got.Messages[i].Content != w {
			t.Errorf("message %d = %q, want %q", i, got.Messages[i].Content, w)
		}
	}
}

func TestTranscriptCache_GetMissing(t *testing.T) {
	cache := newTestCache(t)

	_, err := cache.GetSession(context.Background(), "nope")
	if !errors.Is(err, ErrNotCached) {
		t.Fatalf("GetSession() error = %v, want ErrNotCached", err)
	}
	var cacheErr *CacheError
	if !errors.As(err, &cacheErr) {
		t.Errorf("error is not a *CacheError: %T", err)
	}
}

func TestTranscriptCache_UpdateTitle(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	detail := CreateTestDetail("s1", "Old title", IntentInternal, UserMessage("q"), AssistantMessage("a"))
	if err := cache.RecordSession(detail); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}

	if err := cache.UpdateTitle("s1", "New title"); err != nil {
		t.Fatalf("UpdateTitle() error = %v", err)
	}
	got, err := cache.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Title != "New title" || got.Intent != IntentInternal || len(got.Messages) != 2 {
		t.Errorf("GetSession() after rename = %+v", got)
	}

	err = cache.UpdateTitle("missing", "x")
	if !errors.Is(err, ErrNotCached) {
		t.Fatalf("UpdateTitle(missing) error = %v, want ErrNotCached", err)
	}
	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Sessions != 1 {
		t.Errorf("Sessions = %d, want 1; renaming an uncached session must not add a row", stats.Sessions)
	}
}

func TestTranscriptCache_ReadsSeededRows(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)
	cache, err := NewTranscriptCache(db, ":memory:")
	if err != nil {
		t.Fatalf("NewTranscriptCache() error = %v", err)
	}
	testutil.InsertCachedSession(t, db, "old", "Older", "Speech", "2025-01-01T00:00:00Z")
	testutil.InsertCachedSession(t, db, "new", "Newer", "Internal", "2025-02-01T00:00:00Z")
	testutil.InsertCachedSession(t, db, "bad", "Bad date", "Internal", "yesterday")
	testutil.InsertCachedMessage(t, db, "new", 1, "assistant", "second")
	testutil.InsertCachedMessage(t, db, "new", 0, "user", "first")

	sessions, err := cache.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("got %d sessions, want 3", len(sessions))
	}
	// "yesterday" sorts after the ISO dates in descending text order
	if sessions[0].ID != "bad" || sessions[1].ID != "new" || sessions[2].ID != "old" {
		t.Errorf("order = %s, %s, %s", sessions[0].ID, sessions[1].ID, sessions[2].ID)
	}
	if !sessions[0].CreatedAt.IsZero() {
		t.Errorf("bad timestamp should decode as zero, got %v", sessions[0].CreatedAt)
	}

	detail, err := cache.GetSession(context.Background(), "new")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(detail.Messages) != 2 || detail.Messages[0].Content != "first" || detail.Messages[1].Role != RoleAssistant {
		t.Errorf("Messages = %+v", detail.Messages)
	}
}

func TestTranscriptCache_RemoveClearStats(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := cache.RecordSession(CreateTestDetail(id, id, IntentSpeech, UserMessage("x"), AssistantMessage("y"))); err != nil {
			t.Fatalf("RecordSession(%s) error = %v", id, err)
		}
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Sessions != 2 || stats.Messages != 4 {
		t.Errorf("Stats() = %+v", stats)
	}
	if !stats.LastFetched.Equal(time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("LastFetched = %v", stats.LastFetched)
	}

	if err := cache.Remove("a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := cache.GetSession(ctx, "a"); !errors.Is(err, ErrNotCached) {
		t.Errorf("removed session still cached: %v", err)
	}
	stats, _ = cache.Stats(ctx)
	if stats.Sessions != 1 || stats.Messages != 2 {
		t.Errorf("Stats() after Remove = %+v", stats)
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	stats, _ = cache.Stats(ctx)
	if stats.Sessions != 0 || stats.Messages != 0 || !stats.LastFetched.IsZero() {
		t.Errorf("Stats() after Clear = %+v", stats)
	}
}
