package internal

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ErrNotCached is returned when a session has no local transcript
var ErrNotCached = errors.New("session not in local cache")

// TranscriptCache keeps fetched transcripts in SQLite for offline reading.
// It never feeds the session list; the server stays the source of truth.
type TranscriptCache struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// CacheStats summarises the cache contents
type CacheStats struct {
	Sessions    int
	Messages    int
	LastFetched time.Time
}

// OpenTranscriptCache opens the cache database at path, creating it if needed
func OpenTranscriptCache(path string) (*TranscriptCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, &CacheError{Path: path, Op: "open", Err: err}
		}
	}
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &CacheError{Path: path, Op: "open", Err: err}
	}
	cache, err := NewTranscriptCache(db, path)
	if err != nil {
		db.Close()
		return nil, err
	}
	return cache, nil
}

// NewTranscriptCache wraps an open database, creating the tables if needed
func NewTranscriptCache(db *sql.DB, path string) (*TranscriptCache, error) {
	if err := MigrateDatabase(db); err != nil {
		return nil, &CacheError{Path: path, Op: "migrate", Err: err}
	}
	return &TranscriptCache{db: db, path: path, now: time.Now}, nil
}

// Path returns the database location
func (c *TranscriptCache) Path() string {
	return c.path
}

// Close closes the database
func (c *TranscriptCache) Close() error {
	return c.db.Close()
}

// RecordSession replaces the cached copy of a session with detail
func (c *TranscriptCache) RecordSession(detail *SessionDetail) error {
	return c.inTx("record", func(tx *sql.Tx) error {
		if err := c.upsertSession(tx, detail.ChatSession); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", detail.ID); err != nil {
			return err
		}
		return insertMessages(tx, detail.ID, 0, detail.Messages)
	})
}

// AppendMessages adds msgs after the cached messages of session. Empty
// title or intent fields keep the cached values.
func (c *TranscriptCache) AppendMessages(session ChatSession, msgs ...Message) error {
	return c.inTx("append", func(tx *sql.Tx) error {
		if err := c.upsertSession(tx, session); err != nil {
			return err
		}
		var next int
		row := tx.QueryRow("SELECT COALESCE(MAX(seq) + 1, 0) FROM messages WHERE session_id = ?", session.ID)
		if err := row.Scan(&next); err != nil {
			return err
		}
		return insertMessages(tx, session.ID, next, msgs)
	})
}

// GetSession loads a cached transcript. A missing session yields ErrNotCached.
func (c *TranscriptCache) GetSession(ctx context.Context, id string) (*SessionDetail, error) {
	var (
		detail    SessionDetail
		intent    string
		createdAt string
	)
	row := c.db.QueryRowContext(ctx, "SELECT id, title, intent, created_at FROM sessions WHERE id = ?", id)
	if err := row.Scan(&detail.ID, &detail.Title, &intent, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &CacheError{Path: c.path, Op: "get " + id, Err: ErrNotCached}
		}
		return nil, &CacheError{Path: c.path, Op: "get " + id, Err: err}
	}
	detail.Intent = Intent(intent)
	detail.CreatedAt = parseCachedTime(createdAt)

	rows, err := c.db.QueryContext(ctx, "SELECT role, content FROM messages WHERE session_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, &CacheError{Path: c.path, Op: "get " + id, Err: err}
	}
	defer rows.Close()

	detail.Messages = []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, &CacheError{Path: c.path, Op: "get " + id, Err: err}
		}
		detail.Messages = append(detail.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Path: c.path, Op: "get " + id, Err: err}
	}
	return &detail, nil
}

// ListSessions returns the cached sessions, newest first
func (c *TranscriptCache) ListSessions(ctx context.Context) ([]ChatSession, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id, title, intent, created_at FROM sessions ORDER BY created_at DESC, id")
	if err != nil {
		return nil, &CacheError{Path: c.path, Op: "list", Err: err}
	}
	defer rows.Close()

	sessions := []ChatSession{}
	for rows.Next() {
		var (
			s         ChatSession
			intent    string
			createdAt string
		)
		if err := rows.Scan(&s.ID, &s.Title, &intent, &createdAt); err != nil {
			return nil, &CacheError{Path: c.path, Op: "list", Err: err}
		}
		s.Intent = Intent(intent)
		s.CreatedAt = parseCachedTime(createdAt)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Path: c.path, Op: "list", Err: err}
	}
	return sessions, nil
}

// UpdateTitle renames a cached session. A session that is not cached yields
// ErrNotCached and nothing is written.
func (c *TranscriptCache) UpdateTitle(id, title string) error {
	return c.inTx("rename "+id, func(tx *sql.Tx) error {
		res, err := tx.Exec("UPDATE sessions SET title = ? WHERE id = ?", title, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotCached
		}
		return nil
	})
}

// Remove drops one session and its messages
func (c *TranscriptCache) Remove(id string) error {
	return c.inTx("remove", func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", id); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM sessions WHERE id = ?", id)
		return err
	})
}

// Clear empties the cache
func (c *TranscriptCache) Clear() error {
	return c.inTx("clear", func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM messages"); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM sessions")
		return err
	})
}

// Stats counts cached sessions and messages
func (c *TranscriptCache) Stats(ctx context.Context) (CacheStats, error) {
	var (
		stats   CacheStats
		fetched sql.NullString
	)
	row := c.db.QueryRowContext(ctx, "SELECT (SELECT COUNT(*) FROM sessions), (SELECT COUNT(*) FROM messages), (SELECT MAX(fetched_at) FROM sessions)")
	if err := row.Scan(&stats.Sessions, &stats.Messages, &fetched); err != nil {
		return CacheStats{}, &CacheError{Path: c.path, Op: "stats", Err: err}
	}
	if fetched.Valid {
		stats.LastFetched = parseCachedTime(fetched.String).Time
	}
	return stats, nil
}

func (c *TranscriptCache) inTx(op string, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.Begin()
	if err != nil {
		return &CacheError{Path: c.path, Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return &CacheError{Path: c.path, Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &CacheError{Path: c.path, Op: op, Err: err}
	}
	return nil
}

func (c *TranscriptCache) upsertSession(tx *sql.Tx, s ChatSession) error {
	createdAt := ""
	if !s.CreatedAt.IsZero() {
		createdAt = s.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := tx.Exec(`
		INSERT INTO sessions (id, title, intent, created_at, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = CASE WHEN excluded.title != '' THEN excluded.title ELSE sessions.title END,
			intent     = CASE WHEN excluded.intent != '' THEN excluded.intent ELSE sessions.intent END,
			created_at = CASE WHEN excluded.created_at != '' THEN excluded.created_at ELSE sessions.created_at END,
			fetched_at = excluded.fetched_at`,
		s.ID, s.Title, string(s.Intent), createdAt, c.now().UTC().Format(time.RFC3339Nano))
	return err
}

func insertMessages(tx *sql.Tx, sessionID string, start int, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	stmt, err := tx.Prepare("INSERT INTO messages (session_id, seq, role, content) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, msg := range msgs {
		if _, err := stmt.Exec(sessionID, start+i, string(msg.Role), msg.Content); err != nil {
			return err
		}
	}
	return nil
}

func parseCachedTime(s string) Timestamp {
	if s == "" {
		return Timestamp{}
	}
	ts, err := ParseTimestamp(s)
	if err != nil {
		LogDebug("Ignoring bad cached timestamp %q: %v", s, err)
		return Timestamp{}
	}
	return ts
}
