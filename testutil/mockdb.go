package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB opens an empty in-memory SQLite database, closed when the
// test ends
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// InsertCachedSession writes a row straight into the sessions table
func InsertCachedSession(t *testing.T, db *sql.DB, id, title, intent, createdAt string) {
	t.Helper()
	insertSQL := "INSERT INTO sessions (id, title, intent, created_at, fetched_at) VALUES (?, ?, ?, ?, ?)"
	if _, err := db.Exec(insertSQL, id, title, intent, createdAt, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}
}

// InsertCachedMessage writes a row straight into the messages table
func InsertCachedMessage(t *testing.T, db *sql.DB, sessionID string, seq int, role, content string) {
	t.Helper()
	insertSQL := "INSERT INTO messages (session_id, seq, role, content) VALUES (?, ?, ?, ?)"
	if _, err := db.Exec(insertSQL, sessionID, seq, role, content); err != nil {
		t.Fatalf("Failed to insert message: %v", err)
	}
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}
