// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit keeps a local SQLite record of model calls and logins.
//
// Recording is best effort: the chat engine logs a failed write and moves
// on. Message text is never stored, only sizes and outcomes.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("audit log closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// ENTRY
// =============================================================================

// Kind classifies an entry.
type Kind string

const (
	KindCall   Kind = "call"
	KindLogin  Kind = "login"
	KindLogout Kind = "logout"
)

// Entry is one audit row.
type Entry struct {
	ID        string
	At        time.Time
	Kind      Kind
	SessionID string
	Identity  string

	// Model calls.
	Provider    string
	Model       string
	Outcome     string
	Degraded    bool
	Reason      string
	Error       string
	Latency     time.Duration
	PromptChars int
	ReplyChars  int
}

// =============================================================================
// LOG
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id           TEXT PRIMARY KEY,
	at           INTEGER NOT NULL,
	kind         TEXT NOT NULL,
	session_id   TEXT NOT NULL DEFAULT '',
	identity     TEXT NOT NULL DEFAULT '',
	provider     TEXT NOT NULL DEFAULT '',
	model        TEXT NOT NULL DEFAULT '',
	outcome      TEXT NOT NULL DEFAULT '',
	degraded     INTEGER NOT NULL DEFAULT 0,
	reason       TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	latency_ms   INTEGER NOT NULL DEFAULT 0,
	prompt_chars INTEGER NOT NULL DEFAULT 0,
	reply_chars  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_entries_at ON entries(at);
CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id);
`

// Log is an append-only audit table.
type Log struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	closed bool
}

// Open opens or creates the database at path. The special path ":memory:"
// keeps everything in memory.
func Open(path string) (*Log, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrDatabaseError, err)
	}

	// One writer at a time; a single connection also keeps :memory: alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=2000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrDatabaseError, p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: schema: %v", ErrDatabaseError, err)
	}

	return &Log{db: db, path: path}, nil
}

// Path returns the database location.
func (l *Log) Path() string {
	return l.path
}

// Record inserts e, filling ID and At when unset. It returns the stored
// entry.
func (l *Log) Record(ctx context.Context, e Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return e, ErrClosed
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.Kind == "" {
		e.Kind = KindCall
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO entries (id, at, kind, session_id, identity, provider, model,
			outcome, degraded, reason, error, latency_ms, prompt_chars, reply_chars)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.At.UnixMilli(), string(e.Kind), e.SessionID, e.Identity, e.Provider, e.Model,
		e.Outcome, boolInt(e.Degraded), e.Reason, e.Error, e.Latency.Milliseconds(),
		e.PromptChars, e.ReplyChars)
	if err != nil {
		return e, fmt.Errorf("%w: insert: %v", ErrDatabaseError, err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return l.query(ctx, `SELECT id, at, kind, session_id, identity, provider, model,
		outcome, degraded, reason, error, latency_ms, prompt_chars, reply_chars
		FROM entries ORDER BY at DESC, rowid DESC LIMIT ?`, clampLimit(limit))
}

// Session returns the entries of one session, oldest first.
func (l *Log) Session(ctx context.Context, sessionID string) ([]Entry, error) {
	return l.query(ctx, `SELECT id, at, kind, session_id, identity, provider, model,
		outcome, degraded, reason, error, latency_ms, prompt_chars, reply_chars
		FROM entries WHERE session_id = ? ORDER BY at ASC, rowid ASC`, sessionID)
}

// Stats summarizes model calls.
type Stats struct {
	Calls    int
	Failed   int
	Degraded int
}

// Stats counts call entries.
func (l *Log) Stats(ctx context.Context) (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Stats{}, ErrClosed
	}

	var s Stats
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(degraded), 0)
		FROM entries WHERE kind = ?`, string(KindCall)).Scan(&s.Calls, &s.Failed, &s.Degraded)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: stats: %v", ErrDatabaseError, err)
	}
	return s, nil
}

// Close releases the database. Further calls return ErrClosed.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

func (l *Log) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			at, latMS int64
			kind      string
			degraded  int
		)
		if err := rows.Scan(&e.ID, &at, &kind, &e.SessionID, &e.Identity, &e.Provider, &e.Model,
			&e.Outcome, &degraded, &e.Reason, &e.Error, &latMS, &e.PromptChars, &e.ReplyChars); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrDatabaseError, err)
		}
		e.At = time.UnixMilli(at).UTC()
		e.Kind = Kind(kind)
		e.Degraded = degraded != 0
		e.Latency = time.Duration(latMS) * time.Millisecond
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrDatabaseError, err)
	}
	return out, nil
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return 20
	case n > 1000:
		return 1000
	default:
		return n
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
