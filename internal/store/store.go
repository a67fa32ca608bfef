// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/hifz/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for progress blobs and practice history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS listening_sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			chapter_id INTEGER NOT NULL,
			range_start INTEGER NOT NULL,
			range_end INTEGER NOT NULL,
			repeats INTEGER NOT NULL,
			narrator_id INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS quiz_attempts (
			id INTEGER PRIMARY KEY,
			answered_at TEXT NOT NULL,
			scope TEXT NOT NULL,
			level TEXT NOT NULL,
			kind TEXT NOT NULL,
			verse_key TEXT NOT NULL,
			correct INTEGER NOT NULL,
			fallback INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_listening_sessions_ended_at ON listening_sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_attempts_answered_at ON quiz_attempts(answered_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value stored under key. The bool is false when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Format(time.RFC3339Nano))
	return err
}

// Delete removes the given keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
	}
	query := fmt.Sprintf(`DELETE FROM kv WHERE key IN (%s)`, strings.Join(placeholders, ","))
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// InsertListening records a completed pass over a verse range.
func (s *Store) InsertListening(ctx context.Context, ls model.ListeningSession) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO listening_sessions (started_at, ended_at, chapter_id, range_start, range_end, repeats, narrator_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ls.StartedAt.Format(time.RFC3339Nano),
		ls.EndedAt.Format(time.RFC3339Nano),
		ls.ChapterID,
		ls.Start,
		ls.End,
		ls.Repeats,
		ls.NarratorID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertQuizAttempt records an answered question.
func (s *Store) InsertQuizAttempt(ctx context.Context, a model.QuizAttempt) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_attempts (answered_at, scope, level, kind, verse_key, correct, fallback)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.AnsweredAt.Format(time.RFC3339Nano),
		string(a.Scope),
		string(a.Level),
		string(a.Kind),
		a.VerseKey,
		boolInt(a.Correct),
		boolInt(a.Fallback),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListListening returns listening sessions ordered oldest first.
func (s *Store) ListListening(ctx context.Context, cfg model.ReportConfig) ([]model.ListeningSession, error) {
	where, args := sinceClause("ended_at", cfg.Since)
	query := fmt.Sprintf(`SELECT started_at, ended_at, chapter_id, range_start, range_end, repeats, narrator_id
		FROM listening_sessions
		WHERE %s
		ORDER BY ended_at ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.ListeningSession
	for rows.Next() {
		var ls model.ListeningSession
		var startedAt, endedAt string
		if err := rows.Scan(&startedAt, &endedAt, &ls.ChapterID, &ls.Start, &ls.End, &ls.Repeats, &ls.NarratorID); err != nil {
			return nil, err
		}
		if ls.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if ls.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, ls)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return trimLast(sessions, cfg.Last), nil
}

// ListQuizAttempts returns quiz attempts ordered oldest first.
func (s *Store) ListQuizAttempts(ctx context.Context, cfg model.ReportConfig) ([]model.QuizAttempt, error) {
	where, args := sinceClause("answered_at", cfg.Since)
	query := fmt.Sprintf(`SELECT answered_at, scope, level, kind, verse_key, correct, fallback
		FROM quiz_attempts
		WHERE %s
		ORDER BY answered_at ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.QuizAttempt
	for rows.Next() {
		var a model.QuizAttempt
		var answeredAt, scope, level, kind string
		var correct, fallback int
		if err := rows.Scan(&answeredAt, &scope, &level, &kind, &a.VerseKey, &correct, &fallback); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, answeredAt)
		if err != nil {
			return nil, err
		}
		a.AnsweredAt = parsed
		a.Scope = model.QuizScope(scope)
		a.Level = model.QuizLevel(level)
		a.Kind = model.QuestionKind(kind)
		a.Correct = correct != 0
		a.Fallback = fallback != 0
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return trimLast(attempts, cfg.Last), nil
}

func sinceClause(column string, since *time.Time) (string, []any) {
	if since == nil {
		return "1=1", nil
	}
	return column + " >= ?", []any{since.Format(time.RFC3339Nano)}
}

func trimLast[T any](items []T, last int) []T {
	if last > 0 && len(items) > last {
		return items[len(items)-last:]
	}
	return items
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
