package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get for an unknown session id.
var ErrNotFound = errors.New("interview record not found")

const schema = `
CREATE TABLE IF NOT EXISTS interviews (
	session_id  TEXT PRIMARY KEY,
	role        TEXT NOT NULL,
	resume_text TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	ends_at     TEXT NOT NULL,
	summary     TEXT NOT NULL DEFAULT '',
	tier        TEXT NOT NULL,
	score       INTEGER NOT NULL,
	key_points  TEXT NOT NULL DEFAULT '[]',
	saved_at    TEXT NOT NULL
)`

// SQLite stores records in a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and migrates) the database at path. Use ":memory:" for
// an in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("persistence: creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: migrating schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Save upserts rec by session id.
func (s *SQLite) Save(ctx context.Context, rec Record) error {
	keyPoints := rec.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	kp, err := json.Marshal(keyPoints)
	if err != nil {
		return fmt.Errorf("persistence: encoding key points: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interviews (session_id, role, resume_text, started_at, ends_at, summary, tier, score, key_points, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			summary = excluded.summary,
			tier = excluded.tier,
			score = excluded.score,
			key_points = excluded.key_points,
			saved_at = excluded.saved_at`,
		rec.SessionID, rec.Role, rec.ResumeText,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.EndsAt.UTC().Format(time.RFC3339Nano),
		rec.Summary, rec.Tier, rec.Score, string(kp),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("persistence: saving %s: %w", rec.SessionID, err)
	}
	return nil
}

// Get loads the record for a session id.
func (s *SQLite) Get(ctx context.Context, sessionID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, role, resume_text, started_at, ends_at, summary, tier, score, key_points
		FROM interviews WHERE session_id = ?`, sessionID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("persistence: %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("persistence: loading %s: %w", sessionID, err)
	}
	return rec, nil
}

// List returns the most recently started records, newest first.
func (s *SQLite) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, role, resume_text, started_at, ends_at, summary, tier, score, key_points
		FROM interviews ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("persistence: listing: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("persistence: scanning: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persistence: rows iteration: %w", err)
	}
	return out, nil
}

// PruneBefore removes records that started before cutoff. With dryRun set
// nothing is deleted. Returns the pruned session ids.
func (s *SQLite) PruneBefore(ctx context.Context, cutoff time.Time, dryRun bool) ([]string, error) {
	return s.prune(ctx, dryRun, `
		SELECT session_id FROM interviews WHERE started_at < ? ORDER BY started_at`,
		cutoff.UTC().Format(time.RFC3339Nano))
}

// PruneKeepRecent removes all but the keep most recently started records.
// With dryRun set nothing is deleted. Returns the pruned session ids.
func (s *SQLite) PruneKeepRecent(ctx context.Context, keep int, dryRun bool) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	return s.prune(ctx, dryRun, `
		SELECT session_id FROM interviews ORDER BY started_at DESC LIMIT -1 OFFSET ?`, keep)
}

func (s *SQLite) prune(ctx context.Context, dryRun bool, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("persistence: selecting records to prune: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("persistence: scanning: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persistence: rows iteration: %w", err)
	}
	if dryRun {
		return ids, nil
	}

	var pruned []string
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM interviews WHERE session_id = ?`, id); err != nil {
			return pruned, fmt.Errorf("persistence: removing %s: %w", id, err)
		}
		pruned = append(pruned, id)
	}
	return pruned, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var rec Record
	var startedAt, endsAt, keyPoints string
	if err := sc.Scan(&rec.SessionID, &rec.Role, &rec.ResumeText, &startedAt, &endsAt,
		&rec.Summary, &rec.Tier, &rec.Score, &keyPoints); err != nil {
		return nil, err
	}

	var err error
	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if rec.EndsAt, err = time.Parse(time.RFC3339Nano, endsAt); err != nil {
		return nil, fmt.Errorf("parsing ends_at: %w", err)
	}
	if err := json.Unmarshal([]byte(keyPoints), &rec.KeyPoints); err != nil {
		return nil, fmt.Errorf("decoding key points: %w", err)
	}
	return &rec, nil
}
