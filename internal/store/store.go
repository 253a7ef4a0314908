// Package store mirrors the posting history and the latest relevance scores
// into SQLite so the reporting dashboard can query them.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/bioinfo-job-tracker/internal/history"
)

const schemaVersion = 1

type DB struct {
	Pool *sql.DB
}

func Open(path string) (*DB, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// sqlite wants a single writer
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &DB{Pool: pool}, nil
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}

// Migrate brings the schema up to date, tracked through PRAGMA user_version.
func (d *DB) Migrate(ctx context.Context) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS roles (
  canonical_job_id TEXT PRIMARY KEY,
  company TEXT NOT NULL,
  job_title TEXT NOT NULL,
  location TEXT NOT NULL,
  remote_or_hybrid TEXT NOT NULL,
  posting_date TEXT NOT NULL,
  job_url TEXT NOT NULL,
  first_seen TEXT NOT NULL,
  last_seen TEXT NOT NULL,
  sources_seen TEXT NOT NULL DEFAULT '',
  score INTEGER,
  drop_reason TEXT NOT NULL DEFAULT '',
  updated_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS idx_roles_last_seen
ON roles(last_seen);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS idx_roles_score
ON roles(score);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return err
	}

	return tx.Commit()
}

// Verdict is the latest filter decision for one identity.
type Verdict struct {
	Score      int
	Kept       bool
	DropReason string
}

// Role is one row of the roles table.
type Role struct {
	history.Record
	Score      *int
	DropReason string
}

// Sync upserts every history record in a single transaction. Records without
// a verdict in this run keep the score and drop reason stored earlier.
func (d *DB) Sync(ctx context.Context, records []history.Record, verdicts map[string]Verdict) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO roles (
  canonical_job_id, company, job_title, location, remote_or_hybrid, posting_date, job_url,
  first_seen, last_seen, sources_seen, score, drop_reason, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(canonical_job_id) DO UPDATE SET
  last_seen = excluded.last_seen,
  sources_seen = excluded.sources_seen,
  score = CASE WHEN ? THEN excluded.score ELSE roles.score END,
  drop_reason = CASE WHEN ? THEN excluded.drop_reason ELSE roles.drop_reason END,
  updated_at = excluded.updated_at;
`)
	if err != nil {
		return fmt.Errorf("prepare roles upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		var score any
		dropReason := ""
		v, judged := verdicts[rec.ID]
		if judged {
			if v.Kept {
				score = v.Score
			} else {
				dropReason = v.DropReason
			}
		}

		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.Company, rec.JobTitle, rec.Location, rec.RemoteOrHybrid, rec.PostingDate, rec.JobURL,
			formatTime(rec.FirstSeen), formatTime(rec.LastSeen), strings.Join(rec.SourcesSeen, "|"),
			score, dropReason, now,
			judged, judged,
		); err != nil {
			return fmt.Errorf("upsert role %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// ListRoles returns the most recently seen roles first. limit <= 0 means no limit.
func (d *DB) ListRoles(ctx context.Context, limit int) ([]Role, error) {
	query := `
SELECT canonical_job_id, company, job_title, location, remote_or_hybrid, posting_date, job_url,
       first_seen, last_seen, sources_seen, score, drop_reason
FROM roles
ORDER BY last_seen DESC, canonical_job_id ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var (
			r                   Role
			firstSeen, lastSeen string
			sources             string
			score               sql.NullInt64
		)
		if err := rows.Scan(
			&r.ID, &r.Company, &r.JobTitle, &r.Location, &r.RemoteOrHybrid, &r.PostingDate, &r.JobURL,
			&firstSeen, &lastSeen, &sources, &score, &r.DropReason,
		); err != nil {
			return nil, err
		}
		r.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
		r.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
		if sources != "" {
			r.SourcesSeen = strings.Split(sources, "|")
		}
		if score.Valid {
			v := int(score.Int64)
			r.Score = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
