package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pixelstudio/internal/domain"
)

// SnapshotRepositorySQLite implements domain.SnapshotRepository on a local
// SQLite file.
type SnapshotRepositorySQLite struct {
	db *sql.DB
}

// OpenSnapshotRepositorySQLite opens (and creates when needed) the database at path.
func OpenSnapshotRepositorySQLite(path string) (*SnapshotRepositorySQLite, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("repo: ensure sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repo: open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: ping sqlite: %w", err)
	}
	r := &SnapshotRepositorySQLite{db: db}
	if err := r.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: create sqlite tables: %w", err)
	}
	return r, nil
}

func (r *SnapshotRepositorySQLite) createTables() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS tracked_jobs (
		request_id TEXT PRIMARY KEY,
		position   INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		status     TEXT NOT NULL,
		record     TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		saved_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

// Close releases the database handle.
func (r *SnapshotRepositorySQLite) Close() error {
	return r.db.Close()
}

// Save replaces the stored snapshot inside one transaction.
func (r *SnapshotRepositorySQLite) Save(ctx context.Context, entries []domain.JobEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repo: begin sqlite tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracked_jobs`); err != nil {
		return fmt.Errorf("repo: clear tracked_jobs: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO tracked_jobs (request_id, position, kind, status, record, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("repo: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, entry := range entries {
		record, err := json.Marshal(entry.Job)
		if err != nil {
			return fmt.Errorf("repo: encode job %s: %w", entry.RequestID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			entry.RequestID,
			i,
			string(entry.Job.Kind),
			string(entry.Job.Status),
			string(record),
			entry.Job.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("repo: insert job %s: %w", entry.RequestID, err)
		}
	}
	return tx.Commit()
}

// Load returns the stored entries in saved order.
func (r *SnapshotRepositorySQLite) Load(ctx context.Context) ([]domain.JobEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT request_id, record FROM tracked_jobs ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("repo: select tracked_jobs: %w", err)
	}
	defer rows.Close()

	var entries []domain.JobEntry
	for rows.Next() {
		var id, record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("repo: scan tracked job: %w", err)
		}
		var job domain.Job
		if err := json.Unmarshal([]byte(record), &job); err != nil {
			return nil, fmt.Errorf("repo: decode job %s: %w", id, err)
		}
		entries = append(entries, domain.JobEntry{RequestID: id, Job: job})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate tracked_jobs: %w", err)
	}
	return entries, nil
}

var _ domain.SnapshotRepository = (*SnapshotRepositorySQLite)(nil)
