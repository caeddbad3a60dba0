package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"pixelstudio/internal/domain"
	"pixelstudio/internal/infra"
	"pixelstudio/internal/sqlinline"
)

// SnapshotRepositoryPG implements domain.SnapshotRepository on PostgreSQL.
// Every save replaces the whole table inside one transaction.
type SnapshotRepositoryPG struct {
	sql infra.TxExecutor
}

// NewSnapshotRepositoryPG creates a repository backed by the marker-tagged SQL runner.
func NewSnapshotRepositoryPG(sql infra.TxExecutor) *SnapshotRepositoryPG {
	return &SnapshotRepositoryPG{sql: sql}
}

// Migrate creates the tracked_jobs table when missing.
func (r *SnapshotRepositoryPG) Migrate(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QCreateTrackedJobsTable); err != nil {
		return fmt.Errorf("repo: create tracked_jobs: %w", err)
	}
	return nil
}

// Save replaces the stored snapshot.
func (r *SnapshotRepositoryPG) Save(ctx context.Context, entries []domain.JobEntry) error {
	return r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, sqlinline.QDeleteTrackedJobs); err != nil {
			return fmt.Errorf("repo: clear tracked_jobs: %w", err)
		}
		for i, entry := range entries {
			record, err := json.Marshal(entry.Job)
			if err != nil {
				return fmt.Errorf("repo: encode job %s: %w", entry.RequestID, err)
			}
			if _, err := tx.Exec(ctx, sqlinline.QInsertTrackedJob,
				entry.RequestID,
				i,
				string(entry.Job.Kind),
				string(entry.Job.Status),
				record,
				entry.Job.CreatedAt,
			); err != nil {
				return fmt.Errorf("repo: insert job %s: %w", entry.RequestID, err)
			}
		}
		return nil
	})
}

// Load returns the stored entries in saved order.
func (r *SnapshotRepositoryPG) Load(ctx context.Context) ([]domain.JobEntry, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectTrackedJobs)
	if err != nil {
		return nil, fmt.Errorf("repo: select tracked_jobs: %w", err)
	}
	defer rows.Close()

	var entries []domain.JobEntry
	for rows.Next() {
		var id string
		var record []byte
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("repo: scan tracked job: %w", err)
		}
		var job domain.Job
		if err := json.Unmarshal(record, &job); err != nil {
			return nil, fmt.Errorf("repo: decode job %s: %w", id, err)
		}
		entries = append(entries, domain.JobEntry{RequestID: id, Job: job})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate tracked_jobs: %w", err)
	}
	return entries, nil
}

var _ domain.SnapshotRepository = (*SnapshotRepositoryPG)(nil)
