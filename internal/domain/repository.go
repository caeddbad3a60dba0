package domain

import "context"

// SnapshotRepository persists the tracked job registry between process runs.
type SnapshotRepository interface {
	Save(ctx context.Context, entries []JobEntry) error
	Load(ctx context.Context) ([]JobEntry, error)
}
