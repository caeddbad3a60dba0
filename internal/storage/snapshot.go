package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pixelstudio/internal/domain"
)

// snapshotDocument mirrors the layout the web client keeps in local storage:
// {"state":{"jobs":[["<requestId>",{...}],...]},"version":0}.
type snapshotDocument struct {
	State   snapshotState `json:"state"`
	Version int           `json:"version"`
}

type snapshotState struct {
	Jobs []jobPair `json:"jobs"`
}

// jobPair encodes a registry entry as a two element JSON array.
type jobPair domain.JobEntry

func (p jobPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.RequestID, p.Job})
}

func (p *jobPair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("job entry has %d elements, want 2", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.RequestID); err != nil {
		return fmt.Errorf("job entry id: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Job); err != nil {
		return fmt.Errorf("job entry record: %w", err)
	}
	return nil
}

// SnapshotFile stores the job registry as one namespaced JSON document.
type SnapshotFile struct {
	store *FileStore
	key   string
}

// NewSnapshotFile creates a snapshot repository writing <namespace>.json
// inside store.
func NewSnapshotFile(store *FileStore, namespace string) (*SnapshotFile, error) {
	if store == nil {
		return nil, errors.New("storage: file store is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = "generation-jobs"
	}
	key, err := sanitizeKey(namespace + ".json")
	if err != nil {
		return nil, err
	}
	return &SnapshotFile{store: store, key: key}, nil
}

// Key returns the storage key of the snapshot document.
func (s *SnapshotFile) Key() string {
	return s.key
}

// Save replaces the stored snapshot with entries.
func (s *SnapshotFile) Save(ctx context.Context, entries []domain.JobEntry) error {
	doc := snapshotDocument{State: snapshotState{Jobs: make([]jobPair, 0, len(entries))}}
	for _, e := range entries {
		doc.State.Jobs = append(doc.State.Jobs, jobPair(e))
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("storage: encode snapshot: %w", err)
	}
	if _, err := s.store.Write(ctx, s.key, data); err != nil {
		return err
	}
	return nil
}

// Load returns the stored entries in their saved order. A missing snapshot
// yields no entries.
func (s *SnapshotFile) Load(ctx context.Context) ([]domain.JobEntry, error) {
	data, err := s.store.Read(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("storage: decode snapshot: %w", err)
	}
	entries := make([]domain.JobEntry, 0, len(doc.State.Jobs))
	for _, p := range doc.State.Jobs {
		entries = append(entries, domain.JobEntry(p))
	}
	return entries, nil
}

var _ domain.SnapshotRepository = (*SnapshotFile)(nil)
