package jobs

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"pixelstudio/internal/domain"
)

// ChangeKind names the registry mutation passed to a ChangeFunc.
type ChangeKind string

const (
	ChangeRegistered ChangeKind = "registered"
	ChangeMerged     ChangeKind = "merged"
	ChangeRemoved    ChangeKind = "removed"
	ChangeRestored   ChangeKind = "restored"
)

// ChangeFunc observes registry mutations. It runs after the registry lock has
// been released, so it may call back into the registry.
type ChangeFunc func(kind ChangeKind, job domain.Job)

// Registry holds the authoritative mapping from request id to job record.
// Records are kept in insertion order for stable listings.
type Registry struct {
	mu       sync.RWMutex
	jobs     map[string]*domain.Job
	order    []string
	now      func() time.Time
	onChange ChangeFunc
}

// NewRegistry creates an empty registry. A nil clock defaults to time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		jobs: make(map[string]*domain.Job),
		now:  now,
	}
}

// OnChange installs the mutation observer. It must be called before the
// registry is shared between goroutines.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.onChange = fn
}

// Register inserts a new record stamped with the current time. A request id
// that is already tracked is rejected with domain.ErrDuplicateJob and the
// existing record is left untouched.
func (r *Registry) Register(job domain.Job) (domain.Job, error) {
	job.RequestID = strings.TrimSpace(job.RequestID)
	if job.RequestID == "" {
		return domain.Job{}, fmt.Errorf("%w: request id is required", domain.ErrInvalidJob)
	}
	if !job.Kind.Valid() {
		return domain.Job{}, fmt.Errorf("%w: unsupported kind %q", domain.ErrInvalidJob, job.Kind)
	}

	r.mu.Lock()
	if _, exists := r.jobs[job.RequestID]; exists {
		r.mu.Unlock()
		return domain.Job{}, fmt.Errorf("%w: %s", domain.ErrDuplicateJob, job.RequestID)
	}
	now := r.now()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.Normalize()
	stored := job.Clone()
	r.jobs[job.RequestID] = &stored
	r.order = append(r.order, job.RequestID)
	r.mu.Unlock()

	r.notify(ChangeRegistered, job)
	return job.Clone(), nil
}

// Merge shallow-merges the update into an existing record. It reports false
// when the request id is not tracked.
func (r *Registry) Merge(requestID string, update domain.JobUpdate) (domain.Job, bool) {
	r.mu.Lock()
	job, ok := r.jobs[requestID]
	if !ok {
		r.mu.Unlock()
		return domain.Job{}, false
	}
	job.Apply(update, r.now())
	merged := job.Clone()
	r.mu.Unlock()

	r.notify(ChangeMerged, merged)
	return merged, true
}

// Remove deletes the record. Removing an unknown id is a no-op.
func (r *Registry) Remove(requestID string) bool {
	r.mu.Lock()
	job, ok := r.jobs[requestID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	removed := job.Clone()
	r.deleteLocked(requestID)
	r.mu.Unlock()

	r.notify(ChangeRemoved, removed)
	return true
}

// SweepStale removes every non-terminal record created more than maxAge ago
// and returns how many were removed.
func (r *Registry) SweepStale(maxAge time.Duration) int {
	return len(r.sweepStale(maxAge))
}

func (r *Registry) sweepStale(maxAge time.Duration) []domain.Job {
	r.mu.Lock()
	cutoff := r.now().Add(-maxAge)
	var removed []domain.Job
	for _, id := range append([]string(nil), r.order...) {
		job := r.jobs[id]
		if job.Status.Terminal() || !job.CreatedAt.Before(cutoff) {
			continue
		}
		removed = append(removed, job.Clone())
		r.deleteLocked(id)
	}
	r.mu.Unlock()

	for _, job := range removed {
		r.notify(ChangeRemoved, job)
	}
	return removed
}

// Restore inserts records loaded from persistence, keeping their timestamps.
// Records whose id is already tracked are skipped.
func (r *Registry) Restore(entries []domain.JobEntry) []domain.Job {
	r.mu.Lock()
	restored := make([]domain.Job, 0, len(entries))
	for _, entry := range entries {
		job := entry.Job.Clone()
		job.RequestID = entry.RequestID
		if job.RequestID == "" {
			continue
		}
		if _, exists := r.jobs[job.RequestID]; exists {
			continue
		}
		job.Normalize()
		r.jobs[job.RequestID] = &job
		r.order = append(r.order, job.RequestID)
		restored = append(restored, job.Clone())
	}
	r.mu.Unlock()

	for _, job := range restored {
		r.notify(ChangeRestored, job)
	}
	return restored
}

// Get returns a copy of the record for requestID.
func (r *Registry) Get(requestID string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[requestID]
	if !ok {
		return domain.Job{}, false
	}
	return job.Clone(), true
}

// List returns copies of all records matching keep, in insertion order. A nil
// keep returns every record.
func (r *Registry) List(keep func(domain.Job) bool) []domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Job, 0, len(r.order))
	for _, id := range r.order {
		job := r.jobs[id]
		if keep != nil && !keep(*job) {
			continue
		}
		out = append(out, job.Clone())
	}
	return out
}

// Entries returns the registry as ordered (requestId, record) pairs.
func (r *Registry) Entries() []domain.JobEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.JobEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, domain.JobEntry{RequestID: id, Job: r.jobs[id].Clone()})
	}
	return out
}

// Len returns the number of tracked records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func (r *Registry) deleteLocked(requestID string) {
	delete(r.jobs, requestID)
	for i, id := range r.order {
		if id == requestID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) notify(kind ChangeKind, job domain.Job) {
	if r.onChange != nil {
		r.onChange(kind, job)
	}
}
