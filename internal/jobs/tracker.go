package jobs

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pixelstudio/internal/domain"
	"pixelstudio/internal/event"
)

// DefaultStaleThreshold is the age after which a job that never finished is
// dropped from the registry.
const DefaultStaleThreshold = 30 * time.Minute

// Options configures a Tracker.
type Options struct {
	Fetcher        StatusFetcher
	Repository     domain.SnapshotRepository
	Bus            event.Bus
	Logger         *zerolog.Logger
	PollInterval   time.Duration
	StaleThreshold time.Duration
	Now            func() time.Time
}

// Tracker owns the job registry, its poller and its persistence. It replaces
// a process-wide store: callers receive a Tracker and close it on teardown.
type Tracker struct {
	registry  *Registry
	poller    *Poller
	reducer   *Reducer
	bus       event.Bus
	logger    *zerolog.Logger
	persister *persister
	stale     time.Duration
	now       func() time.Time

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewTracker builds a tracker. A nil Repository keeps jobs in memory only.
func NewTracker(opts Options) (*Tracker, error) {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus(logger)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	stale := opts.StaleThreshold
	if stale <= 0 {
		stale = DefaultStaleThreshold
	}

	t := &Tracker{
		registry: NewRegistry(now),
		bus:      bus,
		logger:   logger,
		stale:    stale,
		now:      now,
	}
	poller, err := NewPoller(PollerOptions{
		Fetcher:  opts.Fetcher,
		Interval: opts.PollInterval,
		OnUpdate: func(requestID string, payload domain.StatusPayload) {
			t.reducer.Apply(context.Background(), requestID, payload)
		},
		OnGone: func(requestID string) {
			t.remove(requestID, "not_found")
		},
		OnConnection: func(status ConnectionStatus) {
			t.bus.Publish(context.Background(), event.Event{
				Type:    event.EventConnectionChanged,
				Payload: event.ConnectionEvent{Status: string(status)},
			})
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	t.poller = poller
	t.reducer = NewReducer(t.registry, poller, bus, logger)
	if opts.Repository != nil {
		t.persister = newPersister(opts.Repository, t.registry, logger)
	}
	t.registry.OnChange(t.handleChange)
	return t, nil
}

func (t *Tracker) handleChange(kind ChangeKind, job domain.Job) {
	if kind == ChangeRemoved {
		t.poller.Stop(job.RequestID)
	}
	if t.persister != nil {
		t.persister.markDirty()
	}
	var evt event.EventType
	switch kind {
	case ChangeRegistered:
		evt = event.EventJobRegistered
	case ChangeMerged:
		evt = event.EventJobUpdated
	case ChangeRemoved:
		evt = event.EventJobRemoved
	default:
		return
	}
	t.bus.Publish(context.Background(), event.Event{Type: evt, Payload: jobEvent(job, "")})
}

// Track registers a newly submitted generation request and starts polling it.
func (t *Tracker) Track(requestID string, kind domain.JobKind) (domain.Job, error) {
	if t.closed.Load() {
		return domain.Job{}, domain.ErrTrackerClosed
	}
	job, err := t.registry.Register(domain.Job{
		RequestID: requestID,
		Kind:      kind,
		Status:    domain.JobStatusQueued,
	})
	if err != nil {
		return domain.Job{}, err
	}
	t.poller.Start(job.RequestID, job.Kind)
	t.logger.Info().Str("request_id", job.RequestID).Str("kind", string(job.Kind)).Msg("tracker: job registered")
	return job, nil
}

// Dismiss stops polling and forgets the job. Unknown ids are ignored.
func (t *Tracker) Dismiss(requestID string) bool {
	return t.remove(requestID, "dismissed")
}

func (t *Tracker) remove(requestID, reason string) bool {
	t.poller.Stop(requestID)
	removed := t.registry.Remove(requestID)
	if removed {
		t.logger.Info().Str("request_id", requestID).Str("reason", reason).Msg("tracker: job removed")
	}
	return removed
}

// Sweep removes non-terminal jobs older than maxAge. A non-positive maxAge
// uses the configured stale threshold.
func (t *Tracker) Sweep(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = t.stale
	}
	removed := t.registry.SweepStale(maxAge)
	if removed > 0 {
		t.logger.Info().Int("removed", removed).Dur("max_age", maxAge).Msg("tracker: swept stale jobs")
	}
	return removed
}

// RunSweeper sweeps stale jobs every interval until ctx is done.
func (t *Tracker) RunSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run := uuid.NewString()
			t.logger.Debug().Str("sweep_id", run).Msg("tracker: sweep started")
			t.Sweep(t.stale)
		}
	}
}

// RehydrateResult summarizes a restore from persistence.
type RehydrateResult struct {
	Restored int
	Resumed  int
	Expired  int
}

// Rehydrate loads persisted jobs, drops the stale unfinished ones and resumes
// polling for the rest.
func (t *Tracker) Rehydrate(ctx context.Context) (RehydrateResult, error) {
	var res RehydrateResult
	if t.persister == nil {
		return res, nil
	}
	entries, err := t.persister.repo.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("tracker: load snapshot: %w", err)
	}
	restored := t.registry.Restore(entries)
	res.Restored = len(restored)
	now := t.now()
	for _, job := range restored {
		if job.Status.Terminal() {
			continue
		}
		if now.Sub(job.CreatedAt) > t.stale {
			t.remove(job.RequestID, "expired")
			res.Expired++
			continue
		}
		t.poller.Start(job.RequestID, job.Kind)
		res.Resumed++
	}
	t.logger.Info().
		Int("restored", res.Restored).
		Int("resumed", res.Resumed).
		Int("expired", res.Expired).
		Msg("tracker: rehydrated")
	return res, nil
}

// Close stops all polling, waits for poll goroutines to exit and writes a
// final snapshot.
func (t *Tracker) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.poller.StopAll()
		t.poller.Wait()
		if t.persister != nil {
			if err := t.persister.close(ctx); err != nil {
				t.closeErr = fmt.Errorf("tracker: final snapshot: %w", err)
			}
		}
	})
	return t.closeErr
}

// Job returns the record for requestID.
func (t *Tracker) Job(requestID string) (domain.Job, error) {
	job, ok := t.registry.Get(requestID)
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return job, nil
}

// Registry exposes the registry for read-only views.
func (t *Tracker) Registry() *Registry {
	return t.registry
}

// Poller exposes the poller for diagnostics.
func (t *Tracker) Poller() *Poller {
	return t.poller
}

// Bus returns the event bus carrying job and connection events.
func (t *Tracker) Bus() event.Bus {
	return t.bus
}

// ConnectionStatus reports whether the last poll reached the status endpoint.
func (t *Tracker) ConnectionStatus() ConnectionStatus {
	return t.poller.ConnectionStatus()
}

// IsClosed reports whether Close has been called.
func (t *Tracker) IsClosed() bool {
	return t.closed.Load()
}
