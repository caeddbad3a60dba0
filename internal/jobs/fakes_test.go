package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"pixelstudio/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fetchResult struct {
	payload *domain.StatusPayload
	err     error
}

// scriptedFetcher replays queued results per request id. The last result is
// repeated once the queue is drained; ids without a script report queued.
type scriptedFetcher struct {
	mu      sync.Mutex
	scripts map[string][]fetchResult
	calls   map[string]int
	kinds   map[string]domain.JobKind
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		scripts: make(map[string][]fetchResult),
		calls:   make(map[string]int),
		kinds:   make(map[string]domain.JobKind),
	}
}

func (f *scriptedFetcher) script(requestID string, results ...fetchResult) {
	f.mu.Lock()
	f.scripts[requestID] = append(f.scripts[requestID], results...)
	f.mu.Unlock()
}

func (f *scriptedFetcher) FetchStatus(ctx context.Context, requestID string, kind domain.JobKind) (*domain.StatusPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[requestID]++
	f.kinds[requestID] = kind
	queue := f.scripts[requestID]
	if len(queue) == 0 {
		return &domain.StatusPayload{Status: "queued"}, nil
	}
	res := queue[0]
	if len(queue) > 1 {
		f.scripts[requestID] = queue[1:]
	}
	return res.payload, res.err
}

func (f *scriptedFetcher) Calls(requestID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[requestID]
}

func (f *scriptedFetcher) Kind(requestID string) domain.JobKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kinds[requestID]
}

type memoryRepository struct {
	mu      sync.Mutex
	entries []domain.JobEntry
	saves   int
}

func (m *memoryRepository) Save(_ context.Context, entries []domain.JobEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]domain.JobEntry(nil), entries...)
	m.saves++
	return nil
}

func (m *memoryRepository) Load(context.Context) ([]domain.JobEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.JobEntry(nil), m.entries...), nil
}

func (m *memoryRepository) Snapshot() []domain.JobEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.JobEntry(nil), m.entries...)
}

type recordingStopper struct {
	mu      sync.Mutex
	stopped []string
}

func (s *recordingStopper) Stop(requestID string) {
	s.mu.Lock()
	s.stopped = append(s.stopped, requestID)
	s.mu.Unlock()
}

func (s *recordingStopper) Stopped(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.stopped {
		if id == requestID {
			return true
		}
	}
	return false
}

func payload(status string, progress int) *domain.StatusPayload {
	return &domain.StatusPayload{Status: status, Progress: &progress}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
