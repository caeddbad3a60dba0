package jobs

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pixelstudio/internal/domain"
)

// DefaultPollInterval matches the cadence used by the generation UI.
const DefaultPollInterval = 2 * time.Second

// ConnectionStatus reports whether the status endpoint answered the latest poll.
type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// StatusFetcher retrieves the current status of one generation request.
// Implementations return domain.ErrJobNotFound when the service no longer
// knows the request.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, requestID string, kind domain.JobKind) (*domain.StatusPayload, error)
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	Fetcher  StatusFetcher
	Interval time.Duration
	// OnUpdate receives every successfully decoded payload.
	OnUpdate func(requestID string, payload domain.StatusPayload)
	// OnGone is called once polling stopped because the job no longer exists.
	OnGone func(requestID string)
	// OnConnection is called when the connection status flips.
	OnConnection func(status ConnectionStatus)
	Logger       *zerolog.Logger
}

// Poller runs one polling goroutine per tracked job. Each goroutine fetches
// synchronously, so a job never has more than one request in flight; ticks
// that fire while a fetch is outstanding are dropped.
type Poller struct {
	fetcher      StatusFetcher
	interval     time.Duration
	onUpdate     func(string, domain.StatusPayload)
	onGone       func(string)
	onConnection func(ConnectionStatus)
	logger       *zerolog.Logger

	mu      sync.Mutex
	handles map[string]*pollHandle
	wg      sync.WaitGroup

	connMu sync.Mutex
	conn   ConnectionStatus
}

type pollHandle struct {
	kind   domain.JobKind
	cancel context.CancelFunc
}

// NewPoller constructs a poller. Fetcher is required.
func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("poller: status fetcher is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Poller{
		fetcher:      opts.Fetcher,
		interval:     interval,
		onUpdate:     opts.OnUpdate,
		onGone:       opts.OnGone,
		onConnection: opts.OnConnection,
		logger:       logger,
		handles:      make(map[string]*pollHandle),
		conn:         ConnectionConnected,
	}, nil
}

// Interval returns the configured poll cadence.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins polling requestID: one poll immediately, then one per
// interval. It reports false when the job is already being polled.
func (p *Poller) Start(requestID string, kind domain.JobKind) bool {
	p.mu.Lock()
	if _, ok := p.handles[requestID]; ok {
		p.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &pollHandle{kind: kind, cancel: cancel}
	p.handles[requestID] = h
	p.wg.Add(1)
	p.mu.Unlock()

	p.logger.Debug().Str("request_id", requestID).Str("kind", string(kind)).Msg("poller: started")
	go p.run(ctx, h, requestID)
	return true
}

// Stop cancels polling for requestID. It never blocks and is safe to call
// repeatedly or from within an update callback.
func (p *Poller) Stop(requestID string) {
	p.mu.Lock()
	h, ok := p.handles[requestID]
	if ok {
		delete(p.handles, requestID)
	}
	p.mu.Unlock()
	if ok {
		h.cancel()
		p.logger.Debug().Str("request_id", requestID).Msg("poller: stopped")
	}
}

// StopAll cancels every active poll.
func (p *Poller) StopAll() {
	p.mu.Lock()
	handles := p.handles
	p.handles = make(map[string]*pollHandle)
	p.mu.Unlock()
	for _, h := range handles {
		h.cancel()
	}
}

// Wait blocks until every polling goroutine has exited.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Polling reports whether requestID currently has a poll scheduled.
func (p *Poller) Polling(requestID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.handles[requestID]
	return ok
}

// Active returns the ids being polled, sorted.
func (p *Poller) Active() []string {
	p.mu.Lock()
	ids := make([]string, 0, len(p.handles))
	for id := range p.handles {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// ConnectionStatus returns the outcome of the most recent poll across all jobs.
func (p *Poller) ConnectionStatus() ConnectionStatus {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	return p.conn
}

func (p *Poller) setConnection(status ConnectionStatus) {
	p.connMu.Lock()
	changed := p.conn != status
	p.conn = status
	p.connMu.Unlock()
	if !changed {
		return
	}
	if status == ConnectionDisconnected {
		p.logger.Warn().Msg("poller: status endpoint unreachable")
	} else {
		p.logger.Info().Msg("poller: status endpoint reachable again")
	}
	if p.onConnection != nil {
		p.onConnection(status)
	}
}

func (p *Poller) run(ctx context.Context, h *pollHandle, requestID string) {
	defer p.wg.Done()

	if !p.poll(ctx, h, requestID) {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.poll(ctx, h, requestID) {
				return
			}
		}
	}
}

// poll performs one fetch and reports whether polling should continue.
func (p *Poller) poll(ctx context.Context, h *pollHandle, requestID string) bool {
	payload, err := p.fetcher.FetchStatus(ctx, requestID, h.kind)
	if ctx.Err() != nil {
		// Stopped while the request was in flight; the response is stale.
		return false
	}
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			p.setConnection(ConnectionConnected)
			p.release(requestID, h)
			p.logger.Info().Str("request_id", requestID).Msg("poller: job no longer exists")
			if p.onGone != nil {
				p.onGone(requestID)
			}
			return false
		}
		p.setConnection(ConnectionDisconnected)
		p.logger.Warn().Err(err).Str("request_id", requestID).Msg("poller: status fetch failed")
		return true
	}
	p.setConnection(ConnectionConnected)
	if payload != nil && p.onUpdate != nil {
		p.onUpdate(requestID, *payload)
	}
	return ctx.Err() == nil
}

func (p *Poller) release(requestID string, h *pollHandle) {
	p.mu.Lock()
	if cur, ok := p.handles[requestID]; ok && cur == h {
		delete(p.handles, requestID)
	}
	p.mu.Unlock()
	h.cancel()
}
