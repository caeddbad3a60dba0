package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pixelstudio/internal/domain"
)

const saveTimeout = 10 * time.Second

// persister writes the registry to a SnapshotRepository from a single
// goroutine. Bursts of mutations collapse into one save.
type persister struct {
	repo     domain.SnapshotRepository
	registry *Registry
	logger   *zerolog.Logger

	dirty  chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newPersister(repo domain.SnapshotRepository, registry *Registry, logger *zerolog.Logger) *persister {
	ctx, cancel := context.WithCancel(context.Background())
	p := &persister{
		repo:     repo,
		registry: registry,
		logger:   logger,
		dirty:    make(chan struct{}, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go p.run(ctx)
	return p
}

func (p *persister) markDirty() {
	select {
	case p.dirty <- struct{}{}:
	default:
	}
}

func (p *persister) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.dirty:
			saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
			if err := p.flush(saveCtx); err != nil {
				p.logger.Error().Err(err).Msg("tracker: persist snapshot failed")
			}
			cancel()
		}
	}
}

func (p *persister) flush(ctx context.Context) error {
	return p.repo.Save(ctx, p.registry.Entries())
}

// close stops the writer goroutine and performs a final save.
func (p *persister) close(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		p.cancel()
		<-p.done
		err = p.flush(ctx)
	})
	return err
}
