package event

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Handler func(ctx context.Context, event Event) error

type Bus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType EventType, handler Handler) (unsubscribe func())
}

// NewBus creates an in-process event bus. Handlers run synchronously on the
// publishing goroutine; a failing handler is logged and does not stop delivery.
func NewBus(logger *zerolog.Logger) Bus {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &inProcessBus{
		subscribers: make(map[EventType][]subscriberEntry),
		logger:      logger,
	}
}

type subscriberEntry struct {
	id      uint64
	handler Handler
}

type inProcessBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]subscriberEntry
	nextID      uint64
	logger      *zerolog.Logger
}

func (b *inProcessBus) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := make([]subscriberEntry, 0, len(b.subscribers[event.Type])+len(b.subscribers[EventAny]))
	subs = append(subs, b.subscribers[event.Type]...)
	subs = append(subs, b.subscribers[EventAny]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Error().Err(err).
				Str("event", string(event.Type)).
				Msg("event handler error")
		}
	}
}

func (b *inProcessBus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{
		id:      id,
		handler: handler,
	})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}
