package pipeline

import (
	"sync"
	"time"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/models"
)

// subscriberBuffer bounds each subscriber's pending event queue. A subscriber
// that falls this far behind starts losing events instead of stalling the
// pipeline.
const subscriberBuffer = 64

type subscriber struct {
	name   string
	events chan *models.PipelineEvent
}

// Bus fans pipeline events out to registered subscribers. Delivery is
// fire-and-forget: publishing never blocks, and a full subscriber queue drops
// the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers []*subscriber
	closed      bool
	wg          sync.WaitGroup
	logger      *common.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *common.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers fn to receive every published event. Each subscriber
// runs on its own goroutine so a slow consumer only affects itself.
func (b *Bus) Subscribe(name string, fn func(event *models.PipelineEvent)) {
	sub := &subscriber{
		name:   name,
		events: make(chan *models.PipelineEvent, subscriberBuffer),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for event := range sub.events {
			fn(event)
		}
	}()
}

// Publish delivers an event to every subscriber without blocking.
func (b *Bus) Publish(event *models.PipelineEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub.events <- event:
		default:
			b.logger.Warn().
				Str("subscriber", sub.name).
				Str("event", event.Type).
				Msg("Subscriber queue full, dropping event")
		}
	}
}

// Close stops delivery and waits for subscriber goroutines to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.events)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
