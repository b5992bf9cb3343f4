package services

import (
	"context"
	"errors"
	"sync"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"
)

// FanoutPublisher forwards every event to all sinks and joins their errors.
type FanoutPublisher struct {
	sinks []domain.EventPublisher
}

func NewFanoutPublisher(sinks ...domain.EventPublisher) *FanoutPublisher {
	return &FanoutPublisher{sinks: sinks}
}

func (f *FanoutPublisher) Add(sink domain.EventPublisher) {
	f.sinks = append(f.sinks, sink)
}

func (f *FanoutPublisher) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.PublishAuctionEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LocalEventBus delivers events to in-process subscribers. It stands in for
// Redis pub/sub when Redis is disabled.
type LocalEventBus struct {
	mu     sync.RWMutex
	subs   map[int]chan *domain.AuctionEvent
	nextID int
	buffer int
	log    logger.Logger
}

func NewLocalEventBus(buffer int, log logger.Logger) *LocalEventBus {
	return &LocalEventBus{subs: make(map[int]chan *domain.AuctionEvent), buffer: buffer, log: log}
}

// PublishAuctionEvent never blocks; a subscriber whose buffer is full misses the event.
func (b *LocalEventBus) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return errors.New("local event bus: subscriber buffer full")
	}
	return nil
}

// SubscribeToAuctionEvents blocks, feeding handler until ctx is done.
func (b *LocalEventBus) SubscribeToAuctionEvents(ctx context.Context, handler domain.EventHandler) error {
	ch := make(chan *domain.AuctionEvent, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()

	for {
		select {
		case event := <-ch:
			if err := handler(event); err != nil {
				b.log.Error("Failed to handle event", "type", event.Type, "auction_id", event.AuctionID, "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *LocalEventBus) subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
