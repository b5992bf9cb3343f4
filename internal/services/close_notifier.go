package services

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"
)

// CloseNotifier periodically announces auctions whose end time has passed.
// It only publishes events; closure itself is never written to the store.
type CloseNotifier struct {
	cron     *cron.Cron
	schedule string
	store    domain.AuctionStore
	clock    domain.Clock
	eventPub domain.EventPublisher
	log      logger.Logger

	mu        sync.Mutex
	lastSweep int64
	// ids whose auction_closed event failed to publish
	pending map[string]struct{}
}

func NewCloseNotifier(schedule string, store domain.AuctionStore, clock domain.Clock,
	eventPub domain.EventPublisher, log logger.Logger) *CloseNotifier {
	return &CloseNotifier{
		cron:      cron.New(),
		schedule:  schedule,
		store:     store,
		clock:     clock,
		eventPub:  eventPub,
		log:       log,
		lastSweep: clock.Now().Unix(),
		pending:   make(map[string]struct{}),
	}
}

func (n *CloseNotifier) Start(ctx context.Context) error {
	n.log.Info("Starting close notifier", "schedule", n.schedule)

	_, err := n.cron.AddFunc(n.schedule, func() {
		if err := n.Sweep(ctx); err != nil {
			n.log.Error("Close sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	n.cron.Start()
	return nil
}

func (n *CloseNotifier) Stop() error {
	n.log.Info("Stopping close notifier")
	<-n.cron.Stop().Done()
	return nil
}

// Sweep publishes auction_closed for every auction whose end time lies in
// (previous sweep, now - 1s], i.e. that became closed since the last sweep.
// On a store error the window is not advanced, so the next sweep retries.
// Auctions whose event failed to publish are retried on every later sweep
// until the publish succeeds.
func (n *CloseNotifier) Sweep(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.clock.Now()
	auctions, err := n.store.Values(ctx)
	if err != nil {
		return err
	}

	// An auction is closed once now > endTime, so the newest closed end time is now-1.
	upper := now.Unix() - 1
	announced := 0
	for _, auction := range auctions {
		id := auction.Item.ID
		end := auction.Item.EndTime
		_, retry := n.pending[id]
		if !retry && (end < n.lastSweep || end > upper) {
			continue
		}

		event := &domain.AuctionEvent{
			Type:      domain.AuctionClosed,
			AuctionID: id,
			Timestamp: now.UTC().Truncate(time.Millisecond),
		}
		if winner, ok := auction.HighestBid.Get(); ok {
			event.Bidder = winner.Bidder
			event.Amount = winner.Amount
		}
		if err := n.eventPub.PublishAuctionEvent(ctx, event); err != nil {
			n.log.Warn("Failed to publish auction closed event", "auction_id", id, "error", err)
			n.pending[id] = struct{}{}
			continue
		}
		delete(n.pending, id)
		announced++
	}

	if upper+1 > n.lastSweep {
		n.lastSweep = upper + 1
	}
	if announced > 0 {
		n.log.Info("Announced closed auctions", "count", announced)
	}
	return nil
}
