package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"
)

func TestFanoutPublisherReachesAllSinks(t *testing.T) {
	first := &recordingPublisher{err: errors.New("first down")}
	second := &recordingPublisher{}
	fanout := NewFanoutPublisher(first)
	fanout.Add(second)

	err := fanout.PublishAuctionEvent(context.Background(), &domain.AuctionEvent{Type: domain.AuctionListed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first down")
	assert.Len(t, first.Events(), 1)
	assert.Len(t, second.Events(), 1)
}

func TestLocalEventBusDeliversToSubscribers(t *testing.T) {
	bus := NewLocalEventBus(8, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var got []*domain.AuctionEvent
	done := make(chan error, 1)
	go func() {
		done <- bus.SubscribeToAuctionEvents(ctx, func(e *domain.AuctionEvent) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, e)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return bus.subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.PublishAuctionEvent(ctx, &domain.AuctionEvent{Type: domain.BidAccepted, AuctionID: "a"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, bus.subscribers())
}

func TestLocalEventBusLogsHandlerErrors(t *testing.T) {
	log := &recordingLogger{}
	bus := NewLocalEventBus(8, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan struct{}, 2)
	go func() {
		_ = bus.SubscribeToAuctionEvents(ctx, func(e *domain.AuctionEvent) error {
			defer func() { handled <- struct{}{} }()
			if e.Type == domain.BidRejected {
				return errors.New("no sockets")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return bus.subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.PublishAuctionEvent(ctx, &domain.AuctionEvent{Type: domain.BidRejected, AuctionID: "a"}))
	require.NoError(t, bus.PublishAuctionEvent(ctx, &domain.AuctionEvent{Type: domain.BidAccepted, AuctionID: "a"}))
	<-handled
	<-handled

	// The subscriber keeps going after a failed handler.
	require.Eventually(t, func() bool { return len(log.Errors()) == 1 }, time.Second, 5*time.Millisecond)
	entry := log.Errors()[0]
	assert.Equal(t, "Failed to handle event", entry.msg)
	assert.Contains(t, entry.kv, "a")
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []map[string]interface{}
}

func (b *recordingBroadcaster) BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message.(map[string]interface{}))
	return nil
}

type recordingConnManager struct {
	domain.ConnectionManager
	closed []string
}

func (m *recordingConnManager) CloseAndUnregisterConnections(auctionID string) error {
	m.closed = append(m.closed, auctionID)
	return nil
}

func TestEventListenerBroadcasts(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	conns := &recordingConnManager{}
	listener := NewEventListener(conns, broadcaster, logger.NewNop())

	require.NoError(t, listener.handleEvent(&domain.AuctionEvent{Type: domain.BidRejected, AuctionID: "a"}))
	assert.Empty(t, broadcaster.messages)

	require.NoError(t, listener.handleEvent(&domain.AuctionEvent{
		Type: domain.BidAccepted, AuctionID: "a", Bidder: "alice", Amount: 150,
	}))
	require.Len(t, broadcaster.messages, 1)
	assert.Equal(t, "bid_update", broadcaster.messages[0]["type"])
	assert.Equal(t, int64(150), broadcaster.messages[0]["current_bid"])

	require.NoError(t, listener.handleEvent(&domain.AuctionEvent{Type: domain.AuctionClosed, AuctionID: "a"}))
	require.Len(t, broadcaster.messages, 2)
	assert.Nil(t, broadcaster.messages[1]["winner"])
	assert.Equal(t, []string{"a"}, conns.closed)

	assert.Error(t, listener.handleEvent(&domain.AuctionEvent{Type: "mystery"}))
}
