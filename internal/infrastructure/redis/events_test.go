package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	publisher := NewEventPublisher(client, "")
	subscriber := NewRedisEventSubscriber(client, "", logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []*domain.AuctionEvent
	go subscriber.SubscribeToAuctionEvents(ctx, func(e *domain.AuctionEvent) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
		return nil
	})

	sent := &domain.AuctionEvent{
		Type:      domain.BidAccepted,
		AuctionID: "item-1",
		Bidder:    "alice",
		Amount:    150,
		Timestamp: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	// Publishing before the subscription is live loses the message, so retry.
	require.Eventually(t, func() bool {
		_ = publisher.PublishAuctionEvent(ctx, sent)
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, sent.AuctionID, received[0].AuctionID)
	assert.Equal(t, sent.Amount, received[0].Amount)
	assert.True(t, sent.Timestamp.Equal(received[0].Timestamp))
}

func TestParseEventData(t *testing.T) {
	event, err := parseEventData(`{"type":"auction_closed","auction_id":"x","timestamp":"2030-01-01T00:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionClosed, event.Type)

	_, err = parseEventData("item:bid_accepted:alice:1:2")
	assert.Error(t, err)

	_, err = parseEventData(`{"type":"bid_accepted"}`)
	assert.Error(t, err)
}
