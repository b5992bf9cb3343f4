package services

import (
	"context"
	"fmt"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"
)

// EventListener turns auction events into websocket messages for watchers.
type EventListener struct {
	broadcaster       domain.AuctionBroadcaster
	connectionManager domain.ConnectionManager
	log               logger.Logger
}

func NewEventListener(connectionManager domain.ConnectionManager,
	broadcaster domain.AuctionBroadcaster, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster:       broadcaster,
		connectionManager: connectionManager,
		log:               log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.SubscribeToAuctionEvents(ctx, el.handleEvent)
}

func (el *EventListener) handleEvent(event *domain.AuctionEvent) error {
	el.log.Debug("Handling auction event", "type", event.Type, "auction_id", event.AuctionID)

	switch event.Type {
	case domain.BidAccepted:
		return el.handleBidAccepted(event)
	case domain.AuctionClosed:
		return el.handleAuctionClosed(event)
	case domain.AuctionListed, domain.BidRejected:
		return nil
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}

func (el *EventListener) handleBidAccepted(event *domain.AuctionEvent) error {
	return el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
		"type":           "bid_update",
		"current_bid":    event.Amount,
		"current_winner": event.Bidder,
		"timestamp":      event.Timestamp,
	})
}

func (el *EventListener) handleAuctionClosed(event *domain.AuctionEvent) error {
	message := map[string]interface{}{
		"type":      "auction_closed",
		"winner":    nil,
		"timestamp": event.Timestamp,
	}
	if event.Bidder != "" || event.Amount > 0 {
		message["winner"] = domain.Bid{Bidder: event.Bidder, Amount: event.Amount}
	}

	if err := el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, message); err != nil {
		el.log.Error("Failed to broadcast auction closed event", "error", err)
		return err
	}

	if err := el.connectionManager.CloseAndUnregisterConnections(event.AuctionID); err != nil {
		el.log.Error("Failed to finalize connections for auction", "auction_id",
			event.AuctionID, "error", err)
		return err
	}
	return nil
}
