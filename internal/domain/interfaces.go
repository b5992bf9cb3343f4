package domain

import (
	"context"
	"time"
)

// AuctionStore holds auctions keyed by item id.
type AuctionStore interface {
	// Get returns (nil, false, nil) when id is absent.
	Get(ctx context.Context, id string) (*Auction, bool, error)
	// Insert upserts and returns the previous value, or nil.
	Insert(ctx context.Context, id string, auction *Auction) (*Auction, error)
	// Values returns every auction in key order.
	Values(ctx context.Context) ([]*Auction, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// Event interfaces
type EventPublisher interface {
	PublishAuctionEvent(ctx context.Context, event *AuctionEvent) error
}

type EventSubscriber interface {
	SubscribeToAuctionEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *AuctionEvent) error

// EventLog is the durable audit trail of auction events.
type EventLog interface {
	EventPublisher
	ListEvents(ctx context.Context, auctionID string) ([]*AuctionEvent, error)
}

// Notification interfaces
type AuctionBroadcaster interface {
	BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	ConnID() string
	AuctionID() string
}

type ConnectionManager interface {
	RegisterConnection(auctionID string, conn WebSocketConnection) error
	UnregisterConnection(auctionID, connID string) error
	GetConnectionsForAuction(auctionID string) []WebSocketConnection
	BroadcastToAuction(auctionID string, message interface{}) error
	CloseAndUnregisterConnections(auctionID string) error
}
