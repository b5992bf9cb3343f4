package domain

import (
	"context"
)

// AuctionScheduler runs periodic background jobs over the stored auctions.
type AuctionScheduler interface {
	Start(ctx context.Context) error
	Stop() error
}
