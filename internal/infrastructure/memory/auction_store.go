package memory

import (
	"context"
	"sort"
	"sync"

	"auction-ledger/internal/domain"
)

// AuctionStore keeps auctions in a map. Callers always receive copies, so
// mutating a returned auction never changes stored state.
type AuctionStore struct {
	mu       sync.RWMutex
	auctions map[string]*domain.Auction
}

func NewAuctionStore() *AuctionStore {
	return &AuctionStore{auctions: make(map[string]*domain.Auction)}
}

func (s *AuctionStore) Get(ctx context.Context, id string) (*domain.Auction, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, false, nil
	}
	return a.Clone(), true, nil
}

func (s *AuctionStore) Insert(ctx context.Context, id string, auction *domain.Auction) (*domain.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.auctions[id]
	s.auctions[id] = auction.Clone()
	return previous, nil
}

func (s *AuctionStore) Values(ctx context.Context) ([]*domain.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.auctions))
	for id := range s.auctions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	auctions := make([]*domain.Auction, 0, len(ids))
	for _, id := range ids {
		auctions = append(auctions, s.auctions[id].Clone())
	}
	return auctions, nil
}
