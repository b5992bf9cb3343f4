package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-ledger/internal/domain"
	"auction-ledger/pkg/logger"
)

type ListItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MinBid      int64  `json:"minBid"`
	EndDate     string `json:"endDate"`
}

// AuctionService is the auction state machine. An auction is open while
// now <= endTime and closed afterwards; nothing about that is stored.
type AuctionService struct {
	store    domain.AuctionStore
	clock    domain.Clock
	ids      domain.IDGenerator
	eventPub domain.EventPublisher
	itemLock *keyedMutex
	log      logger.Logger
}

func NewAuctionService(
	store domain.AuctionStore,
	clock domain.Clock,
	ids domain.IDGenerator,
	eventPub domain.EventPublisher,
	log logger.Logger,
) *AuctionService {
	return &AuctionService{
		store:    store,
		clock:    clock,
		ids:      ids,
		eventPub: eventPub,
		itemLock: newKeyedMutex(),
		log:      log,
	}
}

func (s *AuctionService) ListItem(ctx context.Context, req ListItemRequest) (*domain.Auction, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, domain.NewError(domain.KindInvalidPayload, "title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, domain.NewError(domain.KindInvalidPayload, "description is required")
	}
	if req.MinBid <= 0 {
		return nil, domain.NewError(domain.KindInvalidPayload, "minBid must be positive")
	}
	endTime, err := domain.ConvertDateToTimestamp(req.EndDate)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindInvalidPayload, Message: "endDate is not a valid date", Err: err}
	}

	auction := domain.NewAuction(domain.AuctionItem{
		ID:          s.ids.NewID(),
		Title:       req.Title,
		Description: req.Description,
		MinBid:      req.MinBid,
		EndTime:     endTime,
	})

	if _, err := s.store.Insert(ctx, auction.Item.ID, auction); err != nil {
		s.log.Error("Failed to store auction", "auction_id", auction.Item.ID, "error", err)
		return nil, domain.StorageFailure("list auction", err)
	}

	s.log.Info("Auction listed", "auction_id", auction.Item.ID, "min_bid", auction.Item.MinBid, "end_time", endTime)
	s.publish(ctx, &domain.AuctionEvent{
		Type:      domain.AuctionListed,
		AuctionID: auction.Item.ID,
		Amount:    auction.Item.MinBid,
	})
	return auction, nil
}

// PlaceBid accepts bid only if it is strictly above both the floor and the
// current highest bid while the auction is open.
func (s *AuctionService) PlaceBid(ctx context.Context, itemID string, bid domain.Bid) (*domain.Auction, error) {
	s.log.Info("Placing bid", "auction_id", itemID, "bidder", bid.Bidder, "amount", bid.Amount)

	unlock := s.itemLock.Lock(itemID)
	defer unlock()

	auction, found, err := s.store.Get(ctx, itemID)
	if err != nil {
		s.log.Error("Failed to load auction", "auction_id", itemID, "error", err)
		return nil, domain.StorageFailure("place bid", err)
	}
	if !found {
		return nil, domain.ErrNotFound
	}

	if err := s.validateBid(auction, bid); err != nil {
		s.log.Info("Bid rejected", "auction_id", itemID, "amount", bid.Amount, "reason", domain.KindOf(err))
		s.publish(ctx, &domain.AuctionEvent{
			Type:      domain.BidRejected,
			AuctionID: itemID,
			Bidder:    bid.Bidder,
			Amount:    bid.Amount,
			Reason:    string(domain.KindOf(err)),
		})
		return nil, err
	}

	auction.Bids = append(auction.Bids, bid)
	auction.HighestBid = domain.SomeBid(bid)

	if _, err := s.store.Insert(ctx, itemID, auction); err != nil {
		s.log.Error("Failed to store bid", "auction_id", itemID, "error", err)
		return nil, domain.StorageFailure("place bid", err)
	}

	s.log.Info("Bid accepted", "auction_id", itemID, "bidder", bid.Bidder, "amount", bid.Amount)
	s.publish(ctx, &domain.AuctionEvent{
		Type:      domain.BidAccepted,
		AuctionID: itemID,
		Bidder:    bid.Bidder,
		Amount:    bid.Amount,
	})
	return auction, nil
}

func (s *AuctionService) validateBid(auction *domain.Auction, bid domain.Bid) error {
	if bid.Amount <= 0 {
		return domain.ErrInvalidBid
	}

	if auction.State(s.clock.Now()) == domain.StateClosed {
		return domain.ErrAuctionEnded
	}

	if bid.Amount <= auction.Item.MinBid {
		return domain.NewError(domain.KindBidTooLow,
			fmt.Sprintf("bid must exceed the minimum bid of %d", auction.Item.MinBid))
	}
	if highest, ok := auction.HighestBid.Get(); ok && bid.Amount <= highest.Amount {
		return domain.NewError(domain.KindBidTooLow,
			fmt.Sprintf("bid must exceed the current highest bid of %d", highest.Amount))
	}
	return nil
}

// GetAuctions returns every stored auction in store order. Never nil.
func (s *AuctionService) GetAuctions(ctx context.Context) ([]*domain.Auction, error) {
	auctions, err := s.store.Values(ctx)
	if err != nil {
		s.log.Error("Failed to fetch auctions", "error", err)
		return nil, domain.StorageFailure("fetch auctions", err)
	}
	if auctions == nil {
		auctions = []*domain.Auction{}
	}
	return auctions, nil
}

func (s *AuctionService) GetAuction(ctx context.Context, itemID string) (*domain.Auction, error) {
	auction, found, err := s.store.Get(ctx, itemID)
	if err != nil {
		s.log.Error("Failed to load auction", "auction_id", itemID, "error", err)
		return nil, domain.StorageFailure("get auction", err)
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return auction, nil
}

// GetWinner returns the highest bid of a closed auction. An absent bid is a
// successful result: the auction closed without bids.
func (s *AuctionService) GetWinner(ctx context.Context, itemID string) (domain.HighestBid, error) {
	auction, err := s.GetAuction(ctx, itemID)
	if err != nil {
		return domain.NoBid(), err
	}

	if auction.State(s.clock.Now()) == domain.StateOpen {
		return domain.NoBid(), domain.ErrAuctionNotEnded
	}

	return auction.HighestBid, nil
}

// publish is best effort: the store write has already happened.
func (s *AuctionService) publish(ctx context.Context, event *domain.AuctionEvent) {
	if s.eventPub == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now().UTC().Truncate(time.Millisecond)
	}
	if err := s.eventPub.PublishAuctionEvent(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("Failed to publish auction event", "type", event.Type, "auction_id", event.AuctionID, "error", err)
	}
}
