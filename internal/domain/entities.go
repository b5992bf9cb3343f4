package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// AuctionItem is fixed at listing time.
type AuctionItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MinBid      int64  `json:"minBid"`
	// EndTime is whole seconds since the Unix epoch.
	EndTime int64 `json:"endTime"`
}

type Bid struct {
	Bidder string `json:"bidder"`
	Amount int64  `json:"amount"`
}

// HighestBid is either a present bid or absent. The zero value is absent.
type HighestBid struct {
	bid   Bid
	valid bool
}

func SomeBid(b Bid) HighestBid {
	return HighestBid{bid: b, valid: true}
}

func NoBid() HighestBid {
	return HighestBid{}
}

// Get returns the bid and whether one is present.
func (h HighestBid) Get() (Bid, bool) {
	return h.bid, h.valid
}

func (h HighestBid) Present() bool {
	return h.valid
}

func (h HighestBid) MarshalJSON() ([]byte, error) {
	if !h.valid {
		return []byte("null"), nil
	}
	return json.Marshal(h.bid)
}

func (h *HighestBid) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*h = NoBid()
		return nil
	}
	var b Bid
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*h = SomeBid(b)
	return nil
}

// Auction is the unit of storage, keyed by Item.ID. Bids are append-only in
// arrival order and HighestBid is always the last accepted bid.
type Auction struct {
	Item       AuctionItem `json:"item"`
	Bids       []Bid       `json:"bids"`
	HighestBid HighestBid  `json:"highestBid"`
}

func NewAuction(item AuctionItem) *Auction {
	return &Auction{
		Item:       item,
		Bids:       []Bid{},
		HighestBid: NoBid(),
	}
}

// Clone returns a copy that shares no slice storage with a.
func (a *Auction) Clone() *Auction {
	bids := make([]Bid, len(a.Bids))
	copy(bids, a.Bids)
	return &Auction{
		Item:       a.Item,
		Bids:       bids,
		HighestBid: a.HighestBid,
	}
}

// State reports whether the auction is open or closed at now. It is never stored.
func (a *Auction) State(now time.Time) AuctionState {
	if now.Unix() > a.Item.EndTime {
		return StateClosed
	}
	return StateOpen
}

type AuctionState int

const (
	StateOpen AuctionState = iota
	StateClosed
)

func (s AuctionState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type AuctionEvent struct {
	Type      AuctionEventType `json:"type"`
	AuctionID string           `json:"auction_id"`
	Bidder    string           `json:"bidder,omitempty"`
	Amount    int64            `json:"amount,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

type AuctionEventType string

const (
	AuctionListed AuctionEventType = "auction_listed"
	BidAccepted   AuctionEventType = "bid_accepted"
	BidRejected   AuctionEventType = "bid_rejected"
	AuctionClosed AuctionEventType = "auction_closed"
)
