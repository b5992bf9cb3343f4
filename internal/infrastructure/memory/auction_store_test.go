package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-ledger/internal/domain"
)

func TestStoreReturnsCopies(t *testing.T) {
	s := NewAuctionStore()
	ctx := context.Background()

	a := domain.NewAuction(domain.AuctionItem{ID: "a", MinBid: 10})
	_, err := s.Insert(ctx, "a", a)
	require.NoError(t, err)

	a.Bids = append(a.Bids, domain.Bid{Bidder: "mallory", Amount: 1})

	got, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, got.Bids)

	got.Bids = append(got.Bids, domain.Bid{Bidder: "mallory", Amount: 1})
	again, _, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, again.Bids)
}

func TestInsertReturnsPrevious(t *testing.T) {
	s := NewAuctionStore()
	ctx := context.Background()

	previous, err := s.Insert(ctx, "a", domain.NewAuction(domain.AuctionItem{ID: "a", Title: "first"}))
	require.NoError(t, err)
	assert.Nil(t, previous)

	previous, err = s.Insert(ctx, "a", domain.NewAuction(domain.AuctionItem{ID: "a", Title: "second"}))
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, "first", previous.Item.Title)
}

func TestValuesSortedByKey(t *testing.T) {
	s := NewAuctionStore()
	ctx := context.Background()

	for _, id := range []string{"b", "c", "a"} {
		_, err := s.Insert(ctx, id, domain.NewAuction(domain.AuctionItem{ID: id}))
		require.NoError(t, err)
	}

	values, err := s.Values(ctx)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{values[0].Item.ID, values[1].Item.ID, values[2].Item.ID})

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}
