package mysql

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-ledger/internal/domain"
)

func newMockRepo(t *testing.T) (*MySQLEventRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLEventRepository(db), mock
}

func TestSaveEvent(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auction_events")).
		WithArgs("item-1", "bid_rejected", "alice", int64(50), "BidTooLow", ts, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.PublishAuctionEvent(context.Background(), &domain.AuctionEvent{
		Type:      domain.BidRejected,
		AuctionID: "item-1",
		Bidder:    "alice",
		Amount:    50,
		Reason:    "BidTooLow",
		Timestamp: ts,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEvents(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"auction_id", "event_type", "bidder", "amount", "reason", "timestamp"}).
		AddRow("item-1", "auction_listed", "", int64(100), "", ts).
		AddRow("item-1", "bid_accepted", "bob", int64(150), "", ts.Add(time.Second))
	mock.ExpectQuery(regexp.QuoteMeta("FROM auction_events")).
		WithArgs("item-1").
		WillReturnRows(rows)

	events, err := repo.ListEvents(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.AuctionListed, events[0].Type)
	assert.Equal(t, domain.BidAccepted, events[1].Type)
	assert.Equal(t, "bob", events[1].Bidder)
	assert.Equal(t, int64(150), events[1].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEventsEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM auction_events")).
		WithArgs("none").
		WillReturnRows(sqlmock.NewRows([]string{"auction_id", "event_type", "bidder", "amount", "reason", "timestamp"}))

	events, err := repo.ListEvents(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEnsureSchema(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS auction_events")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
