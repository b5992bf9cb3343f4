package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"auction-ledger/internal/domain"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS auction_events (
    id         BIGINT AUTO_INCREMENT PRIMARY KEY,
    auction_id VARCHAR(64)  NOT NULL,
    event_type VARCHAR(32)  NOT NULL,
    bidder     VARCHAR(255) NOT NULL DEFAULT '',
    amount     BIGINT       NOT NULL DEFAULT 0,
    reason     VARCHAR(64)  NOT NULL DEFAULT '',
    timestamp  DATETIME(3)  NOT NULL,
    created_at DATETIME(3)  NOT NULL,
    INDEX idx_auction_events_auction (auction_id, id)
)`

// MySQLEventRepository is the audit trail of every auction event, including
// rejected bids that never reach the auction record.
type MySQLEventRepository struct {
	db *sql.DB
}

func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}

func (r *MySQLEventRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createEventsTable)
	return err
}

func (r *MySQLEventRepository) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	return r.SaveEvent(ctx, event)
}

func (r *MySQLEventRepository) SaveEvent(ctx context.Context, event *domain.AuctionEvent) error {
	query := `
        INSERT INTO auction_events (auction_id, event_type, bidder, amount, reason, timestamp, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		event.AuctionID, string(event.Type), event.Bidder, event.Amount,
		event.Reason, event.Timestamp, time.Now().UTC())
	return err
}

func (r *MySQLEventRepository) ListEvents(ctx context.Context, auctionID string) ([]*domain.AuctionEvent, error) {
	query := `
        SELECT auction_id, event_type, bidder, amount, reason, timestamp
        FROM auction_events
        WHERE auction_id = ?
        ORDER BY id ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*domain.AuctionEvent{}
	for rows.Next() {
		var event domain.AuctionEvent
		var eventType string

		err := rows.Scan(&event.AuctionID, &eventType, &event.Bidder,
			&event.Amount, &event.Reason, &event.Timestamp)
		if err != nil {
			return nil, err
		}

		event.Type = domain.AuctionEventType(eventType)
		events = append(events, &event)
	}

	return events, rows.Err()
}
