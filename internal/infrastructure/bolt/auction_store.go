// Package bolt stores auctions in a single BoltDB bucket.
//
// Keys are item ids and values are JSON-encoded domain.Auction records.
// BoltDB keeps keys sorted, so Values returns auctions in id order.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"auction-ledger/internal/domain"
)

const bucketName = "auctions"

// ErrRecordTooLarge is returned when an encoded auction exceeds the configured record size.
var ErrRecordTooLarge = errors.New("auction record exceeds maximum size")

type Options struct {
	Timeout        time.Duration
	MaxRecordBytes int
}

type AuctionStore struct {
	db             *bolt.DB
	maxRecordBytes int
}

// New opens (or creates) the database at path and ensures the auctions bucket exists.
func New(path string, opts Options) (*AuctionStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", bucketName, err)
	}

	return &AuctionStore{db: db, maxRecordBytes: opts.MaxRecordBytes}, nil
}

// Close releases the database file lock.
func (s *AuctionStore) Close() error {
	return s.db.Close()
}

func (s *AuctionStore) Get(ctx context.Context, id string) (*domain.Auction, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var auction *domain.Auction
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if v == nil {
			return nil
		}
		var a domain.Auction
		if err := json.Unmarshal(v, &a); err != nil {
			return fmt.Errorf("decode auction %s: %w", id, err)
		}
		auction = &a
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return auction, auction != nil, nil
}

func (s *AuctionStore) Insert(ctx context.Context, id string, auction *domain.Auction) (*domain.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(auction)
	if err != nil {
		return nil, fmt.Errorf("encode auction %s: %w", id, err)
	}
	if s.maxRecordBytes > 0 && len(data) > s.maxRecordBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrRecordTooLarge, len(data), s.maxRecordBytes)
	}

	var previous *domain.Auction
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		if existing := b.Get([]byte(id)); existing != nil {
			var p domain.Auction
			if err := json.Unmarshal(existing, &p); err != nil {
				return fmt.Errorf("decode previous auction %s: %w", id, err)
			}
			previous = &p
		}

		return b.Put([]byte(id), data)
	})
	if err != nil {
		return nil, err
	}

	return previous, nil
}

func (s *AuctionStore) Values(ctx context.Context) ([]*domain.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	auctions := []*domain.Auction{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var a domain.Auction
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("decode auction %s: %w", k, err)
			}
			auctions = append(auctions, &a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return auctions, nil
}
