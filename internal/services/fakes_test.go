package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-ledger/internal/domain"
	"auction-ledger/internal/infrastructure/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type sequentialIDs struct {
	mu   sync.Mutex
	next int
}

func (g *sequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("item-%03d", g.next)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.AuctionEvent
	err    error
}

func (p *recordingPublisher) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []*domain.AuctionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*domain.AuctionEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *recordingPublisher) Types() []domain.AuctionEventType {
	var types []domain.AuctionEventType
	for _, e := range p.Events() {
		types = append(types, e.Type)
	}
	return types
}

var errDiskFull = errors.New("disk full")

// faultyStore wraps the memory store and fails selected calls.
type faultyStore struct {
	*memory.AuctionStore
	failGet    bool
	failInsert bool
	failValues bool
	inserts    int
}

func (s *faultyStore) Get(ctx context.Context, id string) (*domain.Auction, bool, error) {
	if s.failGet {
		return nil, false, errDiskFull
	}
	return s.AuctionStore.Get(ctx, id)
}

func (s *faultyStore) Insert(ctx context.Context, id string, a *domain.Auction) (*domain.Auction, error) {
	if s.failInsert {
		return nil, errDiskFull
	}
	s.inserts++
	return s.AuctionStore.Insert(ctx, id, a)
}

func (s *faultyStore) Values(ctx context.Context) ([]*domain.Auction, error) {
	if s.failValues {
		return nil, errDiskFull
	}
	return s.AuctionStore.Values(ctx)
}

type logEntry struct {
	level string
	msg   string
	kv    []interface{}
}

// recordingLogger keeps every entry for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, kv []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *recordingLogger) Info(msg string, kv ...interface{})  { l.add("info", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...interface{}) { l.add("error", msg, kv) }
func (l *recordingLogger) Debug(msg string, kv ...interface{}) { l.add("debug", msg, kv) }
func (l *recordingLogger) Warn(msg string, kv ...interface{})  { l.add("warn", msg, kv) }
func (l *recordingLogger) Fatal(msg string, kv ...interface{}) { l.add("fatal", msg, kv) }

func (l *recordingLogger) Errors() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == "error" {
			out = append(out, e)
		}
	}
	return out
}
