package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraquant/internal/domain"
)

// subscriberBuffer bounds how many unread changes a slow subscriber may hold
const subscriberBuffer = 32

// Hub fans storage changes out to in-process subscribers.
// Engines sharing one Hub behave like tabs of the same origin.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan domain.StorageChange
	nextID int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan domain.StorageChange)}
}

var _ domain.ChangeFeed = (*Hub)(nil)

// Publish delivers change to every subscriber, dropping it for subscribers
// whose buffer is full
func (h *Hub) Publish(_ context.Context, change domain.StorageChange) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- change:
		default:
			log.Printf("[WARN] change feed subscriber %d is full, dropping %s", id, change.Key)
		}
	}
	return nil
}

// Subscribe registers a new subscriber
func (h *Hub) Subscribe() (<-chan domain.StorageChange, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan domain.StorageChange, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// PostgresFeed carries storage changes between processes through
// Postgres LISTEN/NOTIFY
type PostgresFeed struct {
	db      *pgxpool.Pool
	channel string
	hub     *Hub
}

// NewPostgresFeed creates a feed on the given notification channel
func NewPostgresFeed(db *pgxpool.Pool, channel string) *PostgresFeed {
	return &PostgresFeed{db: db, channel: channel, hub: NewHub()}
}

var _ domain.ChangeFeed = (*PostgresFeed)(nil)

// Publish sends change as a NOTIFY payload
func (f *PostgresFeed) Publish(ctx context.Context, change domain.StorageChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal storage change: %w", err)
	}
	if _, err := f.db.Exec(ctx, `SELECT pg_notify($1, $2)`, f.channel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", f.channel, err)
	}
	return nil
}

// Subscribe registers a local subscriber; Listen must be running to feed it
func (f *PostgresFeed) Subscribe() (<-chan domain.StorageChange, func()) {
	return f.hub.Subscribe()
}

// Listen holds a dedicated connection and relays notifications until ctx ends.
// Lost connections are re-established after a short pause.
func (f *PostgresFeed) Listen(ctx context.Context) {
	log.Printf("[OK] Listening for storage changes on %q", f.channel)
	for ctx.Err() == nil {
		if err := f.listenOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("ERROR: change feed listener failed: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(3 * time.Second):
			}
		}
	}
}

func (f *PostgresFeed) listenOnce(ctx context.Context) error {
	conn, err := f.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var change domain.StorageChange
		if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
			log.Printf("[WARN] ignoring malformed storage notification: %v", err)
			continue
		}
		_ = f.hub.Publish(ctx, change)
	}
}
