package infra

import (
	"context"
	"fmt"
	"log"

	"libraquant/internal/domain"
	"libraquant/internal/repository"
)

// notifyChannel is the Postgres channel carrying storage changes
const notifyChannel = "libra_storage"

// Store is an opened key-value backend plus the feed siblings listen on
type Store struct {
	Repo   domain.KVRepository
	Feed   domain.ChangeFeed
	Driver string

	closers []func()
}

// OpenStore opens the backend named by driver: sqlite, postgres or memory.
// Postgres shares changes across processes; the others only within one.
func OpenStore(ctx context.Context, driver, path, databaseURL string) (*Store, error) {
	s := &Store{Driver: driver}

	switch driver {
	case "sqlite":
		db, err := NewSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		s.Repo = repository.NewSQLiteKVRepository(db)
		s.Feed = NewHub()
		s.closers = append(s.closers, func() { db.Close() })

	case "postgres":
		pool, err := NewDatabase(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		feed := NewPostgresFeed(pool, notifyChannel)
		listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		go feed.Listen(listenCtx)

		s.Repo = repository.NewPostgresKVRepository(pool)
		s.Feed = feed
		s.closers = append(s.closers, cancel, pool.Close)

	case "memory":
		log.Println("[WARN] Using in-memory store, nothing survives a restart")
		s.Repo = repository.NewMemoryKVRepository()
		s.Feed = NewHub()

	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	return s, nil
}

// Close releases the backend
func (s *Store) Close() {
	for _, c := range s.closers {
		c()
	}
}
