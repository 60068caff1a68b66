package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraquant/internal/database"
	"libraquant/internal/domain"
)

func newSQLiteRepo(t *testing.T) domain.KVRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "store.db")+"?_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunSQLiteMigrations(context.Background(), db))
	require.NoError(t, database.RunSQLiteMigrations(context.Background(), db))
	return NewSQLiteKVRepository(db)
}

func TestKVRepositories(t *testing.T) {
	repos := map[string]func(t *testing.T) domain.KVRepository{
		"memory": func(*testing.T) domain.KVRepository { return NewMemoryKVRepository() },
		"sqlite": newSQLiteRepo,
	}

	for name, open := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(t)

			_, ok, err := repo.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, repo.Set(ctx, "k", "v1"))
			require.NoError(t, repo.Set(ctx, "k", "v2"))
			v, ok, err := repo.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v2", v)

			held, wrote, err := repo.SetIfAbsent(ctx, "claim", "a")
			require.NoError(t, err)
			assert.True(t, wrote)
			assert.Equal(t, "a", held)

			held, wrote, err = repo.SetIfAbsent(ctx, "claim", "b")
			require.NoError(t, err)
			assert.False(t, wrote)
			assert.Equal(t, "a", held)

			require.NoError(t, repo.Delete(ctx, "claim"))
			require.NoError(t, repo.Delete(ctx, "claim"))
			_, ok, err = repo.Get(ctx, "claim")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestMemorySetIfAbsentRace(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryKVRepository()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, wrote, err := repo.SetIfAbsent(ctx, "device", string(rune('a'+i)))
			assert.NoError(t, err)
			if wrote {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}
