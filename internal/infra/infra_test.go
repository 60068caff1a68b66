package infra

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraquant/internal/domain"
)

func TestHubFansOutAndUnsubscribes(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	change := domain.StorageChange{Key: "libra_signals", Origin: "tab-1"}
	require.NoError(t, hub.Publish(context.Background(), change))

	assert.Equal(t, change, <-a)
	assert.Equal(t, change, <-b)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)

	require.NoError(t, hub.Publish(context.Background(), change))
	assert.Equal(t, change, <-b)
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, hub.Publish(context.Background(), domain.StorageChange{Key: "k"}))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestSchedulerRunsUntilStopped(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler("test", time.Second, func(ctx context.Context) {
		runs.Add(1)
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	s.Stop()
	after := runs.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestOpenStoreSQLiteAndMemory(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, "sqlite", t.TempDir()+"/nested/store.db", "")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Repo.Set(ctx, "k", "v"))
	got, ok, err := s.Repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	mem, err := OpenStore(ctx, "memory", "", "")
	require.NoError(t, err)
	defer mem.Close()
	assert.NotNil(t, mem.Feed)

	_, err = OpenStore(ctx, "redis", "", "")
	assert.Error(t, err)

	_, err = OpenStore(ctx, "postgres", "", "")
	assert.Error(t, err)
}
