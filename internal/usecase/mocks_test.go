package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"libraquant/internal/auth"
	"libraquant/internal/domain"
	"libraquant/internal/repository"
	"libraquant/internal/service"
)

// staticSource returns a settable snapshot or error
type staticSource struct {
	mu    sync.Mutex
	snap  *domain.Snapshot
	err   error
	calls int
}

func (s *staticSource) set(snap *domain.Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap, s.err = snap, err
}

func (s *staticSource) FetchSnapshot(context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := s.snap.Clone()
	return &out, nil
}

func (s *staticSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// slowSource delays every fetch
type slowSource struct {
	*staticSource
	delay time.Duration
}

func (s slowSource) FetchSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	time.Sleep(s.delay)
	return s.staticSource.FetchSnapshot(ctx)
}

type fetchResult struct {
	snap *domain.Snapshot
	err  error
}

// gatedSource holds every fetch until the test releases it
type gatedSource struct {
	mu      sync.Mutex
	gates   []chan fetchResult
	arrived chan int
}

func newGatedSource() *gatedSource {
	return &gatedSource{arrived: make(chan int, 16)}
}

func (s *gatedSource) FetchSnapshot(context.Context) (*domain.Snapshot, error) {
	gate := make(chan fetchResult, 1)
	s.mu.Lock()
	s.gates = append(s.gates, gate)
	n := len(s.gates) - 1
	s.mu.Unlock()

	s.arrived <- n
	r := <-gate
	return r.snap, r.err
}

func (s *gatedSource) waitArrival(t *testing.T) int {
	t.Helper()
	select {
	case n := <-s.arrived:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("fetch never started")
		return -1
	}
}

func (s *gatedSource) release(n int, snap *domain.Snapshot, err error) {
	s.mu.Lock()
	gate := s.gates[n]
	s.mu.Unlock()
	gate <- fetchResult{snap: snap, err: err}
}

type recordingNotifier struct {
	mu      sync.Mutex
	batches [][]domain.SignalChange
}

func (n *recordingNotifier) NotifySignalChanges(_ context.Context, changes []domain.SignalChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, changes)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.batches)
}

type recordingPusher struct {
	mu      sync.Mutex
	changes []domain.RemoteChange
}

func (p *recordingPusher) PushChange(_ context.Context, change domain.RemoteChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
}

func (p *recordingPusher) all() []domain.RemoteChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.RemoteChange(nil), p.changes...)
}

type fixedAnalyst struct{}

func (fixedAnalyst) AnalyzeSignal(_ context.Context, s domain.Signal) string {
	return "analysis of " + s.ID
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryStore(feed domain.ChangeFeed) (*repository.MemoryKVRepository, *service.LocalStore) {
	repo := repository.NewMemoryKVRepository()
	return repo, service.NewLocalStore(repo, feed)
}

func newTrust(t *testing.T, source domain.SnapshotSource, store *service.LocalStore, clock *fakeClock) *TrustManager {
	t.Helper()
	return NewTrustManager(source, store, auth.NewTokenIssuer("test-secret"), TrustOptions{
		SessionTTL: DefaultSessionTTL,
		Clock:      clock.Now,
	})
}

func signal(id string, status domain.SignalStatus) domain.Signal {
	return domain.Signal{
		ID:         id,
		Instrument: "NIFTY",
		Symbol:     "22500",
		Type:       domain.OptionCE,
		Action:     domain.ActionBuy,
		EntryPrice: 100,
		StopLoss:   90,
		Targets:    []float64{110},
		Status:     status,
		Timestamp:  time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC),
	}
}

func snapshotOf(signals ...domain.Signal) *domain.Snapshot {
	return &domain.Snapshot{Signals: signals, Watchlist: []domain.WatchlistItem{}, Users: []domain.User{}}
}

// startedEngine returns a running engine that polls rarely
func startedEngine(t *testing.T, source domain.SnapshotSource, store *service.LocalStore, notifier domain.SignalNotifier) *SyncEngine {
	t.Helper()
	engine := NewSyncEngine(source, store, EngineOptions{PollInterval: time.Hour, Notifier: notifier})
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(engine.Stop)
	return engine
}
