package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"libraquant/internal/domain"
	"libraquant/internal/infra"
	"libraquant/internal/service"
)

// DefaultPollInterval is how often the sheet is re-read while a session is open
const DefaultPollInterval = 12 * time.Second

// ErrEngineRunning is returned by Start on an engine that is already running
var ErrEngineRunning = errors.New("sync engine already running")

// EngineOptions configures a SyncEngine
type EngineOptions struct {
	PollInterval time.Duration
	// Seed is shown when nothing has been cached yet
	Seed *domain.Snapshot
	// Notifier receives alert-worthy signal changes; may be nil
	Notifier domain.SignalNotifier
	Clock    func() time.Time
}

// SyncEngine owns the in-memory snapshot and keeps it in step with the sheet,
// the local store and sibling engines sharing that store.
type SyncEngine struct {
	source   domain.SnapshotSource
	store    *service.LocalStore
	notifier domain.SignalNotifier
	interval time.Duration
	seed     *domain.Snapshot
	now      func() time.Time

	mu         sync.Mutex
	snapshot   domain.Snapshot
	status     domain.SyncStatus
	primed     bool
	seq        uint64 // last issued sync number
	applied    uint64 // last sync number whose result was applied
	generation uint64
	running    bool
	cancel     context.CancelFunc
	scheduler  *infra.Scheduler
	unsub      func()
	listeners  []func(domain.SyncStatus)
}

// NewSyncEngine creates a stopped engine
func NewSyncEngine(source domain.SnapshotSource, store *service.LocalStore, opts EngineOptions) *SyncEngine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &SyncEngine{
		source:   source,
		store:    store,
		notifier: opts.Notifier,
		interval: opts.PollInterval,
		seed:     opts.Seed,
		now:      opts.Clock,
		status:   domain.SyncStatus{Connection: domain.ConnSyncing},
	}
}

// OnStatusChange registers fn to be called after every status transition
func (e *SyncEngine) OnStatusChange(fn func(domain.SyncStatus)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Start hydrates from the store, begins watching sibling writes and polling,
// and performs the initial sync. A failed initial sync leaves the engine
// running in the error state; Start only fails if the engine cannot run.
func (e *SyncEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrEngineRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.generation++
	gen := e.generation
	e.cancel = cancel
	e.primed = false
	e.status = domain.SyncStatus{Connection: domain.ConnSyncing}
	e.snapshot = e.hydrate(runCtx)

	if feed := e.store.Feed(); feed != nil {
		ch, unsub := feed.Subscribe()
		e.unsub = unsub
		go e.watchFeed(runCtx, ch, gen)
	}

	e.scheduler = infra.NewScheduler("sheet-poll", e.interval, func(ctx context.Context) {
		_ = e.SyncNow(ctx, false)
	})
	if err := e.scheduler.Start(runCtx); err != nil {
		e.mu.Unlock()
		e.Stop()
		return err
	}
	e.mu.Unlock()

	log.Printf("[SYNC] Engine started (poll every %s)", e.interval)
	if err := e.SyncNow(runCtx, true); err != nil {
		log.Printf("[WARN] Initial sync failed, serving cached data: %v", err)
	}
	return nil
}

// Stop cancels polling, the feed subscription and any in-flight fetch.
// Results arriving after Stop are discarded.
func (e *SyncEngine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.generation++
	cancel, scheduler, unsub := e.cancel, e.scheduler, e.unsub
	e.cancel, e.scheduler, e.unsub = nil, nil, nil
	e.mu.Unlock()

	if scheduler != nil {
		scheduler.Stop()
	}
	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
	log.Println("[SYNC] Engine stopped")
}

// SyncNow runs one sync cycle. Overlapping calls are allowed: a result is
// applied only if no later-numbered call has already completed.
func (e *SyncEngine) SyncNow(ctx context.Context, initial bool) error {
	e.mu.Lock()
	e.seq++
	seq, gen := e.seq, e.generation
	e.status.Connection = domain.ConnSyncing
	status := e.status
	e.mu.Unlock()
	e.emit(status)

	snap, err := e.source.FetchSnapshot(ctx)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return nil
	}
	if seq <= e.applied {
		e.mu.Unlock()
		log.Printf("[SYNC] Dropping stale result of sync #%d", seq)
		return nil
	}
	e.applied = seq

	if err != nil {
		e.status.Connection = domain.ConnError
		e.status.LastError = err
		status := e.status
		e.mu.Unlock()

		log.Printf("ERROR: Sync #%d failed: %v", seq, err)
		e.emit(status)
		return fmt.Errorf("failed to sync: %w", err)
	}

	var changes []domain.SignalChange
	if !initial && e.primed {
		changes = domain.DiffSignals(e.snapshot.Signals, snap.Signals)
	}
	e.snapshot = snap.Clone()
	e.primed = true
	e.status.Connection = domain.ConnConnected
	e.status.LastError = nil
	e.status.LastSyncedAt = e.now()
	if len(changes) > 0 {
		e.status.AlertCount++
	}
	e.persistLocked(ctx, domain.TargetSignals, domain.TargetWatchlist, domain.TargetUsers)
	status = e.status
	e.mu.Unlock()

	e.emit(status)
	if len(changes) > 0 {
		log.Printf("[SYNC] %d signal change(s) detected", len(changes))
		if e.notifier != nil {
			e.notifier.NotifySignalChanges(ctx, changes)
		}
	}
	return nil
}

// Retry re-runs a sync; safe to call while one is in flight
func (e *SyncEngine) Retry(ctx context.Context) error {
	return e.SyncNow(ctx, false)
}

// Snapshot returns a copy of the current snapshot
func (e *SyncEngine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot.Clone()
}

// Status returns the current sync status
func (e *SyncEngine) Status() domain.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Running reports whether the engine has been started and not stopped
func (e *SyncEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// ApplyLocal applies an optimistic edit to one collection and persists it.
// The edit is confirmed or overwritten by the next successful sync.
func (e *SyncEngine) ApplyLocal(ctx context.Context, target string, fn func(*domain.Snapshot) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.snapshot.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	e.snapshot = next
	e.persistLocked(ctx, target)
	return nil
}

// hydrate reads the cached snapshot, falling back to the seed
func (e *SyncEngine) hydrate(ctx context.Context) domain.Snapshot {
	var snap domain.Snapshot
	var cached bool

	signals, ok, err := e.store.LoadSignals(ctx)
	if err != nil {
		log.Printf("[WARN] Ignoring cached signals: %v", err)
	}
	if ok {
		snap.Signals, cached = signals, true
	}
	watchlist, ok, err := e.store.LoadWatchlist(ctx)
	if err != nil {
		log.Printf("[WARN] Ignoring cached watchlist: %v", err)
	}
	if ok {
		snap.Watchlist, cached = watchlist, true
	}
	users, ok, err := e.store.LoadUsers(ctx)
	if err != nil {
		log.Printf("[WARN] Ignoring cached users: %v", err)
	}
	if ok {
		snap.Users, cached = users, true
	}

	if !cached && e.seed != nil {
		log.Println("[SYNC] No cached data, showing demo snapshot")
		return e.seed.Clone()
	}
	return snap
}

// watchFeed adopts collections rewritten by sibling engines
func (e *SyncEngine) watchFeed(ctx context.Context, ch <-chan domain.StorageChange, gen uint64) {
	for change := range ch {
		if change.Origin == e.store.Origin() || !service.IsSnapshotKey(change.Key) {
			continue
		}
		if err := e.adopt(ctx, change.Key, gen); err != nil {
			log.Printf("[WARN] Failed to adopt %s from sibling: %v", change.Key, err)
		}
	}
}

func (e *SyncEngine) adopt(ctx context.Context, key string, gen uint64) error {
	var (
		signals   []domain.Signal
		watchlist []domain.WatchlistItem
		users     []domain.User
		ok        bool
		err       error
	)
	switch key {
	case service.KeySignals:
		signals, ok, err = e.store.LoadSignals(ctx)
	case service.KeyWatchlist:
		watchlist, ok, err = e.store.LoadWatchlist(ctx)
	case service.KeyUsers:
		users, ok, err = e.store.LoadUsers(ctx)
	}
	if err != nil || !ok {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return nil
	}
	switch key {
	case service.KeySignals:
		e.snapshot.Signals = signals
	case service.KeyWatchlist:
		e.snapshot.Watchlist = watchlist
	case service.KeyUsers:
		e.snapshot.Users = users
	}
	log.Printf("[SYNC] Adopted %s from sibling", key)
	return nil
}

// persistLocked writes the named collections; failures only cost the cache
func (e *SyncEngine) persistLocked(ctx context.Context, targets ...string) {
	for _, target := range targets {
		var err error
		switch target {
		case domain.TargetSignals:
			err = e.store.SaveSignals(ctx, e.snapshot.Signals)
		case domain.TargetWatchlist:
			err = e.store.SaveWatchlist(ctx, e.snapshot.Watchlist)
		case domain.TargetUsers:
			err = e.store.SaveUsers(ctx, e.snapshot.Users)
		}
		if err != nil {
			log.Printf("ERROR: Failed to persist %s: %v", target, err)
		}
	}
}

func (e *SyncEngine) emit(status domain.SyncStatus) {
	e.mu.Lock()
	listeners := append([]func(domain.SyncStatus){}, e.listeners...)
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
}
