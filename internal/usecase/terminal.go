package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"libraquant/internal/domain"
	"libraquant/internal/service"
)

// maxAlerts is how many recent alerts are kept for display
const maxAlerts = 20

// ErrAdminOnly is returned when a non-admin session issues an admin command
var ErrAdminOnly = errors.New("admin access required")

// Alert is one batch of alert-worthy changes seen by a sync
type Alert struct {
	At      time.Time             `json:"at"`
	Changes []domain.SignalChange `json:"changes"`
	// Sound is set when the alert tone should play
	Sound bool `json:"sound"`
}

// TerminalDeps are the collaborators of a Terminal
type TerminalDeps struct {
	Trust    *TrustManager
	Source   domain.SnapshotSource
	Pusher   domain.ChangePusher
	Store    *service.LocalStore
	Analyst  domain.SignalAnalyst
	Notifier domain.SignalNotifier
	Engine   EngineOptions
}

// Terminal ties a login session to the lifetime of its sync engine
type Terminal struct {
	deps TerminalDeps

	// life serializes engine start and stop
	life sync.Mutex

	mu      sync.Mutex
	session *domain.Session
	engine  *SyncEngine
	admin   *AdminService
	alerts  []Alert
}

// NewTerminal creates a logged-out terminal
func NewTerminal(deps TerminalDeps) *Terminal {
	if deps.Engine.Clock == nil {
		deps.Engine.Clock = time.Now
	}
	return &Terminal{deps: deps}
}

// Login authenticates and starts a fresh sync engine for the session
func (t *Terminal) Login(ctx context.Context, phone, password string) (*domain.Session, error) {
	session, err := t.deps.Trust.Login(ctx, phone, password)
	if err != nil {
		return nil, err
	}
	if err := t.begin(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Restore resumes a persisted, unexpired session. It returns nil when
// there is nothing to resume.
func (t *Terminal) Restore(ctx context.Context) (*domain.Session, error) {
	session, err := t.deps.Trust.RestoreSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	if err := t.begin(ctx, session); err != nil {
		return nil, err
	}
	log.Printf("[OK] Resumed session for %s", maskPhone(session.User.PhoneNumber))
	return session, nil
}

// Logout stops the engine and clears the session record
func (t *Terminal) Logout(ctx context.Context) error {
	t.end()
	return t.deps.Trust.Logout(ctx)
}

// Close stops background work but keeps the session for the next start
func (t *Terminal) Close() {
	t.end()
}

// Authenticate resolves a bearer token to the live session. A token whose
// session has expired tears the engine down.
func (t *Terminal) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	session, err := t.deps.Trust.ValidateToken(ctx, token)
	if err != nil {
		t.mu.Lock()
		stale := t.session != nil && t.session.Token == token
		t.mu.Unlock()
		if stale {
			t.end()
		}
		return nil, err
	}

	if err := t.ensure(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Session returns the current session, or nil
func (t *Terminal) Session() *domain.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// Engine returns the running engine
func (t *Terminal) Engine() (*SyncEngine, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.engine == nil {
		return nil, domain.ErrNoSession
	}
	return t.engine, nil
}

// Admin returns the admin command service for an admin session
func (t *Terminal) Admin() (*AdminService, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.engine == nil {
		return nil, domain.ErrNoSession
	}
	if !t.session.User.IsAdmin {
		return nil, ErrAdminOnly
	}
	return t.admin, nil
}

// SessionTTL is how long a login stays valid
func (t *Terminal) SessionTTL() time.Duration {
	return t.deps.Trust.SessionTTL()
}

// DeviceID returns this install's device identifier
func (t *Terminal) DeviceID(ctx context.Context) (string, error) {
	return t.deps.Trust.DeviceID(ctx)
}

// ResetDevice releases a subscriber's device binding for an admin session
func (t *Terminal) ResetDevice(ctx context.Context, phone string) error {
	if _, err := t.Admin(); err != nil {
		return err
	}
	return t.deps.Trust.ResetDeviceBinding(ctx, phone)
}

// Dashboard returns the snapshot with signals in display order
func (t *Terminal) Dashboard() (domain.Snapshot, error) {
	engine, err := t.Engine()
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap := engine.Snapshot()
	snap.Signals = domain.SortSignalsForDisplay(snap.Signals)
	return snap, nil
}

// Stats aggregates the track record of the current signals
func (t *Terminal) Stats() (domain.PnLStats, error) {
	engine, err := t.Engine()
	if err != nil {
		return domain.PnLStats{}, err
	}
	return domain.ComputeStats(engine.Snapshot().Signals), nil
}

// Analyze returns a short technical read of one signal
func (t *Terminal) Analyze(ctx context.Context, id string) (string, error) {
	engine, err := t.Engine()
	if err != nil {
		return "", err
	}
	for _, s := range engine.Snapshot().Signals {
		if s.ID == id {
			return t.deps.Analyst.AnalyzeSignal(ctx, s), nil
		}
	}
	return "", fmt.Errorf("signal %s: %w", id, domain.ErrNotFound)
}

// Alerts returns recent alerts, newest first
func (t *Terminal) Alerts() []Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Alert, len(t.alerts))
	for i, a := range t.alerts {
		out[len(t.alerts)-1-i] = a
	}
	return out
}

// SoundEnabled returns the alert tone preference
func (t *Terminal) SoundEnabled(ctx context.Context) (bool, error) {
	return t.deps.Store.SoundEnabled(ctx)
}

// SetSoundEnabled stores the alert tone preference
func (t *Terminal) SetSoundEnabled(ctx context.Context, enabled bool) error {
	return t.deps.Store.SetSoundEnabled(ctx, enabled)
}

// NotifySignalChanges records an alert and forwards it to the outside notifier
func (t *Terminal) NotifySignalChanges(ctx context.Context, changes []domain.SignalChange) {
	sound, err := t.deps.Store.SoundEnabled(ctx)
	if err != nil {
		log.Printf("[WARN] Failed to read sound preference: %v", err)
	}

	t.mu.Lock()
	t.alerts = append(t.alerts, Alert{At: t.deps.Engine.Clock(), Changes: changes, Sound: sound})
	if len(t.alerts) > maxAlerts {
		t.alerts = t.alerts[len(t.alerts)-maxAlerts:]
	}
	t.mu.Unlock()

	if t.deps.Notifier != nil {
		t.deps.Notifier.NotifySignalChanges(ctx, changes)
	}
}

func (t *Terminal) begin(ctx context.Context, session *domain.Session) error {
	t.life.Lock()
	defer t.life.Unlock()
	return t.startLocked(ctx, session)
}

// ensure starts an engine for session unless one is already running
func (t *Terminal) ensure(ctx context.Context, session *domain.Session) error {
	t.life.Lock()
	defer t.life.Unlock()

	t.mu.Lock()
	running := t.engine != nil
	t.mu.Unlock()
	if running {
		return nil
	}
	return t.startLocked(ctx, session)
}

func (t *Terminal) startLocked(ctx context.Context, session *domain.Session) error {
	t.stopLocked()

	opts := t.deps.Engine
	opts.Notifier = t
	engine := NewSyncEngine(t.deps.Source, t.deps.Store, opts)

	// The engine outlives the request that started it
	if err := engine.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to start sync engine: %w", err)
	}

	t.mu.Lock()
	t.session = session
	t.engine = engine
	t.admin = NewAdminService(engine, t.deps.Pusher, opts.Clock)
	t.alerts = nil
	t.mu.Unlock()
	return nil
}

func (t *Terminal) end() {
	t.life.Lock()
	defer t.life.Unlock()
	t.stopLocked()
}

func (t *Terminal) stopLocked() {
	t.mu.Lock()
	engine, admin := t.engine, t.admin
	t.session, t.engine, t.admin = nil, nil, nil
	t.mu.Unlock()

	if engine != nil {
		engine.Stop()
	}
	if admin != nil {
		admin.Flush()
	}
}
