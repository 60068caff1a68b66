package usecase

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"libraquant/internal/domain"
	"libraquant/internal/utils"
)

// pushTimeout bounds a single background write to the sheet
const pushTimeout = 30 * time.Second

// NewSignalInput is an admin-authored signal
type NewSignalInput struct {
	Instrument string
	Symbol     string
	Type       string
	Action     string
	EntryPrice float64
	StopLoss   float64
	// Targets is a comma separated list; unreadable entries are skipped
	Targets string
	Comment string
}

// SignalUpdate carries the editable fields of a live signal.
// Nil fields are cleared, matching the sheet row being rewritten.
type SignalUpdate struct {
	Status     domain.SignalStatus
	PnLPoints  *float64
	PnLRupees  *float64
	TrailingSL *float64
}

// UserUpdate carries optional user edits; nil fields are left unchanged
type UserUpdate struct {
	Name       *string
	ExpiryDate *string
	IsAdmin    *bool
	Password   *string
}

// AdminService applies admin commands optimistically and forwards them to the sheet
type AdminService struct {
	engine *SyncEngine
	pusher domain.ChangePusher
	now    func() time.Time

	pending sync.WaitGroup
}

// NewAdminService creates a new AdminService
func NewAdminService(engine *SyncEngine, pusher domain.ChangePusher, clock func() time.Time) *AdminService {
	if clock == nil {
		clock = time.Now
	}
	return &AdminService{engine: engine, pusher: pusher, now: clock}
}

// AddSignal publishes a new ACTIVE signal at the top of the list
func (s *AdminService) AddSignal(ctx context.Context, in NewSignalInput) (*domain.Signal, error) {
	symbol := strings.TrimSpace(in.Symbol)
	if symbol == "" || in.EntryPrice <= 0 || in.StopLoss <= 0 {
		return nil, fmt.Errorf("%w: symbol, entry and stop loss are required", domain.ErrInvalidInput)
	}

	instrument := strings.ToUpper(strings.TrimSpace(in.Instrument))
	if instrument == "" {
		instrument = "NIFTY"
	}

	signal := domain.Signal{
		ID:         "SIG-" + ulid.Make().String(),
		Instrument: instrument,
		Symbol:     symbol,
		Type:       domain.ParseOptionType(in.Type),
		Action:     domain.ParseAction(in.Action),
		EntryPrice: in.EntryPrice,
		StopLoss:   in.StopLoss,
		Targets:    parseTargets(in.Targets),
		Status:     domain.StatusActive,
		Timestamp:  s.now().UTC(),
		Comment:    strings.TrimSpace(in.Comment),
	}
	if len(signal.Targets) == 0 {
		signal.Targets = domain.DefaultTargets(signal.EntryPrice)
	}

	err := s.engine.ApplyLocal(ctx, domain.TargetSignals, func(snap *domain.Snapshot) error {
		snap.Signals = append([]domain.Signal{signal.Clone()}, snap.Signals...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.push(ctx, domain.RemoteChange{Target: domain.TargetSignals, Action: domain.RemoteAdd, Payload: signal})
	log.Printf("[OK] Signal %s added: %s %s %s @ %.2f", signal.ID, signal.Instrument, signal.Symbol, signal.Type, signal.EntryPrice)
	return &signal, nil
}

// UpdateSignal rewrites the status, P&L and trailing stop of a signal
func (s *AdminService) UpdateSignal(ctx context.Context, id string, upd SignalUpdate) (*domain.Signal, error) {
	var updated domain.Signal
	err := s.engine.ApplyLocal(ctx, domain.TargetSignals, func(snap *domain.Snapshot) error {
		for i := range snap.Signals {
			if snap.Signals[i].ID != id {
				continue
			}
			sig := &snap.Signals[i]
			if upd.Status != "" {
				sig.Status = upd.Status
			}
			sig.PnLPoints = upd.PnLPoints
			sig.PnLRupees = upd.PnLRupees
			sig.TrailingSL = upd.TrailingSL
			now := s.now().UTC()
			sig.LastTradedTimestamp = &now
			updated = sig.Clone()
			return nil
		}
		return fmt.Errorf("signal %s: %w", id, domain.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}

	s.push(ctx, domain.RemoteChange{
		Target:  domain.TargetSignals,
		Action:  domain.RemoteUpdateSignal,
		Payload: updated,
		ID:      id,
	})
	log.Printf("[OK] Signal %s updated: %s", id, updated.Status)
	return &updated, nil
}

// DeleteSignal removes a signal from the local snapshot only.
// The sheet has no delete action, so the row returns on the next sync
// unless it is removed there too.
func (s *AdminService) DeleteSignal(ctx context.Context, id string) error {
	return s.engine.ApplyLocal(ctx, domain.TargetSignals, func(snap *domain.Snapshot) error {
		for i := range snap.Signals {
			if snap.Signals[i].ID == id {
				snap.Signals = append(snap.Signals[:i], snap.Signals[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("signal %s: %w", id, domain.ErrNotFound)
	})
}

// AddWatchItem appends a symbol to the market watch
func (s *AdminService) AddWatchItem(ctx context.Context, symbol string, price, change float64) (*domain.WatchlistItem, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || price <= 0 {
		return nil, fmt.Errorf("%w: symbol and price are required", domain.ErrInvalidInput)
	}

	item := domain.WatchlistItem{
		Symbol:      symbol,
		Price:       price,
		Change:      change,
		IsPositive:  change >= 0,
		LastUpdated: utils.ClockLabel(s.now()),
	}

	err := s.engine.ApplyLocal(ctx, domain.TargetWatchlist, func(snap *domain.Snapshot) error {
		if domain.IndexOfSymbol(snap.Watchlist, symbol) >= 0 {
			return fmt.Errorf("watchlist %s: %w", symbol, domain.ErrAlreadyExists)
		}
		snap.Watchlist = append(snap.Watchlist, item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.push(ctx, domain.RemoteChange{Target: domain.TargetWatchlist, Action: domain.RemoteAdd, Payload: item})
	return &item, nil
}

// RemoveWatchItem drops a symbol from the local market watch only
func (s *AdminService) RemoveWatchItem(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return s.engine.ApplyLocal(ctx, domain.TargetWatchlist, func(snap *domain.Snapshot) error {
		i := domain.IndexOfSymbol(snap.Watchlist, symbol)
		if i < 0 {
			return fmt.Errorf("watchlist %s: %w", symbol, domain.ErrNotFound)
		}
		snap.Watchlist = append(snap.Watchlist[:i], snap.Watchlist[i+1:]...)
		return nil
	})
}

// UpdateUser edits a subscriber row
func (s *AdminService) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*domain.User, error) {
	if upd.ExpiryDate != nil && *upd.ExpiryDate != "" {
		if _, err := time.Parse(domain.ExpiryLayout, *upd.ExpiryDate); err != nil {
			return nil, fmt.Errorf("%w: expiry date must be YYYY-MM-DD", domain.ErrInvalidInput)
		}
	}

	var updated domain.User
	err := s.engine.ApplyLocal(ctx, domain.TargetUsers, func(snap *domain.Snapshot) error {
		for i := range snap.Users {
			u := &snap.Users[i]
			if u.ID != id {
				continue
			}
			if upd.Name != nil {
				u.Name = *upd.Name
			}
			if upd.ExpiryDate != nil {
				u.ExpiryDate = *upd.ExpiryDate
			}
			if upd.IsAdmin != nil {
				u.IsAdmin = *upd.IsAdmin
			}
			if upd.Password != nil {
				u.Password = *upd.Password
			}
			updated = *u
			return nil
		}
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}

	s.push(ctx, domain.RemoteChange{Target: domain.TargetUsers, Action: domain.RemoteUpdateUser, Payload: updated, ID: id})
	public := updated.Public()
	return &public, nil
}

// DeleteUser removes a subscriber row
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	err := s.engine.ApplyLocal(ctx, domain.TargetUsers, func(snap *domain.Snapshot) error {
		for i := range snap.Users {
			if snap.Users[i].ID == id {
				snap.Users = append(snap.Users[:i], snap.Users[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	})
	if err != nil {
		return err
	}

	s.push(ctx, domain.RemoteChange{Target: domain.TargetUsers, Action: domain.RemoteDeleteUser, ID: id})
	return nil
}

// Flush waits for queued sheet writes to finish
func (s *AdminService) Flush() {
	s.pending.Wait()
}

// push hands the write to the sheet in the background
func (s *AdminService) push(ctx context.Context, change domain.RemoteChange) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		s.pusher.PushChange(pushCtx, change)
	}()
}

func parseTargets(s string) []float64 {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}
