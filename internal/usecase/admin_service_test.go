package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraquant/internal/domain"
)

func newAdminFixture(t *testing.T, snap *domain.Snapshot) (*AdminService, *SyncEngine, *recordingPusher, *staticSource) {
	t.Helper()
	_, store := newMemoryStore(nil)
	source := &staticSource{snap: snap}
	engine := NewSyncEngine(source, store, EngineOptions{})
	require.NoError(t, engine.SyncNow(context.Background(), true))

	pusher := &recordingPusher{}
	// 10:00 UTC is 15:30 IST
	clock := newFakeClock(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	return NewAdminService(engine, pusher, clock.Now), engine, pusher, source
}

func TestAddSignal(t *testing.T) {
	ctx := context.Background()
	admin, engine, pusher, _ := newAdminFixture(t, snapshotOf(signal("OLD", domain.StatusActive)))

	_, err := admin.AddSignal(ctx, NewSignalInput{Symbol: "", EntryPrice: 100, StopLoss: 90})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	sig, err := admin.AddSignal(ctx, NewSignalInput{
		Instrument: "banknifty",
		Symbol:     "47500",
		Type:       "pe",
		Action:     "SELL",
		EntryPrice: 320,
		StopLoss:   350,
		Targets:    "300, x, 280",
		Comment:    " fade the gap ",
	})
	require.NoError(t, err)
	admin.Flush()

	assert.True(t, strings.HasPrefix(sig.ID, "SIG-"))
	assert.Equal(t, "BANKNIFTY", sig.Instrument)
	assert.Equal(t, domain.OptionPE, sig.Type)
	assert.Equal(t, domain.ActionSell, sig.Action)
	assert.Equal(t, []float64{300, 280}, sig.Targets)
	assert.Equal(t, domain.StatusActive, sig.Status)
	assert.Equal(t, "fade the gap", sig.Comment)

	signals := engine.Snapshot().Signals
	require.Len(t, signals, 2)
	assert.Equal(t, sig.ID, signals[0].ID)

	changes := pusher.all()
	require.Len(t, changes, 1)
	assert.Equal(t, domain.TargetSignals, changes[0].Target)
	assert.Equal(t, domain.RemoteAdd, changes[0].Action)

	defaulted, err := admin.AddSignal(ctx, NewSignalInput{Symbol: "22000", EntryPrice: 200, StopLoss: 180})
	require.NoError(t, err)
	assert.Equal(t, []float64{220}, defaulted.Targets)
	assert.Equal(t, "NIFTY", defaulted.Instrument)
}

func TestUpdateSignal(t *testing.T) {
	ctx := context.Background()
	admin, engine, pusher, _ := newAdminFixture(t, snapshotOf(signal("S1", domain.StatusActive)))

	_, err := admin.UpdateSignal(ctx, "missing", SignalUpdate{Status: domain.StatusExited})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := admin.UpdateSignal(ctx, "S1", SignalUpdate{
		Status:     domain.StatusPartial,
		PnLPoints:  domain.Float(40),
		TrailingSL: domain.Float(105),
	})
	require.NoError(t, err)
	admin.Flush()

	assert.Equal(t, domain.StatusPartial, updated.Status)
	assert.NotNil(t, updated.LastTradedTimestamp)
	assert.Equal(t, updated.Status, engine.Snapshot().Signals[0].Status)

	changes := pusher.all()
	require.Len(t, changes, 1)
	assert.Equal(t, domain.RemoteUpdateSignal, changes[0].Action)
	assert.Equal(t, "S1", changes[0].ID)
	payload, ok := changes[0].Payload.(domain.Signal)
	require.True(t, ok)
	assert.Equal(t, domain.Float(40), payload.PnLPoints)
}

func TestDeleteSignalIsLocalOnly(t *testing.T) {
	ctx := context.Background()
	admin, engine, pusher, _ := newAdminFixture(t, snapshotOf(signal("S1", domain.StatusActive), signal("S2", domain.StatusActive)))

	require.NoError(t, admin.DeleteSignal(ctx, "S1"))
	assert.ErrorIs(t, admin.DeleteSignal(ctx, "S1"), domain.ErrNotFound)
	admin.Flush()

	assert.Len(t, engine.Snapshot().Signals, 1)
	assert.Empty(t, pusher.all())

	// The sheet still has the row, so the next sync brings it back
	require.NoError(t, engine.SyncNow(ctx, false))
	assert.Len(t, engine.Snapshot().Signals, 2)
}

func TestWatchlistCommands(t *testing.T) {
	ctx := context.Background()
	admin, engine, pusher, _ := newAdminFixture(t, snapshotOf())

	item, err := admin.AddWatchItem(ctx, " finnifty ", 21000, -0.3)
	require.NoError(t, err)
	assert.Equal(t, domain.WatchlistItem{
		Symbol: "FINNIFTY", Price: 21000, Change: -0.3, IsPositive: false, LastUpdated: "15:30",
	}, *item)

	_, err = admin.AddWatchItem(ctx, "FINNIFTY", 1, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = admin.AddWatchItem(ctx, "", 1, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	zero, err := admin.AddWatchItem(ctx, "VIX", 13.4, 0)
	require.NoError(t, err)
	assert.True(t, zero.IsPositive)

	require.NoError(t, admin.RemoveWatchItem(ctx, "vix"))
	assert.ErrorIs(t, admin.RemoveWatchItem(ctx, "VIX"), domain.ErrNotFound)
	admin.Flush()

	assert.Len(t, engine.Snapshot().Watchlist, 1)
	assert.Len(t, pusher.all(), 2)
}

func TestUserCommands(t *testing.T) {
	ctx := context.Background()
	admin, engine, pusher, _ := newAdminFixture(t, sheetUsers())

	badDate := "31/12/2026"
	_, err := admin.UpdateUser(ctx, "U1", UserUpdate{ExpiryDate: &badDate})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	expiry := "2027-06-30"
	user, err := admin.UpdateUser(ctx, "U1", UserUpdate{ExpiryDate: &expiry})
	require.NoError(t, err)
	assert.Equal(t, expiry, user.ExpiryDate)
	assert.Empty(t, user.Password)
	assert.Equal(t, "tiger", engine.Snapshot().Users[0].Password)

	_, err = admin.UpdateUser(ctx, "nope", UserUpdate{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, admin.DeleteUser(ctx, "U2"))
	admin.Flush()
	assert.Len(t, engine.Snapshot().Users, 2)

	changes := pusher.all()
	require.Len(t, changes, 2)
	actions := []string{changes[0].Action, changes[1].Action}
	assert.ElementsMatch(t, []string{domain.RemoteUpdateUser, domain.RemoteDeleteUser}, actions)
}
