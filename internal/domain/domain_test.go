package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSignals(t *testing.T) {
	old := []Signal{{ID: "A", Status: StatusActive}}

	tests := []struct {
		name string
		next []Signal
		want []SignalChange
	}{
		{
			name: "pnl only change is ignored",
			next: []Signal{{ID: "A", Status: StatusActive, PnLPoints: Float(50)}},
		},
		{
			name: "status change",
			next: []Signal{{ID: "A", Status: StatusExited}},
			want: []SignalChange{{Kind: ChangeStatus, Signal: Signal{ID: "A", Status: StatusExited}, PrevStatus: StatusActive}},
		},
		{
			name: "new id",
			next: []Signal{{ID: "A", Status: StatusActive}, {ID: "B", Status: StatusActive}},
			want: []SignalChange{{Kind: ChangeNew, Signal: Signal{ID: "B", Status: StatusActive}}},
		},
		{
			name: "removed id is not an alert",
			next: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiffSignals(old, tt.next))
		})
	}
}

func TestParseSignalStatus(t *testing.T) {
	assert.Equal(t, StatusPartial, ParseSignalStatus("PARTIAL BOOKED"))
	assert.Equal(t, StatusPartial, ParseSignalStatus("partial"))
	assert.Equal(t, StatusStopped, ParseSignalStatus("STOP LOSS HIT"))
	assert.Equal(t, StatusExited, ParseSignalStatus(" exited "))
	assert.Equal(t, StatusActive, ParseSignalStatus(""))
	assert.Equal(t, "STOP LOSS HIT", StatusStopped.Label())
}

func TestSignalCloneIsDeep(t *testing.T) {
	s := Signal{ID: "A", Targets: []float64{1, 2}, PnLPoints: Float(3)}
	c := s.Clone()
	c.Targets[0] = 9
	*c.PnLPoints = 9
	assert.Equal(t, 1.0, s.Targets[0])
	assert.Equal(t, 3.0, *s.PnLPoints)
}

func TestSessionValidAt(t *testing.T) {
	ttl := 6*time.Hour + 30*time.Minute
	t0 := time.Date(2025, 3, 10, 9, 15, 0, 123_000_000, time.UTC)
	s := Session{IssuedAt: t0}

	assert.True(t, s.ValidAt(t0.Add(ttl-time.Millisecond), ttl))
	assert.False(t, s.ValidAt(t0.Add(ttl), ttl))
}

func TestUserExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	assert.False(t, (&User{ExpiryDate: "2025-06-01"}).Expired(now))
	assert.True(t, (&User{ExpiryDate: "2025-05-31"}).Expired(now))
	assert.False(t, (&User{ExpiryDate: ""}).Expired(now))
	assert.False(t, (&User{ExpiryDate: "soon"}).Expired(now))
	assert.True(t, (&User{ExpiryDate: "2024-12-31T00:00:00.000Z"}).Expired(now))
}

func TestSortSignalsForDisplay(t *testing.T) {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	in := []Signal{
		{ID: "old-exited", Status: StatusExited, Timestamp: base.Add(3 * time.Hour)},
		{ID: "old", Status: StatusActive, Timestamp: base},
		{ID: "new", Status: StatusPartial, Timestamp: base.Add(time.Hour)},
	}

	out := SortSignalsForDisplay(in)
	ids := []string{out[0].ID, out[1].ID, out[2].ID}
	assert.Equal(t, []string{"new", "old", "old-exited"}, ids)
	assert.Equal(t, "old-exited", in[0].ID, "input must not be reordered")
}

func TestComputeStats(t *testing.T) {
	signals := []Signal{
		{ID: "1", Status: StatusExited, PnLPoints: Float(50), PnLRupees: Float(2500)},
		{ID: "2", Status: StatusStopped, PnLPoints: Float(-30), PnLRupees: Float(-1500)},
		{ID: "3", Status: StatusPartial, PnLPoints: Float(40)},
		{ID: "4", Status: StatusActive},
	}

	stats := ComputeStats(signals)
	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 50.0, stats.WinRate)
	assert.Equal(t, 60.0, stats.NetPoints)
	assert.Equal(t, 1000.0, stats.EstimatedPnL)
	assert.InDelta(t, 66.7, stats.Accuracy, 0.001)

	assert.Equal(t, PnLStats{}, ComputeStats(nil))
	assert.NotEmpty(t, FormatRupees(stats.EstimatedPnL))
}

func TestUserMessage(t *testing.T) {
	blocked := UserMessage(&FormatError{Reason: FormatBlocked})
	network := UserMessage(&NetworkError{Op: "fetch", Err: errors.New("dial tcp: refused")})
	require.NotEqual(t, blocked, network)
	assert.Contains(t, blocked, "Anyone")
	assert.NotContains(t, network, "dial tcp")

	assert.Contains(t, UserMessage(NewAuthError(AuthDeviceLocked, nil)), "admin")
	assert.Contains(t, UserMessage(ErrSubscriptionExpired), "admin")
	assert.True(t, IsAuthCode(NewAuthError(AuthAccessDenied, nil), AuthAccessDenied))
	assert.Empty(t, UserMessage(nil))
}
