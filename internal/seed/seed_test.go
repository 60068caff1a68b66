package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraquant/internal/domain"
)

func TestDemo(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	snap, err := Demo(now)
	require.NoError(t, err)

	require.Len(t, snap.Signals, 3)
	assert.Empty(t, snap.Users)
	require.Len(t, snap.Watchlist, 5)

	first := snap.Signals[0]
	assert.Equal(t, "SIG-001", first.ID)
	assert.Equal(t, domain.OptionCE, first.Type)
	assert.Equal(t, []float64{360, 400, 480}, first.Targets)
	require.NotNil(t, first.TrailingSL)
	assert.Equal(t, 340.0, *first.TrailingSL)
	assert.Equal(t, now, first.Timestamp)

	assert.Equal(t, domain.StatusPartial, snap.Signals[1].Status)
	assert.Equal(t, now.Add(-time.Hour), snap.Signals[1].Timestamp)

	exited := snap.Signals[2]
	assert.Equal(t, domain.StatusExited, exited.Status)
	assert.Equal(t, domain.ActionSell, exited.Action)
	assert.Equal(t, now.Add(-24*time.Hour), exited.Timestamp)

	assert.False(t, snap.Watchlist[1].IsPositive)
	assert.True(t, snap.Watchlist[0].IsPositive)
}

func TestDemoWithUsers(t *testing.T) {
	snap, err := DemoWithUsers(time.Now())
	require.NoError(t, err)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "9876543210", snap.Users[0].PhoneNumber)
	assert.NotEmpty(t, snap.Users[0].Password)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := parse([]byte("signals: [oops"), time.Now())
	assert.Error(t, err)
}
