package sheets

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraquant/internal/domain"
)

var fixedNow = time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)

func TestParseSnapshotCoercesStringTypedFields(t *testing.T) {
	body := []byte(`{
		"signals": [{"id": "S1", "instrument": "NIFTY", "symbol": "22500", "type": "ce",
			"action": "buy", "entryPrice": "100", "stopLoss": "90", "targets": "100, 120",
			"status": "ACTIVE", "timestamp": "2026-03-02T03:45:00Z"}],
		"watchlist": [{"symbol": "NIFTY 50", "price": "22450.5", "change": "0.45", "isPositive": "TRUE", "lastUpdated": "09:15"}],
		"users": [{"id": 7, "phoneNumber": 9876543210, "name": "Ravi", "isAdmin": "false", "expiryDate": "2026-12-31", "password": "pass"}]
	}`)

	snap, err := parseSnapshotAt(body, fixedNow)
	require.NoError(t, err)

	want := domain.Signal{
		ID:         "S1",
		Instrument: "NIFTY",
		Symbol:     "22500",
		Type:       domain.OptionCE,
		Action:     domain.ActionBuy,
		EntryPrice: 100,
		StopLoss:   90,
		Targets:    []float64{100, 120},
		Status:     domain.StatusActive,
		Timestamp:  time.Date(2026, 3, 2, 3, 45, 0, 0, time.UTC),
	}
	require.Len(t, snap.Signals, 1)
	assert.Equal(t, want, snap.Signals[0])

	assert.Equal(t, []domain.WatchlistItem{{
		Symbol: "NIFTY 50", Price: 22450.5, Change: 0.45, IsPositive: true, LastUpdated: "09:15",
	}}, snap.Watchlist)

	require.Len(t, snap.Users, 1)
	assert.Equal(t, "7", snap.Users[0].ID)
	assert.Equal(t, "9876543210", snap.Users[0].PhoneNumber)
	assert.False(t, snap.Users[0].IsAdmin)
}

func TestParseSnapshotTargetShapes(t *testing.T) {
	tests := []struct {
		name    string
		targets string
		want    []float64
	}{
		{"list", `[100, 120]`, []float64{100, 120}},
		{"mixed list", `[100, "120"]`, []float64{100, 120}},
		{"comma string", `"100,120, 140"`, []float64{100, 120, 140}},
		{"scalar", `150`, []float64{150}},
		{"scalar string", `"150"`, []float64{150}},
		{"missing", `null`, []float64{110}},
		{"empty string", `""`, []float64{110}},
		{"empty list", `[]`, []float64{110}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(`{"signals":[{"id":"A","entryPrice":100,"targets":` + tt.targets + `}]}`)
			snap, err := parseSnapshotAt(body, fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, snap.Signals[0].Targets)
		})
	}
}

func TestParseSnapshotOptionalNumbersStayUnset(t *testing.T) {
	body := []byte(`{"signals":[
		{"id":"A","entryPrice":"","pnlPoints":"","pnlRupees":"abc"},
		{"id":"B","entryPrice":50,"pnlPoints":0,"pnlRupees":"1,250.50","trailingSL":"48"}
	]}`)

	snap, err := parseSnapshotAt(body, fixedNow)
	require.NoError(t, err)

	a, b := snap.Signals[0], snap.Signals[1]
	assert.Equal(t, 0.0, a.EntryPrice)
	assert.Nil(t, a.PnLPoints)
	assert.Nil(t, a.PnLRupees)
	assert.Nil(t, a.TrailingSL)
	assert.Equal(t, fixedNow, a.Timestamp)

	require.NotNil(t, b.PnLPoints)
	assert.Equal(t, 0.0, *b.PnLPoints)
	assert.Equal(t, domain.Float(1250.5), b.PnLRupees)
	assert.Equal(t, domain.Float(48), b.TrailingSL)
}

func TestParseSnapshotStatusLabelsAndDefaults(t *testing.T) {
	body := []byte(`{"signals":[
		{"id":"A","status":"PARTIAL BOOKED","type":"PE","action":"SELL"},
		{"id":"B","status":"stop loss hit","type":"weird"},
		{"id":"C"}
	]}`)

	snap, err := parseSnapshotAt(body, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPartial, snap.Signals[0].Status)
	assert.Equal(t, domain.OptionPE, snap.Signals[0].Type)
	assert.Equal(t, domain.ActionSell, snap.Signals[0].Action)
	assert.Equal(t, domain.StatusStopped, snap.Signals[1].Status)
	assert.Equal(t, domain.OptionCE, snap.Signals[1].Type)
	assert.Equal(t, domain.StatusActive, snap.Signals[2].Status)
	assert.Equal(t, domain.ActionBuy, snap.Signals[2].Action)
}

func TestParseSnapshotWatchlist(t *testing.T) {
	body := []byte(`{"watchlist":[
		{"symbol":"banknifty","price":48000,"change":-0.2},
		{"symbol":"BANKNIFTY","price":1,"change":1},
		{"symbol":"","price":1},
		{"symbol":"SENSEX","price":"74000","change":"0.1","isPositive":"False"}
	]}`)

	snap, err := parseSnapshotAt(body, fixedNow)
	require.NoError(t, err)
	require.Len(t, snap.Watchlist, 2)

	assert.Equal(t, "BANKNIFTY", snap.Watchlist[0].Symbol)
	assert.Equal(t, 48000.0, snap.Watchlist[0].Price)
	assert.False(t, snap.Watchlist[0].IsPositive)

	assert.Equal(t, "SENSEX", snap.Watchlist[1].Symbol)
	assert.False(t, snap.Watchlist[1].IsPositive)
}

func TestParseSnapshotMissingCollectionsAreEmpty(t *testing.T) {
	snap, err := parseSnapshotAt([]byte(`{}`), fixedNow)
	require.NoError(t, err)
	assert.Empty(t, snap.Signals)
	assert.Empty(t, snap.Watchlist)
	assert.Empty(t, snap.Users)
	assert.NotNil(t, snap.Signals)

	snap, err = parseSnapshotAt([]byte(`[1, 2]`), fixedNow)
	require.NoError(t, err)
	assert.Empty(t, snap.Signals)
}

func TestParseSnapshotRecoversEmbeddedJSON(t *testing.T) {
	body := []byte("Logging output: started\n{\"signals\":[{\"id\":\"A\",\"entryPrice\":10}]}\nDone")

	snap, err := parseSnapshotAt(body, fixedNow)
	require.NoError(t, err)
	require.Len(t, snap.Signals, 1)
	assert.Equal(t, "A", snap.Signals[0].ID)
}

func TestParseSnapshotRejectsHTML(t *testing.T) {
	bodies := []string{
		"<!DOCTYPE html><html><body>Sign in</body></html>",
		`<html><body>{"signals":[]}</body></html>`,
		`{"signals":[]} <!DOCTYPE`,
		"<!doctype html><HTML><body>{\"signals\":[]}</body></HTML>",
		`<Html lang="en"><body>Sign in</body>`,
	}

	for _, body := range bodies {
		snap, err := parseSnapshotAt([]byte(body), fixedNow)
		assert.Nil(t, snap)

		var fe *domain.FormatError
		require.True(t, errors.As(err, &fe), body)
		assert.Equal(t, domain.FormatBlocked, fe.Reason)
	}
}

func TestParseSnapshotMalformed(t *testing.T) {
	bodies := []string{
		"",
		"null",
		"Internal error",
		`{"signals": [}`,
		`"just a string"`,
		`{"signals": "nope"}`,
	}

	for _, body := range bodies {
		_, err := parseSnapshotAt([]byte(body), fixedNow)

		var fe *domain.FormatError
		require.True(t, errors.As(err, &fe), body)
		assert.Equal(t, domain.FormatMalformed, fe.Reason, body)
	}
}

func TestFlexibleTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2026-03-02T09:15:00+05:30"`, time.Date(2026, 3, 2, 3, 45, 0, 0, time.UTC)},
		{`"2026-03-02 09:15:00"`, time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)},
		{`1772423100000`, time.UnixMilli(1772423100000).UTC()},
		{`"garbage"`, time.Time{}},
		{`null`, time.Time{}},
	}

	for _, tt := range tests {
		var ft FlexibleTime
		require.NoError(t, ft.UnmarshalJSON([]byte(tt.in)))
		assert.True(t, tt.want.Equal(ft.Time), tt.in)
	}
}
