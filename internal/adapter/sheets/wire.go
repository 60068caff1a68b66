package sheets

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"libraquant/internal/domain"
)

// The sheet script emits whatever the spreadsheet cells hold, so every field
// is decoded leniently here and validated once in normalize.

// flexNumber accepts a JSON number, a numeric string, or nothing
type flexNumber struct {
	Value float64
	Valid bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	*n = flexNumber{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		n.Value, n.Valid = parseNumber(s)
		return nil
	}
	if f, err := strconv.ParseFloat(string(b), 64); err == nil {
		n.Value, n.Valid = f, true
	}
	return nil
}

// Or returns the value, or def when absent
func (n flexNumber) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// Ptr returns nil when absent
func (n flexNumber) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	return domain.Float(n.Value)
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// flexBool accepts true/false or their string forms in any case
type flexBool struct {
	Value bool
	Set   bool
}

func (v *flexBool) UnmarshalJSON(b []byte) error {
	*v = flexBool{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	} else {
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v.Set = true
	v.Value = strings.EqualFold(s, "true")
	return nil
}

// flexString accepts a string, or a number kept as its literal
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	*s = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		*s = flexString(strings.TrimSpace(str))
		return nil
	}
	if b[0] == '{' || b[0] == '[' {
		return nil
	}
	*s = flexString(b)
	return nil
}

// flexTargets accepts "100, 120", [100, "120"] or a single scalar
type flexTargets []float64

func (t *flexTargets) UnmarshalJSON(b []byte) error {
	*t = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	switch b[0] {
	case '[':
		var items []flexNumber
		if err := json.Unmarshal(b, &items); err != nil {
			return nil
		}
		for _, it := range items {
			if it.Valid {
				*t = append(*t, it.Value)
			}
		}
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		for _, part := range strings.Split(s, ",") {
			if f, ok := parseNumber(part); ok {
				*t = append(*t, f)
			}
		}
	default:
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			*t = flexTargets{f}
		}
	}
	return nil
}

// FlexibleTime handles the timestamp shapes a spreadsheet cell can produce
type FlexibleTime struct {
	time.Time
}

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999", // no timezone
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
}

// UnmarshalJSON parses ISO strings and epoch milliseconds.
// Unreadable values decode to the zero time.
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	ft.Time = time.Time{}
	s := strings.TrimSpace(strings.Trim(string(bytes.TrimSpace(b)), "\""))
	if s == "" || s == "null" {
		return nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		ft.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			ft.Time = t
			return nil
		}
	}
	return nil
}

type rawSignal struct {
	ID                  flexString   `json:"id"`
	Instrument          flexString   `json:"instrument"`
	Symbol              flexString   `json:"symbol"`
	Type                flexString   `json:"type"`
	Action              flexString   `json:"action"`
	EntryPrice          flexNumber   `json:"entryPrice"`
	StopLoss            flexNumber   `json:"stopLoss"`
	Targets             flexTargets  `json:"targets"`
	TrailingSL          flexNumber   `json:"trailingSL"`
	Status              flexString   `json:"status"`
	Timestamp           FlexibleTime `json:"timestamp"`
	LastTradedTimestamp FlexibleTime `json:"lastTradedTimestamp"`
	PnLPoints           flexNumber   `json:"pnlPoints"`
	PnLRupees           flexNumber   `json:"pnlRupees"`
	Comment             flexString   `json:"comment"`
}

type rawWatchItem struct {
	Symbol      flexString `json:"symbol"`
	Price       flexNumber `json:"price"`
	Change      flexNumber `json:"change"`
	IsPositive  flexBool   `json:"isPositive"`
	LastUpdated flexString `json:"lastUpdated"`
}

type rawUser struct {
	ID          flexString `json:"id"`
	PhoneNumber flexString `json:"phoneNumber"`
	Name        flexString `json:"name"`
	ExpiryDate  flexString `json:"expiryDate"`
	IsAdmin     flexBool   `json:"isAdmin"`
	Password    flexString `json:"password"`
	DeviceID    flexString `json:"deviceId"`
}

type rawSnapshot struct {
	Signals   []rawSignal    `json:"signals"`
	Watchlist []rawWatchItem `json:"watchlist"`
	Users     []rawUser      `json:"users"`
}

// normalize converts wire records into the domain model.
// now stands in for a missing signal timestamp.
func normalize(raw *rawSnapshot, now time.Time) *domain.Snapshot {
	snap := &domain.Snapshot{
		Signals:   make([]domain.Signal, 0, len(raw.Signals)),
		Watchlist: make([]domain.WatchlistItem, 0, len(raw.Watchlist)),
		Users:     make([]domain.User, 0, len(raw.Users)),
	}

	for i := range raw.Signals {
		snap.Signals = append(snap.Signals, normalizeSignal(&raw.Signals[i], now))
	}

	for _, w := range raw.Watchlist {
		item := normalizeWatchItem(w)
		if item.Symbol == "" || domain.IndexOfSymbol(snap.Watchlist, item.Symbol) >= 0 {
			continue
		}
		snap.Watchlist = append(snap.Watchlist, item)
	}

	for _, u := range raw.Users {
		snap.Users = append(snap.Users, domain.User{
			ID:          string(u.ID),
			PhoneNumber: string(u.PhoneNumber),
			Name:        string(u.Name),
			ExpiryDate:  string(u.ExpiryDate),
			IsAdmin:     u.IsAdmin.Value,
			Password:    string(u.Password),
			DeviceID:    string(u.DeviceID),
		})
	}
	return snap
}

func normalizeSignal(s *rawSignal, now time.Time) domain.Signal {
	entry := s.EntryPrice.Or(0)
	sig := domain.Signal{
		ID:         string(s.ID),
		Instrument: string(s.Instrument),
		Symbol:     string(s.Symbol),
		Type:       domain.ParseOptionType(string(s.Type)),
		Action:     domain.ParseAction(string(s.Action)),
		EntryPrice: entry,
		StopLoss:   s.StopLoss.Or(0),
		Targets:    []float64(s.Targets),
		TrailingSL: s.TrailingSL.Ptr(),
		Status:     domain.ParseSignalStatus(string(s.Status)),
		Timestamp:  s.Timestamp.Time,
		PnLPoints:  s.PnLPoints.Ptr(),
		PnLRupees:  s.PnLRupees.Ptr(),
		Comment:    string(s.Comment),
	}
	if len(sig.Targets) == 0 {
		sig.Targets = domain.DefaultTargets(entry)
	}
	if sig.Timestamp.IsZero() {
		sig.Timestamp = now
	}
	if !s.LastTradedTimestamp.IsZero() {
		t := s.LastTradedTimestamp.Time
		sig.LastTradedTimestamp = &t
	}
	return sig
}

func normalizeWatchItem(w rawWatchItem) domain.WatchlistItem {
	change := w.Change.Or(0)
	positive := change >= 0
	if w.IsPositive.Set {
		positive = w.IsPositive.Value
	}
	return domain.WatchlistItem{
		Symbol:      strings.ToUpper(string(w.Symbol)),
		Price:       w.Price.Or(0),
		Change:      change,
		IsPositive:  positive,
		LastUpdated: string(w.LastUpdated),
	}
}
