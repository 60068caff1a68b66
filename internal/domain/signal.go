package domain

import (
	"math"
	"strings"
	"time"
)

// OptionType is the derivative kind of a signal
type OptionType string

// OptionType constants
const (
	OptionCE  OptionType = "CE"
	OptionPE  OptionType = "PE"
	OptionFUT OptionType = "FUT"
)

// Action constants
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// SignalStatus is the lifecycle state of a signal
type SignalStatus string

// SignalStatus constants
const (
	StatusActive  SignalStatus = "ACTIVE"
	StatusPartial SignalStatus = "PARTIAL"
	StatusExited  SignalStatus = "EXITED"
	StatusStopped SignalStatus = "STOPPED"
)

// Label returns the wording used on the signal sheet
func (s SignalStatus) Label() string {
	switch s {
	case StatusPartial:
		return "PARTIAL BOOKED"
	case StatusStopped:
		return "STOP LOSS HIT"
	default:
		return string(s)
	}
}

// ParseSignalStatus accepts canonical names and sheet labels.
// Anything unrecognised is treated as ACTIVE.
func ParseSignalStatus(s string) SignalStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PARTIAL", "PARTIAL BOOKED":
		return StatusPartial
	case "EXITED", "EXIT":
		return StatusExited
	case "STOPPED", "STOP LOSS HIT", "SL HIT":
		return StatusStopped
	default:
		return StatusActive
	}
}

// ParseOptionType normalises an option kind, defaulting to CE
func ParseOptionType(s string) OptionType {
	switch t := OptionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case OptionCE, OptionPE, OptionFUT:
		return t
	default:
		return OptionCE
	}
}

// ParseAction normalises a trade action, defaulting to BUY
func ParseAction(s string) string {
	if strings.ToUpper(strings.TrimSpace(s)) == ActionSell {
		return ActionSell
	}
	return ActionBuy
}

// Signal represents a trading call published by the desk
type Signal struct {
	ID                  string       `json:"id"`
	Instrument          string       `json:"instrument"`
	Symbol              string       `json:"symbol"`
	Type                OptionType   `json:"type"`
	Action              string       `json:"action"`
	EntryPrice          float64      `json:"entryPrice"`
	StopLoss            float64      `json:"stopLoss"`
	Targets             []float64    `json:"targets"`
	TrailingSL          *float64     `json:"trailingSL,omitempty"`
	Status              SignalStatus `json:"status"`
	Timestamp           time.Time    `json:"timestamp"`
	LastTradedTimestamp *time.Time   `json:"lastTradedTimestamp,omitempty"`
	PnLPoints           *float64     `json:"pnlPoints,omitempty"`
	PnLRupees           *float64     `json:"pnlRupees,omitempty"`
	Comment             string       `json:"comment,omitempty"`
}

// IsClosed reports whether the signal has been retired
func (s *Signal) IsClosed() bool {
	return s.Status == StatusExited || s.Status == StatusStopped
}

// DefaultTargets synthesizes a single target 10% beyond the entry price
func DefaultTargets(entry float64) []float64 {
	return []float64{math.Round(entry*1.1*100) / 100}
}

// Clone returns a deep copy of the signal
func (s Signal) Clone() Signal {
	out := s
	out.Targets = append([]float64(nil), s.Targets...)
	out.TrailingSL = cloneFloat(s.TrailingSL)
	out.PnLPoints = cloneFloat(s.PnLPoints)
	out.PnLRupees = cloneFloat(s.PnLRupees)
	if s.LastTradedTimestamp != nil {
		t := *s.LastTradedTimestamp
		out.LastTradedTimestamp = &t
	}
	return out
}

// SignalChangeKind classifies a change worth alerting on
type SignalChangeKind string

// SignalChangeKind constants
const (
	ChangeNew    SignalChangeKind = "NEW"
	ChangeStatus SignalChangeKind = "STATUS"
)

// SignalChange describes one alert-worthy difference between two snapshots
type SignalChange struct {
	Kind       SignalChangeKind `json:"kind"`
	Signal     Signal           `json:"signal"`
	PrevStatus SignalStatus     `json:"prevStatus,omitempty"`
}

// DiffSignals lists signals that are new by ID or whose status differs.
// Price, target and P&L edits are deliberately not reported.
func DiffSignals(prev, next []Signal) []SignalChange {
	known := make(map[string]SignalStatus, len(prev))
	for _, s := range prev {
		known[s.ID] = s.Status
	}

	var changes []SignalChange
	for _, s := range next {
		status, ok := known[s.ID]
		switch {
		case !ok:
			changes = append(changes, SignalChange{Kind: ChangeNew, Signal: s})
		case status != s.Status:
			changes = append(changes, SignalChange{Kind: ChangeStatus, Signal: s, PrevStatus: status})
		}
	}
	return changes
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
