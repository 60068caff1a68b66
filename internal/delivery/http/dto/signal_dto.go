package dto

import (
	"time"

	"libraquant/internal/domain"
)

// CreateSignalRequest represents a new signal from the admin desk
type CreateSignalRequest struct {
	Instrument string  `json:"instrument"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"`
	Action     string  `json:"action"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	Targets    string  `json:"targets"` // comma separated
	Comment    string  `json:"comment"`
}

// UpdateSignalRequest represents a status/P&L edit
type UpdateSignalRequest struct {
	Status     string   `json:"status"`
	PnLPoints  *float64 `json:"pnl_points"`
	PnLRupees  *float64 `json:"pnl_rupees"`
	TrailingSL *float64 `json:"trailing_sl"`
}

// CreateWatchItemRequest represents a new market watch row
type CreateWatchItemRequest struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
}

// StatusOutput is the connection indicator shown on every screen
type StatusOutput struct {
	Connection   domain.ConnectionStatus `json:"connection"`
	LastSyncedAt *time.Time              `json:"last_synced_at,omitempty"`
	AlertCount   int                     `json:"alert_count"`
	// Banner is the actionable message for the last failure
	Banner string `json:"banner,omitempty"`
}

// NewStatusOutput converts the engine status
func NewStatusOutput(s domain.SyncStatus) StatusOutput {
	out := StatusOutput{
		Connection: s.Connection,
		AlertCount: s.AlertCount,
	}
	if !s.LastSyncedAt.IsZero() {
		t := s.LastSyncedAt
		out.LastSyncedAt = &t
	}
	if s.Connection == domain.ConnError {
		out.Banner = domain.UserMessage(s.LastError)
	}
	return out
}

// StatsOutput is the track record with display strings
type StatsOutput struct {
	domain.PnLStats
	EstimatedPnLDisplay string `json:"estimated_pnl_display"`
}

// NewStatsOutput converts the computed stats
func NewStatsOutput(s domain.PnLStats) StatsOutput {
	return StatsOutput{PnLStats: s, EstimatedPnLDisplay: domain.FormatRupees(s.EstimatedPnL)}
}

// AnalysisOutput is the analyst's read of one signal
type AnalysisOutput struct {
	SignalID string `json:"signal_id"`
	Analysis string `json:"analysis"`
}
