package domain

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// PnLStats summarises the desk's track record
type PnLStats struct {
	TotalTrades  int     `json:"totalTrades"`
	WinRate      float64 `json:"winRate"`
	NetPoints    float64 `json:"netPoints"`
	EstimatedPnL float64 `json:"estimatedPnL"`
	Accuracy     float64 `json:"accuracy"`
}

// IsLong checks if the signal is a BUY call
func (s *Signal) IsLong() bool {
	return s.Action == ActionBuy
}

// PointsAt calculates the points captured if the signal were closed at price
func (s *Signal) PointsAt(price float64) float64 {
	if s.IsLong() {
		return price - s.EntryPrice
	}
	return s.EntryPrice - price
}

// hitTarget reports whether the signal booked at least one target
func (s *Signal) hitTarget() bool {
	if s.Status == StatusPartial {
		return true
	}
	return s.Status == StatusExited && s.PnLPoints != nil && *s.PnLPoints > 0
}

// ComputeStats aggregates P&L figures over signals.
//
// TotalTrades counts retired signals (EXITED or STOPPED). WinRate is the share
// of retired signals with known points that closed positive. NetPoints and
// EstimatedPnL sum every reported figure, open partials included. Accuracy is
// the share of non-active signals that booked at least one target.
func ComputeStats(signals []Signal) PnLStats {
	var stats PnLStats
	var scored, wins, decided, hits int64
	points, rupees := decimal.Zero, decimal.Zero
	hundred := decimal.NewFromInt(100)

	for i := range signals {
		s := &signals[i]
		if s.PnLPoints != nil {
			points = points.Add(decimal.NewFromFloat(*s.PnLPoints))
		}
		if s.PnLRupees != nil {
			rupees = rupees.Add(decimal.NewFromFloat(*s.PnLRupees))
		}
		if s.Status != StatusActive {
			decided++
			if s.hitTarget() {
				hits++
			}
		}
		if !s.IsClosed() {
			continue
		}
		stats.TotalTrades++
		if s.PnLPoints != nil {
			scored++
			if *s.PnLPoints > 0 {
				wins++
			}
		}
	}

	if scored > 0 {
		stats.WinRate = decimal.NewFromInt(wins).Mul(hundred).Div(decimal.NewFromInt(scored)).Round(1).InexactFloat64()
	}
	if decided > 0 {
		stats.Accuracy = decimal.NewFromInt(hits).Mul(hundred).Div(decimal.NewFromInt(decided)).Round(1).InexactFloat64()
	}
	stats.NetPoints = points.Round(2).InexactFloat64()
	stats.EstimatedPnL = rupees.Round(2).InexactFloat64()
	return stats
}

// FormatRupees renders an amount in Indian rupees, e.g. "₹62,500.00"
func FormatRupees(amount float64) string {
	return money.NewFromFloat(amount, money.INR).Display()
}
