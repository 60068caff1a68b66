// Package seed provides the demo snapshot bundled with the binary.
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"libraquant/internal/domain"
)

//go:embed demo.yaml
var demoYAML []byte

type demoFile struct {
	Signals   []demoSignal    `yaml:"signals"`
	Watchlist []demoWatchItem `yaml:"watchlist"`
	Users     []demoUser      `yaml:"users"`
}

type demoSignal struct {
	ID         string        `yaml:"id"`
	Instrument string        `yaml:"instrument"`
	Symbol     string        `yaml:"symbol"`
	Type       string        `yaml:"type"`
	Action     string        `yaml:"action"`
	EntryPrice float64       `yaml:"entry_price"`
	StopLoss   float64       `yaml:"stop_loss"`
	Targets    []float64     `yaml:"targets"`
	TrailingSL *float64      `yaml:"trailing_sl"`
	Status     string        `yaml:"status"`
	Age        time.Duration `yaml:"age"`
	PnLPoints  *float64      `yaml:"pnl_points"`
	PnLRupees  *float64      `yaml:"pnl_rupees"`
	Comment    string        `yaml:"comment"`
}

type demoWatchItem struct {
	Symbol      string  `yaml:"symbol"`
	Price       float64 `yaml:"price"`
	Change      float64 `yaml:"change"`
	LastUpdated string  `yaml:"last_updated"`
}

type demoUser struct {
	ID          string `yaml:"id"`
	PhoneNumber string `yaml:"phone_number"`
	Name        string `yaml:"name"`
	ExpiryDate  string `yaml:"expiry_date"`
	IsAdmin     bool   `yaml:"is_admin"`
	Password    string `yaml:"password"`
}

// Demo returns the demo signals and market watch with timestamps relative to now.
// Users are left empty.
func Demo(now time.Time) (*domain.Snapshot, error) {
	snap, err := parse(demoYAML, now)
	if err != nil {
		return nil, err
	}
	snap.Users = []domain.User{}
	return snap, nil
}

// DemoWithUsers also includes the demo subscriber accounts
func DemoWithUsers(now time.Time) (*domain.Snapshot, error) {
	return parse(demoYAML, now)
}

func parse(raw []byte, now time.Time) (*domain.Snapshot, error) {
	var file demoFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse demo seed: %w", err)
	}

	snap := &domain.Snapshot{
		Signals:   make([]domain.Signal, 0, len(file.Signals)),
		Watchlist: make([]domain.WatchlistItem, 0, len(file.Watchlist)),
		Users:     make([]domain.User, 0, len(file.Users)),
	}
	for _, s := range file.Signals {
		targets := s.Targets
		if len(targets) == 0 {
			targets = domain.DefaultTargets(s.EntryPrice)
		}
		snap.Signals = append(snap.Signals, domain.Signal{
			ID:         s.ID,
			Instrument: s.Instrument,
			Symbol:     s.Symbol,
			Type:       domain.ParseOptionType(s.Type),
			Action:     domain.ParseAction(s.Action),
			EntryPrice: s.EntryPrice,
			StopLoss:   s.StopLoss,
			Targets:    targets,
			TrailingSL: s.TrailingSL,
			Status:     domain.ParseSignalStatus(s.Status),
			Timestamp:  now.Add(-s.Age).UTC(),
			PnLPoints:  s.PnLPoints,
			PnLRupees:  s.PnLRupees,
			Comment:    s.Comment,
		})
	}
	for _, w := range file.Watchlist {
		snap.Watchlist = append(snap.Watchlist, domain.WatchlistItem{
			Symbol:      w.Symbol,
			Price:       w.Price,
			Change:      w.Change,
			IsPositive:  w.Change >= 0,
			LastUpdated: w.LastUpdated,
		})
	}
	for _, u := range file.Users {
		snap.Users = append(snap.Users, domain.User{
			ID:          u.ID,
			PhoneNumber: u.PhoneNumber,
			Name:        u.Name,
			ExpiryDate:  u.ExpiryDate,
			IsAdmin:     u.IsAdmin,
			Password:    u.Password,
		})
	}
	return snap, nil
}
