package utils

import (
	"time"
)

var kolkataLoc *time.Location

func init() {
	var err error
	kolkataLoc, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to a fixed IST offset if timezone data is missing
		kolkataLoc = time.FixedZone("IST", 5*3600+30*60)
	}
}

// GetMarketTime returns t in the exchange timezone (IST)
func GetMarketTime(t time.Time) time.Time {
	return t.In(kolkataLoc)
}

// ClockLabel returns the HH:MM (24h, IST) label shown next to watchlist rows
func ClockLabel(t time.Time) string {
	return t.In(kolkataLoc).Format("15:04")
}

// GetLocation returns the IST *time.Location
func GetLocation() *time.Location {
	return kolkataLoc
}
