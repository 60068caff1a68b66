package domain

// WatchlistItem is one row of the admin-curated market watch
type WatchlistItem struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	Change      float64 `json:"change"` // percent
	IsPositive  bool    `json:"isPositive"`
	LastUpdated string  `json:"lastUpdated"` // HH:MM, IST
}

// IndexOfSymbol returns the position of symbol in items, or -1
func IndexOfSymbol(items []WatchlistItem, symbol string) int {
	for i, it := range items {
		if it.Symbol == symbol {
			return i
		}
	}
	return -1
}
