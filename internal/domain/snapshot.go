package domain

import (
	"sort"
	"time"
)

// Snapshot is the full dataset shown by the terminal at one point in time
type Snapshot struct {
	Signals   []Signal        `json:"signals"`
	Watchlist []WatchlistItem `json:"watchlist"`
	Users     []User          `json:"users"`
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() Snapshot {
	out := Snapshot{
		Signals:   make([]Signal, len(s.Signals)),
		Watchlist: append([]WatchlistItem{}, s.Watchlist...),
		Users:     append([]User{}, s.Users...),
	}
	for i, sig := range s.Signals {
		out.Signals[i] = sig.Clone()
	}
	return out
}

// SortSignalsForDisplay orders open signals before exited ones, newest first
func SortSignalsForDisplay(signals []Signal) []Signal {
	out := make([]Signal, len(signals))
	copy(out, signals)
	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := out[i].Status == StatusExited, out[j].Status == StatusExited
		if ei != ej {
			return !ei
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// ConnectionStatus is the health of the sync loop
type ConnectionStatus string

// ConnectionStatus constants
const (
	ConnConnected ConnectionStatus = "connected"
	ConnSyncing   ConnectionStatus = "syncing"
	ConnError     ConnectionStatus = "error"
)

// SyncStatus is the engine's self-reported state
type SyncStatus struct {
	Connection   ConnectionStatus `json:"connection"`
	LastError    error            `json:"-"`
	LastSyncedAt time.Time        `json:"lastSyncedAt"`
	AlertCount   int              `json:"alertCount"`
}

// Remote write targets
const (
	TargetSignals   = "signals"
	TargetWatchlist = "watchlist"
	TargetUsers     = "users"
)

// Remote write actions
const (
	RemoteAdd          = "ADD"
	RemoteUpdateSignal = "UPDATE_SIGNAL"
	RemoteUpdateUser   = "UPDATE_USER"
	RemoteDeleteUser   = "DELETE_USER"
)

// RemoteChange is a fire-and-forget write sent to the remote sheet
type RemoteChange struct {
	Target  string `json:"target"`
	Action  string `json:"action"`
	Payload any    `json:"payload"`
	ID      string `json:"id,omitempty"`
}
