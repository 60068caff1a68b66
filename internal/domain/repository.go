package domain

import "context"

// KVRepository is the durable per-origin key-value storage backing the terminal
type KVRepository interface {
	// Get returns the value for key and whether it exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// SetIfAbsent stores value only when key is unset.
	// Returns the value held after the call and whether this call wrote it.
	SetIfAbsent(ctx context.Context, key, value string) (string, bool, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// StorageChange announces that a key was rewritten by some store instance
type StorageChange struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// ChangeFeed carries storage change announcements between sibling engines
type ChangeFeed interface {
	// Publish announces a change to every subscriber
	Publish(ctx context.Context, change StorageChange) error

	// Subscribe returns a channel of changes and a function that ends the subscription
	Subscribe() (<-chan StorageChange, func())
}

// SnapshotSource fetches the current remote dataset
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

// ChangePusher sends fire-and-forget writes to the remote sheet
type ChangePusher interface {
	PushChange(ctx context.Context, change RemoteChange)
}
