package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"

	"libraquant/internal/domain"
)

// Storage keys shared by every engine of one origin
const (
	KeySignals      = "libra_signals"
	KeyWatchlist    = "libra_watchlist"
	KeyUsers        = "libra_users"
	KeySession      = "libra_user_session"
	KeyDeviceID     = "libra_client_device_id"
	KeySoundEnabled = "libra_sound_enabled"

	boundDevicePrefix = "libra_bound_device_"
)

// IsSnapshotKey reports whether key holds one of the snapshot sub-collections
func IsSnapshotKey(key string) bool {
	return key == KeySignals || key == KeyWatchlist || key == KeyUsers
}

// LocalStore is the typed adapter over the origin's durable key-value storage.
//
// Snapshot writes are announced on the change feed, tagged with this store's
// origin so the writer can recognise and skip its own announcements.
type LocalStore struct {
	repo   domain.KVRepository
	feed   domain.ChangeFeed
	origin string
}

// NewLocalStore creates a store adapter; feed may be nil for a single-tab origin
func NewLocalStore(repo domain.KVRepository, feed domain.ChangeFeed) *LocalStore {
	return &LocalStore{
		repo:   repo,
		feed:   feed,
		origin: uuid.NewString(),
	}
}

// Origin identifies this store instance in change announcements
func (s *LocalStore) Origin() string {
	return s.origin
}

// Feed returns the change feed, or nil
func (s *LocalStore) Feed() domain.ChangeFeed {
	return s.feed
}

// LoadSignals returns the cached signals, or ok=false if none were saved
func (s *LocalStore) LoadSignals(ctx context.Context) ([]domain.Signal, bool, error) {
	var out []domain.Signal
	ok, err := s.getJSON(ctx, KeySignals, &out)
	return out, ok, err
}

// SaveSignals replaces the cached signals
func (s *LocalStore) SaveSignals(ctx context.Context, signals []domain.Signal) error {
	return s.putSnapshotKey(ctx, KeySignals, nonNil(signals))
}

// LoadWatchlist returns the cached watchlist, or ok=false if none was saved
func (s *LocalStore) LoadWatchlist(ctx context.Context) ([]domain.WatchlistItem, bool, error) {
	var out []domain.WatchlistItem
	ok, err := s.getJSON(ctx, KeyWatchlist, &out)
	return out, ok, err
}

// SaveWatchlist replaces the cached watchlist
func (s *LocalStore) SaveWatchlist(ctx context.Context, items []domain.WatchlistItem) error {
	return s.putSnapshotKey(ctx, KeyWatchlist, nonNil(items))
}

// LoadUsers returns the cached user sheet, or ok=false if none was saved
func (s *LocalStore) LoadUsers(ctx context.Context) ([]domain.User, bool, error) {
	var out []domain.User
	ok, err := s.getJSON(ctx, KeyUsers, &out)
	return out, ok, err
}

// SaveUsers replaces the cached user sheet
func (s *LocalStore) SaveUsers(ctx context.Context, users []domain.User) error {
	return s.putSnapshotKey(ctx, KeyUsers, nonNil(users))
}

// LoadSession returns the persisted session, or nil
func (s *LocalStore) LoadSession(ctx context.Context) (*domain.Session, error) {
	var session domain.Session
	ok, err := s.getJSON(ctx, KeySession, &session)
	if err != nil {
		// A corrupt record is discarded rather than locking the user out
		log.Printf("[WARN] discarding unreadable session record: %v", err)
		return nil, s.ClearSession(ctx)
	}
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// SaveSession persists the session record
func (s *LocalStore) SaveSession(ctx context.Context, session *domain.Session) error {
	return s.putJSON(ctx, KeySession, session)
}

// ClearSession removes the session record only
func (s *LocalStore) ClearSession(ctx context.Context) error {
	return s.repo.Delete(ctx, KeySession)
}

// DeviceID returns this origin's device identifier, creating it on first use.
//
// The identifier is a random UUID kept in local storage. It is a soft
// fingerprint: anyone can copy it or reset it by clearing storage, so it
// only discourages casual account sharing and is not a security boundary.
func (s *LocalStore) DeviceID(ctx context.Context) (string, error) {
	id, _, err := s.repo.SetIfAbsent(ctx, KeyDeviceID, uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("failed to load device id: %w", err)
	}
	return id, nil
}

// DeviceBinding returns the device bound to phone, or "" when unbound
func (s *LocalStore) DeviceBinding(ctx context.Context, phone string) (string, error) {
	v, _, err := s.repo.Get(ctx, boundDevicePrefix+phone)
	return v, err
}

// ClaimDevice binds phone to deviceID unless a binding already exists.
// It returns the binding in force after the call.
func (s *LocalStore) ClaimDevice(ctx context.Context, phone, deviceID string) (string, error) {
	bound, _, err := s.repo.SetIfAbsent(ctx, boundDevicePrefix+phone, deviceID)
	if err != nil {
		return "", fmt.Errorf("failed to bind device: %w", err)
	}
	return bound, nil
}

// ReleaseDevice removes the binding for phone
func (s *LocalStore) ReleaseDevice(ctx context.Context, phone string) error {
	return s.repo.Delete(ctx, boundDevicePrefix+phone)
}

// SoundEnabled returns the alert tone preference (default on)
func (s *LocalStore) SoundEnabled(ctx context.Context) (bool, error) {
	v, ok, err := s.repo.Get(ctx, KeySoundEnabled)
	if err != nil || !ok {
		return true, err
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return true, nil
	}
	return enabled, nil
}

// SetSoundEnabled stores the alert tone preference
func (s *LocalStore) SetSoundEnabled(ctx context.Context, enabled bool) error {
	return s.repo.Set(ctx, KeySoundEnabled, strconv.FormatBool(enabled))
}

func (s *LocalStore) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.repo.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *LocalStore) putJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.repo.Set(ctx, key, string(raw))
}

func (s *LocalStore) putSnapshotKey(ctx context.Context, key string, v any) error {
	if err := s.putJSON(ctx, key, v); err != nil {
		return err
	}
	if s.feed == nil {
		return nil
	}
	if err := s.feed.Publish(ctx, domain.StorageChange{Key: key, Origin: s.origin}); err != nil {
		// Siblings catch up on their next poll
		log.Printf("[WARN] failed to announce %s: %v", key, err)
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
