package repository

import (
	"context"
	"sync"

	"libraquant/internal/domain"
)

// MemoryKVRepository is a process-local store, used for ephemeral
// terminals and tests
type MemoryKVRepository struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKVRepository creates an empty in-memory repository
func NewMemoryKVRepository() *MemoryKVRepository {
	return &MemoryKVRepository{data: make(map[string]string)}
}

var _ domain.KVRepository = (*MemoryKVRepository)(nil)

// Get retrieves a value by key
func (r *MemoryKVRepository) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	return v, ok, nil
}

// Set updates or creates a key
func (r *MemoryKVRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
	return nil
}

// SetIfAbsent inserts key only if it is unset
func (r *MemoryKVRepository) SetIfAbsent(_ context.Context, key, value string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.data[key]; ok {
		return existing, false, nil
	}
	r.data[key] = value
	return value, true, nil
}

// Delete removes a key
func (r *MemoryKVRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	return nil
}
