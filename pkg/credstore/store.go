package credstore

import (
	"sync"
)

// Store is a durable string key-value store.
type Store interface {
	// Get returns the stored value and whether it was present.
	Get(key string) (string, bool)

	// Set stores a value. Empty values are equivalent to Delete.
	Set(key, value string) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys returns all stored keys.
	Keys() []string
}

// Credential-store key constants.
const (
	// KeyConnectionMode holds the persisted gateway connection mode.
	KeyConnectionMode = "gateway.mode"

	// KeyDeviceToken holds the device-scoped fallback token.
	KeyDeviceToken = "gateway.token"

	// KeyOnboardingSeen is set once onboarding has completed.
	KeyOnboardingSeen = "onboarding.seen"

	// tokenKeyPrefix prefixes per-endpoint token keys.
	tokenKeyPrefix = "token."
)

// TokenKey returns the store key for an endpoint's pairing token.
func TokenKey(stableID string) string {
	return tokenKeyPrefix + stableID
}

// MemoryStore is an in-memory Store, used in tests and as the scratch
// side of reconciliation.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the stored value and whether it was present.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.values, key)
		return nil
	}
	s.values[key] = value
	return nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Keys returns all stored keys.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

var _ Store = (*MemoryStore)(nil)
