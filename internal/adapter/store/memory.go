package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/promptlens/promptlens/internal/domain"
	"github.com/promptlens/promptlens/internal/port"
)

// MemoryProviderKeyStore is the in-process fallback tier for vendor
// credentials, used when the external store is unavailable. Contents do not
// survive a restart.
type MemoryProviderKeyStore struct {
	mu   sync.RWMutex
	keys map[string]domain.ProviderKey
}

// NewMemoryProviderKeyStore creates an empty in-memory provider key store.
func NewMemoryProviderKeyStore() *MemoryProviderKeyStore {
	return &MemoryProviderKeyStore{keys: make(map[string]domain.ProviderKey)}
}

// UpsertProviderKey stores or replaces the encrypted key for a provider.
func (m *MemoryProviderKeyStore) UpsertProviderKey(_ context.Context, provider, encryptedKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	rec, ok := m.keys[provider]
	if !ok {
		rec = domain.ProviderKey{ID: uuid.NewString(), Provider: provider, CreatedAt: now}
	}
	rec.EncryptedKey = encryptedKey
	rec.UpdatedAt = now
	m.keys[provider] = rec
	return nil
}

// GetProviderKey returns the encrypted key stored for a provider.
func (m *MemoryProviderKeyStore) GetProviderKey(_ context.Context, provider string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.keys[provider]
	if !ok {
		return "", port.ErrProviderKeyMissing
	}
	return rec.EncryptedKey, nil
}

// ListProviders returns the providers that have a key stored.
func (m *MemoryProviderKeyStore) ListProviders(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	providers := make([]string, 0, len(m.keys))
	for p := range m.keys {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers, nil
}

// DeleteProviderKey removes a provider's key and reports whether it existed.
func (m *MemoryProviderKeyStore) DeleteProviderKey(_ context.Context, provider string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[provider]; !ok {
		return false, nil
	}
	delete(m.keys, provider)
	return true, nil
}
