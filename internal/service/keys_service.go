package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fernet/fernet-go"
	"github.com/promptlens/promptlens/internal/port"
)

// KeysService manages vendor credentials encrypted at rest. Storage is
// two-tier: the primary store first, then an injected in-memory fallback
// when the primary errors, behind the single port.ProviderKeyStore contract.
type KeysService struct {
	primary  port.ProviderKeyStore
	fallback port.ProviderKeyStore
	keys     []*fernet.Key
}

// NewKeysService creates a key vault. encryptionKey is a base64url Fernet key.
func NewKeysService(primary, fallback port.ProviderKeyStore, encryptionKey string) (*KeysService, error) {
	keys, err := fernet.DecodeKeys(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	return &KeysService{primary: primary, fallback: fallback, keys: keys}, nil
}

// StoreKey encrypts and stores a vendor API key.
func (s *KeysService) StoreKey(ctx context.Context, provider, apiKey string) error {
	encrypted, err := fernet.EncryptAndSign([]byte(apiKey), s.keys[0])
	if err != nil {
		return fmt.Errorf("encrypt key: %w", err)
	}

	if err := s.primary.UpsertProviderKey(ctx, provider, string(encrypted)); err != nil {
		slog.Warn("primary key store failed, using fallback", "provider", provider, "error", err)
		return s.fallback.UpsertProviderKey(ctx, provider, string(encrypted))
	}
	return nil
}

// GetKey retrieves and decrypts the stored key for a provider. The fallback
// tier is consulted when the primary errors or has no row.
func (s *KeysService) GetKey(ctx context.Context, provider string) (string, error) {
	encrypted, err := s.primary.GetProviderKey(ctx, provider)
	if err != nil {
		if !errors.Is(err, port.ErrProviderKeyMissing) {
			slog.Warn("primary key store failed, checking fallback", "provider", provider, "error", err)
		}
		encrypted, err = s.fallback.GetProviderKey(ctx, provider)
		if err != nil {
			return "", err
		}
	}

	plain := fernet.VerifyAndDecrypt([]byte(encrypted), 0, s.keys)
	if plain == nil {
		return "", fmt.Errorf("decrypt key for %s: invalid token", provider)
	}
	return string(plain), nil
}

// ListProviders returns the union of providers present in both tiers.
func (s *KeysService) ListProviders(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var providers []string

	primary, err := s.primary.ListProviders(ctx)
	if err != nil {
		slog.Warn("primary key store failed, listing fallback only", "error", err)
	}
	fallback, _ := s.fallback.ListProviders(ctx)

	for _, p := range append(primary, fallback...) {
		if !seen[p] {
			seen[p] = true
			providers = append(providers, p)
		}
	}
	return providers, nil
}

// DeleteKey removes a provider's key from both tiers and reports whether
// either held one.
func (s *KeysService) DeleteKey(ctx context.Context, provider string) (bool, error) {
	deleted, err := s.primary.DeleteProviderKey(ctx, provider)
	if err != nil {
		slog.Warn("primary key store failed, deleting from fallback", "provider", provider, "error", err)
	}

	fallbackDeleted, _ := s.fallback.DeleteProviderKey(ctx, provider)
	return deleted || fallbackDeleted, nil
}
