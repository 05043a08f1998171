package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/promptlens/promptlens/internal/adapter/store"
	"github.com/promptlens/promptlens/internal/port"
)

type failingKeyStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingKeyStore) UpsertProviderKey(context.Context, string, string) error {
	return errStoreDown
}
func (failingKeyStore) GetProviderKey(context.Context, string) (string, error) {
	return "", errStoreDown
}
func (failingKeyStore) ListProviders(context.Context) ([]string, error) {
	return nil, errStoreDown
}
func (failingKeyStore) DeleteProviderKey(context.Context, string) (bool, error) {
	return false, errStoreDown
}

func testEncryptionKey(t *testing.T) string {
	t.Helper()
	var k fernet.Key
	if err := k.Generate(); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return k.Encode()
}

func TestKeys_RoundTrip(t *testing.T) {
	svc, err := NewKeysService(store.NewMemoryProviderKeyStore(), store.NewMemoryProviderKeyStore(), testEncryptionKey(t))
	if err != nil {
		t.Fatalf("new keys service: %v", err)
	}

	ctx := context.Background()
	if err := svc.StoreKey(ctx, "openai", "sk-secret"); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, err := svc.GetKey(ctx, "openai")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "sk-secret" {
		t.Errorf("expected decrypted key sk-secret, got %q", got)
	}
}

func TestKeys_StoredValueIsEncrypted(t *testing.T) {
	primary := store.NewMemoryProviderKeyStore()
	svc, err := NewKeysService(primary, store.NewMemoryProviderKeyStore(), testEncryptionKey(t))
	if err != nil {
		t.Fatalf("new keys service: %v", err)
	}

	ctx := context.Background()
	if err := svc.StoreKey(ctx, "anthropic", "sk-ant-secret"); err != nil {
		t.Fatalf("store: %v", err)
	}

	raw, err := primary.GetProviderKey(ctx, "anthropic")
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if raw == "sk-ant-secret" {
		t.Error("key must not be stored in plaintext")
	}
}

func TestKeys_FallbackWhenPrimaryDown(t *testing.T) {
	svc, err := NewKeysService(failingKeyStore{}, store.NewMemoryProviderKeyStore(), testEncryptionKey(t))
	if err != nil {
		t.Fatalf("new keys service: %v", err)
	}

	ctx := context.Background()
	if err := svc.StoreKey(ctx, "xai", "xai-secret"); err != nil {
		t.Fatalf("store via fallback: %v", err)
	}

	got, err := svc.GetKey(ctx, "xai")
	if err != nil {
		t.Fatalf("get via fallback: %v", err)
	}
	if got != "xai-secret" {
		t.Errorf("expected xai-secret, got %q", got)
	}

	providers, err := svc.ListProviders(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(providers) != 1 || providers[0] != "xai" {
		t.Errorf("expected [xai], got %v", providers)
	}
}

func TestKeys_GetMissing(t *testing.T) {
	svc, err := NewKeysService(store.NewMemoryProviderKeyStore(), store.NewMemoryProviderKeyStore(), testEncryptionKey(t))
	if err != nil {
		t.Fatalf("new keys service: %v", err)
	}

	_, err = svc.GetKey(context.Background(), "openai")
	if !errors.Is(err, port.ErrProviderKeyMissing) {
		t.Fatalf("expected ErrProviderKeyMissing, got %v", err)
	}
}

func TestKeys_DeleteAcrossTiers(t *testing.T) {
	primary := store.NewMemoryProviderKeyStore()
	fallback := store.NewMemoryProviderKeyStore()
	svc, err := NewKeysService(primary, fallback, testEncryptionKey(t))
	if err != nil {
		t.Fatalf("new keys service: %v", err)
	}

	ctx := context.Background()
	if err := svc.StoreKey(ctx, "openai", "sk-1"); err != nil {
		t.Fatalf("store: %v", err)
	}

	deleted, err := svc.DeleteKey(ctx, "openai")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Error("expected deletion to be reported")
	}

	deleted, err = svc.DeleteKey(ctx, "openai")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Error("second delete must report nothing removed")
	}
}

func TestPlaceholderRating_Range(t *testing.T) {
	r := PlaceholderRating{}
	for i := 0; i < 100; i++ {
		got := r.Rate("prompt", "response")
		if got < 2 || got > 5 {
			t.Fatalf("rating out of range: %d", got)
		}
	}
}
