package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/promptlens/promptlens/internal/domain"
	"github.com/promptlens/promptlens/internal/port"
)

type fakeCredentialStore struct {
	keys     map[string]*domain.APIKey
	getErr   error
	touchErr error
	touched  chan string
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{
		keys:    make(map[string]*domain.APIKey),
		touched: make(chan string, 1),
	}
}

func (f *fakeCredentialStore) GetAPIKey(_ context.Context, key string) (*domain.APIKey, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.keys[key]
	if !ok {
		return nil, errors.New("no rows")
	}
	return rec, nil
}

func (f *fakeCredentialStore) TouchAPIKey(_ context.Context, key string, _ time.Time) error {
	select {
	case f.touched <- key:
	default:
	}
	return f.touchErr
}

type fakeSessionVerifier struct {
	subject string
	err     error
}

func (f *fakeSessionVerifier) VerifySession(_ context.Context, _ string) (string, error) {
	return f.subject, f.err
}

func TestVerify_FirstPartyKey(t *testing.T) {
	store := newFakeCredentialStore()
	store.keys["pl_abc123"] = &domain.APIKey{Key: "pl_abc123", UserID: "user-7", Active: true}

	svc := NewAuthService(store, nil, "pl_")

	userID, err := svc.Verify(context.Background(), "pl_abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-7" {
		t.Errorf("expected user-7, got %q", userID)
	}

	// last-used touch happens asynchronously
	select {
	case key := <-store.touched:
		if key != "pl_abc123" {
			t.Errorf("touched wrong key %q", key)
		}
	case <-time.After(time.Second):
		t.Error("expected TouchAPIKey to be called")
	}
}

func TestVerify_TouchFailureDoesNotFailRequest(t *testing.T) {
	store := newFakeCredentialStore()
	store.keys["pl_abc"] = &domain.APIKey{Key: "pl_abc", UserID: "user-1", Active: true}
	store.touchErr = errors.New("db down")

	svc := NewAuthService(store, nil, "pl_")

	userID, err := svc.Verify(context.Background(), "pl_abc")
	if err != nil {
		t.Fatalf("touch failure must not fail verification: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("expected user-1, got %q", userID)
	}
}

func TestVerify_InactiveKey(t *testing.T) {
	store := newFakeCredentialStore()
	store.keys["pl_dead"] = &domain.APIKey{Key: "pl_dead", UserID: "user-1", Active: false}

	svc := NewAuthService(store, nil, "pl_")

	_, err := svc.Verify(context.Background(), "pl_dead")
	if !errors.Is(err, port.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_StoreErrorNeverLeaks(t *testing.T) {
	store := newFakeCredentialStore()
	store.getErr = errors.New("connection refused to db at 10.0.0.5")

	svc := NewAuthService(store, nil, "pl_")

	_, err := svc.Verify(context.Background(), "pl_whatever")
	if !errors.Is(err, port.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err.Error() != port.ErrUnauthorized.Error() {
		t.Errorf("underlying cause must not leak, got %q", err.Error())
	}
}

func TestVerify_SessionToken(t *testing.T) {
	store := newFakeCredentialStore()
	sessions := &fakeSessionVerifier{subject: "user-idp-9"}

	svc := NewAuthService(store, sessions, "pl_")

	userID, err := svc.Verify(context.Background(), "eyJhbGciOiJIUzI1NiJ9.opaque.token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-idp-9" {
		t.Errorf("expected user-idp-9, got %q", userID)
	}
}

func TestVerify_SessionFailureIsUnauthorized(t *testing.T) {
	store := newFakeCredentialStore()
	sessions := &fakeSessionVerifier{err: errors.New("token expired")}

	svc := NewAuthService(store, sessions, "pl_")

	_, err := svc.Verify(context.Background(), "some-opaque-token")
	if !errors.Is(err, port.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_NoSessionVerifierConfigured(t *testing.T) {
	svc := NewAuthService(newFakeCredentialStore(), nil, "pl_")

	_, err := svc.Verify(context.Background(), "not-a-first-party-key")
	if !errors.Is(err, port.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_EmptyToken(t *testing.T) {
	svc := NewAuthService(newFakeCredentialStore(), &fakeSessionVerifier{subject: "x"}, "pl_")

	_, err := svc.Verify(context.Background(), "")
	if !errors.Is(err, port.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
