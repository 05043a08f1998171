package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/promptlens/promptlens/internal/port"
)

// AuthService resolves a bearer token to a user identity. First-party API
// keys (recognized by prefix) are looked up in the credential store; anything
// else is treated as an opaque session credential and delegated to the
// identity provider. Failures of either path surface only as
// port.ErrUnauthorized so the underlying cause never leaks to callers.
type AuthService struct {
	keys     port.CredentialStore
	sessions port.SessionVerifier
	prefix   string
}

// NewAuthService creates a credential verifier. sessions may be nil when no
// identity provider is configured.
func NewAuthService(keys port.CredentialStore, sessions port.SessionVerifier, prefix string) *AuthService {
	return &AuthService{keys: keys, sessions: sessions, prefix: prefix}
}

// Verify resolves a bearer token to a user id or fails with
// port.ErrUnauthorized.
func (s *AuthService) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", port.ErrUnauthorized
	}

	if strings.HasPrefix(token, s.prefix) {
		rec, err := s.keys.GetAPIKey(ctx, token)
		if err != nil {
			slog.Debug("api key lookup failed", "error", err)
			return "", port.ErrUnauthorized
		}
		if !rec.Active {
			slog.Debug("api key inactive", "user_id", rec.UserID)
			return "", port.ErrUnauthorized
		}

		// Best-effort: recording last-used time must never fail the request.
		go func(key string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.keys.TouchAPIKey(ctx, key, time.Now()); err != nil {
				slog.Error("failed to touch api key", "error", err)
			}
		}(token)

		return rec.UserID, nil
	}

	if s.sessions == nil {
		return "", port.ErrUnauthorized
	}

	subject, err := s.sessions.VerifySession(ctx, token)
	if err != nil {
		slog.Debug("session verification failed", "error", err)
		return "", port.ErrUnauthorized
	}
	return subject, nil
}
