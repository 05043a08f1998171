package domain

import "time"

// APIKey maps a first-party API key to a user. Rows are consumed read-only
// except for the LastUsedAt touch on successful verification.
type APIKey struct {
	Key        string     `json:"-"            db:"key"` // never serialized
	UserID     string     `json:"user_id"      db:"user_id"`
	Active     bool       `json:"active"       db:"active"`
	LastUsedAt *time.Time `json:"last_used_at" db:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"   db:"created_at"`
}

// ProviderKey is a vendor credential stored encrypted at rest.
type ProviderKey struct {
	ID           string    `json:"id"            db:"id"`
	Provider     string    `json:"provider"      db:"provider"`
	EncryptedKey string    `json:"-"             db:"encrypted_key"`
	CreatedAt    time.Time `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"    db:"updated_at"`
}

// UserContext is the authenticated user context injected into request handlers.
type UserContext struct {
	UserID string `json:"user_id"`
}
