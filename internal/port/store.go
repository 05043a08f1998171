package port

import (
	"context"
	"time"

	"github.com/promptlens/promptlens/internal/domain"
)

// QueryStore persists query records and answers nearest-neighbor searches.
// Indexing and distance computation are owned by the backing engine; callers
// only interpret the returned similarity scalar.
type QueryStore interface {
	// Insert stores a record and returns its assigned id. Records with a
	// missing or wrong-dimension embedding are rejected.
	Insert(ctx context.Context, rec *domain.QueryRecord) (string, error)

	// Nearest returns up to limit records whose prompt embedding has cosine
	// similarity >= threshold to the given embedding, highest first.
	Nearest(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.SimilarQuery, error)
}

// CredentialStore resolves first-party API keys.
type CredentialStore interface {
	// GetAPIKey looks up a key and returns its record, or an error when the
	// key is unknown.
	GetAPIKey(ctx context.Context, key string) (*domain.APIKey, error)

	// TouchAPIKey records the time a key was last used. Best-effort side
	// effect of verification.
	TouchAPIKey(ctx context.Context, key string, at time.Time) error
}

// ProviderKeyStore persists encrypted vendor credentials, one per provider.
type ProviderKeyStore interface {
	UpsertProviderKey(ctx context.Context, provider, encryptedKey string) error
	GetProviderKey(ctx context.Context, provider string) (string, error)
	ListProviders(ctx context.Context) ([]string, error)
	DeleteProviderKey(ctx context.Context, provider string) (bool, error)
}
