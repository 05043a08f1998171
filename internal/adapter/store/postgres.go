package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/promptlens/promptlens/internal/domain"
	"github.com/promptlens/promptlens/internal/port"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// --- API keys (first-party credentials) ---

// GetAPIKey looks up a first-party API key.
func (s *PostgresStore) GetAPIKey(ctx context.Context, key string) (*domain.APIKey, error) {
	query := `SELECT key, user_id, active, last_used_at, created_at FROM api_keys WHERE key = $1`

	var rec domain.APIKey
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&rec.Key, &rec.UserID, &rec.Active, &rec.LastUsedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return &rec, nil
}

// TouchAPIKey records the last time a key was used.
func (s *PostgresStore) TouchAPIKey(ctx context.Context, key string, at time.Time) error {
	query := `UPDATE api_keys SET last_used_at = $1 WHERE key = $2`
	_, err := s.db.ExecContext(ctx, query, at, key)
	return err
}

// --- Provider keys (encrypted vendor credentials) ---

// UpsertProviderKey inserts or replaces the encrypted key for a provider.
func (s *PostgresStore) UpsertProviderKey(ctx context.Context, provider, encryptedKey string) error {
	query := `
		INSERT INTO provider_keys (provider, encrypted_key)
		VALUES ($1, $2)
		ON CONFLICT (provider) DO UPDATE SET
			encrypted_key = EXCLUDED.encrypted_key,
			updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, provider, encryptedKey); err != nil {
		return fmt.Errorf("upsert provider key: %w", err)
	}
	return nil
}

// GetProviderKey returns the encrypted key stored for a provider.
func (s *PostgresStore) GetProviderKey(ctx context.Context, provider string) (string, error) {
	query := `SELECT encrypted_key FROM provider_keys WHERE provider = $1`

	var encrypted string
	err := s.db.QueryRowContext(ctx, query, provider).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", port.ErrProviderKeyMissing
	}
	if err != nil {
		return "", fmt.Errorf("get provider key: %w", err)
	}
	return encrypted, nil
}

// ListProviders returns the providers that have a key stored.
func (s *PostgresStore) ListProviders(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT provider FROM provider_keys ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// DeleteProviderKey removes a provider's key and reports whether a row existed.
func (s *PostgresStore) DeleteProviderKey(ctx context.Context, provider string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM provider_keys WHERE provider = $1`, provider)
	if err != nil {
		return false, fmt.Errorf("delete provider key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// --- Audit logs ---

// WriteAudit implements middleware.AuditWriter.
func (s *PostgresStore) WriteAudit(userID, action, resource, details, ip, userAgent string) error {
	query := `INSERT INTO audit_logs (user_id, action, resource, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4::jsonb, $5, $6)`
	_, err := s.db.ExecContext(context.Background(), query,
		userID, action, resource, details, ip, userAgent,
	)
	return err
}
