package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/promptlens/promptlens/internal/domain"
)

// QueryVectorStore handles pgvector-backed persistence of query records and
// nearest-neighbor search over their prompt embeddings.
type QueryVectorStore struct {
	store     *PostgresStore
	dimension int
}

// NewQueryVectorStore creates a query store backed by the given Postgres store.
func NewQueryVectorStore(store *PostgresStore, dimension int) *QueryVectorStore {
	return &QueryVectorStore{store: store, dimension: dimension}
}

// Insert persists a query record and returns its assigned id.
// Records with a missing or wrong-dimension embedding are rejected before
// the database is touched.
func (v *QueryVectorStore) Insert(ctx context.Context, rec *domain.QueryRecord) (string, error) {
	if len(rec.PromptEmbedding) != v.dimension {
		return "", fmt.Errorf("insert query: prompt embedding has %d dimensions, want %d", len(rec.PromptEmbedding), v.dimension)
	}
	if len(rec.ResponseEmbedding) != v.dimension {
		return "", fmt.Errorf("insert query: response embedding has %d dimensions, want %d", len(rec.ResponseEmbedding), v.dimension)
	}

	var cachedID sql.NullString
	if rec.CachedQueryID != "" {
		cachedID = sql.NullString{String: rec.CachedQueryID, Valid: true}
	}
	var rating sql.NullInt64
	if rec.Rating != 0 {
		rating = sql.NullInt64{Int64: int64(rec.Rating), Valid: true}
	}

	query := `INSERT INTO queries
	              (user_id, prompt, response, prompt_embedding, response_embedding,
	               model_used, tokens_used, response_time_ms, cached_query_id, rating, keywords)
	          VALUES ($1, $2, $3, $4::vector, $5::vector, $6, $7, $8, $9, $10, $11)
	          RETURNING id`

	var id string
	err := v.store.db.QueryRowContext(ctx, query,
		rec.UserID, rec.Prompt, rec.Response,
		vectorToString(rec.PromptEmbedding), vectorToString(rec.ResponseEmbedding),
		rec.ModelUsed, rec.TokensUsed, rec.ResponseTimeMs,
		cachedID, rating, pq.Array(rec.Keywords),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert query: %w", err)
	}
	return id, nil
}

// Nearest performs a cosine similarity search over prompt embeddings and
// returns matches at or above the threshold, highest similarity first.
func (v *QueryVectorStore) Nearest(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.SimilarQuery, error) {
	vectorStr := vectorToString(embedding)
	query := `SELECT q.id, q.user_id, q.prompt, q.response,
	                 1 - (q.prompt_embedding <=> $1::vector) AS similarity,
	                 COALESCE(q.keywords, '{}')
	          FROM queries q
	          WHERE 1 - (q.prompt_embedding <=> $1::vector) >= $2
	          ORDER BY q.prompt_embedding <=> $1::vector
	          LIMIT $3`

	rows, err := v.store.db.QueryContext(ctx, query, vectorStr, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest queries: %w", err)
	}
	defer rows.Close()

	var results []domain.SimilarQuery
	for rows.Next() {
		var sq domain.SimilarQuery
		if err := rows.Scan(
			&sq.ID, &sq.UserID, &sq.Prompt, &sq.Response, &sq.Similarity, pq.Array(&sq.Keywords),
		); err != nil {
			return nil, fmt.Errorf("scan similar query: %w", err)
		}
		results = append(results, sq)
	}
	return results, rows.Err()
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
