package domain

import "time"

// QueryRecord is the unit of cache and history: one row per inbound
// generation request, whether the response was generated fresh or reused
// from the cache. Records are immutable after insert.
type QueryRecord struct {
	ID                string    `json:"id"              db:"id"`
	UserID            string    `json:"user_id"         db:"user_id"`
	Prompt            string    `json:"prompt"          db:"prompt"`
	Response          string    `json:"response"        db:"response"`
	PromptEmbedding   []float32 `json:"-"               db:"prompt_embedding"`
	ResponseEmbedding []float32 `json:"-"               db:"response_embedding"`
	ModelUsed         string    `json:"model_used"      db:"model_used"`
	TokensUsed        int       `json:"tokens_used"     db:"tokens_used"`
	ResponseTimeMs    int64     `json:"response_time_ms" db:"response_time_ms"`
	CachedQueryID     string    `json:"cached_query_id,omitempty" db:"cached_query_id"`
	Rating            int       `json:"rating,omitempty" db:"rating"`
	Keywords          []string  `json:"keywords,omitempty" db:"keywords"`
	CreatedAt         time.Time `json:"created_at"      db:"created_at"`
}

// ModelCached is the ModelUsed value for records served from the cache.
const ModelCached = "cached"

// SimilarQuery is returned by nearest-neighbor search, including the
// similarity score reported by the store. It is a transient projection,
// never persisted.
type SimilarQuery struct {
	ID         string   `json:"id"`
	UserID     string   `json:"user_id"`
	Prompt     string   `json:"prompt"`
	Response   string   `json:"response"`
	Similarity float64  `json:"similarity"`
	Keywords   []string `json:"keywords,omitempty"`
}
