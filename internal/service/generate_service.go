package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/promptlens/promptlens/internal/domain"
	"github.com/promptlens/promptlens/internal/port"
)

// GenerateRequest is a validated inbound generation request.
type GenerateRequest struct {
	Prompt           string
	Provider         string
	APIKey           string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Model            string
	Keywords         []string
}

// GenerateResult is the outcome of one generation request.
type GenerateResult struct {
	GeneratedText   string
	Provider        string
	ModelUsed       string
	Usage           map[string]int
	Cached          bool
	SimilarityScore *float64
}

// GenerateOptions holds the tunable constants of the orchestration flow.
type GenerateOptions struct {
	// SearchThreshold bounds candidate retrieval. Intentionally loose; it is
	// not the reuse bound.
	SearchThreshold float64
	// ReuseThreshold is the strict bound a candidate's similarity must
	// exceed before its response is reused. Trades recall (more reuse,
	// lower cost) against precision (risk of a wrong answer for a
	// semantically different prompt).
	ReuseThreshold float64
	// ProviderTimeout bounds a single vendor dispatch.
	ProviderTimeout time.Duration
}

// GenerateService orchestrates one generation request: embed the prompt,
// search the cache, either reuse a cached response or dispatch to the
// declared provider, and record the outcome. Holds no in-process cache and
// no locks; every collaborator is an external store or API.
type GenerateService struct {
	embedder  port.Embedder
	queries   port.QueryStore
	providers port.ProviderRegistry
	vault     *KeysService // optional fallback for missing per-request api_key
	rating    port.RatingSource
	opts      GenerateOptions
}

// NewGenerateService creates the generation orchestrator. vault may be nil.
func NewGenerateService(
	embedder port.Embedder,
	queries port.QueryStore,
	providers port.ProviderRegistry,
	vault *KeysService,
	rating port.RatingSource,
	opts GenerateOptions,
) *GenerateService {
	return &GenerateService{
		embedder:  embedder,
		queries:   queries,
		providers: providers,
		vault:     vault,
		rating:    rating,
		opts:      opts,
	}
}

// Generate produces a generation response for the given user and request.
// Steps are strictly sequential; a new QueryRecord is persisted on both the
// cache-hit and cache-miss path.
func (s *GenerateService) Generate(ctx context.Context, userID string, req GenerateRequest) (*GenerateResult, error) {
	start := time.Now()

	promptEmbedding, err := s.embedder.Embed(ctx, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("embed prompt: %w", err)
	}

	candidates, err := s.queries.Nearest(ctx, promptEmbedding, s.opts.SearchThreshold, 1)
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}

	if len(candidates) > 0 && candidates[0].Similarity > s.opts.ReuseThreshold {
		return s.serveCached(ctx, userID, req, promptEmbedding, candidates[0], start)
	}

	return s.dispatch(ctx, userID, req, promptEmbedding, start)
}

// serveCached reuses a cached answer. The cached record's response embedding
// is not reused as-is: the new record needs both embeddings at insert time,
// so the response text is embedded again.
func (s *GenerateService) serveCached(
	ctx context.Context,
	userID string,
	req GenerateRequest,
	promptEmbedding []float32,
	hit domain.SimilarQuery,
	start time.Time,
) (*GenerateResult, error) {
	responseEmbedding, err := s.embedder.Embed(ctx, hit.Response)
	if err != nil {
		return nil, fmt.Errorf("embed cached response: %w", err)
	}

	rec := &domain.QueryRecord{
		UserID:            userID,
		Prompt:            req.Prompt,
		Response:          hit.Response,
		PromptEmbedding:   promptEmbedding,
		ResponseEmbedding: responseEmbedding,
		ModelUsed:         domain.ModelCached,
		TokensUsed:        0,
		ResponseTimeMs:    time.Since(start).Milliseconds(),
		CachedQueryID:     hit.ID,
		Rating:            s.rating.Rate(req.Prompt, hit.Response),
		Keywords:          req.Keywords,
	}
	if _, err := s.queries.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist cached query: %w", err)
	}

	slog.Info("cache hit", "user_id", userID, "cached_query_id", hit.ID, "similarity", hit.Similarity)

	score := hit.Similarity
	return &GenerateResult{
		GeneratedText:   hit.Response,
		Provider:        req.Provider,
		ModelUsed:       domain.ModelCached,
		Usage:           map[string]int{"total_tokens": 0},
		Cached:          true,
		SimilarityScore: &score,
	}, nil
}

// dispatch calls the declared provider and persists the fresh result.
func (s *GenerateService) dispatch(
	ctx context.Context,
	userID string,
	req GenerateRequest,
	promptEmbedding []float32,
	start time.Time,
) (*GenerateResult, error) {
	provider, ok := s.providers[req.Provider]
	if !ok {
		return nil, port.ErrProviderNotFound
	}

	apiKey := req.APIKey
	if apiKey == "" {
		if s.vault == nil {
			return nil, port.ErrProviderKeyMissing
		}
		stored, err := s.vault.GetKey(ctx, req.Provider)
		if err != nil {
			return nil, port.ErrProviderKeyMissing
		}
		apiKey = stored
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	completion, err := provider.Complete(callCtx, port.CompletionRequest{
		Prompt:           req.Prompt,
		Model:            req.Model,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		APIKey:           apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", req.Provider, err)
	}

	responseEmbedding, err := s.embedder.Embed(ctx, completion.Text)
	if err != nil {
		return nil, fmt.Errorf("embed response: %w", err)
	}

	rec := &domain.QueryRecord{
		UserID:            userID,
		Prompt:            req.Prompt,
		Response:          completion.Text,
		PromptEmbedding:   promptEmbedding,
		ResponseEmbedding: responseEmbedding,
		ModelUsed:         completion.ModelUsed,
		TokensUsed:        port.TokensFromUsage(completion.Usage),
		ResponseTimeMs:    time.Since(start).Milliseconds(),
		Rating:            s.rating.Rate(req.Prompt, completion.Text),
		Keywords:          req.Keywords,
	}
	if _, err := s.queries.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist query: %w", err)
	}

	slog.Info("generated", "user_id", userID, "provider", req.Provider, "model", completion.ModelUsed, "tokens", rec.TokensUsed)

	return &GenerateResult{
		GeneratedText:   completion.Text,
		Provider:        req.Provider,
		ModelUsed:       completion.ModelUsed,
		Usage:           completion.Usage,
		Cached:          false,
		SimilarityScore: nil,
	}, nil
}
