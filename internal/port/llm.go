package port

import "context"

// CompletionRequest is the canonical generation request handed to a
// provider adapter. APIKey is the vendor credential supplied per request.
type CompletionRequest struct {
	Prompt           string
	Model            string // empty = provider default
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	APIKey           string
}

// CompletionResult is what a provider adapter returns after a dispatch.
// Usage holds the vendor's token accounting verbatim; field names differ
// per vendor, so callers interpret it through a fallback chain.
type CompletionResult struct {
	Text      string
	ModelUsed string
	Usage     map[string]int
}

// LLMProvider translates the canonical generation request into one vendor's
// wire format and back.
type LLMProvider interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic", "xai").
	Name() string

	// Complete sends a prompt and returns the vendor's completion.
	// Non-2xx vendor responses surface as *ProviderError.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// ProviderRegistry holds the fixed set of LLMProvider implementations
// keyed by name.
type ProviderRegistry map[string]LLMProvider

// TokensFromUsage extracts a token count from a vendor usage map.
// Preference order: a single total field, then prompt+completion
// (OpenAI-style), then input+output (Anthropic-style), then zero.
func TokensFromUsage(usage map[string]int) int {
	if usage == nil {
		return 0
	}
	if total, ok := usage["total_tokens"]; ok {
		return total
	}
	if p, ok := usage["prompt_tokens"]; ok {
		return p + usage["completion_tokens"]
	}
	if in, ok := usage["input_tokens"]; ok {
		return in + usage["output_tokens"]
	}
	return 0
}
