package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/promptlens/promptlens/internal/port"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	xaiBaseURL    = "https://api.x.ai/v1"
)

// openAICompat implements port.LLMProvider for chat-completions APIs that
// speak the OpenAI wire format. xAI exposes the same surface, so both
// providers share this client.
type openAICompat struct {
	name         string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewOpenAI creates the OpenAI provider adapter. baseURL is overridable for
// tests; empty means the public API.
func NewOpenAI(defaultModel, baseURL string) port.LLMProvider {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &openAICompat{
		name:         "openai",
		baseURL:      baseURL,
		defaultModel: defaultModel,
		httpClient:   &http.Client{},
	}
}

// NewXAI creates the xAI provider adapter (OpenAI-compatible wire format).
func NewXAI(defaultModel, baseURL string) port.LLMProvider {
	if baseURL == "" {
		baseURL = xaiBaseURL
	}
	return &openAICompat{
		name:         "xai",
		baseURL:      baseURL,
		defaultModel: defaultModel,
		httpClient:   &http.Client{},
	}
}

func (c *openAICompat) Name() string { return c.name }

func (c *openAICompat) Complete(ctx context.Context, req port.CompletionRequest) (*port.CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
		"temperature":       req.Temperature,
		"max_tokens":        req.MaxTokens,
		"top_p":             req.TopP,
		"frequency_penalty": req.FrequencyPenalty,
		"presence_penalty":  req.PresencePenalty,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal payload: %w", c.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &port.ProviderError{Provider: c.name, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Model string `json:"model"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", c.name, err)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty choices", c.name)
	}

	return &port.CompletionResult{
		Text:      result.Choices[0].Message.Content,
		ModelUsed: result.Model,
		Usage: map[string]int{
			"prompt_tokens":     result.Usage.PromptTokens,
			"completion_tokens": result.Usage.CompletionTokens,
			"total_tokens":      result.Usage.TotalTokens,
		},
	}, nil
}
