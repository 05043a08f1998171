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

const anthropicBaseURL = "https://api.anthropic.com/v1"

// Anthropic implements port.LLMProvider for the Anthropic Messages API.
type Anthropic struct {
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewAnthropic creates the Anthropic provider adapter.
func NewAnthropic(defaultModel, baseURL string) *Anthropic {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &Anthropic{
		baseURL:      baseURL,
		defaultModel: defaultModel,
		httpClient:   &http.Client{},
	}
}

func (c *Anthropic) Name() string { return "anthropic" }

func (c *Anthropic) Complete(ctx context.Context, req port.CompletionRequest) (*port.CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	// The Messages API has no frequency/presence penalty knobs; those
	// request fields are ignored here.
	payload := map[string]interface{}{
		"model":      model,
		"max_tokens": req.MaxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
		"temperature": req.Temperature,
		"top_p":       req.TopP,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("anthropic: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &port.ProviderError{Provider: "anthropic", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Model string `json:"model"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}

	if len(result.Content) == 0 {
		return nil, fmt.Errorf("anthropic: empty content")
	}

	return &port.CompletionResult{
		Text:      result.Content[0].Text,
		ModelUsed: result.Model,
		Usage: map[string]int{
			"input_tokens":  result.Usage.InputTokens,
			"output_tokens": result.Usage.OutputTokens,
		},
	}, nil
}
