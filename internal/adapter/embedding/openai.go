package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client generates embeddings via the OpenAI API and optionally shrinks the
// embedded material with LLM-extracted keywords to cut embedding cost.
type Client struct {
	apiKey       string
	model        string
	dimensions   int
	keywordModel string
	keywordMax   int
	baseURL      string
	httpClient   *http.Client
}

// New creates an OpenAI-backed embedding client. baseURL is overridable for
// tests and compatible endpoints; empty means the public API.
func New(apiKey, model string, dimensions int, keywordModel string, keywordMax int, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:       apiKey,
		model:        model,
		dimensions:   dimensions,
		keywordModel: keywordModel,
		keywordMax:   keywordMax,
		baseURL:      baseURL,
		httpClient:   &http.Client{},
	}
}

// Embed generates a vector embedding for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"model":      c.model,
		"input":      text,
		"dimensions": c.dimensions,
	}

	body, err := c.post(ctx, "/embeddings", payload)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	var resp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openai embed decode: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embed: empty response")
	}

	return resp.Data[0].Embedding, nil
}

// ExtractKeywords asks a chat model for up to max representative phrases.
// Any failure degrades to an empty result so callers embed the full text.
func (c *Client) ExtractKeywords(ctx context.Context, text string, max int) ([]string, error) {
	payload := map[string]interface{}{
		"model": c.keywordModel,
		"messages": []map[string]string{
			{"role": "system", "content": "You extract salient keywords."},
			{"role": "user", "content": fmt.Sprintf(
				"Text:\n%s\n\nExtract up to %d concise keywords/phrases that best represent the content. Return them as a JSON array of strings only.",
				text, max)},
		},
		"temperature": 0.2,
		"max_tokens":  256,
	}

	body, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, nil
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Choices) == 0 {
		return nil, nil
	}

	return parseKeywords(resp.Choices[0].Message.Content, max), nil
}

// EmbedWithKeywords embeds the joined keyword string when extraction yields
// anything, else the full text.
func (c *Client) EmbedWithKeywords(ctx context.Context, text string) ([]float32, []string, error) {
	keywords, _ := c.ExtractKeywords(ctx, text, c.keywordMax)

	material := text
	if len(keywords) > 0 {
		material = strings.Join(keywords, ", ")
	}

	vector, err := c.Embed(ctx, material)
	if err != nil {
		return nil, nil, err
	}
	return vector, keywords, nil
}

// parseKeywords parses a model reply into normalized keywords: JSON array
// first, comma/newline split as fallback, lowercased, deduped, capped.
func parseKeywords(content string, max int) []string {
	var raw []string

	var parsed []string
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		raw = parsed
	} else {
		for _, part := range strings.Split(strings.ReplaceAll(content, "\n", ","), ",") {
			raw = append(raw, part)
		}
	}

	seen := make(map[string]bool)
	var keywords []string
	for _, kw := range raw {
		kw = strings.ToLower(strings.TrimSpace(kw))
		kw = strings.Trim(kw, "-•*\t ")
		kw = strings.Join(strings.Fields(kw), " ")
		kw = strings.Trim(kw, ",.;:!?\"")
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
		if len(keywords) >= max {
			break
		}
	}
	return keywords
}

// post is a helper for POST requests to the OpenAI API.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
