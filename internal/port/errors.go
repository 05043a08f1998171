package port

import (
	"errors"
	"fmt"
)

// Sentinel errors used across ports.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrProviderNotFound   = errors.New("llm provider not found")
	ErrProviderKeyMissing = errors.New("no api key stored for provider")
)

// ProviderError is returned when an LLM vendor rejects a dispatch.
// StatusCode carries the vendor's HTTP status so the request boundary can
// surface it to the caller.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}
