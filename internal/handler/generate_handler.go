package handler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/promptlens/promptlens/internal/middleware"
	"github.com/promptlens/promptlens/internal/port"
	"github.com/promptlens/promptlens/internal/service"
)

// generateBody is the wire shape of POST /api/generate. Optional numeric
// knobs are pointers so absent fields pick up their documented defaults.
type generateBody struct {
	Prompt           string   `json:"prompt"`
	Provider         string   `json:"provider"`
	APIKey           string   `json:"api_key"`
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int     `json:"max_tokens"`
	TopP             *float64 `json:"top_p"`
	FrequencyPenalty *float64 `json:"frequency_penalty"`
	PresencePenalty  *float64 `json:"presence_penalty"`
	Model            string   `json:"model"`
	Keywords         []string `json:"keywords"`
}

var validProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"xai":       true,
}

// GenerateHandler exposes the generation endpoint.
type GenerateHandler struct {
	svc *service.GenerateService
}

// NewGenerateHandler creates a new generate handler.
func NewGenerateHandler(svc *service.GenerateService) *GenerateHandler {
	return &GenerateHandler{svc: svc}
}

// Register sets up the generate route.
func (h *GenerateHandler) Register(router fiber.Router) {
	router.Post("/generate", h.Generate)
}

// Generate handles POST /api/generate.
func (h *GenerateHandler) Generate(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "unauthorized"})
	}

	var body generateBody
	if err := c.Bind().JSON(&body); err != nil {
		return validationError(c, "invalid request body")
	}

	req, detail := buildRequest(body)
	if detail != "" {
		return validationError(c, detail)
	}

	result, err := h.svc.Generate(c.Context(), uc.UserID, *req)
	if err != nil {
		return generateError(c, err)
	}

	return c.JSON(fiber.Map{
		"generated_text":   result.GeneratedText,
		"provider":         result.Provider,
		"model_used":       result.ModelUsed,
		"usage":            result.Usage,
		"user_id":          uc.UserID,
		"cached":           result.Cached,
		"similarity_score": result.SimilarityScore,
	})
}

// buildRequest validates the body, applies defaults, and returns either a
// request or a validation detail.
func buildRequest(body generateBody) (*service.GenerateRequest, string) {
	if body.Prompt == "" {
		return nil, "prompt is required"
	}
	if !validProviders[body.Provider] {
		return nil, "provider must be one of: openai, anthropic, xai"
	}

	req := service.GenerateRequest{
		Prompt:      body.Prompt,
		Provider:    body.Provider,
		APIKey:      body.APIKey,
		Temperature: 0.7,
		MaxTokens:   1000,
		TopP:        1.0,
		Model:       body.Model,
		Keywords:    body.Keywords,
	}

	if body.Temperature != nil {
		if *body.Temperature < 0 || *body.Temperature > 2 {
			return nil, "temperature must be in [0, 2]"
		}
		req.Temperature = *body.Temperature
	}
	if body.MaxTokens != nil {
		if *body.MaxTokens < 1 || *body.MaxTokens > 8000 {
			return nil, "max_tokens must be in [1, 8000]"
		}
		req.MaxTokens = *body.MaxTokens
	}
	if body.TopP != nil {
		if *body.TopP < 0 || *body.TopP > 1 {
			return nil, "top_p must be in [0, 1]"
		}
		req.TopP = *body.TopP
	}
	if body.FrequencyPenalty != nil {
		if *body.FrequencyPenalty < -2 || *body.FrequencyPenalty > 2 {
			return nil, "frequency_penalty must be in [-2, 2]"
		}
		req.FrequencyPenalty = *body.FrequencyPenalty
	}
	if body.PresencePenalty != nil {
		if *body.PresencePenalty < -2 || *body.PresencePenalty > 2 {
			return nil, "presence_penalty must be in [-2, 2]"
		}
		req.PresencePenalty = *body.PresencePenalty
	}

	return &req, ""
}

func validationError(c fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": detail})
}

// generateError maps orchestration failures onto the HTTP boundary: vendor
// status codes surface where available, everything else is a generic 500.
func generateError(c fiber.Ctx, err error) error {
	var providerErr *port.ProviderError
	if errors.As(err, &providerErr) {
		status := providerErr.StatusCode
		if status < 400 || status > 599 {
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(fiber.Map{
			"detail": fmt.Sprintf("%s request failed with status %d", providerErr.Provider, providerErr.StatusCode),
		})
	}

	if errors.Is(err, port.ErrProviderKeyMissing) {
		return validationError(c, "api_key is required (none supplied and none stored)")
	}
	if errors.Is(err, port.ErrProviderNotFound) {
		return validationError(c, "unknown provider")
	}

	slog.Error("generate failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "internal server error"})
}
