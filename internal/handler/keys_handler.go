package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/promptlens/promptlens/internal/service"
)

// KeysHandler exposes the provider-key vault: vendor credentials stored
// encrypted at rest, one per provider. Superseded by the per-request
// api_key field for generation, kept for callers that prefer stored keys.
type KeysHandler struct {
	svc *service.KeysService
}

// NewKeysHandler creates a new keys handler.
func NewKeysHandler(svc *service.KeysService) *KeysHandler {
	return &KeysHandler{svc: svc}
}

// Register sets up key management routes.
func (h *KeysHandler) Register(router fiber.Router) {
	keys := router.Group("/keys")
	keys.Post("/", h.Store)
	keys.Get("/", h.List)
	keys.Get("/:provider/decrypt", h.Decrypt)
	keys.Delete("/:provider", h.Delete)
}

// Store uploads an API key for a provider, encrypting it before persistence.
func (h *KeysHandler) Store(c fiber.Ctx) error {
	var body struct {
		Provider string `json:"provider"`
		APIKey   string `json:"api_key"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "invalid request body"})
	}
	if !validProviders[body.Provider] {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "provider must be one of: openai, anthropic, xai"})
	}
	if strings.TrimSpace(body.APIKey) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "API key cannot be empty"})
	}

	if err := h.svc.StoreKey(c.Context(), body.Provider, strings.TrimSpace(body.APIKey)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "failed to store API key"})
	}

	return c.JSON(fiber.Map{
		"message":  fmt.Sprintf("API key successfully stored for %s", body.Provider),
		"provider": body.Provider,
	})
}

// List returns the providers that have a key stored.
func (h *KeysHandler) List(c fiber.Ctx) error {
	providers, err := h.svc.ListProviders(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "failed to retrieve providers"})
	}
	return c.JSON(fiber.Map{
		"stored_providers": providers,
		"total_count":      len(providers),
	})
}

// Decrypt returns the decrypted key for a provider.
// CAUTION: exposes the plaintext credential; protect or remove in production.
func (h *KeysHandler) Decrypt(c fiber.Ctx) error {
	provider := c.Params("provider")

	key, err := h.svc.GetKey(c.Context(), provider)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"detail": fmt.Sprintf("No API key found for provider: %s", provider),
		})
	}

	return c.JSON(fiber.Map{
		"provider": provider,
		"api_key":  key,
		"warning":  "This endpoint should be secured or removed in production",
	})
}

// Delete removes a provider's stored key.
func (h *KeysHandler) Delete(c fiber.Ctx) error {
	provider := c.Params("provider")

	deleted, err := h.svc.DeleteKey(c.Context(), provider)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "failed to delete API key"})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"detail": fmt.Sprintf("No API key found for provider: %s", provider),
		})
	}

	return c.JSON(fiber.Map{
		"message":  fmt.Sprintf("API key deleted for %s", provider),
		"provider": provider,
	})
}
