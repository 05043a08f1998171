package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/gofiber/fiber/v3"
	"github.com/promptlens/promptlens/internal/adapter/store"
	"github.com/promptlens/promptlens/internal/middleware"
	"github.com/promptlens/promptlens/internal/service"
)

func newKeysApp(t *testing.T) *fiber.App {
	t.Helper()

	var k fernet.Key
	if err := k.Generate(); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	svc, err := service.NewKeysService(store.NewMemoryProviderKeyStore(), store.NewMemoryProviderKeyStore(), k.Encode())
	if err != nil {
		t.Fatalf("new keys service: %v", err)
	}

	app := fiber.New()
	verifier := &fakeVerifier{users: map[string]string{"pl_valid": "user-1"}}
	api := app.Group("/api", middleware.AuthMiddleware(verifier))
	NewKeysHandler(svc).Register(api)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer pl_valid")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func TestKeys_StoreListDecryptDelete(t *testing.T) {
	app := newKeysApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/keys/", map[string]string{
		"provider": "openai", "api_key": "sk-secret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("store status %d (%v)", resp.StatusCode, body)
	}
	if body["message"] != "API key successfully stored for openai" {
		t.Errorf("unexpected message %v", body["message"])
	}

	resp, body = doJSON(t, app, http.MethodGet, "/api/keys/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", resp.StatusCode)
	}
	if body["total_count"] != float64(1) {
		t.Errorf("expected total_count 1, got %v", body["total_count"])
	}

	resp, body = doJSON(t, app, http.MethodGet, "/api/keys/openai/decrypt", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("decrypt status %d", resp.StatusCode)
	}
	if body["api_key"] != "sk-secret" {
		t.Errorf("expected decrypted key, got %v", body["api_key"])
	}
	if body["warning"] == nil {
		t.Error("decrypt response must carry a warning")
	}

	resp, body = doJSON(t, app, http.MethodDelete, "/api/keys/openai", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	if body["message"] != "API key deleted for openai" {
		t.Errorf("unexpected message %v", body["message"])
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/api/keys/openai/decrypt", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestKeys_StoreValidation(t *testing.T) {
	app := newKeysApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/keys/", map[string]string{
		"provider": "gemini", "api_key": "sk",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unknown provider, got %d", resp.StatusCode)
	}
	if body["detail"] != "provider must be one of: openai, anthropic, xai" {
		t.Errorf("unexpected detail %v", body["detail"])
	}

	resp, body = doJSON(t, app, http.MethodPost, "/api/keys/", map[string]string{
		"provider": "openai", "api_key": "   ",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for blank key, got %d", resp.StatusCode)
	}
	if body["detail"] != "API key cannot be empty" {
		t.Errorf("unexpected detail %v", body["detail"])
	}
}

func TestKeys_DeleteMissing(t *testing.T) {
	app := newKeysApp(t)

	resp, body := doJSON(t, app, http.MethodDelete, "/api/keys/anthropic", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if body["detail"] != "No API key found for provider: anthropic" {
		t.Errorf("unexpected detail %v", body["detail"])
	}
}
