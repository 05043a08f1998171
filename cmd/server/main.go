package main

import (
	"log/slog"
	"os"

	"github.com/fernet/fernet-go"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/promptlens/promptlens/internal/adapter/embedding"
	"github.com/promptlens/promptlens/internal/adapter/idp"
	"github.com/promptlens/promptlens/internal/adapter/llm"
	"github.com/promptlens/promptlens/internal/adapter/store"
	"github.com/promptlens/promptlens/internal/handler"
	"github.com/promptlens/promptlens/internal/middleware"
	"github.com/promptlens/promptlens/internal/port"
	"github.com/promptlens/promptlens/internal/service"
	"github.com/promptlens/promptlens/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	cfg := config.Load()

	slog.Info("starting PromptLens",
		"port", cfg.Port,
		"embedding_model", cfg.EmbeddingModel,
		"embedding_dimension", cfg.EmbeddingDimension,
		"reuse_threshold", cfg.ReuseThreshold,
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	queryStore := store.NewQueryVectorStore(pgStore, cfg.EmbeddingDimension)

	// ── Adapters ─────────────────────────────────────────────────────────
	embedder := embedding.New(
		cfg.OpenAIAPIKey,
		cfg.EmbeddingModel,
		cfg.EmbeddingDimension,
		cfg.KeywordModel,
		cfg.KeywordMax,
		"",
	)

	providers := port.ProviderRegistry{
		"openai":    llm.NewOpenAI(cfg.OpenAIDefaultModel, ""),
		"anthropic": llm.NewAnthropic(cfg.AnthropicDefaultModel, ""),
		"xai":       llm.NewXAI(cfg.XAIDefaultModel, ""),
	}

	var sessions port.SessionVerifier
	switch {
	case cfg.IDPJWTSecret != "":
		sessions = idp.NewJWTVerifier(cfg.IDPJWTSecret)
	case cfg.IDPUserinfoURL != "":
		sessions = idp.NewUserinfoVerifier(cfg.IDPUserinfoURL)
	default:
		slog.Warn("no identity provider configured, only first-party API keys will authenticate")
	}

	// ── Services ─────────────────────────────────────────────────────────
	encryptionKey := cfg.EncryptionKey
	if encryptionKey == "" {
		var k fernet.Key
		if err := k.Generate(); err != nil {
			slog.Error("failed to generate encryption key", "error", err)
			os.Exit(1)
		}
		encryptionKey = k.Encode()
		slog.Warn("ENCRYPTION_KEY not set, generated an ephemeral key; stored provider keys will not survive a restart")
	}

	keysService, err := service.NewKeysService(pgStore, store.NewMemoryProviderKeyStore(), encryptionKey)
	if err != nil {
		slog.Error("failed to initialize key vault", "error", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(pgStore, sessions, cfg.APIKeyPrefix)

	generateService := service.NewGenerateService(
		embedder,
		queryStore,
		providers,
		keysService,
		service.PlaceholderRating{},
		service.GenerateOptions{
			SearchThreshold: cfg.SearchThreshold,
			ReuseThreshold:  cfg.ReuseThreshold,
			ProviderTimeout: cfg.ProviderTimeout,
		},
	)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
	}))

	// Audit middleware (logs all requests)
	app.Use(middleware.AuditMiddleware(pgStore))

	// ── Public Routes ────────────────────────────────────────────────────
	app.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Hello from PromptLens!"})
	})
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	// ── Protected Routes ─────────────────────────────────────────────────
	api := app.Group("/api", middleware.AuthMiddleware(authService))

	generateHandler := handler.NewGenerateHandler(generateService)
	generateHandler.Register(api)

	keysHandler := handler.NewKeysHandler(keysService)
	keysHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
