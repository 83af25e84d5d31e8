package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"docforge/internal/app"
	"docforge/internal/config"
	"docforge/internal/server"
	"docforge/internal/usertoken"
	"docforge/internal/util"
	"docforge/pkg/ai"
	"docforge/pkg/storage"
	"docforge/pkg/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	// The durable store is optional at startup: a failed connection means
	// every project lives in the volatile store until the next restart.
	var durable store.ProjectStore
	if cfg.DatabaseURL != "" {
		gormStore, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			slog.Warn("durable store unavailable, continuing with volatile store only", "err", err)
		} else {
			durable = gormStore
		}
	} else {
		slog.Info("no databaseURL configured, using volatile store only")
	}
	projectStore := store.NewFallbackStore(durable, store.NewMemoryStore(), logger)

	generator, err := newGenerator(cfg)
	if err != nil {
		log.Fatalf("failed to init text generator: %v", err)
	}

	var artifacts storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		minioStore, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			slog.Warn("artifact archive unavailable, exports will not be archived", "err", err)
		} else {
			artifacts = minioStore
		}
	}

	appCore, err := app.New(app.Config{
		Store:            projectStore,
		Generator:        generator,
		Artifacts:        artifacts,
		DefaultUnitCount: cfg.DefaultUnitCount,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	verifier := usertoken.NewVerifier(usertoken.Config{
		Secret:      cfg.JWTSecret,
		Issuer:      cfg.JWTIssuer,
		AnonymousID: cfg.AnonymousUserID,
	})

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trustedProxies: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		Verifier:                   verifier,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		GenerateRateLimitPerMinute: cfg.GenerateRateLimitPerMinute,
		TrustedProxies:             trustedProxies,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("docforge server listening", "addr", addr, "provider", cfg.AIProvider)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newGenerator(cfg config.FileConfig) (ai.TextGenerator, error) {
	switch cfg.AIProvider {
	case config.ProviderGemini:
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return ai.NewGeminiGenerator(client, cfg.GeminiModel), nil
	case config.ProviderOllama:
		return ai.NewOllamaGenerator(ai.NewOllamaClient(cfg.OllamaURL), cfg.OllamaModel), nil
	default:
		return ai.NewOpenAICompatGenerator(cfg.OpenAICompatURL, cfg.OpenAICompatKey, cfg.OpenAICompatModel), nil
	}
}
