package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"tanya/internal/capability"
	"tanya/internal/capability/external"
	"tanya/internal/config"
	"tanya/internal/conversation"
	"tanya/internal/gemini"
	"tanya/internal/handler"
	"tanya/internal/history"
	"tanya/internal/middleware"
	"tanya/internal/telegram"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("relay starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"model", cfg.GeminiModel,
	)

	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY is not configured")
	}

	// Capability registry: declarations are static and always offered in
	// full; invokers are bound per deployment configuration.
	registry, err := capability.NewRegistry(logger)
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}

	if err := registry.Register("getCurrentWeather", capability.NewWeatherLookup()); err != nil {
		log.Fatalf("Failed to register weather capability: %v", err)
	}
	if cfg.TavilyAPIKey != "" {
		searchClient := external.NewTavilyClient(cfg.TavilyAPIKey)
		if err := registry.Register("performWebSearch", capability.NewWebSearch(searchClient)); err != nil {
			log.Fatalf("Failed to register search capability: %v", err)
		}
	} else {
		logger.Warn("TAVILY_API_KEY not set; web search requests will be reported to the model as unavailable")
	}
	if cfg.HasImageStorage() {
		imageStore, err := capability.NewImageStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			log.Fatalf("Failed to create image store: %v", err)
		}
		if err := registry.Register("uploadImage", capability.NewImageUpload(imageStore)); err != nil {
			log.Fatalf("Failed to register upload capability: %v", err)
		}
		if err := registry.Register("listImages", capability.NewImageList(imageStore)); err != nil {
			log.Fatalf("Failed to register list capability: %v", err)
		}
	} else {
		logger.Warn("image storage not configured; image capabilities will be reported to the model as unavailable")
	}
	logger.Info("capability registry initialized", "declarations", len(registry.Declarations()))

	// History store: postgres when configured, in-memory otherwise.
	var store history.Store
	if cfg.DatabaseURL != "" {
		ctx := context.Background()
		pool, err := history.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()
		store = history.NewPostgresStore(pool, cfg.TablePrefix, logger)
		logger.Info("history store ready", "backend", "postgres", "table_prefix", cfg.TablePrefix)
	} else {
		store = history.NewMemoryStore()
		logger.Info("history store ready", "backend", "memory")
	}

	gateway := gemini.NewClientWithConfig(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, gemini.DefaultTimeout, logger)
	conversations := conversation.NewService(gateway, registry, logger)

	chatHandler := handler.NewChatHandler(conversations, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", chatHandler.HealthCheck)
	mux.HandleFunc("POST /api/chat", chatHandler.Chat)

	// Telegram webhook transport, when a bot token is configured.
	if cfg.TelegramBotToken != "" {
		botClient := telegram.NewClient(cfg.TelegramBotToken)
		webhookHandler := telegram.NewWebhookHandler(botClient, conversations, store, logger)
		mux.HandleFunc("POST /telegram/webhook", webhookHandler.HandleUpdate)

		if cfg.PublicURL != "" {
			webhookURL := strings.TrimRight(cfg.PublicURL, "/") + "/telegram/webhook"
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := botClient.SetWebhook(ctx, webhookURL); err != nil {
				logger.Error("failed to set telegram webhook", "url", webhookURL, "error", err)
			} else {
				logger.Info("telegram webhook registered", "url", webhookURL)
			}
			cancel()
		}
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set; telegram transport disabled")
	}

	// Static chat UI, when present.
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
		logger.Info("serving static files", "dir", cfg.StaticDir)
	}

	logger.Info("services initialized")

	// Build middleware chain
	var httpHandler http.Handler = mux
	httpHandler = middleware.Recovery(logger)(httpHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	})
	httpHandler = corsHandler.Handler(httpHandler)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     httpHandler,
		ReadTimeout: 30 * time.Second,
		// An exchange may span several model round trips; the write
		// timeout has to cover the whole loop.
		WriteTimeout: 6 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
