package config

import (
	"os"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	StaticDir   string

	// Model provider
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// Telegram
	TelegramBotToken string
	PublicURL        string // when set, the webhook is registered at startup

	// Capabilities
	TavilyAPIKey string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3Bucket     string
	S3UseSSL     bool

	// History persistence (in-memory when unset)
	DatabaseURL string
	TablePrefix string
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		StaticDir:   getEnv("STATIC_DIR", "public"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		PublicURL:        getEnv("PUBLIC_URL", ""),

		TavilyAPIKey: getEnv("TAVILY_API_KEY", ""),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3UseSSL:     getEnv("S3_USE_SSL", "true") == "true",

		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),
	}
}

// HasImageStorage reports whether the image capabilities can be wired.
func (c *Config) HasImageStorage() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.S3Bucket != ""
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
