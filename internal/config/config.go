package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP
	Port        string
	CORSOrigins []string
	LogLevel    string

	// Snapshot store
	Store       string // "file" or "postgres"
	DataDir     string
	DatabaseURL string

	// Remote catalog
	WooBaseURL        string
	WooConsumerKey    string
	WooConsumerSecret string
	SyncPageSize      int
	SitemapMaxPages   int

	// Webhook
	WebhookSecret string

	// Admin surface
	AdminKeyHash   string
	AdminJWTSecret string

	// Metrics
	MetricsEnabled bool
	MetricsToken   string
}

func Load() Config {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	return Config{
		Port:        getEnv("PORT", "8084"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		Store:       getEnv("STORE", "file"),
		DataDir:     getEnv("DATA_DIR", "./data"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		WooBaseURL:        getEnv("WOO_BASE_URL", ""),
		WooConsumerKey:    getEnv("WOO_CONSUMER_KEY", ""),
		WooConsumerSecret: getEnv("WOO_CONSUMER_SECRET", ""),
		SyncPageSize:      getEnvAsInt("SYNC_PAGE_SIZE", 100),
		SitemapMaxPages:   getEnvAsInt("SITEMAP_MAX_PAGES", 5),

		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		AdminKeyHash:   getEnv("ADMIN_KEY_HASH", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		MetricsEnabled: getEnv("METRICS_ENABLED", "false") == "true",
		MetricsToken:   getEnv("METRICS_TOKEN", ""),
	}
}

// ValidateServer checks the settings the long-running service cannot run
// without. Webhook mutation without a shared secret is not a supported mode.
func (c Config) ValidateServer() error {
	if c.WooBaseURL == "" {
		return errors.New("WOO_BASE_URL is required")
	}
	if c.WebhookSecret == "" {
		return errors.New("WEBHOOK_SECRET is required")
	}
	if c.Store == "postgres" && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required when STORE=postgres")
	}
	if c.AdminKeyHash != "" && c.AdminJWTSecret == "" {
		return errors.New("ADMIN_JWT_SECRET is required when ADMIN_KEY_HASH is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
