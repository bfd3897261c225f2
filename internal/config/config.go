// Package config provides configuration management for the pengaduan service.
//
// This package handles loading configuration from environment variables,
// validating required settings, and providing sensible defaults for optional
// parameters. Configuration is loaded once at startup and remains immutable
// during runtime.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. External .env file in the working directory
//  3. Embedded .env file (fallback, included in binary)
//  4. Hard-coded defaults (lowest priority)
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// embeddedEnv contains the .env template embedded at build time.
//
// It only carries non-secret defaults; credentials always come from the
// real environment.
//
//go:embed .env
var embeddedEnv string

// Config holds all application configuration.
type Config struct {
	// Backend REST API
	APIBaseURL  string        // Base URL of the complaint backend (required)
	APIToken    string        // Bearer token sent with every backend call
	HTTPTimeout time.Duration // Timeout for a single backend request

	// Admin identity sources, tried in this order
	AdminID         string // Explicit admin ObjectId
	SessionFile     string // Exported dashboard localStorage (JSON)
	DashboardURL    string // Dashboard origin for the browser identity source
	BrowserIdentity bool   // Read localStorage from a live browser tab

	// Rate limiting
	RateLimitWindow     time.Duration // General API limiter window
	RateLimitMax        int           // General API limiter budget per window
	ModeRateLimitWindow time.Duration // Mode-toggle limiter window
	ModeRateLimitMax    int           // Mode-toggle limiter budget per window
	RedisURL            string        // Shared limiter store (optional)

	// Report polling
	PollInterval time.Duration // How often the listing is refetched
	PollPageSize int           // Reports requested per page
	MaxPages     int           // Maximum pages walked per poll
	SummaryEvery int           // Send the status chart every N polls (0 = never)

	// Notifications
	NoticeTTL        time.Duration // Auto-dismiss delay of user notifications
	TelegramBotToken string        // Telegram bot API token (optional)
	TelegramChatID   string        // Telegram chat ID (optional)

	// Reverse geocoding
	GeocoderURL    string
	GeocodeTimeout time.Duration

	// Files
	SummaryFile string // Where the rendered status chart is written
	StorageFile string // CSV of report ids already announced

	// HTTP surface
	HTTPPort string

	// Debug mode - backend writes are logged but not sent
	DebugMode bool
}

// LoadConfig loads configuration from environment variables with defaults.
//
// Loading process:
//  1. Apply the external .env file to keys not already in the environment
//  2. Apply the embedded .env to keys still unset
//  3. Read environment variables, applying defaults for optional values
//  4. Validate
//
// The process environment wins over the external .env, which wins over the
// embedded defaults.
func LoadConfig() (*Config, error) {
	if external, err := godotenv.Read(); err == nil {
		applyEnv(external)
	}
	if embedded, err := godotenv.Unmarshal(embeddedEnv); err == nil {
		applyEnv(embedded)
	}

	cfg := &Config{
		APIBaseURL:  os.Getenv("API_BASE_URL"),
		APIToken:    os.Getenv("API_TOKEN"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		AdminID:         os.Getenv("ADMIN_ID"),
		SessionFile:     getEnvOrDefault("SESSION_FILE", "session.json"),
		DashboardURL:    os.Getenv("DASHBOARD_URL"),
		BrowserIdentity: getEnvOrDefault("BROWSER_IDENTITY", "false") == "true",

		RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		RateLimitMax:        getEnvInt("RATE_LIMIT_MAX", 15),
		ModeRateLimitWindow: getEnvDuration("MODE_RATE_LIMIT_WINDOW", 30*time.Second),
		ModeRateLimitMax:    getEnvInt("MODE_RATE_LIMIT_MAX", 5),
		RedisURL:            os.Getenv("REDIS_URL"),

		PollInterval: getEnvDuration("POLL_INTERVAL", 5*time.Minute),
		PollPageSize: getEnvInt("POLL_PAGE_SIZE", 50),
		MaxPages:     getEnvInt("MAX_PAGES", 5),
		SummaryEvery: getEnvInt("SUMMARY_EVERY", 12),

		NoticeTTL:        getEnvDuration("NOTICE_TTL", 5*time.Second),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		GeocoderURL:    getEnvOrDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocodeTimeout: getEnvDuration("GEOCODE_TIMEOUT", 5*time.Second),

		SummaryFile: getEnvOrDefault("SUMMARY_FILE", "summary.png"),
		StorageFile: getEnvOrDefault("STORAGE_FILE", "reports.csv"),

		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		DebugMode: getEnvOrDefault("DEBUG_MODE", "false") == "true",
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present and values are sensible.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL environment variable is required")
	}

	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.RateLimitWindow)
	}
	if c.RateLimitMax < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX must be at least 1, got %d", c.RateLimitMax)
	}
	if c.ModeRateLimitWindow <= 0 {
		return fmt.Errorf("MODE_RATE_LIMIT_WINDOW must be positive, got %v", c.ModeRateLimitWindow)
	}
	if c.ModeRateLimitMax < 1 {
		return fmt.Errorf("MODE_RATE_LIMIT_MAX must be at least 1, got %d", c.ModeRateLimitMax)
	}
	if c.PollPageSize < 1 {
		return fmt.Errorf("POLL_PAGE_SIZE must be at least 1, got %d", c.PollPageSize)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be at least 1, got %d", c.MaxPages)
	}
	if c.BrowserIdentity && c.DashboardURL == "" {
		return fmt.Errorf("DASHBOARD_URL is required when BROWSER_IDENTITY is enabled")
	}

	return nil
}

// applyEnv sets the keys of envMap that are empty in the environment.
func applyEnv(envMap map[string]string) {
	for k, v := range envMap {
		if os.Getenv(k) == "" {
			os.Setenv(k, v)
		}
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an integer or a default if not set/invalid
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default if not set/invalid.
//
// Accepts standard Go duration strings like "5s", "10m", "1h30m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
