package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// LINE WORKS bot credentials.
	BotID          string
	BotSecret      string
	ClientID       string
	ClientSecret   string
	ServiceAccount string
	PrivateKey     string
	TokenURL       string
	APIBaseURL     string

	// Google Sheets reservation store.
	SpreadsheetID   string
	CredentialsFile string
	ActiveSheet     string
	HistorySheet    string

	// Clinic schedule definition.
	SchedulePath string

	// Dialog sessions.
	SessionTTL time.Duration

	// Redis (webhook idempotency).
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	ProcessedTTL  time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BotID:          getEnv("LW_BOT_ID", ""),
		BotSecret:      getEnv("LW_BOT_SECRET", ""),
		ClientID:       getEnv("LW_CLIENT_ID", ""),
		ClientSecret:   getEnv("LW_CLIENT_SECRET", ""),
		ServiceAccount: getEnv("LW_SERVICE_ACCOUNT", ""),
		PrivateKey:     getEnv("LW_PRIVATE_KEY", ""),
		TokenURL:       getEnv("LW_API_TOKEN_URL", ""),
		APIBaseURL:     getEnv("LW_API_BASE_URL", ""),

		SpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
		CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "google-credentials.json"),
		ActiveSheet:     getEnv("SHEETS_ACTIVE_SHEET", "Reservations"),
		HistorySheet:    getEnv("SHEETS_HISTORY_SHEET", "History"),

		SchedulePath: getEnv("SCHEDULE_PATH", "schedule.json"),

		SessionTTL: getEnvAsDuration("SESSION_TTL", 30*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		ProcessedTTL:  getEnvAsDuration("PROCESSED_EVENT_TTL", 24*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
