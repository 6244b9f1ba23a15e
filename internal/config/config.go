package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Booking server the page talks to
	BookingAPIBaseURL string
	BookingAPITimeout time.Duration

	// Saved user name persistence
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	UseMemoryNameStore bool
	SavedNameTTL       time.Duration

	// Interaction timings
	ToastDuration     time.Duration
	FlashStagger      time.Duration
	HighlightDuration time.Duration

	// Inbound event limits per page session
	EventRatePerSec float64
	EventBurst      int

	// WebSocket connection attempts per client IP
	ConnectRatePerSec float64
	ConnectBurst      int

	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		BookingAPIBaseURL: strings.TrimRight(getEnv("BOOKING_API_BASE_URL", "http://localhost:5000"), "/"),
		BookingAPITimeout: getEnvAsDuration("BOOKING_API_TIMEOUT", 0),

		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		UseMemoryNameStore: getEnvAsBool("USE_MEMORY_NAME_STORE", false),
		SavedNameTTL:       getEnvAsDuration("SAVED_NAME_TTL", 0),

		ToastDuration:     getEnvAsDuration("TOAST_DURATION", 3*time.Second),
		FlashStagger:      getEnvAsDuration("FLASH_STAGGER", 400*time.Millisecond),
		HighlightDuration: getEnvAsDuration("HIGHLIGHT_DURATION", 2500*time.Millisecond),

		EventRatePerSec: getEnvAsFloat("EVENT_RATE_PER_SEC", 20),
		EventBurst:      getEnvAsInt("EVENT_BURST", 40),

		ConnectRatePerSec: getEnvAsFloat("CONNECT_RATE_PER_SEC", 1),
		ConnectBurst:      getEnvAsInt("CONNECT_BURST", 10),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
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

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
