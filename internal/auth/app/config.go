package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Issuer         string // Issuer claim stamped into access tokens
	SigningKeyFile string // Path to the Ed25519 signing key PEM (generated if absent)
	DatabaseFile   string // Path to the SQLite database file (default: ./leafmarks.db)
	PepperFile     string // Path to the password-hash pepper file (default: ./pepper)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	AccessTokenTTL  time.Duration // Access-token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Refresh-token lifetime (default: 168h)

	LoginMaxAttempts     int           // Failed logins allowed per window (default: 5)
	LoginWindow          time.Duration // Attempt window (default: 15m)
	RequireVerifiedEmail bool          // Block login until the email is verified (default: true)
	UserCacheTTL         time.Duration // User record cache lifetime (default: 1m)

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-record cleanup interval (default: 1h)
}

func LoadConfig() Config {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	return Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "leafmarks-auth"),
		SigningKeyFile: getEnvOrDefault("AUTH_SIGNING_KEY_FILE", "signing_key.pem"),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "leafmarks.db"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		AccessTokenTTL:  getEnvDurationOrDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDurationOrDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		LoginMaxAttempts:     getEnvIntOrDefault("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:          getEnvDurationOrDefault("LOGIN_WINDOW", 15*time.Minute),
		RequireVerifiedEmail: getEnvBoolOrDefault("REQUIRE_EMAIL_VERIFICATION", true),
		UserCacheTTL:         getEnvDurationOrDefault("USER_CACHE_TTL", time.Minute),

		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
