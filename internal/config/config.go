package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the development server
type Config struct {
	// HTTP Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Authentication Configuration
	Auth AuthConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Addr string // host:port, e.g. ":5000"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds token configuration
type AuthConfig struct {
	JWTSecret         string        // Random per process when empty
	TokenTTL          time.Duration // Lifetime of access tokens
	ResetTokenTTL     time.Duration // Lifetime of password reset tokens
	ExposeResetTokens bool          // Return reset tokens in the forgot-password response
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	return &Config{
		Server: ServerConfig{
			Addr: getEnv("DEVSERVER_ADDR", ":5000"),
		},
		Database: DatabaseConfig{
			// In-memory by default, set a file path to keep data between runs
			URL: getEnv("DATABASE_URL", "file::memory:?cache=shared"),
		},
		Auth: AuthConfig{
			JWTSecret:         os.Getenv("JWT_SECRET"),
			TokenTTL:          getDuration("JWT_TTL", 24*time.Hour),
			ResetTokenTTL:     getDuration("RESET_TOKEN_TTL", time.Hour),
			ExposeResetTokens: getBool("DEVSERVER_EXPOSE_RESET_TOKENS", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}
