package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Session Configuration
	Session SessionConfig

	// Email Configuration
	Email EmailConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr        string
	CORSOrigin  string // Origin of the React SPA
	Environment string // production, development
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL          string
	DirectoryURL string // Optional external PostgreSQL user directory
}

// SessionConfig holds session store configuration
type SessionConfig struct {
	Store      string // memory, redis
	RedisAddr  string
	Secret     string
	TTL        time.Duration
	CookieName string
}

// EmailConfig holds email delivery configuration
type EmailConfig struct {
	Priority     string // smtp, api - which transport wins when both are usable
	ResendAPIKey string
	FromEmail    string
	AppName      string

	// Optional institute-wide SMTP account used for outbound mail
	// when no per-request credentials are supplied
	SMTPServer   string
	SMTPPort     int
	SMTPEmail    string
	SMTPPassword string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// IsProduction reports whether the server runs in production mode.
// Outside production, SMTP certificate validation and the Secure cookie
// flag are relaxed for local development.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// Database URL - default to a local SQLite file, allow override for dev
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "campusdesk.sqlite"
	}

	sessionTTL := 7 * 24 * time.Hour
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			sessionTTL = parsed
		}
	}

	smtpPort := 587
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			smtpPort = parsed
		}
	}

	return &Config{
		Server: ServerConfig{
			Addr:        envOrDefault("SERVER_ADDR", ":8080"),
			CORSOrigin:  envOrDefault("CORS_ORIGIN", "http://localhost:5173"),
			Environment: envOrDefault("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			URL:          dbURL,
			DirectoryURL: os.Getenv("DIRECTORY_URL"),
		},
		Session: SessionConfig{
			Store:      envOrDefault("SESSION_STORE", "memory"),
			RedisAddr:  envOrDefault("REDIS_ADDRESS", "localhost:6379"),
			Secret:     envOrDefault("SESSION_SECRET", "default_local_secret"),
			TTL:        sessionTTL,
			CookieName: envOrDefault("SESSION_COOKIE_NAME", "campusdesk_session"),
		},
		Email: EmailConfig{
			Priority:     envOrDefault("EMAIL_PRIORITY", "smtp"),
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			FromEmail:    os.Getenv("FROM_EMAIL"),
			AppName:      envOrDefault("APP_NAME", "Campusdesk"),
			SMTPServer:   os.Getenv("SMTP_SERVER"),
			SMTPPort:     smtpPort,
			SMTPEmail:    os.Getenv("SMTP_EMAIL"),
			SMTPPassword: os.Getenv("SMTP_APP_PASSWORD"),
		},
		Logging: LoggingConfig{
			Level:  envOrDefault("LOG_LEVEL", "info"),
			Format: envOrDefault("LOG_FORMAT", "json"),
		},
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
