package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIURL     = "http://localhost:8000/api"
	defaultAPITimeout = 10 * time.Second
)

// Config holds all configuration for the application
type Config struct {
	// API Configuration
	API APIConfig

	// Sandbox Configuration
	Sandbox SandboxConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig holds the remote banking API settings used by the CLI
type APIConfig struct {
	URL     string
	Timeout time.Duration
}

// SandboxConfig holds settings for the local sandbox API server
type SandboxConfig struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
	TokenTTL    time.Duration
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

	// API URL - defaults to a locally running API
	apiURL := os.Getenv("BANK_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	apiTimeout := defaultAPITimeout
	if raw := os.Getenv("BANK_API_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid BANK_API_TIMEOUT %q: %w", raw, err)
		}
		apiTimeout = d
	}

	sandboxAddr := os.Getenv("SANDBOX_ADDR")
	if sandboxAddr == "" {
		sandboxAddr = ":8000"
	}

	// Empty means a private in-memory database per process
	sandboxDB := os.Getenv("SANDBOX_DATABASE_URL")

	sandboxSecret := os.Getenv("SANDBOX_JWT_SECRET")
	if sandboxSecret == "" {
		sandboxSecret = "sandbox-secret-change-me"
	}

	tokenTTL := time.Hour
	if raw := os.Getenv("SANDBOX_TOKEN_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SANDBOX_TOKEN_TTL %q: %w", raw, err)
		}
		tokenTTL = d
	}

	// Logging configuration - console on stderr suits an interactive CLI
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "console"
	}

	return &Config{
		API: APIConfig{
			URL:     apiURL,
			Timeout: apiTimeout,
		},
		Sandbox: SandboxConfig{
			Addr:        sandboxAddr,
			DatabaseURL: sandboxDB,
			JWTSecret:   sandboxSecret,
			TokenTTL:    tokenTTL,
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}
