package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env        string
	Port       string
	JWTSecret  string
	PhotoDir   string
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Accounting AccountingConfig
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string
	Quiet    bool
}

// RedisConfig holds the optional identity cache configuration.
// An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AccountingConfig holds the XML-RPC accounting gateway settings.
// An empty URL disables catalog sync.
type AccountingConfig struct {
	URL          string
	Database     string
	Username     string
	Password     string
	SyncInterval time.Duration
}

// Enabled reports whether the accounting gateway is configured
func (c AccountingConfig) Enabled() bool {
	return c.URL != "" && c.Username != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("IDENTITY_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDENTITY_CACHE_TTL: %w", err)
	}
	syncInterval, err := time.ParseDuration(getEnv("ACCOUNTING_SYNC_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCOUNTING_SYNC_INTERVAL: %w", err)
	}

	return &Config{
		Env:       getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "3001"),
		JWTSecret: jwtSecret,
		PhotoDir:  getEnv("PHOTO_DIR", "./photos"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Username: getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: getEnv("DB_NAME", "mpr"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Quiet:    getEnv("DB_QUIET", "false") == "true",
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			TTL:      cacheTTL,
		},
		Accounting: AccountingConfig{
			URL:          os.Getenv("ACCOUNTING_URL"),
			Database:     os.Getenv("ACCOUNTING_DB"),
			Username:     os.Getenv("ACCOUNTING_USER"),
			Password:     os.Getenv("ACCOUNTING_PASSWORD"),
			SyncInterval: syncInterval,
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
