package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	// Single shared room; every message belongs to this company.
	CompanyID string

	// External collaborators.
	AuthProviderURL string
	AuthAPIKey      string
	BlobStoreURL    string
	BlobAPIKey      string

	// Fan-out tuning.
	KeepaliveInterval time.Duration
	MaxConnections    int64

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		CompanyID:       getEnv("COMPANY_ID", ""),
		AuthProviderURL: getEnv("AUTH_PROVIDER_URL", ""),
		AuthAPIKey:      getEnv("AUTH_API_KEY", ""),
		BlobStoreURL:    getEnv("BLOB_STORE_URL", ""),
		BlobAPIKey:      getEnv("BLOB_API_KEY", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CompanyID == "" {
		return nil, fmt.Errorf("COMPANY_ID is required")
	}
	if cfg.AuthProviderURL == "" {
		return nil, fmt.Errorf("AUTH_PROVIDER_URL is required")
	}
	if cfg.AuthAPIKey == "" {
		return nil, fmt.Errorf("AUTH_API_KEY is required")
	}

	// Blob store config: both must be set together.
	if (cfg.BlobStoreURL == "") != (cfg.BlobAPIKey == "") {
		return nil, fmt.Errorf("BLOB_STORE_URL and BLOB_API_KEY must be set together")
	}

	keepalive, err := getEnvDuration("KEEPALIVE_INTERVAL", 25*time.Second)
	if err != nil {
		return nil, err
	}
	if keepalive < time.Second {
		return nil, fmt.Errorf("KEEPALIVE_INTERVAL must be at least 1s")
	}
	cfg.KeepaliveInterval = keepalive

	maxConns, err := getEnvInt64("MAX_CONNECTIONS", 10000)
	if err != nil {
		return nil, err
	}
	if maxConns <= 0 {
		return nil, fmt.Errorf("MAX_CONNECTIONS must be positive")
	}
	cfg.MaxConnections = maxConns

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
