package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Port               string
	DatabaseURL        string
	RedisURL           string
	NumWorkers         int
	RateLimitPerSecond int
	CBFailureThreshold int
	CBCooldown         time.Duration
	PollInterval       time.Duration
	LogLevel           string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		NumWorkers:         getEnvInt("NUM_WORKERS", 10),
		RateLimitPerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 0),
		CBFailureThreshold: getEnvInt("CB_FAILURE_THRESHOLD", 5),
		CBCooldown:         getEnvDuration("CB_COOLDOWN", 30*time.Second),
		PollInterval:       getEnvDuration("POLL_INTERVAL", 100*time.Millisecond),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.NumWorkers <= 0 {
		return nil, fmt.Errorf("NUM_WORKERS must be positive, got %d", cfg.NumWorkers)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
