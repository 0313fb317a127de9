package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	Env string // development, staging, production

	// Upstream data source
	FRED FREDConfig

	// Local cache / run state
	Cache CacheConfig

	// Fetch behavior
	Fetch FetchConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// FREDConfig holds FRED API configuration.
type FREDConfig struct {
	APIKey           string
	BaseURL          string
	ObservationStart string // YYYY-MM-DD, first date requested from upstream
}

// CacheConfig holds on-disk cache configuration.
type CacheConfig struct {
	Dir          string // one file per indicator lives here
	StateDir     string // run summaries (last_run.json, history.jsonl)
	HistoryLimit int    // max retained run summaries
}

// FetchConfig holds upstream request discipline settings.
type FetchConfig struct {
	Workers    int           // concurrent fetch workers
	RatePerSec float64       // shared request rate across all workers
	Timeout    time.Duration // per-request timeout
	MaxRetries int           // bounded retries after upstream throttling
	RetryDelay time.Duration // initial backoff delay, doubled per retry
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		FRED: FREDConfig{
			APIKey:           getEnv("FRED_API_KEY", ""),
			BaseURL:          getEnv("FRED_BASE_URL", "https://api.stlouisfed.org/fred"),
			ObservationStart: getEnv("FRED_OBSERVATION_START", "1980-01-01"),
		},

		Cache: CacheConfig{
			Dir:          getEnv("CACHE_DIR", "data/cache"),
			StateDir:     getEnv("STATE_DIR", "data/state"),
			HistoryLimit: getEnvAsInt("HISTORY_LIMIT", 30),
		},

		Fetch: FetchConfig{
			Workers:    getEnvAsInt("FETCH_WORKERS", 4),
			RatePerSec: getEnvAsFloat("FETCH_RATE_PER_SEC", 2.0),
			Timeout:    getEnvAsDuration("FETCH_TIMEOUT", "30s"),
			MaxRetries: getEnvAsInt("FETCH_MAX_RETRIES", 3),
			RetryDelay: getEnvAsDuration("FETCH_RETRY_DELAY", "1s"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.FRED.APIKey == "" {
		return fmt.Errorf("FRED_API_KEY is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if _, err := time.Parse("2006-01-02", c.FRED.ObservationStart); err != nil {
		return fmt.Errorf("FRED_OBSERVATION_START must be YYYY-MM-DD: %w", err)
	}

	if c.Fetch.Workers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be at least 1")
	}

	if c.Fetch.RatePerSec <= 0 {
		return fmt.Errorf("FETCH_RATE_PER_SEC must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
