package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Env         string
	ListenAddr  string
	DatabaseURL string
	SourcesFile string

	// Ingestion
	PollInterval         time.Duration // 0 disables the periodic runner
	BatchSize            int
	RetryAttempts        int
	RetryDelay           time.Duration
	MaxConcurrentSources int
	RateLimitPerSource   int // requests per minute, per source

	// Monitoring
	MonitorInterval time.Duration

	// Integration
	WebhookURL     string // empty disables webhook notifications
	WebhookTimeout time.Duration

	LogLevel  slog.Level
	LogFormat string // json | text
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}

func Load() (Config, error) {
	cfg := Config{
		Env:                  getenv("APP_ENV", "development"),
		ListenAddr:           getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SourcesFile:          getenv("SOURCES_FILE", "sources.yaml"),
		PollInterval:         time.Duration(getenvInt("POLL_INTERVAL_MINUTES", 0)) * time.Minute,
		BatchSize:            getenvInt("BATCH_SIZE", 100),
		RetryAttempts:        getenvInt("RETRY_ATTEMPTS", 3),
		RetryDelay:           time.Duration(getenvInt("RETRY_DELAY_SECONDS", 1)) * time.Second,
		MaxConcurrentSources: getenvInt("MAX_CONCURRENT_SOURCES", 3),
		RateLimitPerSource:   getenvInt("RATE_LIMIT_PER_SOURCE", 30),
		MonitorInterval:      time.Duration(getenvInt("MONITOR_INTERVAL_SECONDS", 60)) * time.Second,
		WebhookURL:           os.Getenv("WEBHOOK_URL"),
		WebhookTimeout:       time.Duration(getenvInt("WEBHOOK_TIMEOUT_SECONDS", 30)) * time.Second,
		LogLevel:             parseLevel(getenv("LOG_LEVEL", "info")),
		LogFormat:            getenv("LOG_FORMAT", "text"),
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.MaxConcurrentSources < 1 {
		cfg.MaxConcurrentSources = 1
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for early local runs; warn via error value so callers can decide.
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds the process logger from the configured level and format.
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
