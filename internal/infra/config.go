package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Persistence backends understood by PERSIST_BACKEND.
const (
	PersistNone     = "none"
	PersistFile     = "file"
	PersistSQLite   = "sqlite"
	PersistPostgres = "postgres"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	Port             string
	StatusBaseURL    string
	StatusTimeout    time.Duration
	PollInterval     time.Duration
	StaleThreshold   time.Duration
	SweepInterval    time.Duration
	PersistBackend   string
	PersistPath      string
	PersistNamespace string
	DatabaseURL      string
	SQLitePath       string
	DefaultLocale    string
	CORSOrigins      []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg, err := LoadStorageConfig()
	if err != nil {
		return nil, err
	}
	cfg.Port = getEnv("PORT", "8080")
	cfg.StatusBaseURL = strings.TrimRight(os.Getenv("STATUS_BASE_URL"), "/")
	cfg.StatusTimeout = time.Second * time.Duration(getEnvInt("STATUS_TIMEOUT_SECONDS", 10))
	cfg.PollInterval = time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000))
	cfg.SweepInterval = time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 60))
	cfg.DefaultLocale = getEnv("DEFAULT_LOCALE", "en")
	cfg.CORSOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	cfg.HTTPReadTimeout = time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15))
	cfg.HTTPWriteTimeout = time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30))
	cfg.HTTPIdleTimeout = time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60))
	cfg.RateLimitPerMin = getEnvInt("RATE_LIMIT_PER_MINUTE", 120)

	if cfg.StatusBaseURL == "" {
		return nil, fmt.Errorf("STATUS_BASE_URL is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}
	return cfg, nil
}

// LoadStorageConfig loads only the logging and persistence settings. Offline
// tools that never poll the status endpoint use it directly.
func LoadStorageConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		StaleThreshold:   time.Minute * time.Duration(getEnvInt("STALE_JOB_THRESHOLD_MINUTES", 30)),
		PersistBackend:   strings.ToLower(getEnv("PERSIST_BACKEND", PersistNone)),
		PersistPath:      getEnv("PERSIST_PATH", "./data"),
		PersistNamespace: getEnv("PERSIST_NAMESPACE", "generation-jobs"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/jobs.db"),
	}
	if err := cfg.ValidatePersistence(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidatePersistence checks that the selected backend is known and configured.
func (c *Config) ValidatePersistence() error {
	switch c.PersistBackend {
	case PersistNone, PersistFile, PersistSQLite:
	case PersistPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported PERSIST_BACKEND %q", c.PersistBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
