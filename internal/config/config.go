// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL     = "http://localhost:8000/api/v1/exercises"
	DefaultTimeout     = 60 * time.Second
	DefaultLogDir      = "logs"
	DefaultJournalPath = "tutorchat.db"
)

// Config holds application configuration
type Config struct {
	BaseURL   string        // Evaluation service root, e.g. http://localhost:8000/api/v1/exercises
	Timeout   time.Duration // Per-request timeout, 0 disables it
	LogDir    string
	Debug     bool
	Telemetry bool // Export traces and metrics to files under LogDir
	NoColor   bool

	// Attempt journal
	JournalEnabled bool
	JournalPath    string
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     DefaultTimeout,
		LogDir:      DefaultLogDir,
		Telemetry:   true,
		JournalPath: DefaultJournalPath,
	}
}

// Load reads configuration from environment variables on top of the defaults.
func Load() (Config, error) {
	def := Default()
	cfg := Config{
		BaseURL:        getEnv("TUTOR_API_URL", def.BaseURL),
		Timeout:        getEnvDuration("TUTOR_TIMEOUT", def.Timeout),
		LogDir:         getEnv("TUTOR_LOG_DIR", def.LogDir),
		Debug:          getEnvBool("TUTOR_DEBUG", def.Debug),
		Telemetry:      getEnvBool("TUTOR_TELEMETRY_ENABLED", def.Telemetry),
		NoColor:        getEnvBool("TUTOR_NO_COLOR", def.NoColor) || os.Getenv("NO_COLOR") != "",
		JournalEnabled: getEnvBool("TUTOR_JOURNAL_ENABLED", def.JournalEnabled),
		JournalPath:    getEnv("TUTOR_JOURNAL_PATH", def.JournalPath),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("TUTOR_API_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("TUTOR_API_URL must be an http or https URL, got %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("TUTOR_API_URL has no host: %q", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("TUTOR_TIMEOUT cannot be negative")
	}
	if c.LogDir == "" {
		return fmt.Errorf("TUTOR_LOG_DIR cannot be empty")
	}
	if c.JournalEnabled && c.JournalPath == "" {
		return fmt.Errorf("TUTOR_JOURNAL_PATH cannot be empty when the journal is enabled")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvDuration accepts Go durations ("30s") and plain seconds ("30")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
