package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	GitLabURL            string
	RegistryHost         string
	TagDisplayLimit      int
	TagDetailConcurrency int
	HTTPTimeout          time.Duration
	DBPath               string
	APIPort              string
	LogLevel             slog.Level
	LogFormat            string
	// BindAddress is the interface the API listens on. Loopback unless overridden.
	BindAddress string
	// AllowedOrigins are the browser origins accepted by the API. Empty refuses all.
	AllowedOrigins []string
	// GitLabToken is stored into the keychain at startup when set.
	GitLabToken string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or one of its parents, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		GitLabURL:    strings.TrimRight(getEnv("GITLAB_URL", "https://gitlab.com"), "/"),
		RegistryHost: strings.TrimRight(getEnv("REGISTRY_HOST", "registry.gitlab.com"), "/"),
		DBPath:       getEnv("DB_PATH", "./data/registry-explorer.db"),
		APIPort:      getEnv("API_PORT", "9000"),
		BindAddress:  getEnv("API_BIND_ADDRESS", "127.0.0.1"),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "text")),
		GitLabToken:  strings.TrimSpace(os.Getenv("GITLAB_TOKEN")),
	}

	if cfg.TagDisplayLimit, err = getInt("TAG_DISPLAY_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.TagDisplayLimit <= 0 {
		return nil, fmt.Errorf("TAG_DISPLAY_LIMIT must be greater than 0")
	}

	if cfg.TagDetailConcurrency, err = getInt("TAG_DETAIL_CONCURRENCY", 0); err != nil {
		return nil, err
	}
	if cfg.TagDetailConcurrency < 0 {
		return nil, fmt.Errorf("TAG_DETAIL_CONCURRENCY must not be negative")
	}

	cfg.HTTPTimeout, err = time.ParseDuration(getEnv("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("HTTP_TIMEOUT must be a valid duration: %w", err)
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT must be greater than 0")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json")
	}

	if cfg.BindAddress != "localhost" && net.ParseIP(cfg.BindAddress) == nil {
		return nil, fmt.Errorf("API_BIND_ADDRESS must be an IP address or localhost")
	}
	if cfg.AllowedOrigins, err = getOrigins("CORS_ALLOWED_ORIGINS"); err != nil {
		return nil, err
	}

	// Create the data directory for the key-value store
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt parses an integer environment variable, falling back to defaultValue when unset.
func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

// getOrigins parses a comma-separated list of http(s) origins.
func getOrigins(key string) ([]string, error) {
	var origins []string
	for _, raw := range strings.Split(getEnv(key, ""), ",") {
		origin := strings.TrimRight(strings.TrimSpace(raw), "/")
		if origin == "" {
			continue
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return nil, fmt.Errorf("%s entries must start with http:// or https://: %q", key, origin)
		}
		origins = append(origins, origin)
	}
	return origins, nil
}
