// Package config loads the server configuration from defaults, an optional YAML
// file, an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	ShortLink ShortLinkConfig `yaml:"short_link"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	BaseURL         string        `yaml:"base_url"` // Used to build absolute media and short links
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PageSize        int           `yaml:"page_size"`
}

// DBConfig selects the gorm driver and its DSN
type DBConfig struct {
	Driver   string `yaml:"driver"` // sqlite or postgres
	DSN      string `yaml:"dsn"`
	LogLevel string `yaml:"log_level"` // silent, error, warn, info
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

// LogConfig holds zap logger settings
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ShortLinkConfig tunes the short link generator
type ShortLinkConfig struct {
	Length      int `yaml:"length"`
	MaxAttempts int `yaml:"max_attempts"`
}

// RateLimitConfig configures the per-client limiter on public endpoints
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns a configuration suitable for local development
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			BaseURL:         "http://localhost:8080",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
			PageSize:        6,
		},
		DB: DBConfig{
			Driver:   "sqlite",
			DSN:      "foodgram.db",
			LogLevel: "warn",
		},
		Auth: AuthConfig{
			// Default for development only - should be set in production
			JWTSecret:     "foodgram-dev-secret-change-in-production",
			TokenDuration: 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
		ShortLink: ShortLinkConfig{
			Length:      6,
			MaxAttempts: 10,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// A missing .env file is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("FOODGRAM_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("FOODGRAM_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("FOODGRAM_DB_DRIVER"); v != "" {
		c.DB.Driver = v
	}
	if v := os.Getenv("FOODGRAM_DB_DSN"); v != "" {
		c.DB.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("FOODGRAM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FOODGRAM_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.RequestsPerSecond = rps
		}
	}
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.ShortLink.Length < 4 || c.ShortLink.Length > 10 {
		return fmt.Errorf("short link length must be between 4 and 10, got %d", c.ShortLink.Length)
	}
	if c.ShortLink.MaxAttempts < 1 {
		return fmt.Errorf("short link max attempts must be positive, got %d", c.ShortLink.MaxAttempts)
	}
	if c.Server.PageSize < 1 {
		return fmt.Errorf("page size must be positive, got %d", c.Server.PageSize)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
