package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foodgram.yaml")
	content := `
server:
  port: "9000"
  base_url: https://foodgram.example
  page_size: 10
db:
  driver: postgres
  dsn: postgres://localhost/foodgram
short_link:
  length: 8
auth:
  token_duration: 2h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "https://foodgram.example", cfg.Server.BaseURL)
	assert.Equal(t, 10, cfg.Server.PageSize)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 8, cfg.ShortLink.Length)
	assert.Equal(t, 10, cfg.ShortLink.MaxAttempts, "unset keys keep their defaults")
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenDuration)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("FOODGRAM_DB_DSN", "file:test.db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("FOODGRAM_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("FOODGRAM_RATE_LIMIT", "2.5")

	cfg := Default()
	cfg.applyEnvOverrides()

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "file:test.db", cfg.DB.DSN)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 2.5, cfg.RateLimit.RequestsPerSecond, 0.0001)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		cfg := Default()
		cfg.DB.Driver = "mysql"
		assert.Error(t, cfg.Validate())
	})

	t.Run("short link too long", func(t *testing.T) {
		cfg := Default()
		cfg.ShortLink.Length = 11
		assert.Error(t, cfg.Validate())
	})

	t.Run("no attempts", func(t *testing.T) {
		cfg := Default()
		cfg.ShortLink.MaxAttempts = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
