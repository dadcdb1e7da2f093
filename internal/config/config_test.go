package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_USER", "auth")
	t.Setenv("DB_NAME", "auth")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 15*time.Second, cfg.Redis.RetryBudget)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Yandex.Enabled())
}

func TestLoadRejectsInvertedLifetimes(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL", "2h")
	t.Setenv("REFRESH_TOKEN_TTL", "1h")

	_, err := Load("")
	assert.ErrorContains(t, err, "invalid token lifetimes")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9100"
mysql:
  user: file-user
  name: authdb
jwt:
  secret: from-file
yandex:
  client_id: id
  client_secret: secret
`), 0o600))
	t.Setenv("JWT_ISSUER", "issuer-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "file-user", cfg.MySQL.User)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, "issuer-from-env", cfg.JWT.Issuer)
	assert.True(t, cfg.Yandex.Enabled())
}

func TestRateLimitNormalized(t *testing.T) {
	c := RateLimitConfig{RefillInterval: 2 * time.Second}.Normalized()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, 10*time.Second, c.TTL)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(EnvProd, &buf).Debug("hidden")
	assert.Zero(t, buf.Len())

	NewLogger(EnvProd, &buf).Info("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
