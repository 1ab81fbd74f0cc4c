package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:5000", cfg.WebService.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.WebService.Timeout())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 2*time.Hour, cfg.Session.Expiration())
	assert.True(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.JWTSecret)
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	doc := "server:\n  port: 9090\nwebservice:\n  base_url: http://ws.internal:5000\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte(doc), 0o644))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://ws.internal:5000", cfg.WebService.BaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Setenv("WEBSERVICE_BASE_URL", "not a url")
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}

func TestLoadFrom_InvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}
