package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadFrom_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "chromedp", cfg.Browser.Engine)
	assert.Equal(t, 75, cfg.Capture.JPEGQuality)
	assert.Zero(t, cfg.Capture.Timeout, "capture timeout is disabled by default")
	assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Server.BusyTimeout)
	assert.Equal(t, 4096, cfg.Server.MaxDimension)
	assert.Empty(t, cfg.Logger.Level, "each program picks its own default level")
	assert.False(t, cfg.Browser.IgnoreCertErrors, "bad certificates fail navigation unless enabled")
}

func TestLoadFrom_Valid(t *testing.T) {
	p := writeConfig(t, `browser:
  engine: rod
  no_sandbox: true
capture:
  timeout: 30s
  jpeg_quality: 90
server:
  addr: ":9000"
  workers: 4
cache:
  enabled: true
  redis_addr: "127.0.0.1:6380"
  ttl: 5m
logger:
  level: debug
`)
	cfg, err := LoadFrom(p)
	require.NoError(t, err)

	assert.Equal(t, "rod", cfg.Browser.Engine)
	assert.True(t, cfg.Browser.NoSandbox)
	assert.True(t, cfg.Browser.Headless, "unset keys keep their defaults")
	assert.Equal(t, 30*time.Second, cfg.Capture.Timeout)
	assert.Equal(t, 90, cfg.Capture.JPEGQuality)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{name: "unknown engine", yml: "browser:\n  engine: phantom\n"},
		{name: "negative timeout", yml: "capture:\n  timeout: -1s\n"},
		{name: "quality too high", yml: "capture:\n  jpeg_quality: 101\n"},
		{name: "negative workers", yml: "server:\n  workers: -1\n"},
		{name: "zero busy timeout", yml: "server:\n  busy_timeout: 0s\n"},
		{name: "zero max dimension", yml: "server:\n  max_dimension: 0\n"},
		{name: "cache without addr", yml: "cache:\n  enabled: true\n  redis_addr: \"\"\n"},
		{name: "malformed yaml", yml: "browser: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, tc.yml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_UsesConfigPathEnv(t *testing.T) {
	p := writeConfig(t, "server:\n  addr: \":7070\"\n")
	t.Setenv("CONFIG_PATH", p)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FOTOGOPHER_ENGINE", "rod")
	t.Setenv("FOTOGOPHER_TIMEOUT", "12s")
	t.Setenv("FOTOGOPHER_WORKERS", "3")
	t.Setenv("FOTOGOPHER_JPEG_QUALITY", "not-a-number")
	t.Setenv("CHROME_BIN", "/usr/bin/chromium")
	t.Setenv("FOTOGOPHER_IGNORE_CERT_ERRORS", "true")
	t.Setenv("FOTOGOPHER_MAX_DIMENSION", "2048")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "rod", cfg.Browser.Engine)
	assert.Equal(t, 12*time.Second, cfg.Capture.Timeout)
	assert.Equal(t, 3, cfg.Server.Workers)
	assert.Equal(t, 75, cfg.Capture.JPEGQuality, "unparsable values keep the fallback")
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.ChromePath)
	assert.True(t, cfg.Browser.IgnoreCertErrors)
	assert.Equal(t, 2048, cfg.Server.MaxDimension)
}
