// Package config loads fotogopher settings from an optional YAML file and
// FOTOGOPHER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Capture CaptureConfig `yaml:"capture"`
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Logger  LoggerConfig  `yaml:"logger"`
}

// BrowserConfig controls how the headless browser is launched.
type BrowserConfig struct {
	Engine           string `yaml:"engine"` // "chromedp" or "rod"
	ChromePath       string `yaml:"chrome_path"`
	Headless         bool   `yaml:"headless"`
	NoSandbox        bool   `yaml:"no_sandbox"`
	IgnoreCertErrors bool   `yaml:"ignore_cert_errors"`
	DisableHTTP2     bool   `yaml:"disable_http2"`
	UserAgent        string `yaml:"user_agent"`
}

// CaptureConfig controls a single capture.
type CaptureConfig struct {
	// Timeout bounds navigation plus rendering. Zero waits forever.
	Timeout     time.Duration `yaml:"timeout"`
	JPEGQuality int           `yaml:"jpeg_quality"`
	Label       bool          `yaml:"label"`
}

// ServerConfig controls the snapshot HTTP service.
type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	Workers     int           `yaml:"workers"` // 0 spawns a goroutine per request
	Timeout     time.Duration `yaml:"timeout"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
	// MaxDimension bounds the width and height a client may request.
	MaxDimension int `yaml:"max_dimension"`
}

// CacheConfig controls the redis snapshot cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
}

// LoggerConfig controls logging output.
type LoggerConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"` // empty: info for the service, warn for the CLI
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Browser: BrowserConfig{
			Engine:   "chromedp",
			Headless: true,
		},
		Capture: CaptureConfig{
			JPEGQuality: 75,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			Timeout:      45 * time.Second,
			BusyTimeout:  10 * time.Second,
			MaxDimension: 4096,
		},
		Cache: CacheConfig{
			RedisAddr: "127.0.0.1:6379",
			TTL:       time.Minute,
		},
		Logger: LoggerConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load reads the file named by CONFIG_PATH, if any, and applies env
// overrides.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("CONFIG_PATH"))
}

// LoadFrom reads path on top of the defaults, applies env overrides and
// validates the result. An empty path skips the file.
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Browser.Engine {
	case "chromedp", "rod":
	default:
		return fmt.Errorf("invalid browser.engine %q: must be chromedp or rod", c.Browser.Engine)
	}
	if c.Capture.Timeout < 0 {
		return errors.New("capture.timeout must not be negative")
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return fmt.Errorf("capture.jpeg_quality %d out of range 1-100", c.Capture.JPEGQuality)
	}
	if c.Server.Workers < 0 {
		return errors.New("server.workers must not be negative")
	}
	if c.Server.Timeout <= 0 || c.Server.BusyTimeout <= 0 {
		return errors.New("server.timeout and server.busy_timeout must be positive")
	}
	if c.Server.MaxDimension <= 0 {
		return errors.New("server.max_dimension must be positive")
	}
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr is required when the cache is enabled")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Browser.Engine = envOr("FOTOGOPHER_ENGINE", cfg.Browser.Engine)
	cfg.Browser.ChromePath = envOr("FOTOGOPHER_CHROME_PATH", cfg.Browser.ChromePath)
	if cfg.Browser.ChromePath == "" {
		// common container convention
		cfg.Browser.ChromePath = os.Getenv("CHROME_BIN")
	}
	cfg.Browser.NoSandbox = envBoolOr("FOTOGOPHER_NO_SANDBOX", cfg.Browser.NoSandbox)
	cfg.Browser.UserAgent = envOr("FOTOGOPHER_USER_AGENT", cfg.Browser.UserAgent)
	cfg.Browser.IgnoreCertErrors = envBoolOr("FOTOGOPHER_IGNORE_CERT_ERRORS", cfg.Browser.IgnoreCertErrors)
	cfg.Capture.Timeout = envDurationOr("FOTOGOPHER_TIMEOUT", cfg.Capture.Timeout)
	cfg.Capture.JPEGQuality = envIntOr("FOTOGOPHER_JPEG_QUALITY", cfg.Capture.JPEGQuality)
	cfg.Server.Addr = envOr("FOTOGOPHER_ADDR", cfg.Server.Addr)
	cfg.Server.Workers = envIntOr("FOTOGOPHER_WORKERS", cfg.Server.Workers)
	cfg.Server.MaxDimension = envIntOr("FOTOGOPHER_MAX_DIMENSION", cfg.Server.MaxDimension)
	cfg.Cache.Enabled = envBoolOr("FOTOGOPHER_CACHE_ENABLED", cfg.Cache.Enabled)
	cfg.Cache.RedisAddr = envOr("FOTOGOPHER_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Logger.Level = envOr("FOTOGOPHER_LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.File = envOr("FOTOGOPHER_LOG_FILE", cfg.Logger.File)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
