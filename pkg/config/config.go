// Package config loads OpenChain settings.
//
// Settings come from three layers, later ones winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file, $XDG_CONFIG_HOME/openchain/config.toml unless a path is given
//  3. environment variables, optionally read from a .env file
//
// Recognised environment variables:
//
//	OPENCHAIN_ADDR         server listen address
//	OPENCHAIN_BACKEND_URL  recommendation backend base URL
//	OPENCHAIN_REDIS_ADDR   enables the Redis cache (host:port or redis:// URL)
//	OPENCHAIN_MONGO_URI    enables MongoDB search history
//
// An example file:
//
//	[server]
//	addr = ":3000"
//
//	[backend]
//	url = "http://127.0.0.1:8000/api"
//	timeout = "30s"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	ttl = "1h"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/openchain/pkg/errors"
)

// Environment variable names.
const (
	EnvAddr       = "OPENCHAIN_ADDR"
	EnvBackendURL = "OPENCHAIN_BACKEND_URL"
	EnvRedisAddr  = "OPENCHAIN_REDIS_ADDR"
	EnvMongoURI   = "OPENCHAIN_MONGO_URI"
)

// Duration is a time.Duration read from strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete OpenChain configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Backend  BackendConfig  `toml:"backend"`
	Cache    CacheConfig    `toml:"cache"`
	History  HistoryConfig  `toml:"history"`
	Analysis AnalysisConfig `toml:"analysis"`
	Layout   LayoutConfig   `toml:"layout"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	Metrics         bool     `toml:"metrics"`
}

// BackendConfig points at the recommendation backend.
type BackendConfig struct {
	URL     string   `toml:"url"`
	Timeout Duration `toml:"timeout"`
	// Attempts is how often a GET is tried when the backend is unreachable
	// or behind a failing gateway. 1 disables retries.
	Attempts   int      `toml:"attempts"`
	RetryDelay Duration `toml:"retry_delay"`
}

// CacheConfig controls recommend response caching.
type CacheConfig struct {
	Backend  string   `toml:"backend"` // "none", "file", "redis"
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	Prefix   string   `toml:"prefix"`
	TTL      Duration `toml:"ttl"`
}

// HistoryConfig controls search history storage.
type HistoryConfig struct {
	Backend    string `toml:"backend"` // "memory", "mongo"
	Capacity   int    `toml:"capacity"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// AnalysisConfig controls analysis requests.
type AnalysisConfig struct {
	Timeout   Duration `toml:"timeout"`
	RateLimit float64  `toml:"rate_limit"` // requests per second per client, 0 disables
	Burst     int      `toml:"burst"`
}

// LayoutConfig controls the force simulation.
type LayoutConfig struct {
	Width    float64  `toml:"width"`
	Height   float64  `toml:"height"`
	Interval Duration `toml:"interval"`
	MaxTicks int      `toml:"max_ticks"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":3000", ShutdownTimeout: Duration{10 * time.Second}, Metrics: true},
		Backend:  BackendConfig{URL: "http://127.0.0.1:8000/api", Timeout: Duration{30 * time.Second}, Attempts: 1, RetryDelay: Duration{500 * time.Millisecond}},
		Cache:    CacheConfig{Backend: "file", Dir: defaultCacheDir(), Prefix: "openchain:", TTL: Duration{time.Hour}},
		History:  HistoryConfig{Backend: "memory", Capacity: 100, Database: "openchain", Collection: "searches"},
		Analysis: AnalysisConfig{Timeout: Duration{30 * time.Second}, RateLimit: 1, Burst: 5},
		Layout:   LayoutConfig{Width: 960, Height: 640, Interval: Duration{16 * time.Millisecond}, MaxTicks: 1000},
	}
}

// Dir returns the OpenChain config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "openchain")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "openchain")
}

// Load builds the configuration. An empty path reads DefaultPath, where a
// missing file is not an error; an explicit path must exist. A .env file in
// the working directory is loaded before environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables read via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
	if v := getenv(EnvRedisAddr); v != "" {
		if !strings.Contains(v, "://") {
			v = "redis://" + v
		}
		c.Cache.Backend = "redis"
		c.Cache.RedisURL = v
	}
	if v := getenv(EnvMongoURI); v != "" {
		c.History.Backend = "mongo"
		c.History.MongoURI = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "server.addr is required")
	}
	if err := errors.ValidateURL(c.Backend.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "backend.url")
	}
	if c.Backend.Timeout.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "backend.timeout must be positive")
	}
	if c.Backend.Attempts < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "backend.attempts must be at least 1")
	}
	switch c.Cache.Backend {
	case "", "none":
	case "file":
		if c.Cache.Dir == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.dir is required for the file cache")
		}
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.redis_url is required for the redis cache")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend must be none, file or redis, got %q", c.Cache.Backend)
	}
	switch c.History.Backend {
	case "", "memory":
	case "mongo":
		if c.History.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "history.mongo_uri is required for mongo history")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "history.backend must be memory or mongo, got %q", c.History.Backend)
	}
	if c.Analysis.Timeout.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "analysis.timeout must be positive")
	}
	if c.Analysis.RateLimit < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "analysis.rate_limit must not be negative")
	}
	if c.Layout.Width <= 0 || c.Layout.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "layout.width and layout.height must be positive")
	}
	return nil
}
