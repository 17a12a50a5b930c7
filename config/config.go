// Package config loads service configuration. Values come from three layers,
// lowest precedence first: built-in defaults, an optional YAML file, and
// environment variables. Environment always wins so deployments can override
// a checked-in file without editing it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/parleyhq/parley/internal/cryptoutil"
)

// Environment variable names.
const (
	EnvBackendURL    = "BACKEND_API_URL"
	EnvBackendKey    = "BRAIN_API_KEY"
	EnvEncryptSecret = "ENCRYPT_SECRET"
	EnvListenAddr    = "LISTEN_ADDR"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFormat     = "LOG_FORMAT"
	EnvLogPrompts    = "LOG_PROMPTS"
	EnvStaleTimeout  = "WATCHDOG_STALE_TIMEOUT"
	EnvIdleTimeout   = "WATCHDOG_IDLE_TIMEOUT"
	EnvSweepInterval = "WATCHDOG_SWEEP_INTERVAL"
)

// Config is the resolved service configuration.
type Config struct {
	// BackendURL is the base URL of the operator backend's internal API.
	BackendURL string `yaml:"backend_url"`
	// BackendKey authenticates this service against the backend.
	BackendKey string `yaml:"backend_key"`
	// EncryptSecret is the 32-byte secret for credential decryption.
	EncryptSecret string `yaml:"encrypt_secret"`

	// ListenAddr is the HTTP bind address for the nudge endpoint.
	ListenAddr string `yaml:"listen_addr"`

	// RedisAddr enables the distributed run lease when non-empty.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// LogPrompts enables prompt assembly diagnostics.
	LogPrompts bool `yaml:"log_prompts"`

	Watchdog WatchdogConfig `yaml:"watchdog"`
}

// WatchdogConfig tunes the stall sweeps.
type WatchdogConfig struct {
	StaleTimeout  time.Duration `yaml:"stale_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Default returns the built-in configuration baseline.
func Default() Config {
	return Config{
		ListenAddr: ":8090",
		LogLevel:   "info",
		LogFormat:  "json",
		Watchdog: WatchdogConfig{
			StaleTimeout:  90 * time.Second,
			IdleTimeout:   90 * time.Second,
			SweepInterval: 10 * time.Second,
		},
	}
}

// Load resolves configuration from defaults, an optional YAML file and the
// environment, then validates the result. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.BackendURL, EnvBackendURL)
	setString(&cfg.BackendKey, EnvBackendKey)
	setString(&cfg.EncryptSecret, EnvEncryptSecret)
	setString(&cfg.ListenAddr, EnvListenAddr)
	setString(&cfg.RedisAddr, EnvRedisAddr)
	setString(&cfg.RedisPassword, EnvRedisPassword)
	setString(&cfg.LogLevel, EnvLogLevel)
	setString(&cfg.LogFormat, EnvLogFormat)
	setBool(&cfg.LogPrompts, EnvLogPrompts)
	setDuration(&cfg.Watchdog.StaleTimeout, EnvStaleTimeout)
	setDuration(&cfg.Watchdog.IdleTimeout, EnvIdleTimeout)
	setDuration(&cfg.Watchdog.SweepInterval, EnvSweepInterval)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

// Validate checks required fields and bounds.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("%s is required", EnvBackendURL)
	}
	if c.BackendKey == "" {
		return fmt.Errorf("%s is required", EnvBackendKey)
	}
	if len(c.EncryptSecret) != cryptoutil.KeySize {
		return fmt.Errorf("%s must be exactly %d bytes, got %d",
			EnvEncryptSecret, cryptoutil.KeySize, len(c.EncryptSecret))
	}
	if c.Watchdog.StaleTimeout <= 0 || c.Watchdog.IdleTimeout <= 0 || c.Watchdog.SweepInterval <= 0 {
		return fmt.Errorf("watchdog timings must be positive")
	}
	return nil
}
