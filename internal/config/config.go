// Package config loads the command line configuration: an optional YAML file
// overridden by INKWELL_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/aretw0/inkwell/internal/logging"
	"github.com/aretw0/inkwell/pkg/persistence/middleware"
	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "INKWELL_"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Config is the CLI configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level" env:"LOG_LEVEL"`
	LogFormat string `mapstructure:"log_format" env:"LOG_FORMAT"`
	MaxSteps  int    `mapstructure:"max_steps" env:"MAX_STEPS"`

	Store  StoreConfig  `mapstructure:"store" envPrefix:"STORE_"`
	Server ServerConfig `mapstructure:"server" envPrefix:"SERVER_"`

	// Variables are default overrides applied to every playthrough.
	Variables map[string]any `mapstructure:"variables"`
}

// StoreConfig selects where playthrough states are kept.
type StoreConfig struct {
	Driver  string        `mapstructure:"driver" env:"DRIVER"`
	Path    string        `mapstructure:"path" env:"PATH"`
	URL     string        `mapstructure:"url" env:"URL"`
	Prefix  string        `mapstructure:"prefix" env:"PREFIX"`
	TTL     time.Duration `mapstructure:"ttl" env:"TTL"`
	LockTTL time.Duration `mapstructure:"lock_ttl" env:"LOCK_TTL"`

	// EncryptionKey seals stored states with AES-256-GCM (32 bytes, hex or base64).
	EncryptionKey string `mapstructure:"encryption_key" env:"ENCRYPTION_KEY"`
	// FallbackKeys still decrypt states sealed before a key rotation.
	FallbackKeys []string `mapstructure:"fallback_keys" env:"FALLBACK_KEYS" envSeparator:","`
	// Mask lists patterns of variable names whose values are masked in storage.
	Mask []string `mapstructure:"mask" env:"MASK" envSeparator:","`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr" env:"ADDR"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Store: StoreConfig{
			Driver:  DriverMemory,
			Prefix:  "inkwell:",
			LockTTL: 30 * time.Second,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads the YAML file at path, if any, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return cfg, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      c,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	return nil
}

// Validate checks values that cannot be checked by decoding alone.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store driver %q needs a path", c.Store.Driver)
		}
	case DriverRedis:
		if c.Store.URL == "" {
			return fmt.Errorf("store driver %q needs a url", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Store.EncryptionKey); err != nil {
			return fmt.Errorf("store encryption_key: %w", err)
		}
	}
	for _, k := range c.Store.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			return fmt.Errorf("store fallback_keys: %w", err)
		}
	}
	if len(c.Store.FallbackKeys) > 0 && c.Store.EncryptionKey == "" {
		return fmt.Errorf("store fallback_keys need an encryption_key")
	}
	for _, p := range c.Store.Mask {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("store mask %q: %w", p, err)
		}
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}
	return nil
}

// Logger builds the logger described by the configuration.
func (c Config) Logger() *slog.Logger {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.NewWriter(os.Stderr, c.LogFormat, level)
}
