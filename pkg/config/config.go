// Package config loads lp settings from a YAML file with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvDB       = "LIFTPLAN_DB"
	EnvLogLevel = "LIFTPLAN_LOG_LEVEL"
	EnvWorkers  = "LIFTPLAN_WORKERS"
)

// DefaultDir holds the database when no path is configured.
const DefaultDir = ".liftplan"

// Config holds all lp settings.
type Config struct {
	DB       string `yaml:"db" json:"db"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	Workers  int    `yaml:"workers" json:"workers"`
	JSON     bool   `yaml:"json" json:"json"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		DB:       filepath.Join(DefaultDir, "liftplan.db"),
		LogLevel: "info",
		Workers:  runtime.GOMAXPROCS(0),
	}
}

// Load reads path over the defaults, then applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	c.DB = envOr(EnvDB, c.DB)
	c.LogLevel = envOr(EnvLogLevel, c.LogLevel)
	if v := envOr(EnvWorkers, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("config: db path is empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return l, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
