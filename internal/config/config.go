// Package config provides configuration loading for the scoreform server
// and CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete scoreform configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Store  StoreConfig  `yaml:"store"`
	Theme  ThemeConfig  `yaml:"theme"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address (default :8080).
	Addr string `yaml:"addr"`
	// SubmitTimeout bounds a single prediction call.
	SubmitTimeout time.Duration `yaml:"submit_timeout"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ModelConfig configures the classifier.
type ModelConfig struct {
	// Path points at the model JSON on disk. A missing file falls back to
	// the built-in baseline model.
	Path string `yaml:"path"`
	// Watch reloads the model when the file changes.
	Watch bool `yaml:"watch"`
}

// StoreConfig configures form snapshot persistence.
type StoreConfig struct {
	// Dir holds snapshot files; empty keeps snapshots in memory only.
	Dir string `yaml:"dir"`
	// QuietPeriod is the debounce window between an edit and its save.
	QuietPeriod time.Duration `yaml:"quiet_period"`
}

// ThemeConfig selects the visual theme for the HTML surface.
type ThemeConfig struct {
	Name    string `yaml:"name"`
	Variant string `yaml:"variant"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns a Config with working defaults for local use.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			SubmitTimeout:   15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			Path:  "model/credit_model.json",
			Watch: false,
		},
		Store: StoreConfig{
			Dir:         "",
			QuietPeriod: time.Second,
		},
		Theme: ThemeConfig{
			Name:    "scoreform",
			Variant: "",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	if c.Server.SubmitTimeout <= 0 {
		return fmt.Errorf("config: server.submit_timeout must be positive")
	}
	if c.Store.QuietPeriod <= 0 {
		return fmt.Errorf("config: store.quiet_period must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Load builds the configuration in precedence order: defaults, then the YAML
// file at path when present, then SCOREFORM_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %q: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("SCOREFORM_ADDR", c.Server.Addr)
	c.Server.SubmitTimeout = getEnvDuration("SCOREFORM_SUBMIT_TIMEOUT", c.Server.SubmitTimeout)
	c.Model.Path = getEnv("SCOREFORM_MODEL_PATH", c.Model.Path)
	c.Model.Watch = getEnvBool("SCOREFORM_MODEL_WATCH", c.Model.Watch)
	c.Store.Dir = getEnv("SCOREFORM_STORE_DIR", c.Store.Dir)
	c.Store.QuietPeriod = getEnvDuration("SCOREFORM_QUIET_PERIOD", c.Store.QuietPeriod)
	c.Theme.Name = getEnv("SCOREFORM_THEME", c.Theme.Name)
	c.Theme.Variant = getEnv("SCOREFORM_THEME_VARIANT", c.Theme.Variant)
	c.Log.Level = getEnv("SCOREFORM_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("SCOREFORM_LOG_FORMAT", c.Log.Format)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
