// Package config loads layered configuration: built-in defaults, an optional
// YAML file, and RECOMMENDER_-prefixed environment variables, in that order
// of precedence (later layers override earlier ones).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Model     ModelConfig     `koanf:"model"`
	Store     StoreConfig     `koanf:"store"`
	Auth      AuthConfig      `koanf:"auth"`
	Recommend RecommendConfig `koanf:"recommend"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	// Level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format: json or console.
	Format string `koanf:"format"`
}

// ModelConfig selects and configures the language-model provider.
type ModelConfig struct {
	// Provider: openai, anthropic, or google.
	Provider string `koanf:"provider"`
	APIKey   string `koanf:"api_key"`

	// Name is the provider-specific model name; empty picks the provider
	// default.
	Name string `koanf:"name"`
}

// StoreConfig selects the run-registry backend.
type StoreConfig struct {
	// Driver: memory, sqlite, or mysql.
	Driver string `koanf:"driver"`

	// DSN is the database source name for sqlite/mysql drivers.
	DSN string `koanf:"dsn"`
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	// JWTSecret signs access tokens; minimum 32 characters.
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

// RecommendConfig tunes the workflow.
type RecommendConfig struct {
	TopK              int           `koanf:"top_k"`
	CandidatesPerType int           `koanf:"candidates_per_type"`
	RetryAttempts     int           `koanf:"retry_attempts"`
	NodeTimeout       time.Duration `koanf:"node_timeout"`
	Retention         time.Duration `koanf:"retention"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Model: ModelConfig{
			Provider: "openai",
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Recommend: RecommendConfig{
			TopK:              10,
			CandidatesPerType: 5,
			RetryAttempts:     2,
			NodeTimeout:       30 * time.Second,
			Retention:         30 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and the
// environment. Environment keys map RECOMMENDER_MODEL_API_KEY to
// model.api_key.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider("RECOMMENDER_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "RECOMMENDER_")
		s = strings.ToLower(s)
		return strings.Replace(s, "_", ".", 1)
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Model.Provider {
	case "openai", "anthropic", "google":
	default:
		return fmt.Errorf("unknown model provider: %q", c.Model.Provider)
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite", "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %q requires a DSN", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}

	return nil
}
