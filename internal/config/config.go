// Package config loads the assistant configuration from YAML with
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all assistant configuration.
type Config struct {
	Oracle     OracleConfig     `yaml:"oracle"`
	Store      StoreConfig      `yaml:"store"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// OracleConfig configures the generation oracle client.
type OracleConfig struct {
	Provider string `yaml:"provider"` // openai-compatible, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// StoreConfig configures the document store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ValidationConfig configures the post-commit validation window.
type ValidationConfig struct {
	Window  string   `yaml:"window"`  // e.g. "1s"; a heuristic, not a guarantee
	Markers []string `yaml:"markers"` // substrings marking rule-validation diagnostics
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Oracle: OracleConfig{
			Provider: "openai-compatible",
			Model:    "gpt-4o-mini",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  "120s",
		},
		Store: StoreConfig{
			DatabasePath: ".forge/documents.db",
		},
		Validation: ValidationConfig{
			Window: "1s",
		},
	}
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FORGE_ORACLE_API_KEY"); v != "" {
		cfg.Oracle.APIKey = v
	}
	if v := os.Getenv("FORGE_ORACLE_MODEL"); v != "" {
		cfg.Oracle.Model = v
	}
	if v := os.Getenv("FORGE_ORACLE_BASE_URL"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if v := os.Getenv("FORGE_DB_PATH"); v != "" {
		cfg.Store.DatabasePath = v
	}
}

// OracleTimeout parses the oracle timeout, defaulting to 120s.
func (c *Config) OracleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Oracle.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// ValidationWindow parses the window duration, defaulting to 1s.
func (c *Config) ValidationWindow() time.Duration {
	d, err := time.ParseDuration(c.Validation.Window)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}
