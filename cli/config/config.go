// Package config handles CLI configuration loading and credential lookup.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration.
type Config struct {
	DefaultModel string                    `yaml:"default_model"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
	// Aliases pins a model ID to a provider when several could serve it.
	Aliases map[string]string `yaml:"aliases,omitempty"`
	Engine  EngineConfig      `yaml:"engine"`
	Tools   ToolsConfig       `yaml:"tools"`
}

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	// APIKeys lists credentials inline. Prefer the environment or keystore.
	APIKeys []string `yaml:"api_keys,omitempty"`
	// APIKeyRef names the keystore entry. Defaults to the provider ID.
	APIKeyRef string `yaml:"api_key_ref,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// EngineConfig bounds the tool loop. Zero values keep engine defaults.
type EngineConfig struct {
	MaxIterations int           `yaml:"max_iterations,omitempty"`
	ToolTimeout   time.Duration `yaml:"tool_timeout,omitempty"`
}

// ToolsConfig configures the search tools.
type ToolsConfig struct {
	Enabled    bool          `yaml:"enabled"`
	SearchMode string        `yaml:"search_mode,omitempty"`
	BaseURL    string        `yaml:"base_url,omitempty"`
	RateLimit  float64       `yaml:"rate_limit,omitempty"` // calls per second, 0 = unlimited
	CacheTTL   time.Duration `yaml:"cache_ttl,omitempty"`  // 0 disables caching
}

// SearchCredential is the credential name of the search tools.
const SearchCredential = "search"

// homeDir returns the user's home directory, or "" if unknown.
func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	return os.Getenv("HOME")
}

// Dir returns the directory holding conduit's files, ~/.conduit.
func Dir() string {
	home := homeDir()
	if home == "" {
		return "."
	}
	return filepath.Join(home, ".conduit")
}

// DefaultConfigPath returns the default configuration file path,
// ~/.conduit/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// LoadConfig loads configuration from the specified path.
// A missing file yields an empty config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Providers: make(map[string]ProviderConfig),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	return cfg, nil
}

// LoadEnv loads variables from .env files into the process environment.
// Variables already set win, and missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// GetProvider returns the provider config for the given ID.
// Returns nil if the provider is not configured.
func (c *Config) GetProvider(id string) *ProviderConfig {
	if c.Providers == nil {
		return nil
	}
	if pc, ok := c.Providers[id]; ok {
		return &pc
	}
	return nil
}
