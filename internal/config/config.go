// Package config provides configuration loading and structs for docagent.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/docagent/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Collection string           `yaml:"collection"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
	AllowIngestAPI bool   `yaml:"allow_ingest_api"`
}

// StorageConfig holds the collection database location.
// Driver is "sqlite3" (cgo, default) or "sqlite" (pure Go).
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	Driver       string `yaml:"driver"`
}

// EmbeddingConfig selects and configures the embedding function.
// Provider is one of "hash", "onnx", "ollama", or "openai".
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	ModelPath   string `yaml:"model_path"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	APIKey      string `yaml:"-"`
	Dimensions  int    `yaml:"dimensions"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ChunkingConfig holds the sliding window parameters, in characters.
type ChunkingConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap"`
}

// OverlapOrDefault returns the configured overlap; 200 when unset.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.ChunkOverlap != nil {
		return *c.ChunkOverlap
	}
	return defaultChunkOverlap
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// GenerationConfig configures the remote completion endpoint.
type GenerationConfig struct {
	Provider          string   `yaml:"provider"`
	BaseURL           string   `yaml:"base_url"`
	Model             string   `yaml:"model"`
	APIKeyEnv         string   `yaml:"api_key_env"`
	APIKey            string   `yaml:"-"`
	MaxTokens         int      `yaml:"max_tokens"`
	Temperature       *float64 `yaml:"temperature"`
	Stop              []string `yaml:"stop"`
	TimeoutSecs       int      `yaml:"timeout_secs"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
}

// TemperatureOrDefault returns the sampling temperature; 0.2 when unset.
func (g *GenerationConfig) TemperatureOrDefault() float64 {
	if g.Temperature != nil {
		return *g.Temperature
	}
	return defaultTemperature
}

// Load reads and parses the config file at path, applies defaults, expands paths,
// and resolves API keys from the environment. A missing file is not an error:
// defaults are returned, with relative paths resolved against the working directory.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
			configDir = filepath.Dir(path)
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	if configDir == "." {
		if cwd, err := os.Getwd(); err == nil {
			configDir = cwd
		}
	}

	ApplyDefaults(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	cfg.Generation.APIKey = os.Getenv(cfg.Generation.APIKeyEnv)
	if cfg.Embedding.APIKeyEnv != "" {
		cfg.Embedding.APIKey = os.Getenv(cfg.Embedding.APIKeyEnv)
	}
	return &cfg, nil
}

// Save writes the config to path, creating parent directories. API keys are never written.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the settings that must hold before any I/O happens.
// Every returned error wraps models.ErrConfig.
func (c *Config) Validate() error {
	size, overlap := c.Chunking.ChunkSize, c.Chunking.OverlapOrDefault()
	if size <= 0 {
		return fmt.Errorf("%w: chunk_size must be > 0, got %d", models.ErrConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: chunk_overlap must be in [0, %d), got %d", models.ErrConfig, size, overlap)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("%w: top_k must be >= 1, got %d", models.ErrConfig, c.Retrieval.TopK)
	}
	if strings.TrimSpace(c.Collection) == "" {
		return fmt.Errorf("%w: collection name is required", models.ErrConfig)
	}
	switch c.Storage.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", models.ErrConfig, c.Storage.Driver)
	}
	switch c.Embedding.Provider {
	case "hash", "onnx", "ollama", "openai":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", models.ErrConfig, c.Embedding.Provider)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("%w: missing embedding API key (set %s)", models.ErrConfig, c.Embedding.APIKeyEnv)
	}
	switch c.Generation.Provider {
	case "together":
		if c.Generation.APIKey == "" {
			return fmt.Errorf("%w: missing generation API key (set %s)", models.ErrConfig, c.Generation.APIKeyEnv)
		}
	default:
		return fmt.Errorf("%w: unknown generation provider %q", models.ErrConfig, c.Generation.Provider)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
