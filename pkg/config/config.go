// Package config provides YAML-based configuration for the interview engine.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies an LLM provider backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderOllama    Provider = "ollama"
)

// Default model names per provider.
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultGoogleModel    = "gemini-2.0-flash"
	DefaultOllamaModel    = "llama3.1"

	DefaultEmbeddingModel = "text-embedding-3-small"
)

// ModelConfig configures the chat model used for interview turns.
type ModelConfig struct {
	Provider         Provider `yaml:"provider"`
	Name             string   `yaml:"name"`
	MaxTokens        int      `yaml:"max_tokens"`
	MaxContextTokens int      `yaml:"max_context_tokens"`
	Temperature      float32  `yaml:"temperature"`
	TimeoutSeconds   int      `yaml:"timeout_seconds"`
	OllamaHost       string   `yaml:"ollama_host,omitempty"`
}

// Timeout returns the per-request model call timeout.
func (m *ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// EmbeddingConfig configures the fixed embedding model for knowledge retrieval.
type EmbeddingConfig struct {
	Provider   Provider `yaml:"provider"`
	Model      string   `yaml:"model"`
	OllamaHost string   `yaml:"ollama_host,omitempty"`
}

// KnowledgeConfig configures corpus retrieval behavior.
type KnowledgeConfig struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// SafeguardingConfig configures safeguarding escalation.
type SafeguardingConfig struct {
	AlertThreshold float64 `yaml:"alert_threshold"`
}

// StorageConfig configures the SQLite database path.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration for interviewd.
type Config struct {
	Model        ModelConfig        `yaml:"model"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge"`
	Safeguarding SafeguardingConfig `yaml:"safeguarding"`
	Storage      StorageConfig      `yaml:"storage"`
	Server       ServerConfig       `yaml:"server"`
	Debug        bool               `yaml:"debug"`
}

// DefaultConfig returns a config with sensible defaults applied.
func DefaultConfig() Config {
	return Config{
		Model: ModelConfig{
			Provider:         ProviderAnthropic,
			Name:             DefaultAnthropicModel,
			MaxTokens:        1024,
			MaxContextTokens: 64000,
			Temperature:      0.7,
			TimeoutSeconds:   60,
			OllamaHost:       "http://localhost:11434",
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderOpenAI,
			Model:      DefaultEmbeddingModel,
			OllamaHost: "http://localhost:11434",
		},
		Knowledge: KnowledgeConfig{
			TopK:          3,
			MinSimilarity: 0.70,
		},
		Safeguarding: SafeguardingConfig{
			AlertThreshold: 0.70,
		},
		Storage: StorageConfig{
			DBPath: "interviewd.db",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a YAML config file and merges it over the defaults.
// A missing path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOllama:
	default:
		return fmt.Errorf("unknown model provider: %q", c.Model.Provider)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported embedding provider: %q (openai or ollama)", c.Embedding.Provider)
	}
	if c.Knowledge.TopK <= 0 {
		return fmt.Errorf("knowledge.top_k must be positive, got %d", c.Knowledge.TopK)
	}
	if c.Knowledge.MinSimilarity < 0 || c.Knowledge.MinSimilarity > 1 {
		return fmt.Errorf("knowledge.min_similarity must be in [0,1], got %f", c.Knowledge.MinSimilarity)
	}
	if c.Safeguarding.AlertThreshold < 0 || c.Safeguarding.AlertThreshold > 1 {
		return fmt.Errorf("safeguarding.alert_threshold must be in [0,1], got %f", c.Safeguarding.AlertThreshold)
	}
	if c.Model.TimeoutSeconds <= 0 {
		return fmt.Errorf("model.timeout_seconds must be positive, got %d", c.Model.TimeoutSeconds)
	}
	return nil
}
