package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, 3, cfg.Knowledge.TopK)
	assert.InDelta(t, 0.70, cfg.Knowledge.MinSimilarity, 0.001)
	assert.InDelta(t, 0.70, cfg.Safeguarding.AlertThreshold, 0.001)
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
model:
  provider: ollama
  name: llama3.1
  max_tokens: 2048
  timeout_seconds: 45
knowledge:
  top_k: 5
server:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Model.Provider)
	assert.Equal(t, 2048, cfg.Model.MaxTokens)
	assert.Equal(t, 45, cfg.Model.TimeoutSeconds)
	assert.Equal(t, 5, cfg.Knowledge.TopK)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	// Untouched values keep their defaults.
	assert.InDelta(t, 0.70, cfg.Knowledge.MinSimilarity, 0.001)
	assert.Equal(t, "interviewd.db", cfg.Storage.DBPath)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.Provider = "mystery"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Embedding.Provider = ProviderAnthropic
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Knowledge.TopK = 0
	assert.Error(t, cfg.Validate())
}
