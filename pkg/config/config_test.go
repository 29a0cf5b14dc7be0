package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxAttemptsPerTool, cfg.Run.MaxAttemptsPerTool)
	assert.Equal(t, DefaultSandboxTimeout, cfg.Run.SandboxTimeout)
	assert.Equal(t, DefaultSimilarityThreshold, cfg.Run.SimilarityThreshold)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "docker", cfg.Sandbox.Executor)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolforge.yaml")
	content := `
run:
  max_attempts_per_tool: 3
  sandbox_timeout: 30s
  similarity_threshold: 0.85
llm:
  provider: ollama
  model: qwen2.5-coder
  host: http://localhost:11434
sandbox:
  executor: local
sources:
  - name: hn
    type: rss
    url: https://news.ycombinator.com/rss
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Run.MaxAttemptsPerTool)
	assert.Equal(t, 30*time.Second, cfg.Run.SandboxTimeout)
	assert.Equal(t, 0.85, cfg.Run.SimilarityThreshold)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "local", cfg.Sandbox.Executor)
	// Omitted fields keep their defaults.
	assert.Equal(t, DefaultTopicsPerRun, cfg.Run.TopicsPerRun)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "hn", cfg.Sources[0].Name)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero attempts", func(c *Config) { c.Run.MaxAttemptsPerTool = 0 }},
		{"zero parallelism", func(c *Config) { c.Run.MaxConcurrentTools = 0 }},
		{"negative sandbox timeout", func(c *Config) { c.Run.SandboxTimeout = -time.Second }},
		{"threshold above one", func(c *Config) { c.Run.SimilarityThreshold = 1.5 }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "mystery" }},
		{"empty model", func(c *Config) { c.LLM.Model = "" }},
		{"unknown executor", func(c *Config) { c.Sandbox.Executor = "chroot" }},
		{"empty db path", func(c *Config) { c.Corpus.DBPath = "" }},
		{"bad source type", func(c *Config) {
			c.Sources = []SourceConfig{{Name: "x", Type: "scrapy", URL: "http://example.com"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAPIKeyResolution(t *testing.T) {
	t.Setenv("TOOLFORGE_TEST_KEY", "sk-test")

	llm := LLMConfig{APIKeyEnv: "TOOLFORGE_TEST_KEY"}
	assert.Equal(t, "sk-test", llm.APIKey())

	llm.APIKeyEnv = ""
	assert.Empty(t, llm.APIKey())
}
