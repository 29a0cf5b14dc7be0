// Package config provides configuration loading, validation, and defaults for
// the toolforge pipeline.
//
// Configuration is split into small per-subsystem sections loaded from a single
// YAML file, with secrets (API keys) resolved from the environment rather than
// stored in the file. All access is by value; a loaded Config is never mutated.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Default scalar values for the run section.
const (
	DefaultMaxAttemptsPerTool  = 5
	DefaultMaxConcurrentTools  = 4
	DefaultSandboxTimeout      = 60 * time.Second
	DefaultRunDeadline         = 45 * time.Minute
	DefaultSimilarityThreshold = 0.92
	DefaultTopicsPerRun        = 5
	DefaultIdeasPerTopic       = 3
	DefaultCorpusWindow        = 48 * time.Hour
	DefaultCorpusRetention     = 14 * 24 * time.Hour
)

// Config is the root configuration object.
type Config struct {
	Run       RunConfig       `yaml:"run"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	Publisher PublisherConfig `yaml:"publisher"`
	Notify    NotifyConfig    `yaml:"notify"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// RunConfig holds the scalar knobs consumed by the build-validate-correct core.
type RunConfig struct {
	MaxAttemptsPerTool  int           `yaml:"max_attempts_per_tool"`
	MaxConcurrentTools  int           `yaml:"max_concurrent_tools"`
	SandboxTimeout      time.Duration `yaml:"sandbox_timeout"`
	RunDeadline         time.Duration `yaml:"run_deadline"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	TopicsPerRun        int           `yaml:"topics_per_run"`
	IdeasPerTopic       int           `yaml:"ideas_per_topic"`
}

// CorpusConfig configures the SQLite corpus store.
type CorpusConfig struct {
	DBPath    string        `yaml:"db_path"`
	Window    time.Duration `yaml:"window"`    // How far back RecentItems reaches
	Retention time.Duration `yaml:"retention"` // Rows older than this are purged
}

// LLMConfig configures the generative code service client.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"` // Env var holding the API key
	Host        string        `yaml:"host"`        // Ollama only
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// APIKey resolves the provider API key from the environment.
func (c LLMConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// EmbeddingConfig configures the embedding engine used by the similarity index.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "ollama" or "google"
	Model     string `yaml:"model"`
	Host      string `yaml:"host"` // Ollama only
	APIKeyEnv string `yaml:"api_key_env"`
}

// APIKey resolves the embedding API key from the environment.
func (c EmbeddingConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// SandboxConfig configures the sandbox executor.
type SandboxConfig struct {
	Executor string `yaml:"executor"` // "docker" or "local"
	Image    string `yaml:"image"`
	CPUs     string `yaml:"cpus"`
	Memory   string `yaml:"memory"`
	PIDs     int64  `yaml:"pids"`
	WorkRoot string `yaml:"work_root"` // Base directory for per-attempt workdirs
}

// PublisherConfig configures the artifact publisher.
type PublisherConfig struct {
	RootDir string `yaml:"root_dir"`
}

// NotifyConfig configures the optional run-summary webhook.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// MetricsConfig configures Prometheus integration.
type MetricsConfig struct {
	ListenAddr    string `yaml:"listen_addr"`    // Exposition endpoint, empty disables
	PrometheusURL string `yaml:"prometheus_url"` // Query service target, empty disables
}

// SourceConfig describes one news-source connector.
type SourceConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // Currently only "rss"
	URL  string `yaml:"url"`
}

// Default returns a Config populated with defaults for every section.
func Default() Config {
	return Config{
		Run: RunConfig{
			MaxAttemptsPerTool:  DefaultMaxAttemptsPerTool,
			MaxConcurrentTools:  DefaultMaxConcurrentTools,
			SandboxTimeout:      DefaultSandboxTimeout,
			RunDeadline:         DefaultRunDeadline,
			SimilarityThreshold: DefaultSimilarityThreshold,
			TopicsPerRun:        DefaultTopicsPerRun,
			IdeasPerTopic:       DefaultIdeasPerTopic,
		},
		Corpus: CorpusConfig{
			DBPath:    "toolforge.db",
			Window:    DefaultCorpusWindow,
			Retention: DefaultCorpusRetention,
		},
		LLM: LLMConfig{
			Provider:    ProviderAnthropic,
			Model:       "claude-sonnet-4-20250514",
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			MaxTokens:   8192,
			Temperature: 0.3,
			Timeout:     90 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderOllama,
			Model:    "nomic-embed-text",
			Host:     "http://localhost:11434",
		},
		Sandbox: SandboxConfig{
			Executor: "docker",
			Image:    "python:3.12-slim",
			CPUs:     "2",
			Memory:   "1g",
			PIDs:     256,
		},
		Publisher: PublisherConfig{
			RootDir: "published",
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Load reads a YAML config file, applies defaults for omitted fields, and
// validates the result. An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Run.MaxAttemptsPerTool < 1 {
		return fmt.Errorf("run.max_attempts_per_tool must be at least 1, got %d", c.Run.MaxAttemptsPerTool)
	}
	if c.Run.MaxConcurrentTools < 1 {
		return fmt.Errorf("run.max_concurrent_tools must be at least 1, got %d", c.Run.MaxConcurrentTools)
	}
	if c.Run.SandboxTimeout <= 0 {
		return fmt.Errorf("run.sandbox_timeout must be positive, got %s", c.Run.SandboxTimeout)
	}
	if c.Run.SimilarityThreshold <= 0 || c.Run.SimilarityThreshold > 1 {
		return fmt.Errorf("run.similarity_threshold must be in (0, 1], got %g", c.Run.SimilarityThreshold)
	}
	if c.Run.TopicsPerRun < 1 {
		return fmt.Errorf("run.topics_per_run must be at least 1, got %d", c.Run.TopicsPerRun)
	}
	if c.Run.IdeasPerTopic < 1 {
		return fmt.Errorf("run.ideas_per_topic must be at least 1, got %d", c.Run.IdeasPerTopic)
	}

	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOllama:
	default:
		return fmt.Errorf("llm.provider must be one of anthropic, openai, google, ollama; got %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model cannot be empty")
	}

	switch c.Embedding.Provider {
	case ProviderOllama, ProviderGoogle:
	default:
		return fmt.Errorf("embedding.provider must be ollama or google, got %q", c.Embedding.Provider)
	}

	switch c.Sandbox.Executor {
	case "docker", "local":
	default:
		return fmt.Errorf("sandbox.executor must be docker or local, got %q", c.Sandbox.Executor)
	}

	if c.Corpus.DBPath == "" {
		return fmt.Errorf("corpus.db_path cannot be empty")
	}
	if c.Corpus.Window <= 0 {
		return fmt.Errorf("corpus.window must be positive, got %s", c.Corpus.Window)
	}

	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Type != "rss" {
			return fmt.Errorf("sources[%d].type %q is not supported", i, src.Type)
		}
		if src.URL == "" {
			return fmt.Errorf("sources[%d].url cannot be empty", i)
		}
	}

	return nil
}
