// Package config handles reading and writing agentstate.yaml and turning it
// into a repository, model and logger.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up in the working directory.
const DefaultFile = "agentstate.yaml"

// Repository backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Model providers.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBaseten   = "baseten"
)

// Config is the top-level structure of agentstate.yaml.
type Config struct {
	Version    int              `yaml:"version"`
	Repository RepositoryConfig `yaml:"repository"`
	Model      ModelConfig      `yaml:"model"`
	Agent      AgentConfig      `yaml:"agent"`
	Log        LogConfig        `yaml:"log"`
}

// RepositoryConfig selects and configures the session repository.
type RepositoryConfig struct {
	Backend string `yaml:"backend"`       // memory | file | sqlite | postgres
	Path    string `yaml:"path"`          // directory (file) or database file (sqlite)
	DSN     string `yaml:"dsn,omitempty"` // postgres connection string
}

// ModelConfig selects and configures the model provider. API keys come from
// the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY, BASETEN_API_KEY).
type ModelConfig struct {
	Provider    string         `yaml:"provider"` // mock | openai | anthropic | baseten
	ModelID     string         `yaml:"model_id"`
	BaseURL     string         `yaml:"base_url,omitempty"`
	Temperature float64        `yaml:"temperature"`
	MaxTokens   int64          `yaml:"max_tokens"`
	Stream      bool           `yaml:"stream"`
	Params      map[string]any `yaml:"params,omitempty"`
}

// AgentConfig holds defaults for agents created by the CLI.
type AgentConfig struct {
	Instruction        string `yaml:"instruction"`
	MaxHistoryMessages int    `yaml:"max_history_messages"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// ReadConfig reads and validates the YAML file at path. Environment variables
// referenced as ${VAR} are expanded before parsing.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteConfig writes cfg to path, creating parent directories.
func WriteConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config that works offline: a file repository under
// .agentstate and the mock model.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Repository: RepositoryConfig{
			Backend: BackendFile,
			Path:    ".agentstate/sessions",
		},
		Model: ModelConfig{
			Provider:    ProviderMock,
			ModelID:     "mock",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Agent: AgentConfig{
			Instruction: "You are a helpful assistant.",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks enumerated fields and required combinations.
func (c *Config) Validate() error {
	switch c.Repository.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Repository.Path == "" {
			return fmt.Errorf("config: repository.path is required for backend %q", c.Repository.Backend)
		}
	case BackendPostgres:
		if c.Repository.DSN == "" {
			return fmt.Errorf("config: repository.dsn is required for backend %q", c.Repository.Backend)
		}
	default:
		return fmt.Errorf("config: unknown repository backend %q", c.Repository.Backend)
	}

	switch c.Model.Provider {
	case ProviderMock, ProviderOpenAI, ProviderAnthropic:
	case ProviderBaseten:
		if c.Model.ModelID == "" {
			return fmt.Errorf("config: model.model_id is required for provider %q", c.Model.Provider)
		}
	default:
		return fmt.Errorf("config: unknown model provider %q", c.Model.Provider)
	}

	if c.Agent.MaxHistoryMessages < 0 {
		return fmt.Errorf("config: agent.max_history_messages must not be negative")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}
