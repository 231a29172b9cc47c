package config

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/logging"
	"github.com/hupe1980/agentstate/model"
	anthropicmodel "github.com/hupe1980/agentstate/model/anthropic"
	"github.com/hupe1980/agentstate/model/baseten"
	openaimodel "github.com/hupe1980/agentstate/model/openai"
	"github.com/hupe1980/agentstate/session"
	"github.com/hupe1980/agentstate/session/file"
	"github.com/hupe1980/agentstate/session/postgres"
	"github.com/hupe1980/agentstate/session/sqlite"
)

// CloseFunc releases resources held by an opened repository.
type CloseFunc func() error

func noopClose() error { return nil }

// OpenRepository builds the configured session repository. The returned
// CloseFunc is never nil.
func OpenRepository(_ context.Context, cfg *Config) (core.SessionRepository, CloseFunc, error) {
	rc := cfg.Repository
	switch rc.Backend {
	case BackendMemory:
		return session.NewInMemoryRepository(), noopClose, nil
	case BackendFile:
		repo, err := file.New(rc.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, noopClose, nil
	case BackendSQLite:
		repo, err := sqlite.Open(rc.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case BackendPostgres:
		repo, err := postgres.Open(rc.DSN)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("config: unknown repository backend %q", rc.Backend)
	}
}

// OpenModel builds the configured model provider.
func OpenModel(cfg *Config) (model.Model, error) {
	mc := cfg.Model
	switch mc.Provider {
	case ProviderMock:
		name := mc.ModelID
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name), nil
	case ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if mc.ModelID != "" {
				o.Model = mc.ModelID
			}
			o.BaseURL = mc.BaseURL
			o.Temperature = mc.Temperature
			if mc.MaxTokens > 0 {
				o.MaxCompletionTokens = mc.MaxTokens
			}
			o.Params = mc.Params
		}), nil
	case ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if mc.ModelID != "" {
				o.Model = anthropic.Model(mc.ModelID)
			}
			o.BaseURL = mc.BaseURL
			o.Temperature = mc.Temperature
			if mc.MaxTokens > 0 {
				o.MaxTokens = mc.MaxTokens
			}
		}), nil
	case ProviderBaseten:
		return baseten.NewModel(func(o *baseten.Options) {
			o.ModelID = mc.ModelID
			o.BaseURL = mc.BaseURL
			o.Temperature = mc.Temperature
			if mc.MaxTokens > 0 {
				o.MaxTokens = mc.MaxTokens
			}
			o.Params = mc.Params
		}), nil
	default:
		return nil, fmt.Errorf("config: unknown model provider %q", mc.Provider)
	}
}

// NewLogger builds the structured logger described by cfg.Log.
func NewLogger(cfg *Config) (*logging.StructuredLogger, error) {
	level := logging.LogLevelInfo
	if cfg.Log.Level != "" {
		l, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		level = l
	}
	format := cfg.Log.Format
	if format == "" {
		format = "text"
	}
	return logging.NewSlogLogger(level, format, false), nil
}
