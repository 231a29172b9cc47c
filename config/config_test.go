package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstate/core"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFile)

	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{Backend: BackendSQLite, Path: "sessions.db"}
	cfg.Model.Params = map[string]any{"top_p": 0.9}
	require.NoError(t, WriteConfig(path, cfg))

	got, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, got.Repository.Backend)
	assert.Equal(t, "sessions.db", got.Repository.Path)
	assert.Equal(t, ProviderMock, got.Model.Provider)
	assert.Equal(t, 0.9, got.Model.Params["top_p"])
	assert.Equal(t, 1, got.Version)
}

func TestReadConfig_AppliesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("AGENTSTATE_TEST_DSN", "postgres://u:p@localhost/db")
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`
repository:
  backend: postgres
  dsn: ${AGENTSTATE_TEST_DSN}
log:
  level: debug
`), 0o644))

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Repository.DSN)
	assert.Equal(t, ProviderMock, cfg.Model.Provider)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestReadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("repository: [oops"), 0o644))
	_, err = ReadConfig(bad)
	assert.ErrorContains(t, err, "parsing config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "default", mutate: func(*Config) {}, ok: true},
		{name: "memory", mutate: func(c *Config) { c.Repository = RepositoryConfig{Backend: BackendMemory} }, ok: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Repository.Backend = "redis" }},
		{name: "file without path", mutate: func(c *Config) { c.Repository.Path = "" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Repository.Backend = BackendPostgres }},
		{name: "unknown provider", mutate: func(c *Config) { c.Model.Provider = "llama" }},
		{name: "baseten without model", mutate: func(c *Config) {
			c.Model.Provider = ProviderBaseten
			c.Model.ModelID = ""
		}},
		{name: "negative history", mutate: func(c *Config) { c.Agent.MaxHistoryMessages = -1 }},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, rc := range []RepositoryConfig{
		{Backend: BackendMemory},
		{Backend: BackendFile, Path: filepath.Join(dir, "files")},
		{Backend: BackendSQLite, Path: filepath.Join(dir, "db", "sessions.db")},
	} {
		t.Run(rc.Backend, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Repository = rc
			repo, closeFn, err := OpenRepository(ctx, cfg)
			require.NoError(t, err)
			require.NotNil(t, closeFn)
			defer func() { assert.NoError(t, closeFn()) }()

			require.NoError(t, repo.CreateSession(ctx, core.NewSession("s1")))
			got, err := repo.ReadSession(ctx, "s1")
			require.NoError(t, err)
			assert.NotNil(t, got)
		})
	}

	cfg := DefaultConfig()
	cfg.Repository.Backend = "nope"
	_, _, err := OpenRepository(ctx, cfg)
	assert.Error(t, err)
}

func TestOpenModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test")
	t.Setenv("ANTHROPIC_API_KEY", "test")
	t.Setenv("BASETEN_API_KEY", "test")

	for provider, wantName := range map[string]string{
		ProviderMock:      "mock",
		ProviderOpenAI:    "gpt-4o-mini",
		ProviderAnthropic: "claude-3-5-haiku-latest",
		ProviderBaseten:   "deepseek-ai/DeepSeek-V3-0324",
	} {
		t.Run(provider, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Model.Provider = provider
			cfg.Model.ModelID = wantName
			m, err := OpenModel(cfg)
			require.NoError(t, err)
			assert.Equal(t, provider, m.Info().Provider)
			assert.Equal(t, wantName, m.Info().Name)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "verbose"
	_, err := NewLogger(cfg)
	assert.Error(t, err)

	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)
}
