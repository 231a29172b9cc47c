package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstate/config"
	"github.com/hupe1980/agentstate/core"
)

// setup writes a config with a file repository under a temp dir and
// returns the flags pointing every command at it.
func setup(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Repository.Path = filepath.Join(dir, "sessions")
	cfg.Log.Level = "error"

	path := filepath.Join(dir, "agentstate.yaml")
	require.NoError(t, config.WriteConfig(path, cfg))

	return []string{"--config", path, "--env-file", filepath.Join(dir, ".env")}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func withFlags(flags []string, args ...string) []string {
	return append(append([]string{}, args...), flags...)
}

func TestChat_SingleMessage(t *testing.T) {
	flags := setup(t)

	out, err := run(t, "", withFlags(flags, "chat", "--session", "s1", "hello")...)
	require.NoError(t, err)
	assert.Contains(t, out, "session: s1")
	assert.Contains(t, out, "assistant> Mock response to: hello")
}

func TestChat_GeneratesSessionID(t *testing.T) {
	flags := setup(t)

	out, err := run(t, "", withFlags(flags, "chat", "hi")...)
	require.NoError(t, err)

	first := strings.SplitN(out, "\n", 2)[0]
	require.True(t, strings.HasPrefix(first, "session: "))
	assert.Len(t, strings.TrimPrefix(first, "session: "), 21)
}

func TestChat_StdinTurnsAndResume(t *testing.T) {
	flags := setup(t)

	_, err := run(t, "one\n\ntwo\n", withFlags(flags, "chat", "--session", "s1", "--agent", "bot")...)
	require.NoError(t, err)

	_, err = run(t, "", withFlags(flags, "chat", "--session", "s1", "--agent", "bot", "three")...)
	require.NoError(t, err)

	out, err := run(t, "", withFlags(flags, "messages", "--session", "s1", "--agent", "bot")...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "#0")
	assert.Contains(t, lines[0], "one")
	assert.Contains(t, lines[5], "#5")
	assert.Contains(t, lines[5], "Mock response to: three")
}

func TestMessages_JSON(t *testing.T) {
	flags := setup(t)

	_, err := run(t, "", withFlags(flags, "chat", "--session", "s1", "hello")...)
	require.NoError(t, err)

	out, err := run(t, "", withFlags(flags, "messages", "--session", "s1", "--json")...)
	require.NoError(t, err)

	var msgs []core.SessionMessage
	require.NoError(t, json.Unmarshal([]byte(out), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, 0, msgs[0].MessageID)
	assert.Equal(t, core.RoleUser, msgs[0].Message.Role)
	assert.Equal(t, "hello", msgs[0].Message.Text())
}

func TestMessages_Errors(t *testing.T) {
	flags := setup(t)

	_, err := run(t, "", withFlags(flags, "messages")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session")

	_, err = run(t, "", withFlags(flags, "messages", "--session", "nope")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `session "nope" not found`)

	_, err = run(t, "", withFlags(flags, "chat", "--session", "s1", "hello")...)
	require.NoError(t, err)
	_, err = run(t, "", withFlags(flags, "messages", "--session", "s1", "--agent", "ghost")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `agent "ghost" not found`)
}

func TestRedact(t *testing.T) {
	flags := setup(t)

	_, err := run(t, "", withFlags(flags, "chat", "--session", "s1", "my secret")...)
	require.NoError(t, err)

	out, err := run(t, "", withFlags(flags, "redact", "--session", "s1", "--text", "[hidden]")...)
	require.NoError(t, err)
	assert.Contains(t, out, "redacted message #1 of assistant")

	out, err = run(t, "", withFlags(flags, "messages", "--session", "s1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "[redacted] [hidden]")
	assert.NotContains(t, out, "Mock response to: my secret")

	out, err = run(t, "", withFlags(flags, "messages", "--session", "s1", "--raw")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Mock response to: my secret")
}

func TestRedact_UnknownAgent(t *testing.T) {
	flags := setup(t)

	_, err := run(t, "", withFlags(flags, "chat", "--session", "s1", "hi")...)
	require.NoError(t, err)

	_, err = run(t, "", withFlags(flags, "redact", "--session", "s1", "--agent", "other")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `agent "other" not found`)
}

func TestAgent_Show(t *testing.T) {
	flags := setup(t)

	_, err := run(t, "", withFlags(flags, "chat", "--session", "s1", "hi")...)
	require.NoError(t, err)

	out, err := run(t, "", withFlags(flags, "agent", "--session", "s1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "session_id: s1")
	assert.Contains(t, out, "agent_id: assistant")
	assert.Contains(t, out, "messages: 2")
}

func TestConfig_InitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "agentstate.yaml")
	flags := []string{"--config", path, "--env-file", ""}

	out, err := run(t, "", withFlags(flags, "config", "init")...)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	assert.FileExists(t, path)

	_, err = run(t, "", withFlags(flags, "config", "init")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "", withFlags(flags, "config", "init", "--force")...)
	require.NoError(t, err)

	out, err = run(t, "", withFlags(flags, "config", "show")...)
	require.NoError(t, err)
	assert.Contains(t, out, "backend: file")
	assert.Contains(t, out, "provider: mock")
}

func TestConfig_ExplicitMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := run(t, "", "config", "show", "--config", path, "--env-file", "")
	require.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("AGENTSTATE_CLI_TEST=from-dotenv\n"), 0o600))
	t.Setenv("AGENTSTATE_CLI_TEST", "")
	require.NoError(t, os.Unsetenv("AGENTSTATE_CLI_TEST"))

	require.NoError(t, loadEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("AGENTSTATE_CLI_TEST"))

	assert.NoError(t, loadEnv(filepath.Join(dir, "absent.env")))
	assert.NoError(t, loadEnv(""))
}
