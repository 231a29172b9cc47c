package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/internal/testutil"
	"github.com/hupe1980/agentstate/session"
	"github.com/hupe1980/agentstate/session/file"
	"github.com/hupe1980/agentstate/session/sessiontest"
)

func newRepo(t *testing.T) *file.Repository {
	t.Helper()
	repo, err := file.New(t.TempDir())
	require.NoError(t, err)
	return repo
}

func TestRepository(t *testing.T) {
	sessiontest.RunRepositoryTests(t, func(t *testing.T) core.SessionRepository {
		return newRepo(t)
	})
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := file.New("")
	assert.Error(t, err)
}

func TestRepository_Layout(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, repo.CreateSession(ctx, core.NewSession("s1")))
	require.NoError(t, repo.CreateAgent(ctx, "s1", &core.SessionAgent{AgentID: "a1", State: map[string]any{}}))
	require.NoError(t, repo.CreateMessage(ctx, "s1", "a1", core.NewSessionMessage(core.NewUserMessage("hi"), 0)))

	for _, rel := range []string{
		"session_s1/session.json",
		"session_s1/agents/agent_a1/agent.json",
		"session_s1/agents/agent_a1/messages/message_0.json",
	} {
		_, err := os.Stat(filepath.Join(repo.Root(), filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}
}

func TestRepository_ListMessagesIgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, repo.CreateSession(ctx, core.NewSession("s1")))
	require.NoError(t, repo.CreateAgent(ctx, "s1", &core.SessionAgent{AgentID: "a1", State: map[string]any{}}))
	require.NoError(t, repo.CreateMessage(ctx, "s1", "a1", core.NewSessionMessage(core.NewUserMessage("hi"), 0)))

	dir := filepath.Join(repo.Root(), "session_s1", "agents", "agent_a1", "messages")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "message_x.json"), []byte("{}"), 0o644))

	msgs, err := repo.ListMessages(ctx, "s1", "a1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Message.Text())
}

func TestRepository_CorruptRecordIsReported(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.CreateSession(ctx, core.NewSession("s1")))

	path := filepath.Join(repo.Root(), "session_s1", "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := repo.ReadSession(ctx, "s1")
	assert.Error(t, err)
}

func TestRepository_SurvivesManagerRestart(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	sm, err := session.NewRepositorySessionManager(ctx, "s1", repo)
	require.NoError(t, err)
	agent := testutil.NewStubAgent("a1")
	agent.St["topic"] = "billing"
	require.NoError(t, sm.Initialize(ctx, agent))
	require.NoError(t, sm.AppendMessage(ctx, core.NewUserMessage("card number 4111"), agent))
	require.NoError(t, sm.RedactLatestMessage(ctx, core.NewUserMessage("card number [redacted]"), agent))
	require.NoError(t, sm.AppendMessage(ctx, core.NewAssistantMessage("noted"), agent))

	reopened, err := file.New(repo.Root())
	require.NoError(t, err)
	sm2, err := session.NewRepositorySessionManager(ctx, "s1", reopened)
	require.NoError(t, err)
	restored := testutil.NewStubAgent("a1")
	require.NoError(t, sm2.Initialize(ctx, restored))

	require.Len(t, restored.Msgs, 2)
	assert.Equal(t, "card number [redacted]", restored.Msgs[0].Text())
	assert.Equal(t, "noted", restored.Msgs[1].Text())
	assert.Equal(t, "billing", restored.St["topic"])

	latest, _ := sm2.LatestMessage("a1")
	require.NotNil(t, latest)
	assert.Equal(t, 1, latest.MessageID)
}

func TestRepository_RejectsIDsEscapingRoot(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	repo, err := file.New(filepath.Join(parent, "root"))
	require.NoError(t, err)

	for _, id := range []string{"/../../escaped", "../escaped", `..\escaped`, "a/b", ".", ""} {
		err := repo.CreateSession(ctx, core.NewSession(id))
		assert.ErrorIs(t, err, file.ErrInvalidID, id)

		_, err = repo.ReadSession(ctx, id)
		assert.ErrorIs(t, err, file.ErrInvalidID, id)
	}
	_, err = os.Stat(filepath.Join(parent, "escaped", "session.json"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, repo.CreateSession(ctx, core.NewSession("s1")))
	err = repo.CreateAgent(ctx, "s1", &core.SessionAgent{AgentID: "../../../a1", State: map[string]any{}})
	assert.ErrorIs(t, err, file.ErrInvalidID)

	_, err = repo.ReadAgent(ctx, "s1", "../a1")
	assert.ErrorIs(t, err, file.ErrInvalidID)
	_, err = repo.ListMessages(ctx, "s1", "../a1")
	assert.ErrorIs(t, err, file.ErrInvalidID)
	err = repo.CreateMessage(ctx, "s1", "../a1", core.NewSessionMessage(core.NewUserMessage("hi"), 0))
	assert.ErrorIs(t, err, file.ErrInvalidID)
}
