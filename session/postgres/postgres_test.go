package postgres

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/session/sessiontest"
)

// dsnEnv names the variable holding a connection string for a disposable
// database. The tests drop and recreate their tables.
const dsnEnv = "AGENTSTATE_POSTGRES_DSN"

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	repo, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, repo.db.Migrator().DropTable(&messageRecord{}, &agentRecord{}, &sessionRecord{}))
	require.NoError(t, repo.db.AutoMigrate(&sessionRecord{}, &agentRecord{}, &messageRecord{}))
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepository(t *testing.T) {
	if os.Getenv(dsnEnv) == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	sessiontest.RunRepositoryTests(t, func(t *testing.T) core.SessionRepository {
		return openTestRepo(t)
	})
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestToMessageRecord_CopiesPayload(t *testing.T) {
	sm := core.NewSessionMessage(core.NewUserMessage("hi"), 3)
	redact := core.NewUserMessage("[redacted]")
	sm.RedactMessage = &redact

	rec := toMessageRecord("s1", "a1", sm)
	assert.Equal(t, "s1", rec.SessionID)
	assert.Equal(t, "a1", rec.AgentID)
	assert.Equal(t, 3, rec.MessageID)
	require.NotNil(t, rec.RedactMessage)
	assert.NotSame(t, sm.RedactMessage, rec.RedactMessage)
	assert.Equal(t, "[redacted]", rec.RedactMessage.Text())
}

func TestToAgentRecord_DefaultsState(t *testing.T) {
	rec := toAgentRecord("s1", &core.SessionAgent{AgentID: "a1"})
	assert.NotNil(t, rec.State)
	assert.Nil(t, rec.ConversationManagerState)
}
