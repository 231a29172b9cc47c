package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/session/sessiontest"
)

func TestInMemoryRepository(t *testing.T) {
	sessiontest.RunRepositoryTests(t, func(t *testing.T) core.SessionRepository {
		return NewInMemoryRepository()
	})
}

func TestInMemoryRepository_RejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	require.NoError(t, repo.CreateSession(ctx, core.NewSession("s1")))
	assert.Error(t, repo.CreateSession(ctx, core.NewSession("s1")))

	sa := &core.SessionAgent{AgentID: "a1", State: map[string]any{}}
	require.NoError(t, repo.CreateAgent(ctx, "s1", sa))
	assert.Error(t, repo.CreateAgent(ctx, "s1", sa))

	sm := core.NewSessionMessage(core.NewUserMessage("hi"), 0)
	require.NoError(t, repo.CreateMessage(ctx, "s1", "a1", sm))
	assert.Error(t, repo.CreateMessage(ctx, "s1", "a1", sm))
}

func TestInMemoryRepository_UnknownSession(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	err := repo.CreateAgent(ctx, "missing", &core.SessionAgent{AgentID: "a1"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	agent, err := repo.ReadAgent(ctx, "missing", "a1")
	require.NoError(t, err)
	assert.Nil(t, agent)
}
