// Package sessiontest provides a conformance suite for core.SessionRepository
// implementations. Backends call RunRepositoryTests from their own tests.
package sessiontest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstate/core"
)

// Factory returns a fresh, empty repository for a single sub-test.
type Factory func(t *testing.T) core.SessionRepository

// RunRepositoryTests exercises the full repository contract. State values
// are limited to strings and nested maps so JSON-backed stores compare equal.
func RunRepositoryTests(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("SessionLifecycle", func(t *testing.T) { testSessionLifecycle(t, newRepo(t)) })
	t.Run("AgentLifecycle", func(t *testing.T) { testAgentLifecycle(t, newRepo(t)) })
	t.Run("MessagesOrderedByID", func(t *testing.T) { testMessagesOrdered(t, newRepo(t)) })
	t.Run("UpdateMessageKeepsOriginal", func(t *testing.T) { testUpdateMessage(t, newRepo(t)) })
	t.Run("MissingRecords", func(t *testing.T) { testMissingRecords(t, newRepo(t)) })
	t.Run("CreateMessageRejectsDuplicateID", func(t *testing.T) { testDuplicateMessage(t, newRepo(t)) })
	t.Run("CreateMessageRequiresAgent", func(t *testing.T) { testMessageRequiresAgent(t, newRepo(t)) })
	t.Run("AgentsAreIndependent", func(t *testing.T) { testAgentsIndependent(t, newRepo(t)) })
	t.Run("ReturnedValuesAreCopies", func(t *testing.T) { testCopies(t, newRepo(t)) })
}

type fixedAgent struct {
	id    string
	state map[string]any
}

func (a fixedAgent) AgentID() string { return a.id }
func (a fixedAgent) Messages() []core.Message { return nil }
func (a fixedAgent) SetMessages([]core.Message) {}
func (a fixedAgent) State() map[string]any { return a.state }
func (a fixedAgent) SetState(map[string]any) {}

func newAgent(id string, state map[string]any) *core.SessionAgent {
	return core.NewSessionAgent(fixedAgent{id: id, state: state})
}

func seedSession(t *testing.T, repo core.SessionRepository, sessionID string) {
	t.Helper()
	require.NoError(t, repo.CreateSession(context.Background(), core.NewSession(sessionID)))
}

func testSessionLifecycle(t *testing.T, repo core.SessionRepository) {
	ctx := context.Background()

	got, err := repo.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	seedSession(t, repo, "s1")

	got, err = repo.ReadSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, core.SessionTypeAgent, got.SessionType)
	assert.False(t, got.CreatedAt.IsZero())
}

func testAgentLifecycle(t *testing.T, repo core.SessionRepository) {
	ctx := context.Background()
	seedSession(t, repo, "s1")

	got, err := repo.ReadAgent(ctx, "s1", "a1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.CreateAgent(ctx, "s1", newAgent("a1", map[string]any{"mode": "draft"})))

	got, err = repo.ReadAgent(ctx, "s1", "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.AgentID)
	assert.Equal(t, map[string]any{"mode": "draft"}, got.State)

	updated := newAgent("a1", map[string]any{"mode": "final", "nested": map[string]any{"k": "v"}})
	updated.ConversationManagerState = map[string]any{"window": "sliding"}
	require.NoError(t, repo.UpdateAgent(ctx, "s1", updated))

	got, err = repo.ReadAgent(ctx, "s1", "a1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"mode": "final", "nested": map[string]any{"k": "v"}}, got.State)
	assert.Equal(t, map[string]any{"window": "sliding"}, got.ConversationManagerState)
	assert.False(t, got.CreatedAt.IsZero())
}

func testMessagesOrdered(t *testing.T, repo core.SessionRepository) {
	ctx := context.Background()
	seedSession(t, repo, "s1")
	require.NoError(t, repo.CreateAgent(ctx, "s1", newAgent("a1", nil)))

	const n = 12
	for i := 0; i < n; i++ {
		msg := core.NewUserMessage(string(rune('a' + i)))
		require.NoError(t, repo.CreateMessage(ctx, "s1", "a1", core.NewSessionMessage(msg, i)))
	}

	msgs, err := repo.ListMessages(ctx, "s1", "a1")
	require.NoError(t, err)
	require.Len(t, msgs, n)
	for i, m := range msgs {
		assert.Equal(t, i, m.MessageID)
		assert.Equal(t, string(rune('a'+i)), m.Message.Text())
		assert.Equal(t, core.RoleUser, m.Message.Role)
		assert.Nil(t, m.RedactMessage)
	}
}

func testUpdateMessage(t *testing.T, repo core.SessionRepository) {
	ctx := context.Background()
	seedSession(t, repo, "s1")
	require.NoError(t, repo.CreateAgent(ctx, "s1", newAgent("a1", nil)))
	require.NoError(t, repo.CreateMessage(ctx, "s1", "a1", core.NewSessionMessage(core.NewUserMessage("first"), 0)))

	sm := core.NewSessionMessage(core.NewUserMessage("secret"), 1)
	require.NoError(t, repo.CreateMessage(ctx, "s1", "a1", sm))

	redact := core.NewUserMessage("[redacted]")
	sm.RedactMessage = &redact
	require.NoError(t, repo.UpdateMessage(ctx, "s1", "a1", sm))

	msgs, err := repo.ListMessages(ctx, "s1", "a1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Nil(t, msgs[0].RedactMessage)
	assert.Equal(t, "first", msgs[0].ToMessage().Text())
	assert.Equal(t, "secret", msgs[1].Message.Text())
	require.NotNil(t, msgs[1].RedactMessage)
	assert.Equal(t, "[redacted]", msgs[1].ToMessage().Text())
}

func testMissingRecords(t *testing.T, repo core.SessionRepository) {
	ctx := context.Background()
	seedSession(t, repo, "s1")

	err := repo.UpdateAgent(ctx, "s1", newAgent("ghost", nil))
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, repo.CreateAgent(ctx, "s1", newAgent("a1", nil)))
	err = repo.UpdateMessage(ctx, "s1", "a1", core.NewSessionMessage(core.NewUserMessage("x"), 7))
	assert.ErrorIs(t, err, core.ErrNotFound)

	msgs, err := repo.ListMessages(ctx, "s1", "nobody")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func testAgentsIndependent(t *testing.T, repo core.SessionRepository) {
	ctx := context.Background()
	seedSession(t, repo, "s1")
	require.NoError(t, repo.CreateAgent(ctx, "s1", newAgent("a1", nil)))
	require.NoError(t, repo.CreateAgent(ctx, "s1", newAgent("a2", nil)))

	require.NoError(t, repo.CreateMessage(ctx, "s1", "a1", core.NewSessionMessage(core.NewUserMessage("one"), 0)))
	require.NoError(t, repo.CreateMessage(ctx, "s1", "a2", core.NewSessionMessage(core.NewUserMessage("two"), 0)))

	a1, err := repo.ListMessages(ctx, "s1", "a1")
	require.NoError(t, err)
	a2, err := repo.ListMessages(ctx, "s1", "a2")
	require.NoError(t, err)
	require.Len(t, a1, 1)
	require.Len(t, a2, 1)
	assert.Equal(t, "one", a1[0].Message.Text())
	assert.Equal(t, "two", a2[0].Message.Text())
}

func testCopies(t *testing.T, repo core.SessionRepository) {
	ctx := context.Background()
	seedSession(t, repo, "s1")

	sa := newAgent("a1", map[string]any{"k": "v"})
	require.NoError(t, repo.CreateAgent(ctx, "s1", sa))
	sa.State["k"] = "mutated-after-create"

	got, err := repo.ReadAgent(ctx, "s1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "v", got.State["k"])

	got.State["k"] = "mutated-after-read"
	again, err := repo.ReadAgent(ctx, "s1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "v", again.State["k"])
}

func testDuplicateMessage(t *testing.T, repo core.SessionRepository) {
	ctx := context.Background()
	seedSession(t, repo, "s1")
	require.NoError(t, repo.CreateAgent(ctx, "s1", newAgent("a1", map[string]any{})))
	require.NoError(t, repo.CreateMessage(ctx, "s1", "a1", core.NewSessionMessage(core.NewUserMessage("first"), 0)))

	err := repo.CreateMessage(ctx, "s1", "a1", core.NewSessionMessage(core.NewUserMessage("second"), 0))
	assert.Error(t, err)

	msgs, err := repo.ListMessages(ctx, "s1", "a1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "first", msgs[0].Message.Text())
}

func testMessageRequiresAgent(t *testing.T, repo core.SessionRepository) {
	ctx := context.Background()
	seedSession(t, repo, "s1")

	err := repo.CreateMessage(ctx, "s1", "ghost", core.NewSessionMessage(core.NewUserMessage("orphan"), 0))
	assert.ErrorIs(t, err, core.ErrNotFound)

	msgs, err := repo.ListMessages(ctx, "s1", "ghost")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
