package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/session"
)

type seededAgent struct {
	id       string
	state    map[string]any
	messages []core.Message
	redacted map[int]core.Message
}

// RepositoryBuilder pre-populates an in-memory repository with a session,
// agents and their persisted messages, as if an earlier process had run.
// Example:
//
//	repo := NewRepositoryBuilder("s1").
//		Agent("a1", map[string]any{"x": 1}).
//		Messages("a1", core.NewUserMessage("hi"), core.NewAssistantMessage("hello")).
//		Build(t)
type RepositoryBuilder struct {
	sessionID string
	agents    []*seededAgent
}

// NewRepositoryBuilder creates a builder for the session with the given id.
func NewRepositoryBuilder(sessionID string) *RepositoryBuilder {
	return &RepositoryBuilder{sessionID: sessionID}
}

// Agent registers an agent snapshot with the given state (chainable).
func (b *RepositoryBuilder) Agent(agentID string, state map[string]any) *RepositoryBuilder {
	b.agents = append(b.agents, &seededAgent{id: agentID, state: state, redacted: map[int]core.Message{}})
	return b
}

// Messages appends persisted messages to a previously registered agent (chainable).
func (b *RepositoryBuilder) Messages(agentID string, msgs ...core.Message) *RepositoryBuilder {
	if a := b.find(agentID); a != nil {
		a.messages = append(a.messages, msgs...)
	}
	return b
}

// Redact records a redaction for the message at id (chainable).
func (b *RepositoryBuilder) Redact(agentID string, id int, redact core.Message) *RepositoryBuilder {
	if a := b.find(agentID); a != nil {
		a.redacted[id] = redact
	}
	return b
}

// Build writes everything into a fresh InMemoryRepository.
func (b *RepositoryBuilder) Build(t *testing.T) *session.InMemoryRepository {
	t.Helper()
	ctx := context.Background()
	repo := session.NewInMemoryRepository()

	require.NoError(t, repo.CreateSession(ctx, core.NewSession(b.sessionID)))
	for _, a := range b.agents {
		stub := NewStubAgent(a.id)
		stub.SetState(a.state)
		require.NoError(t, repo.CreateAgent(ctx, b.sessionID, core.NewSessionAgent(stub)))
		for i, msg := range a.messages {
			sm := core.NewSessionMessage(msg, i)
			if rm, ok := a.redacted[i]; ok {
				sm.RedactMessage = &rm
			}
			require.NoError(t, repo.CreateMessage(ctx, b.sessionID, a.id, sm))
		}
	}
	return repo
}

func (b *RepositoryBuilder) find(agentID string) *seededAgent {
	for _, a := range b.agents {
		if a.id == agentID {
			return a
		}
	}
	return nil
}
