package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hupe1980/agentstate/core"
)

// StubAgent is a plain core.Agent holding messages and state in fields.
type StubAgent struct {
	ID       string
	Msgs     []core.Message
	St       map[string]any
	ConvSt   map[string]any
	Restored bool

	// RestoreErr is returned by RestoreConversationState when set.
	RestoreErr error
}

// NewStubAgent creates an agent with an empty state and the given messages.
func NewStubAgent(id string, msgs ...core.Message) *StubAgent {
	return &StubAgent{ID: id, Msgs: msgs, St: map[string]any{}}
}

// AgentID implements core.Agent.
func (a *StubAgent) AgentID() string { return a.ID }

// Messages implements core.Agent.
func (a *StubAgent) Messages() []core.Message { return core.CloneMessages(a.Msgs) }

// SetMessages implements core.Agent.
func (a *StubAgent) SetMessages(msgs []core.Message) { a.Msgs = core.CloneMessages(msgs) }

// State implements core.Agent.
func (a *StubAgent) State() map[string]any { return core.CloneMap(a.St) }

// SetState implements core.Agent.
func (a *StubAgent) SetState(state map[string]any) {
	a.St = core.CloneMap(state)
	if a.St == nil {
		a.St = map[string]any{}
	}
}

// ConversationState implements core.ConversationStateful.
func (a *StubAgent) ConversationState() map[string]any { return core.CloneMap(a.ConvSt) }

// RestoreConversationState implements core.ConversationStateful.
func (a *StubAgent) RestoreConversationState(state map[string]any) error {
	if a.RestoreErr != nil {
		return a.RestoreErr
	}
	a.ConvSt = core.CloneMap(state)
	a.Restored = true
	return nil
}

// MockRepository is a testify mock of core.SessionRepository. Unexpected
// calls fail the test, which makes it suitable for asserting that no
// repository access happens.
type MockRepository struct{ mock.Mock }

// CreateSession implements core.SessionRepository.
func (m *MockRepository) CreateSession(ctx context.Context, session *core.Session) error {
	return m.Called(ctx, session).Error(0)
}

// ReadSession implements core.SessionRepository.
func (m *MockRepository) ReadSession(ctx context.Context, sessionID string) (*core.Session, error) {
	args := m.Called(ctx, sessionID)
	s, _ := args.Get(0).(*core.Session)
	return s, args.Error(1)
}

// CreateAgent implements core.SessionRepository.
func (m *MockRepository) CreateAgent(ctx context.Context, sessionID string, agent *core.SessionAgent) error {
	return m.Called(ctx, sessionID, agent).Error(0)
}

// ReadAgent implements core.SessionRepository.
func (m *MockRepository) ReadAgent(ctx context.Context, sessionID, agentID string) (*core.SessionAgent, error) {
	args := m.Called(ctx, sessionID, agentID)
	a, _ := args.Get(0).(*core.SessionAgent)
	return a, args.Error(1)
}

// UpdateAgent implements core.SessionRepository.
func (m *MockRepository) UpdateAgent(ctx context.Context, sessionID string, agent *core.SessionAgent) error {
	return m.Called(ctx, sessionID, agent).Error(0)
}

// CreateMessage implements core.SessionRepository.
func (m *MockRepository) CreateMessage(ctx context.Context, sessionID, agentID string, msg *core.SessionMessage) error {
	return m.Called(ctx, sessionID, agentID, msg).Error(0)
}

// UpdateMessage implements core.SessionRepository.
func (m *MockRepository) UpdateMessage(ctx context.Context, sessionID, agentID string, msg *core.SessionMessage) error {
	return m.Called(ctx, sessionID, agentID, msg).Error(0)
}

// ListMessages implements core.SessionRepository.
func (m *MockRepository) ListMessages(ctx context.Context, sessionID, agentID string) ([]*core.SessionMessage, error) {
	args := m.Called(ctx, sessionID, agentID)
	msgs, _ := args.Get(0).([]*core.SessionMessage)
	return msgs, args.Error(1)
}
