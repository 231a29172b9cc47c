package core

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SessionType classifies what a session contains.
type SessionType string

// SessionTypeAgent marks a session holding agent conversations.
const SessionTypeAgent SessionType = "AGENT"

// Session is the root record of a persisted session. It is created once and
// only changes through its child agents and messages.
type Session struct {
	SessionID   string      `json:"session_id"`
	SessionType SessionType `json:"session_type"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewSession creates an agent session with the given ID.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{SessionID: id, SessionType: SessionTypeAgent, CreatedAt: now, UpdatedAt: now}
}

// NewSessionID generates a URL safe random session identifier.
func NewSessionID() (string, error) {
	return gonanoid.New()
}

// SessionAgent is the durable snapshot of one agent's mutable state within a
// session. AgentID is unique within the owning session.
type SessionAgent struct {
	AgentID                  string         `json:"agent_id"`
	State                    map[string]any `json:"state"`
	ConversationManagerState map[string]any `json:"conversation_manager_state,omitempty"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

// NewSessionAgent snapshots the agent's current state. Conversation window
// bookkeeping is included when the agent implements ConversationStateful.
func NewSessionAgent(agent Agent) *SessionAgent {
	now := time.Now().UTC()
	sa := &SessionAgent{
		AgentID:   agent.AgentID(),
		State:     CloneMap(agent.State()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sa.State == nil {
		sa.State = map[string]any{}
	}
	if cs, ok := agent.(ConversationStateful); ok {
		sa.ConversationManagerState = CloneMap(cs.ConversationState())
	}
	return sa
}

// Clone returns a deep copy of the snapshot.
func (a *SessionAgent) Clone() *SessionAgent {
	if a == nil {
		return nil
	}
	clone := *a
	clone.State = CloneMap(a.State)
	clone.ConversationManagerState = CloneMap(a.ConversationManagerState)
	return &clone
}

// SessionMessage is one persisted entry of an agent's history. MessageID is
// the zero-based position in that history. Message is never rewritten;
// redaction only sets RedactMessage, which readers surface instead.
type SessionMessage struct {
	MessageID     int       `json:"message_id"`
	Message       Message   `json:"message"`
	RedactMessage *Message  `json:"redact_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewSessionMessage wraps a message for persistence at the given index.
func NewSessionMessage(msg Message, id int) *SessionMessage {
	now := time.Now().UTC()
	return &SessionMessage{MessageID: id, Message: msg.Clone(), CreatedAt: now, UpdatedAt: now}
}

// ToMessage returns the effective content: the redaction when present,
// otherwise the original message.
func (m *SessionMessage) ToMessage() Message {
	if m.RedactMessage != nil {
		return m.RedactMessage.Clone()
	}
	return m.Message.Clone()
}

// IsRedacted reports whether a replacement has been recorded.
func (m *SessionMessage) IsRedacted() bool { return m.RedactMessage != nil }

// Clone returns a deep copy of the session message.
func (m *SessionMessage) Clone() *SessionMessage {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Message = m.Message.Clone()
	if m.RedactMessage != nil {
		rm := m.RedactMessage.Clone()
		clone.RedactMessage = &rm
	}
	return &clone
}
