package core

// Agent is the view of an agent that session persistence needs: a stable
// identity, an ordered message history and a mutable state mapping.
//
// Implementations must:
//   - Return the same AgentID for the agent's whole lifetime in a session
//   - Accept wholesale replacement of messages and state (restore path)
//   - Return copies from Messages/State so callers cannot mutate internals
type Agent interface {
	AgentID() string
	Messages() []Message
	SetMessages(msgs []Message)
	State() map[string]any
	SetState(state map[string]any)
}

// ConversationStateful is implemented by agents whose conversation window
// bookkeeping (e.g. how many messages were trimmed) should be persisted
// alongside the agent state and restored with it.
type ConversationStateful interface {
	ConversationState() map[string]any
	RestoreConversationState(state map[string]any) error
}
