package core

import "context"

// SessionRepository durably stores sessions, agent snapshots and messages.
// Implementations own all atomicity and thread-safety guarantees; callers
// treat every method as a blocking write-through call.
//
// Contract:
//   - Read* return (nil, nil) when the record does not exist
//   - Update* return an error wrapping ErrNotFound when the record is missing
//   - CreateMessage trusts the caller to supply the next unused MessageID
//   - ListMessages returns messages ascending by MessageID
//   - Values passed in and returned are copies; mutating them after the call
//     has no effect on stored records
type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	ReadSession(ctx context.Context, sessionID string) (*Session, error)

	CreateAgent(ctx context.Context, sessionID string, agent *SessionAgent) error
	ReadAgent(ctx context.Context, sessionID, agentID string) (*SessionAgent, error)
	UpdateAgent(ctx context.Context, sessionID string, agent *SessionAgent) error

	CreateMessage(ctx context.Context, sessionID, agentID string, msg *SessionMessage) error
	UpdateMessage(ctx context.Context, sessionID, agentID string, msg *SessionMessage) error
	ListMessages(ctx context.Context, sessionID, agentID string) ([]*SessionMessage, error)
}
