package core

import "context"

// SessionManager keeps in-memory agents consistent with a durable session.
// An orchestrator calls it at four lifecycle points:
//
//   - Initialize once when an agent is constructed (create or restore)
//   - AppendMessage for every message added to the agent's history
//   - RedactLatestMessage to replace the effective content of the last append
//   - SyncAgent whenever the agent's mutable state should be snapshotted
//
// Calls for one agent must be serialized by the caller. Different agents may
// be driven concurrently.
type SessionManager interface {
	Initialize(ctx context.Context, agent Agent) error
	AppendMessage(ctx context.Context, msg Message, agent Agent) error
	RedactLatestMessage(ctx context.Context, redact Message, agent Agent) error
	SyncAgent(ctx context.Context, agent Agent) error
}
