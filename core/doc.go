// Package core provides the foundational domain types and contracts used by
// agentstate. It defines:
//
//   - Messages (role-based, ordered heterogeneous parts) exchanged with models
//   - Agents as seen by persistence (identity, message list, mutable state)
//   - Session entities (Session, SessionAgent, SessionMessage) forming the
//     persisted schema
//   - The SessionRepository contract implemented by storage backends
//   - The SessionManager lifecycle contract (initialize, append, redact, sync)
//   - The error taxonomy shared by managers and repositories
//
// The package intentionally keeps implementation concerns (storage engines,
// model providers, concrete agents) out of scope, exposing small interfaces to
// enable custom backends and extensions.
package core
