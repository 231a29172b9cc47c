package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateAgentInitialization is returned when Initialize is called
	// twice for the same agent id on one manager.
	ErrDuplicateAgentInitialization = errors.New("agent id must be unique in a session")

	// ErrNoMessageToRedact is returned when redaction is requested before any
	// message was recorded for the agent.
	ErrNoMessageToRedact = errors.New("no message to redact")

	// ErrAgentNotInitialized is returned when an agent is appended to or
	// redacted before Initialize was called for it on the same manager.
	ErrAgentNotInitialized = errors.New("agent not initialized in session")

	// ErrRestoreFailure is returned when a persisted snapshot cannot be loaded
	// back into the agent.
	ErrRestoreFailure = errors.New("agent restore failed")

	// ErrRepositoryFailure classifies any error surfaced by the session repository.
	ErrRepositoryFailure = errors.New("session repository failure")

	// ErrNotFound is returned by repositories when an update targets a record
	// that does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState is returned when agent state holds values that cannot be serialized.
	ErrInvalidState = errors.New("invalid agent state")
)

// ErrorKind enumerates the failure categories of session management so
// callers can branch on kind rather than message text.
type ErrorKind int

const (
	// KindUnknown is reported for errors that did not originate from a session manager.
	KindUnknown ErrorKind = iota
	// KindDuplicateAgentInitialization: caller logic defect, not retryable.
	KindDuplicateAgentInitialization
	// KindNoMessageToRedact: caller logic defect, not retryable.
	KindNoMessageToRedact
	// KindRepositoryFailure: the underlying repository call failed.
	KindRepositoryFailure
	// KindAgentNotInitialized: caller logic defect, not retryable.
	KindAgentNotInitialized
	// KindRestoreFailure: the agent rejected its persisted conversation state.
	KindRestoreFailure
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindDuplicateAgentInitialization:
		return "DuplicateAgentInitialization"
	case KindNoMessageToRedact:
		return "NoMessageToRedact"
	case KindRepositoryFailure:
		return "RepositoryFailure"
	case KindAgentNotInitialized:
		return "AgentNotInitialized"
	case KindRestoreFailure:
		return "RestoreFailure"
	default:
		return "Unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindDuplicateAgentInitialization:
		return ErrDuplicateAgentInitialization
	case KindNoMessageToRedact:
		return ErrNoMessageToRedact
	case KindRepositoryFailure:
		return ErrRepositoryFailure
	case KindAgentNotInitialized:
		return ErrAgentNotInitialized
	case KindRestoreFailure:
		return ErrRestoreFailure
	default:
		return nil
	}
}

// SessionError is the uniform error returned by session managers. Err holds
// the cause for KindRepositoryFailure and KindRestoreFailure and is nil
// otherwise.
type SessionError struct {
	Kind      ErrorKind
	Op        string
	SessionID string
	AgentID   string
	Err       error
}

// NewSessionError builds a SessionError of the given kind.
func NewSessionError(kind ErrorKind, op, sessionID, agentID string, cause error) *SessionError {
	return &SessionError{Kind: kind, Op: op, SessionID: sessionID, AgentID: agentID, Err: cause}
}

func (e *SessionError) Error() string {
	var b strings.Builder
	b.WriteString("session")
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	fmt.Fprintf(&b, " session_id=<%s> agent_id=<%s>", e.SessionID, e.AgentID)
	if s := e.Kind.sentinel(); s != nil {
		b.WriteString(": ")
		b.WriteString(s.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the sentinel of the error's kind.
func (e *SessionError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Unwrap exposes the repository cause.
func (e *SessionError) Unwrap() error { return e.Err }

// KindOf reports the ErrorKind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
