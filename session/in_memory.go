package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentstate/core"
)

// Compile-time assertion.
var _ core.SessionRepository = (*InMemoryRepository)(nil)

type agentRecord struct {
	agent    *core.SessionAgent
	messages map[int]*core.SessionMessage
}

type sessionRecord struct {
	session *core.Session
	agents  map[string]*agentRecord
}

// InMemoryRepository is a volatile SessionRepository storing sessions in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Records are cloned on the way in and out
// to prevent external mutation of internal state.
//
// Layout: sessionID -> agentID -> messageID -> message
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
}

// NewInMemoryRepository constructs an empty in-memory session repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]*sessionRecord)}
}

// CreateSession stores a new session. Creating an existing id fails.
func (r *InMemoryRepository) CreateSession(_ context.Context, session *core.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.SessionID]; ok {
		return fmt.Errorf("session %q already exists", session.SessionID)
	}
	cp := *session
	r.sessions[session.SessionID] = &sessionRecord{session: &cp, agents: make(map[string]*agentRecord)}
	return nil
}

// ReadSession returns a copy of the session or nil when absent.
func (r *InMemoryRepository) ReadSession(_ context.Context, sessionID string) (*core.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *rec.session
	return &cp, nil
}

// CreateAgent stores a new agent snapshot under an existing session.
func (r *InMemoryRepository) CreateAgent(_ context.Context, sessionID string, agent *core.SessionAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.sessionLocked(sessionID)
	if err != nil {
		return err
	}
	if _, ok := rec.agents[agent.AgentID]; ok {
		return fmt.Errorf("agent %q already exists in session %q", agent.AgentID, sessionID)
	}
	rec.agents[agent.AgentID] = &agentRecord{agent: agent.Clone(), messages: make(map[int]*core.SessionMessage)}
	return nil
}

// ReadAgent returns a copy of the agent snapshot or nil when absent.
func (r *InMemoryRepository) ReadAgent(_ context.Context, sessionID, agentID string) (*core.SessionAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	ar, ok := rec.agents[agentID]
	if !ok {
		return nil, nil
	}
	return ar.agent.Clone(), nil
}

// UpdateAgent overwrites the snapshot, keeping the original creation time.
func (r *InMemoryRepository) UpdateAgent(_ context.Context, sessionID string, agent *core.SessionAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ar, err := r.agentLocked(sessionID, agent.AgentID)
	if err != nil {
		return err
	}
	cp := agent.Clone()
	cp.CreatedAt = ar.agent.CreatedAt
	ar.agent = cp
	return nil
}

// CreateMessage stores a new message. A duplicate message id is rejected.
func (r *InMemoryRepository) CreateMessage(_ context.Context, sessionID, agentID string, msg *core.SessionMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ar, err := r.agentLocked(sessionID, agentID)
	if err != nil {
		return err
	}
	if _, ok := ar.messages[msg.MessageID]; ok {
		return fmt.Errorf("message %d already exists for agent %q", msg.MessageID, agentID)
	}
	ar.messages[msg.MessageID] = msg.Clone()
	return nil
}

// UpdateMessage overwrites the message stored at msg.MessageID.
func (r *InMemoryRepository) UpdateMessage(_ context.Context, sessionID, agentID string, msg *core.SessionMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ar, err := r.agentLocked(sessionID, agentID)
	if err != nil {
		return err
	}
	existing, ok := ar.messages[msg.MessageID]
	if !ok {
		return fmt.Errorf("message %d of agent %q: %w", msg.MessageID, agentID, core.ErrNotFound)
	}
	cp := msg.Clone()
	cp.CreatedAt = existing.CreatedAt
	ar.messages[msg.MessageID] = cp
	return nil
}

// ListMessages returns copies of all messages ascending by id. An unknown
// session or agent yields an empty list.
func (r *InMemoryRepository) ListMessages(_ context.Context, sessionID, agentID string) ([]*core.SessionMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[sessionID]
	if !ok {
		return []*core.SessionMessage{}, nil
	}
	ar, ok := rec.agents[agentID]
	if !ok {
		return []*core.SessionMessage{}, nil
	}
	out := make([]*core.SessionMessage, 0, len(ar.messages))
	for _, m := range ar.messages {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageID < out[j].MessageID })
	return out, nil
}

// sessionLocked returns the session record; caller must hold the lock.
func (r *InMemoryRepository) sessionLocked(sessionID string) (*sessionRecord, error) {
	rec, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, core.ErrNotFound)
	}
	return rec, nil
}

// agentLocked returns the agent record; caller must hold the lock.
func (r *InMemoryRepository) agentLocked(sessionID, agentID string) (*agentRecord, error) {
	rec, err := r.sessionLocked(sessionID)
	if err != nil {
		return nil, err
	}
	ar, ok := rec.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %q in session %q: %w", agentID, sessionID, core.ErrNotFound)
	}
	return ar, nil
}
