package session

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/logging"
)

// Compile-time assertion.
var _ core.SessionManager = (*RepositorySessionManager)(nil)

// Options configures a RepositorySessionManager.
type Options struct {
	// Logger receives debug records for every lifecycle transition.
	// Defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// WithLogger sets the manager's logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// RepositorySessionManager persists agents into a core.SessionRepository.
//
// It keeps, per agent id, the latest message it recorded so that the next
// append can be numbered without reading the repository and so the last turn
// can be redacted. Entries are created only by Initialize.
//
// Calls for one agent id must be serialized by the caller. Different agent ids
// may be driven concurrently; mu only guards the map and is never held across
// a repository call.
type RepositorySessionManager struct {
	repo      core.SessionRepository
	sessionID string
	session   *core.Session
	logger    logging.Logger

	mu sync.Mutex
	// latest maps agent id to the last persisted message; nil means none yet.
	latest map[string]*core.SessionMessage
}

var now = func() time.Time { return time.Now().UTC() }

// NewRepositorySessionManager binds a manager to sessionID, creating the
// session in repo if it does not exist yet.
func NewRepositorySessionManager(
	ctx context.Context,
	sessionID string,
	repo core.SessionRepository,
	optFns ...func(o *Options),
) (*RepositorySessionManager, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	m := &RepositorySessionManager{
		repo:      repo,
		sessionID: sessionID,
		logger:    logging.OrNoOp(opts.Logger),
		latest:    make(map[string]*core.SessionMessage),
	}

	sess, err := repo.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, m.repoErr("read_session", "", err)
	}
	if sess == nil {
		m.logger.Debug("session not found, creating new session", "session_id", sessionID)
		sess = core.NewSession(sessionID)
		if err := repo.CreateSession(ctx, sess); err != nil {
			return nil, m.repoErr("create_session", "", err)
		}
	}
	m.session = sess

	return m, nil
}

// SessionID returns the id of the managed session.
func (m *RepositorySessionManager) SessionID() string { return m.sessionID }

// Session returns a copy of the session record read or created at construction.
func (m *RepositorySessionManager) Session() core.Session { return *m.session }

// Initialize binds agent to the session. It must be called exactly once per
// agent id. When the repository has no snapshot for the agent, the agent's
// current state and messages are persisted (ids 0..n-1). Otherwise the agent's
// messages and state are replaced by the persisted ones.
func (m *RepositorySessionManager) Initialize(ctx context.Context, agent core.Agent) error {
	agentID := agent.AgentID()

	m.mu.Lock()
	if _, exists := m.latest[agentID]; exists {
		m.mu.Unlock()
		return core.NewSessionError(core.KindDuplicateAgentInitialization, "initialize", m.sessionID, agentID, nil)
	}
	// The placeholder stays even if a repository call below fails.
	m.latest[agentID] = nil
	m.mu.Unlock()

	sessionAgent, err := m.repo.ReadAgent(ctx, m.sessionID, agentID)
	if err != nil {
		return m.repoErr("initialize", agentID, err)
	}

	if sessionAgent == nil {
		return m.createAgent(ctx, agent)
	}
	return m.restoreAgent(ctx, agent, sessionAgent)
}

func (m *RepositorySessionManager) createAgent(ctx context.Context, agent core.Agent) error {
	agentID := agent.AgentID()
	m.logger.Debug("creating agent", "agent_id", agentID, "session_id", m.sessionID)

	if err := m.repo.CreateAgent(ctx, m.sessionID, core.NewSessionAgent(agent)); err != nil {
		return m.repoErr("initialize", agentID, err)
	}

	for i, msg := range agent.Messages() {
		sm := core.NewSessionMessage(msg, i)
		if err := m.repo.CreateMessage(ctx, m.sessionID, agentID, sm); err != nil {
			return m.repoErr("initialize", agentID, err)
		}
		m.setLatest(agentID, sm)
	}

	return nil
}

func (m *RepositorySessionManager) restoreAgent(ctx context.Context, agent core.Agent, sa *core.SessionAgent) error {
	agentID := agent.AgentID()
	m.logger.Debug("restoring agent", "agent_id", agentID, "session_id", m.sessionID)

	stored, err := m.repo.ListMessages(ctx, m.sessionID, agentID)
	if err != nil {
		return m.repoErr("initialize", agentID, err)
	}

	msgs := make([]core.Message, len(stored))
	for i, sm := range stored {
		msgs[i] = sm.ToMessage()
	}

	if cs, ok := agent.(core.ConversationStateful); ok && sa.ConversationManagerState != nil {
		if err := cs.RestoreConversationState(sa.ConversationManagerState); err != nil {
			return core.NewSessionError(core.KindRestoreFailure, "initialize", m.sessionID, agentID, err)
		}
	}
	agent.SetMessages(msgs)
	agent.SetState(sa.State)

	if len(stored) > 0 {
		m.setLatest(agentID, stored[len(stored)-1])
	}

	return nil
}

// AppendMessage persists msg as the next message of agent. The id is derived
// from the last recorded message only; the repository is not consulted.
// The cached latest message advances only after the repository accepted the
// write, so a failed append can be retried with the same id.
func (m *RepositorySessionManager) AppendMessage(ctx context.Context, msg core.Message, agent core.Agent) error {
	agentID := agent.AgentID()

	last, ok := m.getLatest(agentID)
	if !ok {
		return core.NewSessionError(core.KindAgentNotInitialized, "append_message", m.sessionID, agentID, nil)
	}
	next := 0
	if last != nil {
		next = last.MessageID + 1
	}

	sm := core.NewSessionMessage(msg, next)
	if err := m.repo.CreateMessage(ctx, m.sessionID, agentID, sm); err != nil {
		return m.repoErr("append_message", agentID, err)
	}
	m.setLatest(agentID, sm)

	m.logger.Debug("message appended", "agent_id", agentID, "session_id", m.sessionID, "message_id", next)

	return nil
}

// RedactLatestMessage records redact as the replacement content of the most
// recently recorded message of agent. The original content and the message id
// are left untouched; repeated calls overwrite the replacement.
func (m *RepositorySessionManager) RedactLatestMessage(ctx context.Context, redact core.Message, agent core.Agent) error {
	agentID := agent.AgentID()

	last, ok := m.getLatest(agentID)
	if !ok {
		return core.NewSessionError(core.KindAgentNotInitialized, "redact_latest_message", m.sessionID, agentID, nil)
	}
	if last == nil {
		return core.NewSessionError(core.KindNoMessageToRedact, "redact_latest_message", m.sessionID, agentID, nil)
	}

	updated := last.Clone()
	rm := redact.Clone()
	updated.RedactMessage = &rm
	updated.UpdatedAt = now()

	if err := m.repo.UpdateMessage(ctx, m.sessionID, agentID, updated); err != nil {
		return m.repoErr("redact_latest_message", agentID, err)
	}
	m.setLatest(agentID, updated)

	m.logger.Debug("message redacted", "agent_id", agentID, "session_id", m.sessionID, "message_id", updated.MessageID)

	return nil
}

// SyncAgent overwrites the persisted snapshot with the agent's current state.
// Messages are not touched.
func (m *RepositorySessionManager) SyncAgent(ctx context.Context, agent core.Agent) error {
	agentID := agent.AgentID()

	if err := m.repo.UpdateAgent(ctx, m.sessionID, core.NewSessionAgent(agent)); err != nil {
		return m.repoErr("sync_agent", agentID, err)
	}

	m.logger.Debug("agent synced", "agent_id", agentID, "session_id", m.sessionID)

	return nil
}

// LatestMessage returns a copy of the last message recorded for agentID and
// whether agentID was initialized on this manager.
func (m *RepositorySessionManager) LatestMessage(agentID string) (*core.SessionMessage, bool) {
	last, ok := m.getLatest(agentID)
	return last.Clone(), ok
}

func (m *RepositorySessionManager) getLatest(agentID string) (*core.SessionMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.latest[agentID]
	return last, ok
}

func (m *RepositorySessionManager) setLatest(agentID string, sm *core.SessionMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[agentID] = sm
}

func (m *RepositorySessionManager) repoErr(op, agentID string, err error) error {
	m.logger.Error("session repository call failed", "op", op, "agent_id", agentID, "session_id", m.sessionID, "error", err)
	return core.NewSessionError(core.KindRepositoryFailure, op, m.sessionID, agentID, err)
}
