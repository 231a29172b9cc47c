// Package agentstate persists agent conversations into a session repository.
// Most applications:
//  1. Create a Session via New (optionally overriding the in-memory repository)
//  2. Register their agents, which creates or restores each one
//  3. Run the agents; every message and state change is written through
//
// Durable repositories live in session/file, session/sqlite and
// session/postgres; config.OpenRepository builds one from agentstate.yaml.
package agentstate

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/logging"
	"github.com/hupe1980/agentstate/session"
)

// Options configures a Session.
type Options struct {
	// Repository stores the session. Defaults to an in-memory repository.
	Repository core.SessionRepository

	// Logger defaults to a NoOp logger.
	Logger logging.Logger
}

// attacher is implemented by agents that need to hold on to the manager,
// such as agent.ModelAgent.
type attacher interface {
	Attach(ctx context.Context, sm core.SessionManager) error
}

// Session binds agents to one persisted session.
type Session struct {
	opts    Options
	manager *session.RepositorySessionManager
}

// New opens the session with the given id, creating it if needed. An empty
// sessionID generates a new random id.
func New(ctx context.Context, sessionID string, optFns ...func(o *Options)) (*Session, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Repository == nil {
		opts.Repository = session.NewInMemoryRepository()
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	if sessionID == "" {
		id, err := core.NewSessionID()
		if err != nil {
			return nil, fmt.Errorf("generate session id: %w", err)
		}
		sessionID = id
	}

	sm, err := session.NewRepositorySessionManager(ctx, sessionID, opts.Repository, session.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}
	return &Session{opts: opts, manager: sm}, nil
}

// SessionID returns the session id.
func (s *Session) SessionID() string { return s.manager.SessionID() }

// Manager exposes the underlying session manager.
func (s *Session) Manager() *session.RepositorySessionManager { return s.manager }

// Repository returns the repository the session writes to.
func (s *Session) Repository() core.SessionRepository { return s.opts.Repository }

// Register initializes each agent in the session. It stops at the first
// failure; agents registered before it stay registered.
func (s *Session) Register(ctx context.Context, agents ...core.Agent) error {
	for _, a := range agents {
		var err error
		if at, ok := a.(attacher); ok {
			err = at.Attach(ctx, s.manager)
		} else {
			err = s.manager.Initialize(ctx, a)
		}
		if err != nil {
			return err
		}
		s.opts.Logger.Info("agent registered", "session_id", s.SessionID(), "agent_id", a.AgentID())
	}
	return nil
}

// Messages returns the persisted messages of agentID ordered by id.
func (s *Session) Messages(ctx context.Context, agentID string) ([]*core.SessionMessage, error) {
	return s.opts.Repository.ListMessages(ctx, s.SessionID(), agentID)
}

// Agent returns the persisted snapshot of agentID, or nil if it was never
// registered in this session.
func (s *Session) Agent(ctx context.Context, agentID string) (*core.SessionAgent, error) {
	return s.opts.Repository.ReadAgent(ctx, s.SessionID(), agentID)
}
