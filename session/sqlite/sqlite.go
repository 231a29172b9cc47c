// Package sqlite implements core.SessionRepository on SQLite using
// github.com/mattn/go-sqlite3. Agent state and message payloads are stored as
// JSON text columns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/agentstate/core"
)

// Compile-time assertion.
var _ core.SessionRepository = (*Repository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	session_type TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
	session_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	state TEXT NOT NULL,
	conversation_manager_state TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (session_id, agent_id),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS messages (
	session_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	message_id INTEGER NOT NULL,
	message TEXT NOT NULL,
	redact_message TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (session_id, agent_id, message_id),
	FOREIGN KEY (session_id, agent_id) REFERENCES agents(session_id, agent_id) ON DELETE CASCADE
);
`

// Repository stores sessions in a SQLite database.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("sqlite repository: path is required")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	repo, err := New(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// New wraps an existing database handle and creates the tables if needed.
func New(ctx context.Context, db *sql.DB) (*Repository, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateSession inserts a session row.
func (r *Repository) CreateSession(ctx context.Context, session *core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, session_type, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		session.SessionID, string(session.SessionType), session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ReadSession returns nil when no row matches.
func (r *Repository) ReadSession(ctx context.Context, sessionID string) (*core.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT session_id, session_type, created_at, updated_at FROM sessions WHERE session_id = ?`,
		sessionID,
	)

	var (
		s   core.Session
		typ string
	)
	err := row.Scan(&s.SessionID, &typ, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.SessionType = core.SessionType(typ)
	return &s, nil
}

// CreateAgent inserts an agent snapshot.
func (r *Repository) CreateAgent(ctx context.Context, sessionID string, agent *core.SessionAgent) error {
	state, convState, err := encodeAgent(agent)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO agents (session_id, agent_id, state, conversation_manager_state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, agent.AgentID, state, convState, agent.CreatedAt, agent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// ReadAgent returns nil when no row matches.
func (r *Repository) ReadAgent(ctx context.Context, sessionID, agentID string) (*core.SessionAgent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT agent_id, state, conversation_manager_state, created_at, updated_at
		 FROM agents WHERE session_id = ? AND agent_id = ?`,
		sessionID, agentID,
	)

	var (
		a         core.SessionAgent
		state     string
		convState sql.NullString
	)
	err := row.Scan(&a.AgentID, &state, &convState, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent: %w", err)
	}

	if err := json.Unmarshal([]byte(state), &a.State); err != nil {
		return nil, fmt.Errorf("decode agent state: %w", err)
	}
	if a.State == nil {
		a.State = map[string]any{}
	}
	if convState.Valid {
		if err := json.Unmarshal([]byte(convState.String), &a.ConversationManagerState); err != nil {
			return nil, fmt.Errorf("decode conversation manager state: %w", err)
		}
	}
	return &a, nil
}

// UpdateAgent overwrites the snapshot. created_at is left unchanged.
func (r *Repository) UpdateAgent(ctx context.Context, sessionID string, agent *core.SessionAgent) error {
	state, convState, err := encodeAgent(agent)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE agents SET state = ?, conversation_manager_state = ?, updated_at = ?
		 WHERE session_id = ? AND agent_id = ?`,
		state, convState, agent.UpdatedAt, sessionID, agent.AgentID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	return expectRow(res, "agent %q in session %q", agent.AgentID, sessionID)
}

// CreateMessage inserts a message row. Nothing is inserted when the agent
// does not exist; a duplicate id violates the primary key.
func (r *Repository) CreateMessage(ctx context.Context, sessionID, agentID string, msg *core.SessionMessage) error {
	body, redact, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, agent_id, message_id, message, redact_message, created_at, updated_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM agents WHERE session_id = ? AND agent_id = ?)`,
		sessionID, agentID, msg.MessageID, body, redact, msg.CreatedAt, msg.UpdatedAt,
		sessionID, agentID,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return expectRow(res, "agent %q in session %q", agentID, sessionID)
}

// UpdateMessage overwrites the message payloads. created_at is left unchanged.
func (r *Repository) UpdateMessage(ctx context.Context, sessionID, agentID string, msg *core.SessionMessage) error {
	body, redact, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET message = ?, redact_message = ?, updated_at = ?
		 WHERE session_id = ? AND agent_id = ? AND message_id = ?`,
		body, redact, msg.UpdatedAt, sessionID, agentID, msg.MessageID,
	)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return expectRow(res, "message %d of agent %q", msg.MessageID, agentID)
}

// ListMessages returns the agent's messages ascending by message_id.
func (r *Repository) ListMessages(ctx context.Context, sessionID, agentID string) ([]*core.SessionMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT message_id, message, redact_message, created_at, updated_at
		 FROM messages WHERE session_id = ? AND agent_id = ?
		 ORDER BY message_id ASC`,
		sessionID, agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	out := []*core.SessionMessage{}
	for rows.Next() {
		var (
			m      core.SessionMessage
			body   string
			redact sql.NullString
		)
		if err := rows.Scan(&m.MessageID, &body, &redact, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &m.Message); err != nil {
			return nil, fmt.Errorf("decode message %d: %w", m.MessageID, err)
		}
		if redact.Valid {
			var rm core.Message
			if err := json.Unmarshal([]byte(redact.String), &rm); err != nil {
				return nil, fmt.Errorf("decode redaction %d: %w", m.MessageID, err)
			}
			m.RedactMessage = &rm
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func encodeAgent(agent *core.SessionAgent) (string, sql.NullString, error) {
	state := agent.State
	if state == nil {
		state = map[string]any{}
	}
	sb, err := json.Marshal(state)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode agent state: %w", err)
	}
	var conv sql.NullString
	if agent.ConversationManagerState != nil {
		cb, err := json.Marshal(agent.ConversationManagerState)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("encode conversation manager state: %w", err)
		}
		conv = sql.NullString{String: string(cb), Valid: true}
	}
	return string(sb), conv, nil
}

func encodeMessage(msg *core.SessionMessage) (string, sql.NullString, error) {
	body, err := json.Marshal(msg.Message)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode message: %w", err)
	}
	var redact sql.NullString
	if msg.RedactMessage != nil {
		rb, err := json.Marshal(msg.RedactMessage)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("encode redaction: %w", err)
		}
		redact = sql.NullString{String: string(rb), Valid: true}
	}
	return string(body), redact, nil
}

func expectRow(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf(format+": %w", append(args, core.ErrNotFound)...)
	}
	return nil
}
