// Package file implements core.SessionRepository on the local filesystem.
//
// Layout under the root directory:
//
//	session_<id>/session.json
//	session_<id>/agents/agent_<id>/agent.json
//	session_<id>/agents/agent_<id>/messages/message_<n>.json
//
// Every file is written to a temporary sibling first and renamed into place,
// so readers never observe a partially written record. Session and agent ids
// become path elements and must not contain path separators or "..".
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hupe1980/agentstate/core"
)

// Compile-time assertion.
var _ core.SessionRepository = (*Repository)(nil)

const (
	sessionPrefix = "session_"
	agentPrefix   = "agent_"
	messagePrefix = "message_"
	jsonExt       = ".json"
)

// ErrInvalidID is returned when a session or agent id cannot be used as a
// single path element below the root.
var ErrInvalidID = errors.New("file repository: invalid id")

// Repository stores sessions as JSON files below a root directory.
type Repository struct {
	root string
	// mu serializes writers within this process. Separate processes sharing a
	// root are not coordinated.
	mu sync.RWMutex
}

// New creates a repository rooted at dir, creating the directory if needed.
func New(dir string) (*Repository, error) {
	if dir == "" {
		return nil, errors.New("file repository: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file repository: create root: %w", err)
	}
	return &Repository{root: dir}, nil
}

// Root returns the root directory.
func (r *Repository) Root() string { return r.root }

// checkIDs rejects ids that would resolve outside their parent directory.
func checkIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" || id == "." || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

func (r *Repository) sessionDir(sessionID string) string {
	return filepath.Join(r.root, sessionPrefix+sessionID)
}

func (r *Repository) agentDir(sessionID, agentID string) string {
	return filepath.Join(r.sessionDir(sessionID), "agents", agentPrefix+agentID)
}

func (r *Repository) messagesDir(sessionID, agentID string) string {
	return filepath.Join(r.agentDir(sessionID, agentID), "messages")
}

func (r *Repository) messagePath(sessionID, agentID string, id int) string {
	return filepath.Join(r.messagesDir(sessionID, agentID), messagePrefix+strconv.Itoa(id)+jsonExt)
}

// CreateSession writes session.json. An existing session is an error.
func (r *Repository) CreateSession(_ context.Context, session *core.Session) error {
	if err := checkIDs(session.SessionID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	path := filepath.Join(r.sessionDir(session.SessionID), "session.json")
	if exists(path) {
		return fmt.Errorf("session %q already exists", session.SessionID)
	}
	return writeJSON(path, session)
}

// ReadSession returns nil when the session directory does not exist.
func (r *Repository) ReadSession(_ context.Context, sessionID string) (*core.Session, error) {
	if err := checkIDs(sessionID); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s core.Session
	ok, err := readJSON(filepath.Join(r.sessionDir(sessionID), "session.json"), &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// CreateAgent writes agent.json under an existing session.
func (r *Repository) CreateAgent(_ context.Context, sessionID string, agent *core.SessionAgent) error {
	if err := checkIDs(sessionID, agent.AgentID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !exists(r.sessionDir(sessionID)) {
		return fmt.Errorf("session %q: %w", sessionID, core.ErrNotFound)
	}
	path := filepath.Join(r.agentDir(sessionID, agent.AgentID), "agent.json")
	if exists(path) {
		return fmt.Errorf("agent %q already exists in session %q", agent.AgentID, sessionID)
	}
	if err := writeJSON(path, agent); err != nil {
		return err
	}
	return os.MkdirAll(r.messagesDir(sessionID, agent.AgentID), 0o755)
}

// ReadAgent returns nil when the agent has no snapshot.
func (r *Repository) ReadAgent(_ context.Context, sessionID, agentID string) (*core.SessionAgent, error) {
	if err := checkIDs(sessionID, agentID); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readAgent(sessionID, agentID)
}

func (r *Repository) readAgent(sessionID, agentID string) (*core.SessionAgent, error) {
	var a core.SessionAgent
	ok, err := readJSON(filepath.Join(r.agentDir(sessionID, agentID), "agent.json"), &a)
	if err != nil || !ok {
		return nil, err
	}
	if a.State == nil {
		a.State = map[string]any{}
	}
	return &a, nil
}

// UpdateAgent overwrites agent.json, keeping the original creation time.
func (r *Repository) UpdateAgent(_ context.Context, sessionID string, agent *core.SessionAgent) error {
	if err := checkIDs(sessionID, agent.AgentID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, err := r.readAgent(sessionID, agent.AgentID)
	if err != nil {
		return err
	}
	if prev == nil {
		return fmt.Errorf("agent %q in session %q: %w", agent.AgentID, sessionID, core.ErrNotFound)
	}
	cp := agent.Clone()
	cp.CreatedAt = prev.CreatedAt
	return writeJSON(filepath.Join(r.agentDir(sessionID, agent.AgentID), "agent.json"), cp)
}

// CreateMessage writes message_<id>.json. An existing id is an error.
func (r *Repository) CreateMessage(_ context.Context, sessionID, agentID string, msg *core.SessionMessage) error {
	if err := checkIDs(sessionID, agentID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !exists(filepath.Join(r.agentDir(sessionID, agentID), "agent.json")) {
		return fmt.Errorf("agent %q in session %q: %w", agentID, sessionID, core.ErrNotFound)
	}
	path := r.messagePath(sessionID, agentID, msg.MessageID)
	if exists(path) {
		return fmt.Errorf("message %d already exists for agent %q", msg.MessageID, agentID)
	}
	return writeJSON(path, msg)
}

// UpdateMessage overwrites message_<id>.json, keeping the original creation time.
func (r *Repository) UpdateMessage(_ context.Context, sessionID, agentID string, msg *core.SessionMessage) error {
	if err := checkIDs(sessionID, agentID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.messagePath(sessionID, agentID, msg.MessageID)
	var prev core.SessionMessage
	ok, err := readJSON(path, &prev)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("message %d of agent %q: %w", msg.MessageID, agentID, core.ErrNotFound)
	}
	cp := msg.Clone()
	cp.CreatedAt = prev.CreatedAt
	return writeJSON(path, cp)
}

// ListMessages reads every message file and returns them ordered by the
// numeric id in the file name, so message_10 sorts after message_9.
func (r *Repository) ListMessages(_ context.Context, sessionID, agentID string) ([]*core.SessionMessage, error) {
	if err := checkIDs(sessionID, agentID); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	dir := r.messagesDir(sessionID, agentID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*core.SessionMessage{}, nil
		}
		return nil, fmt.Errorf("list messages: %w", err)
	}

	type indexed struct {
		id   int
		name string
	}
	files := make([]indexed, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, messagePrefix) || !strings.HasSuffix(name, jsonExt) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, messagePrefix), jsonExt))
		if err != nil {
			continue
		}
		files = append(files, indexed{id: id, name: name})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].id < files[j].id })

	out := make([]*core.SessionMessage, 0, len(files))
	for _, f := range files {
		var m core.SessionMessage
		if _, err := readJSON(filepath.Join(dir, f.name), &m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readJSON decodes path into v. It reports false without error when the file
// does not exist.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
