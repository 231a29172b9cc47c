// Package postgres implements core.SessionRepository on PostgreSQL through
// gorm. Tables are created with AutoMigrate on construction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hupe1980/agentstate/core"
)

// Compile-time assertion.
var _ core.SessionRepository = (*Repository)(nil)

type sessionRecord struct {
	SessionID   string `gorm:"primaryKey"`
	SessionType string `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (sessionRecord) TableName() string { return "agentstate_sessions" }

type agentRecord struct {
	SessionID                string         `gorm:"primaryKey"`
	AgentID                  string         `gorm:"primaryKey"`
	State                    map[string]any `gorm:"serializer:json;type:text;not null"`
	ConversationManagerState map[string]any `gorm:"serializer:json;type:text"`
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (agentRecord) TableName() string { return "agentstate_agents" }

type messageRecord struct {
	SessionID     string        `gorm:"primaryKey"`
	AgentID       string        `gorm:"primaryKey"`
	MessageID     int           `gorm:"primaryKey;autoIncrement:false"`
	Message       core.Message  `gorm:"serializer:json;type:text;not null"`
	RedactMessage *core.Message `gorm:"serializer:json;type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (messageRecord) TableName() string { return "agentstate_messages" }

// Repository stores sessions in PostgreSQL.
type Repository struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("postgres repository: dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&sessionRecord{}, &agentRecord{}, &messageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateSession inserts a session row.
func (r *Repository) CreateSession(ctx context.Context, session *core.Session) error {
	rec := sessionRecord{
		SessionID:   session.SessionID,
		SessionType: string(session.SessionType),
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ReadSession returns nil when no row matches.
func (r *Repository) ReadSession(ctx context.Context, sessionID string) (*core.Session, error) {
	var rec sessionRecord
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return &core.Session{
		SessionID:   rec.SessionID,
		SessionType: core.SessionType(rec.SessionType),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

// CreateAgent inserts an agent snapshot under an existing session.
func (r *Repository) CreateAgent(ctx context.Context, sessionID string, agent *core.SessionAgent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&sessionRecord{}).Where("session_id = ?", sessionID).Count(&n).Error; err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("session %q: %w", sessionID, core.ErrNotFound)
		}
		rec := toAgentRecord(sessionID, agent)
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert agent: %w", err)
		}
		return nil
	})
}

// ReadAgent returns nil when no row matches.
func (r *Repository) ReadAgent(ctx context.Context, sessionID, agentID string) (*core.SessionAgent, error) {
	var rec agentRecord
	err := r.db.WithContext(ctx).Where("session_id = ? AND agent_id = ?", sessionID, agentID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read agent: %w", err)
	}
	if rec.State == nil {
		rec.State = map[string]any{}
	}
	return &core.SessionAgent{
		AgentID:                  rec.AgentID,
		State:                    rec.State,
		ConversationManagerState: rec.ConversationManagerState,
		CreatedAt:                rec.CreatedAt,
		UpdatedAt:                rec.UpdatedAt,
	}, nil
}

// UpdateAgent overwrites the snapshot, keeping the stored creation time.
func (r *Repository) UpdateAgent(ctx context.Context, sessionID string, agent *core.SessionAgent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev agentRecord
		err := tx.Where("session_id = ? AND agent_id = ?", sessionID, agent.AgentID).Take(&prev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("agent %q in session %q: %w", agent.AgentID, sessionID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read agent: %w", err)
		}
		rec := toAgentRecord(sessionID, agent)
		rec.CreatedAt = prev.CreatedAt
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("update agent: %w", err)
		}
		return nil
	})
}

// CreateMessage inserts a message row under an existing agent. A duplicate
// id violates the primary key.
func (r *Repository) CreateMessage(ctx context.Context, sessionID, agentID string, msg *core.SessionMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&agentRecord{}).Where("session_id = ? AND agent_id = ?", sessionID, agentID).Count(&n).Error; err != nil {
			return fmt.Errorf("check agent: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("agent %q in session %q: %w", agentID, sessionID, core.ErrNotFound)
		}
		rec := toMessageRecord(sessionID, agentID, msg)
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
}

// UpdateMessage overwrites the message payloads, keeping the stored creation time.
func (r *Repository) UpdateMessage(ctx context.Context, sessionID, agentID string, msg *core.SessionMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev messageRecord
		err := tx.Where("session_id = ? AND agent_id = ? AND message_id = ?", sessionID, agentID, msg.MessageID).
			Take(&prev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("message %d of agent %q: %w", msg.MessageID, agentID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		rec := toMessageRecord(sessionID, agentID, msg)
		rec.CreatedAt = prev.CreatedAt
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("update message: %w", err)
		}
		return nil
	})
}

// ListMessages returns the agent's messages ascending by id.
func (r *Repository) ListMessages(ctx context.Context, sessionID, agentID string) ([]*core.SessionMessage, error) {
	var recs []messageRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND agent_id = ?", sessionID, agentID).
		Order("message_id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]*core.SessionMessage, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &core.SessionMessage{
			MessageID:     rec.MessageID,
			Message:       rec.Message,
			RedactMessage: rec.RedactMessage,
			CreatedAt:     rec.CreatedAt,
			UpdatedAt:     rec.UpdatedAt,
		})
	}
	return out, nil
}

func toAgentRecord(sessionID string, agent *core.SessionAgent) agentRecord {
	state := core.CloneMap(agent.State)
	if state == nil {
		state = map[string]any{}
	}
	return agentRecord{
		SessionID:                sessionID,
		AgentID:                  agent.AgentID,
		State:                    state,
		ConversationManagerState: core.CloneMap(agent.ConversationManagerState),
		CreatedAt:                agent.CreatedAt,
		UpdatedAt:                agent.UpdatedAt,
	}
}

func toMessageRecord(sessionID, agentID string, msg *core.SessionMessage) messageRecord {
	cp := msg.Clone()
	return messageRecord{
		SessionID:     sessionID,
		AgentID:       agentID,
		MessageID:     cp.MessageID,
		Message:       cp.Message,
		RedactMessage: cp.RedactMessage,
		CreatedAt:     cp.CreatedAt,
		UpdatedAt:     cp.UpdatedAt,
	}
}
