package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/logging"
	"github.com/hupe1980/agentstate/model"
)

// Compile-time assertions.
var (
	_ core.Agent                = (*ModelAgent)(nil)
	_ core.ConversationStateful = (*ModelAgent)(nil)
)

// removedMessageCountKey is the conversation state key holding how many
// leading messages the sliding window has dropped.
const removedMessageCountKey = "removed_message_count"

// InputFilter inspects a user message before it reaches the model. Returning
// a non-nil message replaces the input, both in memory and as the persisted
// redaction of that message.
type InputFilter func(ctx context.Context, msg core.Message) (*core.Message, error)

// ModelAgentOptions configures a ModelAgent instance.
type ModelAgentOptions struct {
	Instruction     Instruction
	EnableStreaming bool
	// MaxHistoryMessages bounds the in-memory history sent to the model.
	// Zero keeps everything.
	MaxHistoryMessages int
	InputFilter        InputFilter
	InitialState       map[string]any
	Logger             logging.Logger
}

// ModelAgent is a conversational agent backed by a model.Model. When attached
// to a core.SessionManager every message it adds is persisted and its state
// is synced after each invocation.
//
// Invoke calls are serialized per agent.
type ModelAgent struct {
	id          string
	llm         model.Model
	instruction Instruction
	streaming   bool
	maxHistory  int
	inputFilter InputFilter
	logger      logging.Logger

	invokeMu sync.Mutex

	mu       sync.RWMutex
	messages []core.Message
	state    *core.State
	removed  int
	manager  core.SessionManager
}

// NewModelAgent creates an agent with the given id.
func NewModelAgent(id string, llm model.Model, optFns ...func(o *ModelAgentOptions)) (*ModelAgent, error) {
	opts := ModelAgentOptions{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", id)),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if id == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if opts.MaxHistoryMessages < 0 {
		return nil, fmt.Errorf("max history messages must not be negative, got %d", opts.MaxHistoryMessages)
	}

	state, err := core.NewState(opts.InitialState)
	if err != nil {
		return nil, err
	}

	return &ModelAgent{
		id:          id,
		llm:         llm,
		instruction: opts.Instruction,
		streaming:   opts.EnableStreaming,
		maxHistory:  opts.MaxHistoryMessages,
		inputFilter: opts.InputFilter,
		logger:      logging.OrNoOp(opts.Logger),
		state:       state,
	}, nil
}

// AgentID implements core.Agent.
func (a *ModelAgent) AgentID() string { return a.id }

// Messages implements core.Agent.
func (a *ModelAgent) Messages() []core.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return core.CloneMessages(a.messages)
}

// SetMessages implements core.Agent. msgs is the full persisted history; the
// prefix the sliding window had already dropped is skipped again.
func (a *ModelAgent) SetMessages(msgs []core.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	skip := a.removed
	if skip > len(msgs) {
		skip = len(msgs)
	}
	a.messages = core.CloneMessages(msgs[skip:])
}

// State implements core.Agent.
func (a *ModelAgent) State() map[string]any { return a.state.Snapshot() }

// SetState implements core.Agent.
func (a *ModelAgent) SetState(state map[string]any) { a.state.Replace(state) }

// SetStateValue sets one state key. It is persisted on the next sync.
func (a *ModelAgent) SetStateValue(key string, value any) error {
	return a.state.Set(key, value)
}

// UpdateState merges delta into the state. Either every key is applied or,
// when a value is not serializable, none is.
func (a *ModelAgent) UpdateState(delta map[string]any) error {
	return a.state.ApplyDelta(delta)
}

// DeleteStateValue removes one state key. It is persisted on the next sync.
func (a *ModelAgent) DeleteStateValue(key string) { a.state.Delete(key) }

// StateValue returns one state value.
func (a *ModelAgent) StateValue(key string) (any, bool) { return a.state.Get(key) }

// ConversationState implements core.ConversationStateful.
func (a *ModelAgent) ConversationState() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return map[string]any{removedMessageCountKey: a.removed}
}

// RestoreConversationState implements core.ConversationStateful.
func (a *ModelAgent) RestoreConversationState(state map[string]any) error {
	n, err := toInt(state[removedMessageCountKey])
	if err != nil {
		return fmt.Errorf("restore %s: %w", removedMessageCountKey, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = n
	return nil
}

// Attach initializes the agent in sm and persists through it from then on.
func (a *ModelAgent) Attach(ctx context.Context, sm core.SessionManager) error {
	if err := sm.Initialize(ctx, a); err != nil {
		return err
	}
	a.mu.Lock()
	a.manager = sm
	a.mu.Unlock()
	return nil
}

// Invoke sends input to the model and returns the assistant reply. With a
// session manager attached the user message, any redaction, the reply and
// the final state are persisted in that order. A persistence failure aborts
// the invocation.
func (a *ModelAgent) Invoke(ctx context.Context, input core.Message) (core.Message, error) {
	a.invokeMu.Lock()
	defer a.invokeMu.Unlock()

	invocationID := uuid.NewString()
	a.logger.Debug("invocation started", "agent_id", a.id, "invocation_id", invocationID)

	if input.Role == "" {
		input.Role = core.RoleUser
	}
	if err := a.addMessage(ctx, input); err != nil {
		return core.Message{}, err
	}

	if a.inputFilter != nil {
		redacted, err := a.inputFilter(ctx, input.Clone())
		if err != nil {
			return core.Message{}, fmt.Errorf("input filter: %w", err)
		}
		if redacted != nil {
			if err := a.redactLatest(ctx, *redacted); err != nil {
				return core.Message{}, err
			}
			a.logger.Info("input redacted", "agent_id", a.id, "invocation_id", invocationID)
		}
	}

	instruction, err := a.instruction.Resolve(a.state.Snapshot())
	if err != nil {
		return core.Message{}, fmt.Errorf("resolve instruction: %w", err)
	}

	resp, err := model.Collect(ctx, a.llm, model.Request{
		Instructions: instruction,
		Messages:     a.Messages(),
		Stream:       a.streaming,
	})
	if err != nil {
		return core.Message{}, fmt.Errorf("model %s: %w", a.llm.Info().Name, err)
	}

	reply := resp.Message
	if reply.Role == "" {
		reply.Role = core.RoleAssistant
	}
	if err := a.addMessage(ctx, reply); err != nil {
		return core.Message{}, err
	}

	a.applyWindow()

	if sm := a.sessionManager(); sm != nil {
		if err := sm.SyncAgent(ctx, a); err != nil {
			return core.Message{}, err
		}
	}

	a.logger.Debug("invocation finished", "agent_id", a.id, "invocation_id", invocationID, "finish_reason", resp.FinishReason)
	return reply.Clone(), nil
}

// InvokeText is Invoke with a plain user text message.
func (a *ModelAgent) InvokeText(ctx context.Context, text string) (core.Message, error) {
	return a.Invoke(ctx, core.NewUserMessage(text))
}

func (a *ModelAgent) sessionManager() core.SessionManager {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.manager
}

// addMessage persists msg, then appends it to the in-memory history. A failed
// write leaves the history unchanged.
func (a *ModelAgent) addMessage(ctx context.Context, msg core.Message) error {
	if sm := a.sessionManager(); sm != nil {
		if err := sm.AppendMessage(ctx, msg, a); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.messages = append(a.messages, msg.Clone())
	a.mu.Unlock()
	return nil
}

// redactLatest persists the redaction, then replaces the last in-memory message.
func (a *ModelAgent) redactLatest(ctx context.Context, redact core.Message) error {
	if sm := a.sessionManager(); sm != nil {
		if err := sm.RedactLatestMessage(ctx, redact, a); err != nil {
			return err
		}
	}

	a.mu.Lock()
	if n := len(a.messages); n > 0 {
		a.messages[n-1] = redact.Clone()
	}
	a.mu.Unlock()
	return nil
}

// applyWindow drops the oldest messages beyond maxHistory.
func (a *ModelAgent) applyWindow() {
	if a.maxHistory == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if excess := len(a.messages) - a.maxHistory; excess > 0 {
		a.messages = append([]core.Message(nil), a.messages[excess:]...)
		a.removed += excess
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
