package core

import "testing"

type snapshotAgent struct {
	id       string
	messages []Message
	state    map[string]any
	conv     map[string]any
}

func (a *snapshotAgent) AgentID() string { return a.id }
func (a *snapshotAgent) Messages() []Message { return CloneMessages(a.messages) }
func (a *snapshotAgent) SetMessages(msgs []Message) { a.messages = CloneMessages(msgs) }
func (a *snapshotAgent) State() map[string]any { return CloneMap(a.state) }
func (a *snapshotAgent) SetState(state map[string]any) { a.state = CloneMap(state) }
func (a *snapshotAgent) ConversationState() map[string]any { return CloneMap(a.conv) }
func (a *snapshotAgent) RestoreConversationState(s map[string]any) error {
	a.conv = CloneMap(s)
	return nil
}

func TestNewSession_DefaultsToAgentType(t *testing.T) {
	s := NewSession("s1")
	if s.SessionID != "s1" || s.SessionType != SessionTypeAgent {
		t.Fatalf("unexpected session: %+v", s)
	}
	if s.CreatedAt.IsZero() || !s.CreatedAt.Equal(s.UpdatedAt) {
		t.Fatalf("timestamps not initialized: %+v", s)
	}
}

func TestNewSessionID_Unique(t *testing.T) {
	a, err := NewSessionID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := NewSessionID()
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}

func TestNewSessionAgent_SnapshotsStateAndConversation(t *testing.T) {
	a := &snapshotAgent{id: "a1", state: map[string]any{"x": 1}, conv: map[string]any{"removed_message_count": 2}}
	sa := NewSessionAgent(a)
	if sa.AgentID != "a1" || sa.State["x"] != 1 {
		t.Fatalf("unexpected snapshot: %+v", sa)
	}
	if sa.ConversationManagerState["removed_message_count"] != 2 {
		t.Fatalf("conversation state not captured: %+v", sa.ConversationManagerState)
	}

	a.state["x"] = 2
	if sa.State["x"] != 1 {
		t.Error("snapshot should not alias agent state")
	}
}

func TestNewSessionAgent_NilStateBecomesEmptyMap(t *testing.T) {
	sa := NewSessionAgent(&snapshotAgent{id: "a1"})
	if sa.State == nil || len(sa.State) != 0 {
		t.Fatalf("expected empty state map, got %#v", sa.State)
	}
}

func TestSessionMessage_ToMessageAppliesRedaction(t *testing.T) {
	sm := NewSessionMessage(NewUserMessage("secret"), 3)
	if sm.MessageID != 3 || sm.IsRedacted() {
		t.Fatalf("unexpected message: %+v", sm)
	}
	if got := sm.ToMessage().Text(); got != "secret" {
		t.Fatalf("expected original text, got %q", got)
	}

	redacted := NewUserMessage("[redacted]")
	sm.RedactMessage = &redacted
	if got := sm.ToMessage().Text(); got != "[redacted]" {
		t.Fatalf("expected redacted text, got %q", got)
	}
	if sm.Message.Text() != "secret" {
		t.Error("redaction must not overwrite the original message")
	}
}

func TestSessionMessage_CloneIsDeep(t *testing.T) {
	rm := NewUserMessage("r")
	sm := NewSessionMessage(Message{Role: RoleUser, Parts: []Part{DataPart{Data: map[string]any{"k": "v"}}}}, 0)
	sm.RedactMessage = &rm

	clone := sm.Clone()
	clone.Message.Parts[0].(DataPart).Data["k"] = "changed"
	clone.RedactMessage.Parts[0] = TextPart{Text: "other"}

	if sm.Message.Parts[0].(DataPart).Data["k"] != "v" {
		t.Error("clone should not share message data")
	}
	if sm.RedactMessage.Text() != "r" {
		t.Error("clone should not share redaction parts")
	}
}
