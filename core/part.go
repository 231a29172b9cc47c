package core

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text     string         // Plain UTF-8 text
	Metadata map[string]any // Optional producer-provided metadata
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// DataPart is a structured data segment (e.g., JSON object map).
type DataPart struct {
	Data     map[string]any // Structured key/value payload
	Metadata map[string]any
}

// isPart implements the Part interface for DataPart.
func (DataPart) isPart() {}

// FunctionCall describes a tool/function invocation request.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Optional stable id (can be supplied later)
	Name      string `json:"name"`                // Tool / function name
	Arguments string `json:"arguments,omitempty"` // Serialized argument payload (e.g. JSON)
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
	Metadata     map[string]any
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call.
type FunctionResponse struct {
	ID       string `json:"id,omitempty"`       // Matches originating FunctionCall ID
	Name     string `json:"name"`               // Function name
	Response any    `json:"response,omitempty"` // Successful result (any shape)
	Error    string `json:"error,omitempty"`    // Populated on failure
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
	Metadata         map[string]any
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message holds role + ordered parts. It is the unit an agent keeps in its
// conversation history and the payload persisted inside a SessionMessage.
type Message struct {
	Role  string `json:"role,omitempty"` // Conversation role (user, assistant, tool, system,...)
	Parts []Part `json:"parts"`          // Ordered heterogeneous parts
}

// NewTextMessage creates a message with a single text part.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// NewUserMessage creates a user-authored text message.
func NewUserMessage(text string) Message { return NewTextMessage(RoleUser, text) }

// NewAssistantMessage creates an assistant-authored text message.
func NewAssistantMessage(text string) Message { return NewTextMessage(RoleAssistant, text) }

// Text concatenates all text parts preserving order.
func (m Message) Text() string {
	var text string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			text += tp.Text
		}
	}
	return text
}

// GetFunctionCalls returns any FunctionCall parts preserving their original order.
func (m Message) GetFunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range m.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// Clone returns a deep copy of the message safe for independent mutation.
func (m Message) Clone() Message {
	clone := Message{Role: m.Role, Parts: make([]Part, len(m.Parts))}
	for i, p := range m.Parts {
		switch v := p.(type) {
		case TextPart:
			clone.Parts[i] = TextPart{Text: v.Text, Metadata: CloneMap(v.Metadata)}
		case DataPart:
			clone.Parts[i] = DataPart{Data: CloneMap(v.Data), Metadata: CloneMap(v.Metadata)}
		case FunctionCallPart:
			clone.Parts[i] = FunctionCallPart{FunctionCall: v.FunctionCall, Metadata: CloneMap(v.Metadata)}
		case FunctionResponsePart:
			fr := v.FunctionResponse
			fr.Response = cloneValue(fr.Response)
			clone.Parts[i] = FunctionResponsePart{FunctionResponse: fr, Metadata: CloneMap(v.Metadata)}
		default:
			clone.Parts[i] = p
		}
	}
	return clone
}

// CloneMessages deep copies a message slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
