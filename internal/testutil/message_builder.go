package testutil

import (
	"github.com/hupe1980/agentstate/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder().AssistantText("hello").FunctionCall("c1", "lookup", `{}`).Build()
//
// Chain only the parts you need; the role defaults to assistant.
type MessageBuilder struct {
	role          string
	textParts     []string
	funcCalls     []core.FunctionCall
	funcResponses []core.FunctionResponse
	customParts   []core.Part
}

// NewMessageBuilder creates an empty builder.
func NewMessageBuilder() *MessageBuilder { return &MessageBuilder{} }

// UserText appends a text part and sets role to user (chainable).
func (b *MessageBuilder) UserText(t string) *MessageBuilder {
	b.role = core.RoleUser
	b.textParts = append(b.textParts, t)
	return b
}

// AssistantText appends a text part and sets role to assistant (chainable).
func (b *MessageBuilder) AssistantText(t string) *MessageBuilder {
	b.role = core.RoleAssistant
	b.textParts = append(b.textParts, t)
	return b
}

// AddPart appends a custom content part (chainable).
func (b *MessageBuilder) AddPart(p core.Part) *MessageBuilder {
	b.customParts = append(b.customParts, p)
	return b
}

// FunctionCall adds a function call part (chainable).
func (b *MessageBuilder) FunctionCall(id, name, args string) *MessageBuilder {
	b.funcCalls = append(b.funcCalls, core.FunctionCall{ID: id, Name: name, Arguments: args})
	return b
}

// FunctionResponse adds a function response part and sets role to tool (chainable).
func (b *MessageBuilder) FunctionResponse(id, name string, result any, err error) *MessageBuilder {
	fr := core.FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	b.role = core.RoleTool
	b.funcResponses = append(b.funcResponses, fr)
	return b
}

// Build constructs the core.Message value.
func (b *MessageBuilder) Build() core.Message {
	parts := make([]core.Part, 0, len(b.textParts)+len(b.funcCalls)+len(b.funcResponses)+len(b.customParts))
	for _, t := range b.textParts {
		parts = append(parts, core.TextPart{Text: t})
	}
	for _, fc := range b.funcCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	for _, fr := range b.funcResponses {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: fr})
	}
	parts = append(parts, b.customParts...)

	role := b.role
	if role == "" {
		role = core.RoleAssistant
	}
	return core.Message{Role: role, Parts: parts}
}
