package core

import (
	"encoding/json"
	"fmt"
)

// Part type discriminators used in the serialized form.
const (
	partTypeText             = "text"
	partTypeData             = "data"
	partTypeFunctionCall     = "function_call"
	partTypeFunctionResponse = "function_response"
)

// partEnvelope is the wire shape of a single part. Exactly one payload field
// is populated according to Type.
type partEnvelope struct {
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	Data             map[string]any    `json:"data,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
}

type messageEnvelope struct {
	Role  string         `json:"role,omitempty"`
	Parts []partEnvelope `json:"parts"`
}

// MarshalJSON encodes the message with a type tag per part so the closed Part
// set survives a round trip through any repository.
func (m Message) MarshalJSON() ([]byte, error) {
	env := messageEnvelope{Role: m.Role, Parts: make([]partEnvelope, 0, len(m.Parts))}
	for _, p := range m.Parts {
		switch v := p.(type) {
		case TextPart:
			env.Parts = append(env.Parts, partEnvelope{Type: partTypeText, Text: v.Text, Metadata: v.Metadata})
		case DataPart:
			env.Parts = append(env.Parts, partEnvelope{Type: partTypeData, Data: v.Data, Metadata: v.Metadata})
		case FunctionCallPart:
			fc := v.FunctionCall
			env.Parts = append(env.Parts, partEnvelope{Type: partTypeFunctionCall, FunctionCall: &fc, Metadata: v.Metadata})
		case FunctionResponsePart:
			fr := v.FunctionResponse
			env.Parts = append(env.Parts, partEnvelope{Type: partTypeFunctionResponse, FunctionResponse: &fr, Metadata: v.Metadata})
		default:
			return nil, fmt.Errorf("unsupported part type %T", p)
		}
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the tagged form produced by MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	parts := make([]Part, 0, len(env.Parts))
	for i, pe := range env.Parts {
		switch pe.Type {
		case partTypeText:
			parts = append(parts, TextPart{Text: pe.Text, Metadata: pe.Metadata})
		case partTypeData:
			parts = append(parts, DataPart{Data: pe.Data, Metadata: pe.Metadata})
		case partTypeFunctionCall:
			if pe.FunctionCall == nil {
				return fmt.Errorf("part %d: missing function_call payload", i)
			}
			parts = append(parts, FunctionCallPart{FunctionCall: *pe.FunctionCall, Metadata: pe.Metadata})
		case partTypeFunctionResponse:
			if pe.FunctionResponse == nil {
				return fmt.Errorf("part %d: missing function_response payload", i)
			}
			parts = append(parts, FunctionResponsePart{FunctionResponse: *pe.FunctionResponse, Metadata: pe.Metadata})
		default:
			return fmt.Errorf("part %d: unknown part type %q", i, pe.Type)
		}
	}
	m.Role = env.Role
	m.Parts = parts
	return nil
}
