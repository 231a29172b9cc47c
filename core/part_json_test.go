package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMessageJSON_PreservesPartTypes(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Parts: []Part{
			TextPart{Text: "hello"},
			DataPart{Data: map[string]any{"n": "v"}},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "lookup", Arguments: `{"q":"x"}`}},
			FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "c1", Name: "lookup", Response: "ok"}},
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"type":"function_call"`) {
		t.Fatalf("expected type tag in %s", data)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Role != RoleAssistant || len(decoded.Parts) != 4 {
		t.Fatalf("unexpected decoded message: %+v", decoded)
	}
	if tp, ok := decoded.Parts[0].(TextPart); !ok || tp.Text != "hello" {
		t.Errorf("part 0: %#v", decoded.Parts[0])
	}
	if _, ok := decoded.Parts[1].(DataPart); !ok {
		t.Errorf("part 1: %#v", decoded.Parts[1])
	}
	calls := decoded.GetFunctionCalls()
	if len(calls) != 1 || calls[0].Name != "lookup" || calls[0].ID != "c1" {
		t.Errorf("function calls: %#v", calls)
	}
	if fr, ok := decoded.Parts[3].(FunctionResponsePart); !ok || fr.FunctionResponse.Response != "ok" {
		t.Errorf("part 3: %#v", decoded.Parts[3])
	}
}

func TestMessageJSON_RejectsUnknownPartType(t *testing.T) {
	var m Message
	err := json.Unmarshal([]byte(`{"role":"user","parts":[{"type":"video"}]}`), &m)
	if err == nil {
		t.Fatal("expected error for unknown part type")
	}
}

func TestMessageJSON_RejectsMissingPayload(t *testing.T) {
	var m Message
	err := json.Unmarshal([]byte(`{"role":"assistant","parts":[{"type":"function_call"}]}`), &m)
	if err == nil {
		t.Fatal("expected error for missing function_call payload")
	}
}

func TestMessage_TextConcatenatesTextParts(t *testing.T) {
	m := Message{Role: RoleUser, Parts: []Part{TextPart{Text: "a"}, DataPart{}, TextPart{Text: "b"}}}
	if m.Text() != "ab" {
		t.Fatalf("expected ab, got %q", m.Text())
	}
}
