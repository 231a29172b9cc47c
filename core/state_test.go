package core

import (
	"errors"
	"testing"
)

func TestState_SetGetAndSnapshotIsolation(t *testing.T) {
	s, err := NewState(map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set("b", map[string]any{"nested": "x"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if v, ok := s.Get("a"); !ok || v.(int) != 1 {
		t.Fatalf("state not applied: %+v", s.Snapshot())
	}

	snap := s.Snapshot()
	snap["b"].(map[string]any)["nested"] = "changed"
	v, _ := s.Get("b")
	if v.(map[string]any)["nested"] != "x" {
		t.Error("snapshot should be a deep copy")
	}
}

func TestState_RejectsNonSerializableValues(t *testing.T) {
	s, _ := NewState(nil)
	err := s.Set("fn", func() {})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, ok := s.Get("fn"); ok {
		t.Error("rejected value must not be stored")
	}

	if _, err := NewState(map[string]any{"ch": make(chan int)}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState from NewState, got %v", err)
	}
}

func TestState_ReplaceAndDelta(t *testing.T) {
	s, _ := NewState(map[string]any{"a": 1, "b": 2})
	if err := s.ApplyDelta(map[string]any{"b": 3, "c": 4}); err != nil {
		t.Fatalf("delta failed: %v", err)
	}
	if v, _ := s.Get("b"); v.(int) != 3 {
		t.Errorf("expected b=3, got %v", v)
	}

	s.Replace(map[string]any{"x": 1})
	if _, ok := s.Get("a"); ok {
		t.Error("replace should discard previous keys")
	}
	s.Delete("x")
	if len(s.Snapshot()) != 0 {
		t.Errorf("expected empty state, got %+v", s.Snapshot())
	}
}
