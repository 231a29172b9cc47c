package core

import (
	"encoding/json"
	"fmt"
	"sync"
)

// State is an agent's mutable key/value store. Values must be JSON
// serializable so the whole mapping can be snapshotted into a SessionAgent.
// It is safe for concurrent access.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState creates a state pre-populated with a deep copy of initial.
func NewState(initial map[string]any) (*State, error) {
	if err := validateSerializable(initial); err != nil {
		return nil, err
	}
	values := CloneMap(initial)
	if values == nil {
		values = map[string]any{}
	}
	return &State{values: values}, nil
}

// Get returns the value and existence flag for a state key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a key/value pair. Values that cannot be encoded as JSON are rejected.
func (s *State) Set(key string, value any) error {
	if _, err := json.Marshal(value); err != nil {
		return fmt.Errorf("%w: key %q: %v", ErrInvalidState, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = cloneValue(value)
	return nil
}

// ApplyDelta merges the provided key/value pairs into the state.
func (s *State) ApplyDelta(delta map[string]any) error {
	if err := validateSerializable(delta); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.values[k] = cloneValue(v)
	}
	return nil
}

// Delete removes a key if present.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Snapshot returns a deep copy of all values.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := CloneMap(s.values)
	if snap == nil {
		snap = map[string]any{}
	}
	return snap
}

// Replace discards all values and installs a deep copy of values.
func (s *State) Replace(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = CloneMap(values)
	if s.values == nil {
		s.values = map[string]any{}
	}
}

func validateSerializable(m map[string]any) error {
	if m == nil {
		return nil
	}
	if _, err := json.Marshal(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return nil
}

// CloneMap deep copies nested maps and slices. Scalar values are copied by
// assignment. A nil map yields nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
