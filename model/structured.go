package model

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/hupe1980/agentstate/internal/util"
)

// ResponseFormat constrains a reply to a JSON schema.
type ResponseFormat struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
	// Strict asks the provider to enforce the schema exactly. OpenAI strict
	// mode additionally requires every property to be listed as required.
	Strict bool `json:"strict,omitempty"`
}

// StructuredModel is implemented by models that can return a single reply
// shaped by a ResponseFormat.
type StructuredModel interface {
	Model

	GenerateStructured(ctx context.Context, req Request, format ResponseFormat) (*Response, error)
}

// StructuredOptions tune StructuredOutput.
type StructuredOptions struct {
	Name        string // Defaults to the Go type name of T
	Description string
	Strict      bool
}

// NewResponseFormat derives a ResponseFormat from the struct type of v.
func NewResponseFormat(v any, optFns ...func(o *StructuredOptions)) ResponseFormat {
	opts := StructuredOptions{Name: typeName(v)}
	for _, fn := range optFns {
		fn(&opts)
	}
	return ResponseFormat{
		Name:        opts.Name,
		Description: opts.Description,
		Schema:      util.CreateSchema(v),
		Strict:      opts.Strict,
	}
}

// StructuredOutput asks m for a reply matching the schema of T and decodes
// it. Replies missing required fields or carrying mistyped values fail with
// ErrInvalidStructuredOutput.
func StructuredOutput[T any](ctx context.Context, m StructuredModel, req Request, optFns ...func(o *StructuredOptions)) (*T, error) {
	out := new(T)
	format := NewResponseFormat(out, optFns...)

	resp, err := m.GenerateStructured(ctx, req, format)
	if err != nil {
		return nil, err
	}

	text := resp.Message.Text()
	if text == "" {
		return nil, ErrNoStructuredOutput
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructuredOutput, err)
	}
	if err := util.ValidateObject(raw, format.Schema); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructuredOutput, err)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructuredOutput, err)
	}
	return out, nil
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "output"
	}
	return t.Name()
}
