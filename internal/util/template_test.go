package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		state map[string]any
		want  string
	}{
		{name: "plain", text: "no markers", want: "no markers"},
		{name: "value", text: "Hi {{.name}}", state: map[string]any{"name": "Ada"}, want: "Hi Ada"},
		{name: "no html escaping", text: "{{.q}}", state: map[string]any{"q": "a < b"}, want: "a < b"},
		{name: "missing key", text: "[{{.nope}}]", state: map[string]any{}, want: "[]"},
		{name: "default", text: `{{default "guest" .user}}`, state: map[string]any{}, want: "guest"},
		{name: "upper", text: `{{upper .x}}`, state: map[string]any{"x": "abc"}, want: "ABC"},
		{name: "join", text: `{{join ", " .tags}}`, state: map[string]any{"tags": []string{"a", "b"}}, want: "a, b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTemplate(tt.text, tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderTemplate_ParseError(t *testing.T) {
	_, err := RenderTemplate("{{.unclosed", nil)
	assert.Error(t, err)
}
