// Package baseten implements model.Model for Baseten's OpenAI compatible
// inference API.
package baseten

import (
	"maps"
	"os"

	"github.com/hupe1980/agentstate/model"
	"github.com/hupe1980/agentstate/model/openai"
)

// DefaultBaseURL is Baseten's shared Model API endpoint. Dedicated deployments
// use https://model-<id>.api.baseten.co/environments/production/sync/v1.
const DefaultBaseURL = "https://inference.baseten.co/v1"

// APIKeyEnv is read when Options.APIKey is empty.
const APIKeyEnv = "BASETEN_API_KEY"

// Options configure the Baseten adapter.
type Options struct {
	// ModelID is the Baseten model slug, e.g. "deepseek-ai/DeepSeek-V3-0324".
	ModelID     string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int64
	// Params are forwarded as extra request body fields.
	Params map[string]any
}

// Compile-time assertions.
var (
	_ model.Model           = (*Model)(nil)
	_ model.StructuredModel = (*Model)(nil)
)

// Model is an OpenAI chat model pointed at Baseten's endpoint. Generate and
// GenerateStructured come from the embedded OpenAI model.
type Model struct {
	*openai.Model
	opts Options
}

// NewModel creates a Baseten model.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		BaseURL:     DefaultBaseURL,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return newModel(opts)
}

func newModel(opts Options) *Model {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv(APIKeyEnv)
	}

	return &Model{
		Model: openai.NewModel(func(o *openai.Options) {
			o.Model = opts.ModelID
			o.BaseURL = opts.BaseURL
			o.APIKey = opts.APIKey
			o.Temperature = opts.Temperature
			o.MaxCompletionTokens = opts.MaxTokens
			o.Params = opts.Params
			o.Provider = "baseten"
		}),
		opts: opts,
	}
}

// Options returns the resolved configuration. Params is copied.
func (m *Model) Options() Options {
	opts := m.opts
	opts.Params = maps.Clone(m.opts.Params)
	return opts
}

// WithOptions returns a new Model with optFns applied on top of the current
// configuration. The receiver is left unchanged so it stays safe for
// concurrent use.
func (m *Model) WithOptions(optFns ...func(o *Options)) *Model {
	opts := m.Options()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newModel(opts)
}
