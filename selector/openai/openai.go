// Package openai provides a selection model backed by the OpenAI chat
// completions API.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/selector"
)

// Options configures the OpenAI model adapter.
type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	APIKey      string
}

// Model wraps the OpenAI chat completions API behind the selector.Model
// interface.
type Model struct {
	client openai.Client
	opts   Options
}

// NewModel creates an OpenAI-backed selection model. Returns an error when no
// API key is available in the options or the OPENAI_API_KEY environment
// variable.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:       "gpt-4o",
		MaxTokens:   1024,
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key (set OPENAI_API_KEY or provide in options)", selector.ErrInvalidConfig)
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", selector.ErrInvalidConfig)
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Model{client: client, opts: opts}, nil
}

// Generate sends the prompt as a single user message and returns the first
// choice.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(m.opts.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if m.opts.Temperature > 0 {
		params.Temperature = openai.Float(m.opts.Temperature)
	}
	if m.opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(m.opts.MaxTokens)
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", selector.ErrModelFailed, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no response generated", selector.ErrModelFailed)
	}
	return completion.Choices[0].Message.Content, nil
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() selector.Info {
	return selector.Info{Name: m.opts.Model, Provider: "openai"}
}
