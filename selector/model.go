package selector

import (
	"context"
	"errors"
)

var (
	// ErrModelFailed wraps provider transport or API failures.
	ErrModelFailed = errors.New("selection model request failed")

	// ErrInvalidConfig indicates a provider was constructed with unusable
	// configuration (missing API key, empty model name).
	ErrInvalidConfig = errors.New("invalid selection model configuration")
)

// Model is the minimal interface for the language model behind the selection
// collaborator. Implementations must be stateless and safe for sequential
// reuse; dreamfeed only calls Generate from the scheduler's poll goroutine.
type Model interface {
	// Generate produces text from a prompt using the configured model.
	Generate(ctx context.Context, prompt string) (string, error)

	// Info returns metadata describing the model implementation.
	Info() Info
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "anthropic", "openai", "mock", etc.
}

// MockModel is a deterministic in-memory Model for tests. It records the last
// prompt and returns a fixed response or error.
type MockModel struct {
	Response string
	Err      error

	LastPrompt string
	Calls      int
}

// Generate returns the configured response or error, recording the prompt.
func (m *MockModel) Generate(_ context.Context, prompt string) (string, error) {
	m.Calls++
	m.LastPrompt = prompt
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Info identifies the mock.
func (m *MockModel) Info() Info {
	return Info{Name: "mock", Provider: "mock"}
}
