package selector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/logging"
)

// ErrBadResponse indicates the model's output contained no parseable JSON
// selection object.
var ErrBadResponse = errors.New("selection response contained no valid JSON")

// Options configures an LLMSelector.
type Options struct {
	// Logger receives validation and call diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// LLMSelector implements core.Selector by prompting a language model with the
// narrative context and candidate set, then validating every returned
// identifier against the manifest. Unknown identifiers are dropped and
// logged, never fatal: the core's job is to validate and degrade gracefully,
// not to judge content quality.
type LLMSelector struct {
	model    Model
	manifest core.Manifest
	logger   logging.Logger
}

// NewLLMSelector builds a selector around the given model and manifest.
func NewLLMSelector(model Model, manifest core.Manifest, optFns ...func(o *Options)) *LLMSelector {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &LLMSelector{model: model, manifest: manifest, logger: logging.OrDiscard(opts.Logger)}
}

// Select runs one selection round. An empty candidate set short-circuits to
// an empty result without touching the model.
func (s *LLMSelector) Select(ctx context.Context, req core.SelectionRequest) (*core.SelectionResult, error) {
	if len(req.Candidates) == 0 {
		return &core.SelectionResult{}, nil
	}

	prompt := buildPrompt(req)

	start := time.Now()
	text, err := s.model.Generate(ctx, prompt)
	logging.SelectionCall(s.logger, s.model.Info().Name, len(req.Candidates), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelFailed, err)
	}

	result, err := parseResult(text)
	if err != nil {
		return nil, err
	}

	valid := result.Selections[:0]
	for _, sel := range result.Selections {
		if _, ok := s.manifest.Lookup(sel.Filename); ok {
			valid = append(valid, sel)
		} else {
			s.logger.Warn("Dropping selection unknown to manifest", "filename", sel.Filename)
		}
	}
	result.Selections = valid
	return result, nil
}

// parseResult extracts the selection object from free-form model output.
// Models occasionally wrap the JSON in prose or markdown fences, so the
// parser falls back to the outermost brace-delimited span.
func parseResult(text string) (*core.SelectionResult, error) {
	payload := strings.TrimSpace(text)
	if !gjson.Valid(payload) {
		start := strings.Index(payload, "{")
		end := strings.LastIndex(payload, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: %.80q", ErrBadResponse, text)
		}
		payload = payload[start : end+1]
		if !gjson.Valid(payload) {
			return nil, fmt.Errorf("%w: %.80q", ErrBadResponse, text)
		}
	}

	root := gjson.Parse(payload)
	result := &core.SelectionResult{
		NarrativeNote:      root.Get("narrative_note").String(),
		SuggestedDirection: root.Get("suggested_direction").String(),
	}
	for _, sel := range root.Get("selections").Array() {
		filename := sel.Get("filename").String()
		if filename == "" {
			continue
		}
		result.Selections = append(result.Selections, core.Selection{
			Filename:  filename,
			Reasoning: sel.Get("reasoning").String(),
		})
	}
	return result, nil
}
