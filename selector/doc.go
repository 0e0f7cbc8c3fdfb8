// Package selector implements the selection collaborator: it condenses the
// eligible pool through stratified sampling, renders the narrative context
// into a prompt, drives a language model behind the minimal Model interface
// and validates every proposed identifier against the manifest before
// anything reaches the scheduler.
//
// Concrete model providers live in the anthropic and openai subpackages;
// MockModel serves tests and offline runs.
package selector
