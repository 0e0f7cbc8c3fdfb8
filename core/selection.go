package core

import (
	"context"
	"time"
)

// PlayedEntry records one item of play history inside the narrative state.
// Description is truncated at record time so a context snapshot never carries
// full item records.
type PlayedEntry struct {
	Filename    string    `json:"filename"`
	Description string    `json:"description"`
	Mood        string    `json:"mood"`
	PlayedAt    time.Time `json:"played_at"`
}

// FeedbackEntry is one piece of raw user feedback with its arrival time.
type FeedbackEntry struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// SelectionContext is the point-in-time narrative snapshot handed to the
// selection collaborator. It is the exact shape produced by the narrative
// state store and must stay bounded: windowed history, windowed feedback,
// windowed mood trajectory.
type SelectionContext struct {
	Direction      string        `json:"direction"`
	CoherenceLevel float64       `json:"coherence_level"`
	RecentlyPlayed []PlayedEntry `json:"recently_played"`
	RecentFeedback []string      `json:"recent_feedback"`
	MoodTrajectory []string      `json:"mood_trajectory"`
	QueuedCount    int           `json:"queued_count"`
}

// SelectionRequest is the input contract of the selection collaborator:
// a bounded narrative context, a bounded candidate set and a requested count.
type SelectionRequest struct {
	Context    SelectionContext `json:"context"`
	Candidates []ItemContext    `json:"candidates"`
	Count      int              `json:"count"`
}

// Selection is one proposed item together with the collaborator's free-text
// rationale.
type Selection struct {
	Filename  string `json:"filename"`
	Reasoning string `json:"reasoning"`
}

// SelectionResult is the collaborator's answer. Selections have already been
// validated against the manifest by the implementation; identifiers unknown
// to the manifest never reach the caller.
type SelectionResult struct {
	Selections         []Selection `json:"selections"`
	NarrativeNote      string      `json:"narrative_note,omitempty"`
	SuggestedDirection string      `json:"suggested_direction,omitempty"`
}

// Selector is the external decision-making collaborator. Given a context and
// a candidate set it proposes zero or more items to enqueue. Implementations
// must be safe for use from a single goroutine at a time; dreamfeed only ever
// calls Select from the scheduler's poll goroutine.
type Selector interface {
	Select(ctx context.Context, req SelectionRequest) (*SelectionResult, error)
}

// Manifest is the read-only index of all known items.
type Manifest interface {
	// Lookup returns the item for a filename, or false if unknown.
	Lookup(filename string) (*Item, bool)

	// ListEligible returns all items whose filename is not in the exclusion
	// set. The returned slice is owned by the caller.
	ListEligible(exclude map[string]bool) []*Item

	// Len reports the total number of indexed items.
	Len() int
}
