package narrative

import (
	"time"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
)

// Rolling-history capacities. Appends past these bounds silently drop the
// oldest entry; order is never changed.
const (
	MaxRecentlyPlayed  = 10
	MaxMoodTrajectory  = 15
	MaxFeedbackHistory = 10

	descriptionLimit = 150
)

// DefaultDirection seeds a fresh session before any feedback arrives.
const DefaultDirection = "open exploration"

// DefaultCoherence is the starting coherence level: loose associations with
// room for surreal jumps.
const DefaultCoherence = 0.3

// State is the rolling narrative bookkeeping for one session: what has
// played, the mood it produced and what the user has said. It performs no
// I/O and is deliberately not safe for concurrent use; the orchestrator
// serializes access.
type State struct {
	direction string
	coherence float64

	recentlyPlayed []core.PlayedEntry
	moodTrajectory []string
	feedback       []core.FeedbackEntry

	now func() time.Time // injectable clock for tests
}

// NewState returns a State with default direction and coherence.
func NewState() *State {
	return &State{
		direction: DefaultDirection,
		coherence: DefaultCoherence,
		now:       time.Now,
	}
}

// RecordPlayed appends a play-history entry (with the item description
// truncated) and extends the mood trajectory, both under their bounds.
func (s *State) RecordPlayed(it *core.Item) {
	s.recentlyPlayed = append(s.recentlyPlayed, core.PlayedEntry{
		Filename:    it.Filename,
		Description: core.Truncate(it.Description, descriptionLimit),
		Mood:        it.Mood,
		PlayedAt:    s.now(),
	})
	if n := len(s.recentlyPlayed); n > MaxRecentlyPlayed {
		s.recentlyPlayed = s.recentlyPlayed[n-MaxRecentlyPlayed:]
	}

	s.moodTrajectory = append(s.moodTrajectory, it.Mood)
	if n := len(s.moodTrajectory); n > MaxMoodTrajectory {
		s.moodTrajectory = s.moodTrajectory[n-MaxMoodTrajectory:]
	}
}

// RecordFeedback appends raw feedback text under the feedback bound.
func (s *State) RecordFeedback(text string) {
	s.feedback = append(s.feedback, core.FeedbackEntry{Text: text, At: s.now()})
	if n := len(s.feedback); n > MaxFeedbackHistory {
		s.feedback = s.feedback[n-MaxFeedbackHistory:]
	}
}

// SetCoherence stores the coherence level clamped to [0,1]. Clamping is the
// defined behavior for out-of-range input; there is no error path.
func (s *State) SetCoherence(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	s.coherence = level
}

// SetDirection overwrites the narrative direction. Direction is advisory
// free text and is not validated.
func (s *State) SetDirection(direction string) {
	s.direction = direction
}

// Direction returns the current narrative direction.
func (s *State) Direction() string { return s.direction }

// Coherence returns the current coherence level.
func (s *State) Coherence() float64 { return s.coherence }

// RecentlyPlayed returns the full bounded play history, newest last.
func (s *State) RecentlyPlayed() []core.PlayedEntry { return s.recentlyPlayed }

// MoodTrajectory returns the full bounded mood sequence, newest last.
func (s *State) MoodTrajectory() []string { return s.moodTrajectory }

// SnapshotContext builds the bounded snapshot handed to the selection
// collaborator: the last window entries of play history, mood trajectory and
// feedback plus the current direction, coherence and queued count.
func (s *State) SnapshotContext(window, queuedCount int) core.SelectionContext {
	if window <= 0 {
		window = 5
	}
	played := tail(s.recentlyPlayed, window)
	moods := tail(s.moodTrajectory, window)

	fb := tail(s.feedback, window)
	texts := make([]string, len(fb))
	for i, f := range fb {
		texts[i] = f.Text
	}

	return core.SelectionContext{
		Direction:      s.direction,
		CoherenceLevel: s.coherence,
		RecentlyPlayed: append([]core.PlayedEntry(nil), played...),
		RecentFeedback: texts,
		MoodTrajectory: append([]string(nil), moods...),
		QueuedCount:    queuedCount,
	}
}

func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
