package selector

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
)

// coherenceDescription maps the continuous coherence knob onto the band of
// selection behavior the model is asked for. Thresholds and wording steer the
// model only; no code path branches on them.
func coherenceDescription(level float64) string {
	switch {
	case level < 0.2:
		return "PURE DREAM LOGIC: Connections can be abstract, emotional, symbolic. Visual/thematic rhymes are valid. No need for literal continuity."
	case level < 0.4:
		return "LOOSE ASSOCIATIONS: Prioritize mood and visual flow. Thematic threads can be suggestive. Surreal juxtapositions welcome."
	case level < 0.6:
		return "BALANCED: Mix of associative and narrative logic. Some continuity expected but creative leaps allowed."
	case level < 0.8:
		return "NARRATIVE FORWARD: Prefer clips that build on previous content. Maintain recognizable threads and themes."
	default:
		return "STRICT NARRATIVE: Strong continuity required. Clips should clearly relate to and advance the established story."
	}
}

func formatFeedback(feedback []string) string {
	if len(feedback) == 0 {
		return "No feedback yet."
	}
	lines := make([]string, len(feedback))
	for i, f := range feedback {
		lines[i] = fmt.Sprintf("- %q", f)
	}
	return strings.Join(lines, "\n")
}

func formatPlayed(played []core.PlayedEntry) string {
	if len(played) == 0 {
		return "None yet - this is the beginning."
	}
	data, err := json.MarshalIndent(played, "", "  ")
	if err != nil {
		return "None yet - this is the beginning."
	}
	return string(data)
}

func formatMoods(moods []string) string {
	if len(moods) == 0 {
		return "Not established yet."
	}
	return strings.Join(moods, " -> ")
}

// buildPrompt renders a selection request into the single user prompt handed
// to the model.
func buildPrompt(req core.SelectionRequest) string {
	candidates, err := json.MarshalIndent(req.Candidates, "", "  ")
	if err != nil {
		candidates = []byte("[]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are selecting video clips for a real-time narrative experience. Your selections will be played in sequence to create an evolving visual story.

## COHERENCE LEVEL: %.1f
%s

## CURRENT NARRATIVE DIRECTION
%s

## RECENTLY PLAYED CLIPS (most recent last)
%s

## MOOD TRAJECTORY
%s

## RECENT USER FEEDBACK (most recent last)
%s

## AVAILABLE CLIPS
%s

## YOUR TASK
Select %d clips to add to the queue. Consider:
1. How they flow from what was recently played
2. The user's feedback and desired direction
3. The coherence level (low = dream logic ok, high = narrative continuity required)
4. Variety in visual style, motion, and mood while maintaining thematic threads
5. Whether clips have speech that might conflict or enhance

Return ONLY valid JSON in this exact format:
{
  "selections": [
    {
      "filename": "exact_filename.mp4",
      "reasoning": "Brief explanation of why this clip fits"
    }
  ],
  "narrative_note": "Brief note on where the narrative seems to be heading",
  "suggested_direction": "Optional suggestion for evolving the narrative direction"
}`,
		req.Context.CoherenceLevel,
		coherenceDescription(req.Context.CoherenceLevel),
		req.Context.Direction,
		formatPlayed(req.Context.RecentlyPlayed),
		formatMoods(req.Context.MoodTrajectory),
		formatFeedback(req.Context.RecentFeedback),
		candidates,
		req.Count,
	)
	return b.String()
}
