package testutil

import (
	"fmt"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
)

// ItemBuilder constructs manifest items with fluent chaining for tests.
// Example:
//
//	it := NewItem("a.mp4").Mood("tense").Motion("high").Duration(6).Build()
type ItemBuilder struct {
	item core.Item
}

// NewItem creates a builder with sensible defaults: 8 second duration,
// medium motion, a derived description and mood.
func NewItem(filename string) *ItemBuilder {
	return &ItemBuilder{item: core.Item{
		Filename:        filename,
		FilePath:        filename,
		Duration:        8,
		Description:     fmt.Sprintf("description of %s", filename),
		Mood:            "neutral",
		MotionIntensity: "medium",
		StartsClean:     true,
		EndsClean:       true,
	}}
}

// Duration sets the item duration in seconds (chainable).
func (b *ItemBuilder) Duration(seconds float64) *ItemBuilder {
	b.item.Duration = seconds
	return b
}

// Mood sets the mood string (chainable).
func (b *ItemBuilder) Mood(mood string) *ItemBuilder {
	b.item.Mood = mood
	return b
}

// Motion sets the motion intensity (chainable).
func (b *ItemBuilder) Motion(intensity string) *ItemBuilder {
	b.item.MotionIntensity = intensity
	return b
}

// Description sets the description (chainable).
func (b *ItemBuilder) Description(desc string) *ItemBuilder {
	b.item.Description = desc
	return b
}

// Tags sets the suggested tags (chainable).
func (b *ItemBuilder) Tags(tags ...string) *ItemBuilder {
	b.item.Tags = tags
	return b
}

// Speech marks the item as containing the given transcript (chainable).
func (b *ItemBuilder) Speech(transcript string) *ItemBuilder {
	b.item.HasSpeech = true
	b.item.SpeechTranscript = transcript
	return b
}

// Build returns the assembled item.
func (b *ItemBuilder) Build() *core.Item {
	it := b.item
	return &it
}

// Items builds n items named <prefix>_000.mp4 .. with the provided
// per-index customization.
func Items(prefix string, n int, customize func(i int, b *ItemBuilder)) []*core.Item {
	out := make([]*core.Item, n)
	for i := 0; i < n; i++ {
		b := NewItem(fmt.Sprintf("%s_%03d.mp4", prefix, i))
		if customize != nil {
			customize(i, b)
		}
		out[i] = b.Build()
	}
	return out
}

// StaticManifest is a fixed in-memory core.Manifest for tests.
type StaticManifest struct {
	items []*core.Item
	index map[string]*core.Item
}

// NewStaticManifest indexes the given items by filename.
func NewStaticManifest(items ...*core.Item) *StaticManifest {
	m := &StaticManifest{items: items, index: make(map[string]*core.Item, len(items))}
	for _, it := range items {
		m.index[it.Filename] = it
	}
	return m
}

// Lookup returns the item for a filename, or false if unknown.
func (m *StaticManifest) Lookup(filename string) (*core.Item, bool) {
	it, ok := m.index[filename]
	return it, ok
}

// ListEligible returns all items not named in the exclusion set.
func (m *StaticManifest) ListEligible(exclude map[string]bool) []*core.Item {
	var out []*core.Item
	for _, it := range m.items {
		if !exclude[it.Filename] {
			out = append(out, it)
		}
	}
	return out
}

// Len reports the number of indexed items.
func (m *StaticManifest) Len() int { return len(m.items) }
