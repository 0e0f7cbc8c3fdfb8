package core

// Item is one playable unit of content with its analysis metadata. Items are
// owned by the manifest index and immutable once loaded; nothing in dreamfeed
// mutates an Item after construction.
type Item struct {
	Filename    string  `json:"filename"` // unique key within the manifest
	FilePath    string  `json:"file_path"`
	Duration    float64 `json:"duration"` // seconds
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio string  `json:"aspect_ratio"`

	Description    string   `json:"description"`
	Subjects       []string `json:"subjects"`
	Setting        string   `json:"setting"`
	Mood           string   `json:"mood"`
	VisualStyle    string   `json:"visual_style"`
	DominantColors []string `json:"dominant_colors"`
	CameraWork     string   `json:"camera_work"`

	// MotionIntensity is a categorical attribute: low, medium or high.
	MotionIntensity string `json:"motion_intensity"`

	HasSpeech        bool   `json:"has_speech"`
	SpeechTranscript string `json:"speech_transcript,omitempty"`
	HasMusic         bool   `json:"has_music"`
	MusicDescription string `json:"music_description,omitempty"`
	AmbientSounds    string `json:"ambient_sounds,omitempty"`

	// StartsClean / EndsClean flag whether the item can be cut into a
	// sequence without a jarring transition.
	StartsClean bool `json:"starts_clean"`
	EndsClean   bool `json:"ends_clean"`

	Tags []string `json:"tags"`
}

// ItemContext is the condensed projection presented to the selection model.
// It bounds the model input: at most 5 subjects, 8 tags, 4 colors and a
// 100-character speech preview. Full records (raw transcripts in particular)
// are never forwarded.
type ItemContext struct {
	Filename      string   `json:"filename"`
	Duration      float64  `json:"duration"`
	Description   string   `json:"description"`
	Mood          string   `json:"mood"`
	Setting       string   `json:"setting"`
	Subjects      []string `json:"subjects,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	HasSpeech     bool     `json:"has_speech"`
	SpeechPreview string   `json:"speech_preview,omitempty"`
	Motion        string   `json:"motion"`
	Colors        []string `json:"colors,omitempty"`
}

const speechPreviewLimit = 100

// Context returns the bounded ItemContext projection of the item.
func (it *Item) Context() ItemContext {
	return ItemContext{
		Filename:      it.Filename,
		Duration:      it.Duration,
		Description:   it.Description,
		Mood:          it.Mood,
		Setting:       it.Setting,
		Subjects:      headStrings(it.Subjects, 5),
		Tags:          headStrings(it.Tags, 8),
		HasSpeech:     it.HasSpeech,
		SpeechPreview: Truncate(it.SpeechTranscript, speechPreviewLimit),
		Motion:        it.MotionIntensity,
		Colors:        headStrings(it.DominantColors, 4),
	}
}

// Truncate shortens s to at most limit characters, appending an ellipsis when
// anything was cut.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func headStrings(ss []string, n int) []string {
	if len(ss) <= n {
		return ss
	}
	return ss[:n]
}
