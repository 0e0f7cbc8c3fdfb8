package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/logging"
)

// ErrBadManifest is returned when the manifest file is neither a JSON array
// nor an object with a "clips" key.
var ErrBadManifest = errors.New("manifest must be a JSON array or object with 'clips' key")

// Index is the in-memory manifest: a flat list of items keyed uniquely by
// filename. It is read-only after Load and therefore safe to share across
// goroutines without locking.
type Index struct {
	items      []*core.Item
	byFilename map[string]*core.Item
	mediaDir   string
	logger     logging.Logger
}

// Options configures manifest loading.
type Options struct {
	// MediaDir is the base directory prepended by FullPath. Optional.
	MediaDir string

	// Logger receives load diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Load reads and indexes a manifest file.
func Load(path string, optFns ...func(o *Options)) (*Index, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	idx, err := Parse(data)
	if err != nil {
		return nil, err
	}
	idx.mediaDir = opts.MediaDir
	idx.logger = logging.OrDiscard(opts.Logger)
	idx.logger.Info("Manifest loaded", "path", path, "items", idx.Len())
	return idx, nil
}

// Parse indexes manifest bytes. Both the top-level array form and the
// object-with-clips form are accepted.
func Parse(data []byte) (*Index, error) {
	var entries []rawEntry

	if err := json.Unmarshal(data, &entries); err != nil {
		var wrapped struct {
			Clips []rawEntry `json:"clips"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil || wrapped.Clips == nil {
			return nil, ErrBadManifest
		}
		entries = wrapped.Clips
	}

	idx := &Index{byFilename: make(map[string]*core.Item, len(entries)), logger: logging.NoOpLogger{}}
	for _, e := range entries {
		it := e.toItem()
		if it.Filename == "" {
			continue
		}
		if _, dup := idx.byFilename[it.Filename]; dup {
			// Keys are unique by filename; first entry wins.
			continue
		}
		idx.items = append(idx.items, it)
		idx.byFilename[it.Filename] = it
	}
	return idx, nil
}

// rawEntry mirrors the nested on-disk manifest schema produced by the
// analysis pipeline.
type rawEntry struct {
	Filename  string `json:"filename"`
	FilePath  string `json:"filePath"`
	Technical struct {
		DurationSeconds float64 `json:"durationSeconds"`
		Width           int     `json:"width"`
		Height          int     `json:"height"`
		AspectRatio     string  `json:"aspectRatio"`
	} `json:"technical"`
	Analysis struct {
		Description     string   `json:"description"`
		Subjects        []string `json:"subjects"`
		Setting         string   `json:"setting"`
		Mood            string   `json:"mood"`
		VisualStyle     string   `json:"visualStyle"`
		DominantColors  []string `json:"dominantColors"`
		CameraWork      string   `json:"cameraWork"`
		MotionIntensity string   `json:"motionIntensity"`
		StartsClean     *bool    `json:"startsClean"`
		EndsClean       *bool    `json:"endsClean"`
		SuggestedTags   []string `json:"suggestedTags"`
		Audio           struct {
			HasSpeech        bool   `json:"hasSpeech"`
			SpeechTranscript string `json:"speechTranscript"`
			HasMusic         bool   `json:"hasMusic"`
			MusicDescription string `json:"musicDescription"`
			AmbientSounds    string `json:"ambientSounds"`
		} `json:"audio"`
	} `json:"analysis"`
}

func (e rawEntry) toItem() *core.Item {
	return &core.Item{
		Filename:         e.Filename,
		FilePath:         e.FilePath,
		Duration:         e.Technical.DurationSeconds,
		Width:            e.Technical.Width,
		Height:           e.Technical.Height,
		AspectRatio:      e.Technical.AspectRatio,
		Description:      e.Analysis.Description,
		Subjects:         e.Analysis.Subjects,
		Setting:          e.Analysis.Setting,
		Mood:             e.Analysis.Mood,
		VisualStyle:      e.Analysis.VisualStyle,
		DominantColors:   e.Analysis.DominantColors,
		CameraWork:       e.Analysis.CameraWork,
		MotionIntensity:  e.Analysis.MotionIntensity,
		HasSpeech:        e.Analysis.Audio.HasSpeech,
		SpeechTranscript: e.Analysis.Audio.SpeechTranscript,
		HasMusic:         e.Analysis.Audio.HasMusic,
		MusicDescription: e.Analysis.Audio.MusicDescription,
		AmbientSounds:    e.Analysis.Audio.AmbientSounds,
		StartsClean:      boolOr(e.Analysis.StartsClean, true),
		EndsClean:        boolOr(e.Analysis.EndsClean, true),
		Tags:             e.Analysis.SuggestedTags,
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// Lookup returns the item for a filename, or false if unknown.
func (x *Index) Lookup(filename string) (*core.Item, bool) {
	it, ok := x.byFilename[filename]
	return it, ok
}

// ListEligible returns all items whose filename is not in the exclusion set.
func (x *Index) ListEligible(exclude map[string]bool) []*core.Item {
	out := make([]*core.Item, 0, len(x.items))
	for _, it := range x.items {
		if !exclude[it.Filename] {
			out = append(out, it)
		}
	}
	return out
}

// Len reports the total number of indexed items.
func (x *Index) Len() int { return len(x.items) }

// Items returns the full item list in manifest order.
func (x *Index) Items() []*core.Item { return x.items }

// FullPath resolves an item's on-disk location underneath the media dir.
func (x *Index) FullPath(it *core.Item) string {
	if x.mediaDir != "" {
		return filepath.Join(x.mediaDir, it.FilePath)
	}
	return it.FilePath
}

// Search runs a simple case-insensitive substring match across the textual
// fields of every item.
func (x *Index) Search(query string) []*core.Item {
	q := strings.ToLower(query)
	var out []*core.Item
	for _, it := range x.items {
		hay := strings.ToLower(strings.Join([]string{
			it.Description,
			it.Setting,
			it.Mood,
			it.VisualStyle,
			strings.Join(it.Subjects, " "),
			strings.Join(it.Tags, " "),
			it.SpeechTranscript,
		}, " "))
		if strings.Contains(hay, q) {
			out = append(out, it)
		}
	}
	return out
}

// FilterByMood returns items whose mood contains any of the given keywords.
func (x *Index) FilterByMood(keywords []string) []*core.Item {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	var out []*core.Item
	for _, it := range x.items {
		mood := strings.ToLower(it.Mood)
		for _, k := range lowered {
			if strings.Contains(mood, k) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// FilterByTags returns items matching the given tags. With matchAll set every
// tag must be present; otherwise any single match qualifies.
func (x *Index) FilterByTags(tags []string, matchAll bool) []*core.Item {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[strings.ToLower(t)] = true
	}
	var out []*core.Item
	for _, it := range x.items {
		have := make(map[string]bool, len(it.Tags))
		for _, t := range it.Tags {
			have[strings.ToLower(t)] = true
		}
		matched := 0
		for t := range want {
			if have[t] {
				matched++
			}
		}
		if (matchAll && matched == len(want)) || (!matchAll && matched > 0) {
			out = append(out, it)
		}
	}
	return out
}

// FilterByMotion returns items with the given motion intensity (low, medium,
// high).
func (x *Index) FilterByMotion(intensity string) []*core.Item {
	var out []*core.Item
	for _, it := range x.items {
		if strings.EqualFold(it.MotionIntensity, intensity) {
			out = append(out, it)
		}
	}
	return out
}

// FilterHasSpeech returns items with (or without) spoken audio.
func (x *Index) FilterHasSpeech(hasSpeech bool) []*core.Item {
	var out []*core.Item
	for _, it := range x.items {
		if it.HasSpeech == hasSpeech {
			out = append(out, it)
		}
	}
	return out
}

// FilterCleanCuts returns items matching the requested edit-safety flags.
func (x *Index) FilterCleanCuts(startsClean, endsClean bool) []*core.Item {
	var out []*core.Item
	for _, it := range x.items {
		if it.StartsClean == startsClean && it.EndsClean == endsClean {
			out = append(out, it)
		}
	}
	return out
}

// Count is a label with an occurrence count, used for tag and mood summaries.
type Count struct {
	Label string
	N     int
}

// TagCounts returns all tags ordered by descending frequency.
func (x *Index) TagCounts() []Count {
	freq := map[string]int{}
	for _, it := range x.items {
		for _, t := range it.Tags {
			freq[t]++
		}
	}
	return sortedCounts(freq)
}

// MoodCounts returns all mood strings ordered by descending frequency.
func (x *Index) MoodCounts() []Count {
	freq := map[string]int{}
	for _, it := range x.items {
		freq[it.Mood]++
	}
	return sortedCounts(freq)
}

func sortedCounts(freq map[string]int) []Count {
	out := make([]Count, 0, len(freq))
	for label, n := range freq {
		out = append(out, Count{Label: label, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Stats summarizes the manifest contents.
type Stats struct {
	TotalItems           int
	TotalDurationSeconds float64
	WithSpeech           int
	WithMusic            int
	CleanCuts            int
	UniqueTags           int
}

// Stats computes summary statistics over the index.
func (x *Index) Stats() Stats {
	s := Stats{TotalItems: len(x.items)}
	tags := map[string]bool{}
	for _, it := range x.items {
		s.TotalDurationSeconds += it.Duration
		if it.HasSpeech {
			s.WithSpeech++
		}
		if it.HasMusic {
			s.WithMusic++
		}
		if it.StartsClean && it.EndsClean {
			s.CleanCuts++
		}
		for _, t := range it.Tags {
			tags[t] = true
		}
	}
	s.UniqueTags = len(tags)
	return s
}
