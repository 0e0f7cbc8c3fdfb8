package core

// PlaybackStatus is an ephemeral snapshot of the playback engine, rebuilt from
// property queries on every poll and never cached beyond one cycle. Missing
// telemetry defaults to the zero value of each field.
type PlaybackStatus struct {
	Playing       bool    `json:"playing"`
	Paused        bool    `json:"paused"`
	Filename      string  `json:"filename"`
	Position      float64 `json:"position"` // seconds into the current item
	Duration      float64 `json:"duration"` // seconds, 0 when unknown
	PlaylistCount int     `json:"playlist_count"`
	PlaylistPos   int     `json:"playlist_pos"`
}

// Remaining returns the seconds left in the current item, clamped at zero.
func (s PlaybackStatus) Remaining() float64 {
	if r := s.Duration - s.Position; r > 0 {
		return r
	}
	return 0
}

// Player drives the downstream playback engine. The playback package provides
// the mpv-backed Controller and an in-process Simulated implementation.
//
// Command methods return a bare bool: false means the engine did not
// acknowledge the command, which callers must treat as "the command may or may
// not have taken effect" and proceed without blocking.
type Player interface {
	// StartEngine launches the external engine process and waits for its IPC
	// endpoint to appear.
	StartEngine() error

	// StopEngine disconnects, terminates the engine process and removes any
	// stale IPC artifact so a later StartEngine is never blocked.
	StopEngine()

	// Connect opens the IPC channel. Idempotent and safe to retry.
	Connect() error

	// Enqueue appends (or, when replace is set, swaps in) the item with the
	// given filename and reports whether the engine acknowledged it.
	Enqueue(filename string, replace bool) bool

	// Status assembles a playback snapshot from property queries. Partial
	// telemetry is acceptable; missing properties default to zero values.
	Status() PlaybackStatus

	// QueueSeconds estimates the remaining buffered playtime: the remainder
	// of the current item plus an assumed average duration per untouched
	// playlist entry.
	QueueSeconds() float64

	// Play resumes playback.
	Play() bool

	// Pause pauses playback.
	Pause() bool

	// Next skips to the next playlist entry.
	Next() bool
}
