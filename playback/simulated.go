package playback

import (
	"sync"
	"time"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/logging"
)

// Simulated is an in-process Player that fakes playback timing against a
// wall clock. It needs no engine binary and backs both the --dummy CLI mode
// and tests that exercise orchestration without real IPC.
type Simulated struct {
	mu          sync.Mutex
	playlist    []string
	pos         int
	playing     bool
	startedAt   time.Time
	itemSeconds float64
	logger      logging.Logger
	now         func() time.Time
}

// NewSimulated constructs a Simulated player assuming the given item duration
// (seconds); zero or negative falls back to 8.
func NewSimulated(itemSeconds float64, logger logging.Logger) *Simulated {
	if itemSeconds <= 0 {
		itemSeconds = 8
	}
	return &Simulated{itemSeconds: itemSeconds, logger: logging.OrDiscard(logger), now: time.Now}
}

// StartEngine is a no-op for the simulated player.
func (s *Simulated) StartEngine() error {
	s.logger.Info("Simulated engine started")
	return nil
}

// StopEngine is a no-op for the simulated player.
func (s *Simulated) StopEngine() {
	s.logger.Info("Simulated engine stopped")
}

// Connect always succeeds.
func (s *Simulated) Connect() error { return nil }

// Enqueue appends (or replaces with) the given filename.
func (s *Simulated) Enqueue(filename string, replace bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if replace {
		s.playlist = []string{filename}
		s.pos = 0
		s.playing = true
		s.startedAt = s.now()
	} else {
		s.playlist = append(s.playlist, filename)
	}
	s.logger.Debug("Simulated enqueue", "filename", filename, "replace", replace)
	return true
}

// Play starts the simulated clock.
func (s *Simulated) Play() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		s.playing = true
		s.startedAt = s.now()
	}
	return true
}

// Pause stops the simulated clock.
func (s *Simulated) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	return true
}

// Next advances to the next playlist entry when one exists.
func (s *Simulated) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	return true
}

func (s *Simulated) advanceLocked() {
	if s.pos < len(s.playlist)-1 {
		s.pos++
		s.startedAt = s.now()
	}
}

// Status reports the simulated snapshot, advancing past finished items so a
// long-running session cycles through its playlist like a real engine.
func (s *Simulated) Status() core.PlaybackStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	var position float64
	if s.playing {
		now := s.now()
		elapsed := now.Sub(s.startedAt).Seconds()
		advanced := false
		for elapsed >= s.itemSeconds && s.pos < len(s.playlist)-1 {
			elapsed -= s.itemSeconds
			s.pos++
			advanced = true
		}
		if advanced {
			// Back-date the new item's clock by the carried-over remainder
			// so repeated status calls do not restart it from zero.
			s.startedAt = now.Add(-time.Duration(elapsed * float64(time.Second)))
		}
		if elapsed > s.itemSeconds {
			elapsed = s.itemSeconds
		}
		position = elapsed
	}

	var current string
	if s.pos < len(s.playlist) {
		current = s.playlist[s.pos]
	}
	return core.PlaybackStatus{
		Playing:       s.playing && len(s.playlist) > 0,
		Paused:        !s.playing,
		Filename:      current,
		Position:      position,
		Duration:      s.itemSeconds,
		PlaylistCount: len(s.playlist),
		PlaylistPos:   s.pos,
	}
}

// QueueSeconds estimates remaining playtime with the same arithmetic as the
// real controller.
func (s *Simulated) QueueSeconds() float64 {
	status := s.Status()
	remaining := status.Remaining()
	if untouched := status.PlaylistCount - status.PlaylistPos - 1; untouched > 0 {
		remaining += float64(untouched) * s.itemSeconds
	}
	return remaining
}
