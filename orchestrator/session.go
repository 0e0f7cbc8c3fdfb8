package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/logging"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/narrative"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/selector"
)

var (
	// ErrNotStopped is returned by Start when the session is already live.
	ErrNotStopped = errors.New("session is not stopped")

	// ErrNotRunning is returned by Stop when there is nothing to stop.
	ErrNotRunning = errors.New("session is not running")
)

// Phase is a lifecycle state of a session.
type Phase int32

const (
	PhaseStopped Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseStopping
)

func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Options configures a session.
type Options struct {
	// Config tunes scheduler timing and sizing. Zero fields fall back to
	// DefaultConfig.
	Config Config

	// ID identifies the session in logs. Defaults to a random UUID.
	ID string

	// Rand seeds candidate sampling. Defaults to a time-seeded source.
	Rand *rand.Rand

	// Logger is the logger to use. Defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Session owns one playback run: it drives the engine, keeps the narrative
// state, and runs the background loop that keeps the queue topped up.
//
// A session moves through stopped -> starting -> running -> stopping ->
// stopped. All control methods are safe to call from any goroutine; the poll
// loop is the only writer of narrative history.
type Session struct {
	id       string
	cfg      Config
	manifest core.Manifest
	selector core.Selector
	player   core.Player
	logger   logging.Logger
	rand     *rand.Rand

	mu                 sync.Mutex
	phase              Phase
	inbox              []string
	queued             map[string]time.Time
	lastSeen           string
	narrative          *narrative.State
	suggestedDirection string
	played             int
	fills              int

	stopCh chan struct{}
	doneCh chan struct{}

	now func() time.Time
}

// New builds a stopped session around a manifest, a selector, and a player.
func New(manifest core.Manifest, sel core.Selector, player core.Player, optFns ...func(o *Options)) *Session {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Session{
		id:        opts.ID,
		cfg:       opts.Config.normalize(),
		manifest:  manifest,
		selector:  sel,
		player:    player,
		logger:    logging.OrDiscard(opts.Logger),
		rand:      opts.Rand,
		queued:    make(map[string]time.Time),
		narrative: narrative.NewState(),
		now:       time.Now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) transition(from, to Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != from {
		return false
	}
	s.phase = to
	return true
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// Start launches the engine, connects, runs a seed selection cycle, and
// spawns the poll loop. On any failure the session returns to stopped.
func (s *Session) Start() error {
	if !s.transition(PhaseStopped, PhaseStarting) {
		return ErrNotStopped
	}

	if err := s.player.StartEngine(); err != nil {
		s.setPhase(PhaseStopped)
		return fmt.Errorf("start engine: %w", err)
	}

	if err := s.player.Connect(); err != nil {
		s.player.StopEngine()
		s.setPhase(PhaseStopped)
		return fmt.Errorf("connect to engine: %w", err)
	}

	if _, err := s.fillCycle(); err != nil {
		s.player.StopEngine()
		s.setPhase(PhaseStopped)
		return fmt.Errorf("seed selection: %w", err)
	}

	s.player.Play()

	s.mu.Lock()
	s.phase = PhaseRunning
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.pollLoop(stopCh, doneCh)

	s.logger.Info("Session started", "id", s.id)

	return nil
}

// Stop signals the poll loop, waits for it to exit, and shuts the engine
// down.
func (s *Session) Stop() error {
	if !s.transition(PhaseRunning, PhaseStopping) {
		return ErrNotRunning
	}

	close(s.stopCh)

	select {
	case <-s.doneCh:
	case <-time.After(time.Duration(s.cfg.StopJoinTimeout)):
		s.logger.Warn("Poll loop did not exit before join timeout", "id", s.id)
	}

	s.player.StopEngine()
	s.setPhase(PhaseStopped)

	s.logger.Info("Session stopped", "id", s.id, "played", s.playedCount())

	return nil
}

func (s *Session) pollLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Duration(s.cfg.PollInterval))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// runCycle is one iteration of the background loop. Failures are logged and
// never kill the loop.
func (s *Session) runCycle() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Poll cycle panic", "id", s.id, "panic", r)
		}
	}()

	s.evictExpired()

	if s.player.QueueSeconds() < s.cfg.MinBufferSeconds {
		if _, err := s.fillCycle(); err != nil {
			s.logger.Error("Fill cycle failed", "id", s.id, "error", err)
		}
	}

	s.drainFeedback()
	s.reconcile()
}

// fillCycle asks the selector for more items and enqueues the valid ones.
// An empty eligible pool is not an error; the selector is simply not called.
func (s *Session) fillCycle() (int, error) {
	s.mu.Lock()
	exclude := make(map[string]bool, len(s.queued))
	for _, entry := range s.narrative.RecentlyPlayed() {
		exclude[entry.Filename] = true
	}
	for filename := range s.queued {
		exclude[filename] = true
	}
	queuedCount := len(s.queued)
	s.mu.Unlock()

	eligible := s.manifest.ListEligible(exclude)
	if len(eligible) == 0 {
		s.logger.Debug("No eligible items, skipping selection", "id", s.id)
		return 0, nil
	}

	sampled := selector.Sample(eligible, s.cfg.SampleCap, s.rand)

	candidates := make([]core.ItemContext, 0, len(sampled))
	for _, item := range sampled {
		candidates = append(candidates, item.Context())
	}

	s.mu.Lock()
	sctx := s.narrative.SnapshotContext(s.cfg.ContextWindow, queuedCount)
	s.mu.Unlock()

	result, err := s.selector.Select(context.Background(), core.SelectionRequest{
		Context:    sctx,
		Candidates: candidates,
		Count:      s.cfg.ItemsPerSelection,
	})
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, sel := range result.Selections {
		item, ok := s.manifest.Lookup(sel.Filename)
		if !ok {
			s.logger.Warn("Dropping selection unknown to manifest", "id", s.id, "filename", sel.Filename)
			continue
		}

		if !s.player.Enqueue(item.Filename, false) {
			s.logger.Warn("Engine rejected enqueue", "id", s.id, "filename", item.Filename)
			continue
		}

		deadline := s.now().Add(s.queueTTL(item))
		s.mu.Lock()
		s.queued[item.Filename] = deadline
		s.mu.Unlock()

		enqueued++
		s.logger.Info("Queued item", "id", s.id, "filename", item.Filename, "reasoning", sel.Reasoning)
	}

	if result.NarrativeNote != "" {
		s.logger.Info("Narrative note", "id", s.id, "note", result.NarrativeNote)
	}
	// The suggestion is advisory only: direction changes come from explicit
	// SetDirection calls or the feedback keyword table, never from the model.
	if result.SuggestedDirection != "" {
		s.mu.Lock()
		s.suggestedDirection = result.SuggestedDirection
		s.mu.Unlock()
		s.logger.Info("Selector suggested direction", "id", s.id, "direction", result.SuggestedDirection)
	}

	s.mu.Lock()
	s.fills++
	s.mu.Unlock()

	return enqueued, nil
}

// queueTTL is how long a queued entry may sit unplayed before it is aged
// out. Entries the engine silently drops would otherwise stay excluded from
// selection forever.
func (s *Session) queueTTL(item *core.Item) time.Duration {
	seconds := item.Duration
	if seconds < s.cfg.AssumedItemSeconds {
		seconds = s.cfg.AssumedItemSeconds
	}
	return time.Duration(seconds * s.cfg.QueueTTLMultiplier * float64(time.Second))
}

func (s *Session) evictExpired() {
	now := s.now()

	s.mu.Lock()
	var expired []string
	for filename, deadline := range s.queued {
		if now.After(deadline) {
			delete(s.queued, filename)
			expired = append(expired, filename)
		}
	}
	s.mu.Unlock()

	for _, filename := range expired {
		s.logger.Warn("Evicting stale queued entry", "id", s.id, "filename", filename)
	}
}

// drainFeedback consumes the whole inbox atomically and folds it into the
// narrative state, so the next fill cycle sees it.
func (s *Session) drainFeedback() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.inbox) == 0 {
		return
	}

	batch := s.inbox
	s.inbox = nil

	for _, text := range batch {
		s.narrative.RecordFeedback(text)
		if direction, ok := narrative.InferDirection(text); ok {
			s.narrative.SetDirection(direction)
			s.logger.Info("Feedback shifted direction", "id", s.id, "direction", direction)
		}
	}
}

// reconcile compares the engine's current item against the queued set and
// records a transition into a queued item as a play.
func (s *Session) reconcile() {
	status := s.player.Status()
	current := status.Filename

	s.mu.Lock()
	defer s.mu.Unlock()

	if current == "" || current == s.lastSeen {
		return
	}
	s.lastSeen = current

	if _, ok := s.queued[current]; !ok {
		return
	}
	delete(s.queued, current)

	if item, found := s.manifest.Lookup(current); found {
		s.narrative.RecordPlayed(item)
	}
	s.played++
}

// AddFeedback queues a line of viewer feedback for the next poll cycle.
func (s *Session) AddFeedback(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	s.inbox = append(s.inbox, text)
	s.mu.Unlock()
	s.logger.Debug("Feedback received", "id", s.id, "text", text)
}

// SetCoherence adjusts how tightly selections should follow the established
// thread. Values are clamped to [0, 1].
func (s *Session) SetCoherence(level float64) {
	s.mu.Lock()
	s.narrative.SetCoherence(level)
	s.mu.Unlock()
}

// SetDirection overrides the narrative direction.
func (s *Session) SetDirection(direction string) {
	s.mu.Lock()
	s.narrative.SetDirection(direction)
	s.mu.Unlock()
}

// Pause pauses playback.
func (s *Session) Pause() bool {
	return s.player.Pause()
}

// Resume resumes playback.
func (s *Session) Resume() bool {
	return s.player.Play()
}

// Skip jumps to the next queued item.
func (s *Session) Skip() bool {
	return s.player.Next()
}

func (s *Session) playedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.played
}

// Summary is a point-in-time snapshot of a session for status displays.
type Summary struct {
	ID             string
	Phase          string
	Playing        bool
	Paused         bool
	CurrentItem    string
	Position       float64
	Duration       float64
	BufferSeconds  float64
	QueuedCount    int
	PlayedCount    int
	FillCycles     int
	CoherenceLevel float64
	Direction      string

	// SuggestedDirection is the selector's latest advisory hint; it is
	// surfaced here but never applied to the narrative state.
	SuggestedDirection string

	MoodTrajectory []string
}

// StateSummary gathers playback telemetry and narrative state into one
// snapshot.
func (s *Session) StateSummary() Summary {
	status := s.player.Status()
	buffer := s.player.QueueSeconds()

	s.mu.Lock()
	defer s.mu.Unlock()

	moods := s.narrative.MoodTrajectory()
	if len(moods) > 5 {
		moods = moods[len(moods)-5:]
	}

	return Summary{
		ID:                 s.id,
		Phase:              s.phase.String(),
		Playing:            status.Playing,
		Paused:             status.Paused,
		CurrentItem:        status.Filename,
		Position:           status.Position,
		Duration:           status.Duration,
		BufferSeconds:      buffer,
		QueuedCount:        len(s.queued),
		PlayedCount:        s.played,
		FillCycles:         s.fills,
		CoherenceLevel:     s.narrative.Coherence(),
		Direction:          s.narrative.Direction(),
		SuggestedDirection: s.suggestedDirection,
		MoodTrajectory:     moods,
	}
}
