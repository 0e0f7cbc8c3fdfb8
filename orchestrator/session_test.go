package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/internal/testutil"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/logging"
)

type fakePlayer struct {
	mu           sync.Mutex
	startErr     error
	connectErr   error
	enqueueOK    bool
	enqueued     []string
	queueSeconds float64
	status       core.PlaybackStatus
	stopped      bool
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{enqueueOK: true}
}

func (p *fakePlayer) StartEngine() error { return p.startErr }

func (p *fakePlayer) StopEngine() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func (p *fakePlayer) Connect() error { return p.connectErr }

func (p *fakePlayer) Enqueue(filename string, replace bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enqueueOK {
		return false
	}
	p.enqueued = append(p.enqueued, filename)
	return true
}

func (p *fakePlayer) Status() core.PlaybackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *fakePlayer) QueueSeconds() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queueSeconds
}

func (p *fakePlayer) Play() bool  { return true }
func (p *fakePlayer) Pause() bool { return true }
func (p *fakePlayer) Next() bool  { return true }

func (p *fakePlayer) setCurrent(filename string) {
	p.mu.Lock()
	p.status.Filename = filename
	p.mu.Unlock()
}

func (p *fakePlayer) enqueuedFiles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.enqueued...)
}

type fakeSelector struct {
	mu      sync.Mutex
	result  *core.SelectionResult
	err     error
	calls   int
	lastReq core.SelectionRequest
}

func (f *fakeSelector) Select(_ context.Context, req core.SelectionRequest) (*core.SelectionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &core.SelectionResult{}, nil
}

func (f *fakeSelector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type warnRecorder struct {
	logging.NoOpLogger
	mu    sync.Mutex
	warns []string
}

func (w *warnRecorder) Warn(msg string, keysAndValues ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warns = append(w.warns, fmt.Sprint(append([]any{msg}, keysAndValues...)...))
}

func (w *warnRecorder) warnsContaining(substr string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, entry := range w.warns {
		if strings.Contains(entry, substr) {
			n++
		}
	}
	return n
}

func selectResult(filenames ...string) *core.SelectionResult {
	res := &core.SelectionResult{}
	for _, fn := range filenames {
		res.Selections = append(res.Selections, core.Selection{Filename: fn, Reasoning: "fits"})
	}
	return res
}

func testSession(t *testing.T, manifest core.Manifest, sel core.Selector, player core.Player, optFns ...func(o *Options)) *Session {
	t.Helper()
	return New(manifest, sel, player, optFns...)
}

func TestFillCycle_EmptyPoolSkipsSelector(t *testing.T) {
	items := testutil.Items("clip", 3, nil)
	sel := &fakeSelector{}
	player := newFakePlayer()
	s := testSession(t, testutil.NewStaticManifest(items...), sel, player)

	// Everything already queued: nothing is eligible.
	deadline := time.Now().Add(time.Hour)
	for _, item := range items {
		s.queued[item.Filename] = deadline
	}

	enqueued, err := s.fillCycle()
	require.NoError(t, err)
	assert.Zero(t, enqueued)
	assert.Zero(t, sel.callCount())
	assert.Empty(t, player.enqueuedFiles())
	assert.Len(t, s.queued, 3)
}

func TestFillCycle_DropsUnknownSelections(t *testing.T) {
	items := testutil.Items("clip", 5, nil)
	sel := &fakeSelector{result: selectResult("clip_001.mp4", "ghost.mp4")}
	player := newFakePlayer()
	logger := &warnRecorder{}
	s := testSession(t, testutil.NewStaticManifest(items...), sel, player, func(o *Options) {
		o.Logger = logger
	})

	enqueued, err := s.fillCycle()
	require.NoError(t, err)

	assert.Equal(t, 1, enqueued)
	assert.Equal(t, []string{"clip_001.mp4"}, player.enqueuedFiles())
	assert.Equal(t, 1, logger.warnsContaining("ghost.mp4"))

	_, queued := s.queued["clip_001.mp4"]
	assert.True(t, queued)
	_, queued = s.queued["ghost.mp4"]
	assert.False(t, queued)
}

func TestFillCycle_ExcludesQueuedAndRecent(t *testing.T) {
	items := testutil.Items("clip", 4, nil)
	sel := &fakeSelector{}
	s := testSession(t, testutil.NewStaticManifest(items...), sel, newFakePlayer())

	s.queued["clip_000.mp4"] = time.Now().Add(time.Hour)
	s.narrative.RecordPlayed(items[1]) // clip_001.mp4

	_, err := s.fillCycle()
	require.NoError(t, err)
	require.Equal(t, 1, sel.callCount())

	var offered []string
	for _, c := range sel.lastReq.Candidates {
		offered = append(offered, c.Filename)
	}
	assert.ElementsMatch(t, []string{"clip_002.mp4", "clip_003.mp4"}, offered)
	assert.Equal(t, 1, sel.lastReq.Context.QueuedCount)
}

func TestFillCycle_SuggestionLeavesDirectionIntact(t *testing.T) {
	items := testutil.Items("clip", 3, nil)
	sel := &fakeSelector{result: &core.SelectionResult{
		Selections:         []core.Selection{{Filename: "clip_000.mp4"}},
		SuggestedDirection: "wherever the model wants to go",
	}}
	s := testSession(t, testutil.NewStaticManifest(items...), sel, newFakePlayer())

	s.SetDirection("neon noir")

	_, err := s.fillCycle()
	require.NoError(t, err)

	// The suggestion is surfaced but advisory; only SetDirection and the
	// feedback keyword table may change the direction.
	assert.Equal(t, "neon noir", s.narrative.Direction())
	summary := s.StateSummary()
	assert.Equal(t, "neon noir", summary.Direction)
	assert.Equal(t, "wherever the model wants to go", summary.SuggestedDirection)
}

func TestFillCycle_SelectorErrorPropagates(t *testing.T) {
	items := testutil.Items("clip", 2, nil)
	sel := &fakeSelector{err: errors.New("model unavailable")}
	s := testSession(t, testutil.NewStaticManifest(items...), sel, newFakePlayer())

	_, err := s.fillCycle()
	assert.Error(t, err)
	assert.Empty(t, s.queued)
}

func TestReconcile_MovesQueuedToPlayed(t *testing.T) {
	items := testutil.Items("clip", 2, func(i int, b *testutil.ItemBuilder) {
		b.Mood("dreamy")
	})
	player := newFakePlayer()
	s := testSession(t, testutil.NewStaticManifest(items...), &fakeSelector{}, player)

	deadline := time.Now().Add(time.Hour)
	s.queued["clip_000.mp4"] = deadline
	s.queued["clip_001.mp4"] = deadline

	player.setCurrent("clip_000.mp4")
	s.reconcile()

	assert.Len(t, s.queued, 1)
	_, stillQueued := s.queued["clip_001.mp4"]
	assert.True(t, stillQueued)

	recent := s.narrative.RecentlyPlayed()
	require.Len(t, recent, 1)
	assert.Equal(t, "clip_000.mp4", recent[0].Filename)
	assert.Equal(t, 1, s.played)

	// Same current item again: no double counting.
	s.reconcile()
	assert.Equal(t, 1, s.played)
	assert.Len(t, s.narrative.RecentlyPlayed(), 1)
}

func TestReconcile_IgnoresUnqueuedCurrent(t *testing.T) {
	player := newFakePlayer()
	s := testSession(t, testutil.NewStaticManifest(), &fakeSelector{}, player)

	player.setCurrent("outsider.mp4")
	s.reconcile()

	assert.Zero(t, s.played)
	assert.Empty(t, s.narrative.RecentlyPlayed())
}

func TestDrainFeedback_UpdatesStateAndDirection(t *testing.T) {
	s := testSession(t, testutil.NewStaticManifest(), &fakeSelector{}, newFakePlayer())

	s.AddFeedback("make it darker")
	s.AddFeedback("love this one")

	s.drainFeedback()

	assert.Empty(t, s.inbox)
	assert.Equal(t, "exploring darker themes", s.narrative.Direction())

	sctx := s.narrative.SnapshotContext(5, 0)
	assert.Equal(t, []string{"make it darker", "love this one"}, sctx.RecentFeedback)
}

func TestDrainFeedback_SeenByNextFill(t *testing.T) {
	items := testutil.Items("clip", 3, nil)
	sel := &fakeSelector{}
	s := testSession(t, testutil.NewStaticManifest(items...), sel, newFakePlayer())

	s.AddFeedback("slower please")
	s.drainFeedback()

	_, err := s.fillCycle()
	require.NoError(t, err)
	assert.Equal(t, "slowing down, contemplative", sel.lastReq.Context.Direction)
}

func TestEvictExpired_RestoresEligibility(t *testing.T) {
	items := testutil.Items("clip", 2, nil)
	sel := &fakeSelector{}
	logger := &warnRecorder{}
	s := testSession(t, testutil.NewStaticManifest(items...), sel, newFakePlayer(), func(o *Options) {
		o.Logger = logger
	})

	now := time.Now()
	s.now = func() time.Time { return now }

	s.queued["clip_000.mp4"] = now.Add(-time.Second)
	s.queued["clip_001.mp4"] = now.Add(time.Hour)

	s.evictExpired()

	assert.Len(t, s.queued, 1)
	assert.Equal(t, 1, logger.warnsContaining("clip_000.mp4"))

	_, err := s.fillCycle()
	require.NoError(t, err)

	var offered []string
	for _, c := range sel.lastReq.Candidates {
		offered = append(offered, c.Filename)
	}
	assert.Contains(t, offered, "clip_000.mp4")
	assert.NotContains(t, offered, "clip_001.mp4")
}

func TestQueueTTL_UsesAssumedFloor(t *testing.T) {
	s := testSession(t, testutil.NewStaticManifest(), &fakeSelector{}, newFakePlayer())

	long := testutil.NewItem("long.mp4").Duration(20).Build()
	assert.Equal(t, 60*time.Second, s.queueTTL(long))

	short := testutil.NewItem("short.mp4").Duration(2).Build()
	assert.Equal(t, 24*time.Second, s.queueTTL(short))
}

func TestStart_EngineFailureReturnsToStopped(t *testing.T) {
	player := newFakePlayer()
	player.startErr = errors.New("binary not found")
	s := testSession(t, testutil.NewStaticManifest(), &fakeSelector{}, player)

	err := s.Start()
	assert.Error(t, err)
	assert.Equal(t, PhaseStopped, s.Phase())
}

func TestStart_SeedSelectionFailureStopsEngine(t *testing.T) {
	items := testutil.Items("clip", 2, nil)
	player := newFakePlayer()
	sel := &fakeSelector{err: errors.New("model unavailable")}
	s := testSession(t, testutil.NewStaticManifest(items...), sel, player)

	err := s.Start()
	assert.Error(t, err)
	assert.Equal(t, PhaseStopped, s.Phase())
	assert.True(t, player.stopped)
}

func TestStart_WhileRunningFails(t *testing.T) {
	items := testutil.Items("clip", 3, nil)
	player := newFakePlayer()
	player.queueSeconds = 100 // keep the loop idle
	s := testSession(t, testutil.NewStaticManifest(items...), &fakeSelector{}, player, func(o *Options) {
		o.Config.PollInterval = Duration(10 * time.Millisecond)
	})

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, PhaseRunning, s.Phase())
	assert.ErrorIs(t, s.Start(), ErrNotStopped)
}

func TestStop_WhenStoppedFails(t *testing.T) {
	s := testSession(t, testutil.NewStaticManifest(), &fakeSelector{}, newFakePlayer())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
}

func TestSession_LifecycleFillsWhenBufferLow(t *testing.T) {
	items := testutil.Items("clip", 10, nil)
	sel := &fakeSelector{result: selectResult("clip_005.mp4")}
	player := newFakePlayer()
	s := testSession(t, testutil.NewStaticManifest(items...), sel, player, func(o *Options) {
		o.Config.PollInterval = Duration(5 * time.Millisecond)
	})

	require.NoError(t, s.Start())

	// Seed cycle runs during Start; the loop keeps filling while the
	// buffer estimate stays under the low-water mark.
	deadline := time.Now().Add(2 * time.Second)
	for sel.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.GreaterOrEqual(t, sel.callCount(), 2)

	require.NoError(t, s.Stop())
	assert.Equal(t, PhaseStopped, s.Phase())
	assert.True(t, player.stopped)
}

func TestRunCycle_SurvivesSelectorError(t *testing.T) {
	items := testutil.Items("clip", 2, nil)
	sel := &fakeSelector{err: errors.New("transient failure")}
	s := testSession(t, testutil.NewStaticManifest(items...), sel, newFakePlayer())

	s.runCycle()
	s.runCycle()

	assert.Equal(t, 2, sel.callCount())
}

func TestStateSummary(t *testing.T) {
	items := testutil.Items("clip", 3, func(i int, b *testutil.ItemBuilder) {
		b.Mood(fmt.Sprintf("mood%d", i))
	})
	player := newFakePlayer()
	player.queueSeconds = 21
	player.status = core.PlaybackStatus{
		Playing:  true,
		Filename: "clip_001.mp4",
		Position: 3,
		Duration: 8,
	}

	s := testSession(t, testutil.NewStaticManifest(items...), &fakeSelector{}, player)
	s.SetCoherence(0.8)
	s.SetDirection("neon noir")
	for _, item := range items {
		s.narrative.RecordPlayed(item)
	}
	s.played = 3

	summary := s.StateSummary()
	assert.Equal(t, "stopped", summary.Phase)
	assert.True(t, summary.Playing)
	assert.Equal(t, "clip_001.mp4", summary.CurrentItem)
	assert.Equal(t, 21.0, summary.BufferSeconds)
	assert.Equal(t, 3, summary.PlayedCount)
	assert.Equal(t, 0.8, summary.CoherenceLevel)
	assert.Equal(t, "neon noir", summary.Direction)
	assert.Equal(t, []string{"mood0", "mood1", "mood2"}, summary.MoodTrajectory)
}
