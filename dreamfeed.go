// Package dreamfeed provides a high-level façade over the manifest index,
// the playback engine, the selection collaborator, and the orchestrator
// session. Most applications interact with this package by:
//  1. Creating a Feed via New() with a manifest path and a selection model
//  2. Calling Start() to launch playback and the background scheduler
//  3. Steering the feed with AddFeedback, SetCoherence, and SetDirection
//
// The façade delegates scheduling to orchestrator.Session while keeping
// setup concise. Defaults are safe for local use: a real engine controller
// on a temp-dir socket, or a simulated player when Dummy is set.
package dreamfeed

import (
	"errors"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/logging"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/manifest"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/orchestrator"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/playback"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/selector"
)

// ErrNoSelector is returned by New when neither a model nor a selector is
// provided.
var ErrNoSelector = errors.New("dreamfeed: a selection model or selector is required")

// Options configures a Feed.
type Options struct {
	// ManifestPath locates the analysis manifest. Ignored when Manifest is
	// set.
	ManifestPath string

	// MediaDir is the directory holding the media files the manifest
	// describes. Enqueued identifiers are resolved against it.
	MediaDir string

	// SocketPath overrides the engine control socket location.
	SocketPath string

	// Fullscreen starts the engine in fullscreen mode.
	Fullscreen bool

	// Dummy swaps the real engine for a wall-clock simulated player, so
	// the feed can run without media or an engine binary.
	Dummy bool

	// Config tunes the scheduler.
	Config orchestrator.Config

	// Model is the language model used for selection. Required unless
	// Selector is set.
	Model selector.Model

	// Manifest overrides manifest loading with a prebuilt index.
	Manifest core.Manifest

	// Selector overrides the default LLM selector.
	Selector core.Selector

	// Player overrides the playback engine.
	Player core.Player

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Feed is the high-level façade aggregating the session and its services.
type Feed struct {
	opts     Options
	manifest core.Manifest
	session  *orchestrator.Session
}

// New assembles a Feed. Any unset collaborator is initialized with its
// default implementation.
func New(optFns ...func(o *Options)) (*Feed, error) {
	opts := Options{
		Config: orchestrator.DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrDiscard(opts.Logger)

	index := opts.Manifest
	if index == nil {
		loaded, err := manifest.Load(opts.ManifestPath, func(o *manifest.Options) {
			o.MediaDir = opts.MediaDir
			o.Logger = logger
		})
		if err != nil {
			return nil, err
		}
		index = loaded
	}

	sel := opts.Selector
	if sel == nil {
		if opts.Model == nil {
			return nil, ErrNoSelector
		}
		sel = selector.NewLLMSelector(opts.Model, index, func(o *selector.Options) {
			o.Logger = logger
		})
	}

	player := opts.Player
	if player == nil {
		if opts.Dummy {
			player = playback.NewSimulated(opts.Config.AssumedItemSeconds, logger)
		} else {
			player = playback.NewController(func(o *playback.Options) {
				o.MediaDir = opts.MediaDir
				o.Fullscreen = opts.Fullscreen
				if opts.SocketPath != "" {
					o.SocketPath = opts.SocketPath
				}
				o.Logger = logger
			})
		}
	}

	session := orchestrator.New(index, sel, player, func(o *orchestrator.Options) {
		o.Config = opts.Config
		o.Logger = logger
	})

	return &Feed{
		opts:     opts,
		manifest: index,
		session:  session,
	}, nil
}

// Start launches the engine and the background scheduler.
func (f *Feed) Start() error {
	return f.session.Start()
}

// Stop shuts the scheduler and the engine down.
func (f *Feed) Stop() error {
	return f.session.Stop()
}

// AddFeedback queues a line of viewer feedback for the next scheduling
// cycle.
func (f *Feed) AddFeedback(text string) {
	f.session.AddFeedback(text)
}

// SetCoherence adjusts selection coherence; values are clamped to [0, 1].
func (f *Feed) SetCoherence(level float64) {
	f.session.SetCoherence(level)
}

// SetDirection overrides the narrative direction.
func (f *Feed) SetDirection(direction string) {
	f.session.SetDirection(direction)
}

// Pause pauses playback.
func (f *Feed) Pause() bool { return f.session.Pause() }

// Resume resumes playback.
func (f *Feed) Resume() bool { return f.session.Resume() }

// Skip advances to the next queued item.
func (f *Feed) Skip() bool { return f.session.Skip() }

// Summary returns a point-in-time snapshot of the session.
func (f *Feed) Summary() orchestrator.Summary {
	return f.session.StateSummary()
}

// Session exposes the underlying session.
func (f *Feed) Session() *orchestrator.Session {
	return f.session
}

// Manifest exposes the loaded manifest index.
func (f *Feed) Manifest() core.Manifest {
	return f.manifest
}
