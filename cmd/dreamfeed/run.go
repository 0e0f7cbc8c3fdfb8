package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TeeKay-FourTwentyOne/dreamfeed"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/logging"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/orchestrator"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/selector"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/selector/anthropic"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/selector/openai"
)

type runFlags struct {
	manifestPath string
	mediaDir     string
	configPath   string
	socketPath   string
	provider     string
	model        string
	coherence    float64
	direction    string
	dummy        bool
	fullscreen   bool
	verbose      bool
}

func newRunCmd() *cobra.Command {
	flags := runFlags{coherence: -1}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the feed and steer it interactively",
		Long:  "Starts playback and an interactive prompt. Plain text becomes viewer feedback; lines starting with / are commands (/help lists them).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.manifestPath, "manifest", "m", "", "path to the analysis manifest (required)")
	cmd.Flags().StringVarP(&flags.mediaDir, "media-dir", "d", "", "directory holding the media files")
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "YAML scheduler config file")
	cmd.Flags().StringVar(&flags.socketPath, "socket", "", "engine control socket path override")
	cmd.Flags().StringVar(&flags.provider, "provider", "anthropic", "selection model provider (anthropic or openai)")
	cmd.Flags().StringVar(&flags.model, "model", "", "selection model name override")
	cmd.Flags().Float64Var(&flags.coherence, "coherence", -1, "initial coherence level in [0,1]")
	cmd.Flags().StringVar(&flags.direction, "direction", "", "initial narrative direction")
	cmd.Flags().BoolVar(&flags.dummy, "dummy", false, "simulate playback without an engine")
	cmd.Flags().BoolVar(&flags.fullscreen, "fullscreen", false, "start the engine in fullscreen")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "log scheduler activity")

	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func buildModel(provider, name string) (selector.Model, error) {
	switch provider {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if name != "" {
				o.Model = anthropicsdk.Model(name)
			}
		}), nil
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if name != "" {
				o.Model = name
			}
		})
	default:
		return nil, fmt.Errorf("unknown provider %q (want anthropic or openai)", provider)
	}
}

func runFeed(flags runFlags) error {
	cfg := orchestrator.DefaultConfig
	if flags.configPath != "" {
		loaded, err := orchestrator.LoadConfig(flags.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	model, err := buildModel(flags.provider, flags.model)
	if err != nil {
		return err
	}

	var logger logging.Logger = logging.NoOpLogger{}
	if flags.verbose {
		logger = logging.NewLogger(&logging.LoggerConfig{
			Level:  logging.LogLevelDebug,
			Format: "text",
			Output: os.Stderr,
		})
	}

	feed, err := dreamfeed.New(func(o *dreamfeed.Options) {
		o.ManifestPath = flags.manifestPath
		o.MediaDir = flags.mediaDir
		o.SocketPath = flags.socketPath
		o.Fullscreen = flags.fullscreen
		o.Dummy = flags.dummy
		o.Config = cfg
		o.Model = model
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	if flags.coherence >= 0 {
		feed.SetCoherence(flags.coherence)
	}
	if flags.direction != "" {
		feed.SetDirection(flags.direction)
	}

	if err := feed.Start(); err != nil {
		return err
	}
	defer func() { _ = feed.Stop() }()

	color.Cyan("dreamfeed is playing. Type feedback, /help for commands, /quit to exit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-sigCh:
			color.Yellow("shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(feed, line); quit {
				return nil
			}
		}
	}
}

// handleLine dispatches one prompt line and reports whether to exit.
func handleLine(feed *dreamfeed.Feed, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		feed.AddFeedback(line)
		color.Green("feedback noted")
		return false
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		printHelp()
	case "/status":
		printSummary(feed.Summary())
	case "/pause":
		feed.Pause()
	case "/play", "/resume":
		feed.Resume()
	case "/next", "/skip":
		feed.Skip()
	case "/coherence":
		if len(args) != 1 {
			color.Red("usage: /coherence <0..1>")
			break
		}
		level, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			color.Red("not a number: %s", args[0])
			break
		}
		feed.SetCoherence(level)
		color.Green("coherence set to %.2f", feed.Summary().CoherenceLevel)
	case "/direction":
		if len(args) == 0 {
			color.Red("usage: /direction <text>")
			break
		}
		direction := strings.Join(args, " ")
		feed.SetDirection(direction)
		color.Green("direction set to %q", direction)
	default:
		color.Red("unknown command %s (try /help)", cmd)
	}

	return false
}

func printHelp() {
	fmt.Println(`Plain text is treated as viewer feedback.

Commands:
  /status            show playback and narrative state
  /pause             pause playback
  /play              resume playback
  /next              skip to the next item
  /coherence <0..1>  how tightly selections follow the thread
  /direction <text>  override the narrative direction
  /quit              stop the feed and exit`)
}

func printSummary(s orchestrator.Summary) {
	bold := color.New(color.Bold)

	state := "paused"
	if s.Playing && !s.Paused {
		state = "playing"
	}
	bold.Printf("%s", s.Phase)
	if s.CurrentItem != "" {
		fmt.Printf(" | %s %s (%.0fs/%.0fs)", state, s.CurrentItem, s.Position, s.Duration)
	}
	fmt.Printf("\nbuffer %.0fs | queued %d | played %d | fills %d\n",
		s.BufferSeconds, s.QueuedCount, s.PlayedCount, s.FillCycles)
	fmt.Printf("coherence %.2f | direction %q\n", s.CoherenceLevel, s.Direction)
	if len(s.MoodTrajectory) > 0 {
		fmt.Printf("moods: %s\n", strings.Join(s.MoodTrajectory, " -> "))
	}
}
