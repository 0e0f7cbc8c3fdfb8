package playback

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
	"github.com/TeeKay-FourTwentyOne/dreamfeed/logging"
)

var (
	// ErrConnect indicates the engine's IPC endpoint is absent or refused the
	// connection. Fatal to session startup, recoverable by retrying.
	ErrConnect = errors.New("playback engine connection failed")

	// ErrTimeout indicates a single command did not see a complete response
	// frame within the configured window. Local to that command; the cached
	// connection is invalidated and the next call reconnects.
	ErrTimeout = errors.New("playback engine command timed out")

	// ErrEngineStart indicates the engine process could not be spawned or its
	// IPC endpoint never appeared.
	ErrEngineStart = errors.New("playback engine failed to start")
)

// Options configures a Controller.
type Options struct {
	// SocketPath is the unix socket the engine serves its JSON IPC on.
	SocketPath string

	// MediaDir is the base directory item filenames are resolved against.
	MediaDir string

	// EnginePath is the engine binary. Defaults to "mpv".
	EnginePath string

	// ExtraArgs are appended to the engine command line.
	ExtraArgs []string

	// Fullscreen starts the engine's window fullscreen.
	Fullscreen bool

	// CommandTimeout bounds the wait for one response frame.
	CommandTimeout time.Duration

	// AssumedItemSeconds is the average duration assumed for queued playlist
	// entries whose true duration has not been queried.
	AssumedItemSeconds float64

	// SocketWaitAttempts and SocketWaitInterval bound how long StartEngine
	// polls for the socket to appear.
	SocketWaitAttempts int
	SocketWaitInterval time.Duration

	// Logger receives command diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Controller drives an external mpv process over its line-delimited JSON IPC
// socket. All socket access is serialized internally, so the control surface
// and the scheduler's poll goroutine may share one Controller.
type Controller struct {
	opts   Options
	logger logging.Logger

	mu     sync.Mutex // guards conn, reader and proc
	conn   net.Conn
	reader *bufio.Reader
	proc   *exec.Cmd
}

// NewController builds a Controller with default IPC tuning: 2s command
// timeout, 8s assumed item duration, 50 x 100ms socket wait.
func NewController(optFns ...func(o *Options)) *Controller {
	opts := Options{
		SocketPath:         filepath.Join(os.TempDir(), "dreamfeed-mpv.sock"),
		EnginePath:         "mpv",
		CommandTimeout:     2 * time.Second,
		AssumedItemSeconds: 8,
		SocketWaitAttempts: 50,
		SocketWaitInterval: 100 * time.Millisecond,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Controller{opts: opts, logger: logging.OrDiscard(opts.Logger)}
}

// request is the one-object-per-line command frame.
type request struct {
	Command []any `json:"command"`
}

// response is the engine's reply envelope. Error is "success" on success.
type response struct {
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

func (r *response) ok() bool { return r != nil && r.Error == "success" }

// StartEngine spawns the engine with IPC enabled and waits for the socket to
// appear. A stale socket file from a previous run is removed first so the new
// process is never blocked by a leftover artifact.
func (c *Controller) StartEngine() error {
	c.removeSocket()

	args := []string{
		"--idle",
		"--input-ipc-server=" + c.opts.SocketPath,
		"--keep-open=yes",
		"--force-window=yes",
	}
	if c.opts.Fullscreen {
		args = append(args, "--fullscreen")
	}
	args = append(args, c.opts.ExtraArgs...)

	cmd := exec.Command(c.opts.EnginePath, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineStart, err)
	}

	for i := 0; i < c.opts.SocketWaitAttempts; i++ {
		time.Sleep(c.opts.SocketWaitInterval)
		if _, err := os.Stat(c.opts.SocketPath); err == nil {
			c.mu.Lock()
			c.proc = cmd
			c.mu.Unlock()
			c.logger.Info("Engine started", "socket", c.opts.SocketPath)
			return nil
		}
	}

	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	return fmt.Errorf("%w: socket %s never appeared", ErrEngineStart, c.opts.SocketPath)
}

// StopEngine disconnects, terminates the engine process and removes the
// socket file.
func (c *Controller) StopEngine() {
	c.Disconnect()

	c.mu.Lock()
	proc := c.proc
	c.proc = nil
	c.mu.Unlock()

	if proc != nil && proc.Process != nil {
		_ = proc.Process.Signal(syscall.SIGTERM)
		done := make(chan struct{})
		go func() {
			_ = proc.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = proc.Process.Kill()
			<-done
		}
	}

	c.removeSocket()
	c.logger.Info("Engine stopped")
}

func (c *Controller) removeSocket() {
	if err := os.Remove(c.opts.SocketPath); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("Could not remove stale socket", "path", c.opts.SocketPath, "error", err)
	}
}

// Connect opens the IPC socket if not already open. Idempotent; safe to retry
// after failure.
func (c *Controller) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Controller) connectLocked() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.Dial("unix", c.opts.SocketPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Disconnect closes the IPC socket if open.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

func (c *Controller) invalidateLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

// sendCommand writes one command frame and waits for one newline-terminated
// response frame, reassembling partial reads. Any socket, timeout or parse
// failure invalidates the cached connection (the next call reconnects) and
// surfaces as an error; callers must treat that as "the command may or may
// not have taken effect" and proceed.
func (c *Controller) sendCommand(args ...any) (*response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	verb := fmt.Sprint(args[0])
	resp, err := c.sendCommandLocked(args)
	logging.IPCCommand(c.logger, verb, time.Since(start), err)
	return resp, err
}

func (c *Controller) sendCommandLocked(args []any) (*response, error) {
	if err := c.connectLocked(); err != nil {
		return nil, err
	}

	frame, err := json.Marshal(request{Command: args})
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}
	frame = append(frame, '\n')

	deadline := time.Now().Add(c.opts.CommandTimeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.invalidateLocked()
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if _, err := c.conn.Write(frame); err != nil {
		c.invalidateLocked()
		return nil, fmt.Errorf("write command: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		c.invalidateLocked()
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		c.invalidateLocked()
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}

// getProperty issues a property query and unwraps the data payload. It
// returns nil on any error envelope or transport failure, never an error.
func (c *Controller) getProperty(name string) json.RawMessage {
	resp, err := c.sendCommand("get_property", name)
	if err != nil || !resp.ok() {
		return nil
	}
	return resp.Data
}

func (c *Controller) propBool(name string) bool {
	var v bool
	if raw := c.getProperty(name); raw != nil {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (c *Controller) propString(name string) string {
	var v string
	if raw := c.getProperty(name); raw != nil {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (c *Controller) propFloat(name string) float64 {
	var v float64
	if raw := c.getProperty(name); raw != nil {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (c *Controller) propInt(name string) int {
	var v int
	if raw := c.getProperty(name); raw != nil {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

// setProperty issues a property write and reports engine acknowledgement.
func (c *Controller) setProperty(name string, value any) bool {
	resp, _ := c.sendCommand("set_property", name, value)
	return resp.ok()
}

// FullPath resolves an item filename underneath the configured media dir.
func (c *Controller) FullPath(filename string) string {
	if c.opts.MediaDir != "" {
		return filepath.Join(c.opts.MediaDir, filename)
	}
	return filename
}

// Enqueue appends the item to the engine playlist, or replaces the current
// item when replace is set, and reports whether the engine acknowledged it.
func (c *Controller) Enqueue(filename string, replace bool) bool {
	mode := "append"
	if replace {
		mode = "replace"
	}
	resp, _ := c.sendCommand("loadfile", c.FullPath(filename), mode)
	return resp.ok()
}

// ClearPlaylist removes every queued entry.
func (c *Controller) ClearPlaylist() bool {
	resp, _ := c.sendCommand("playlist-clear")
	return resp.ok()
}

// Play resumes playback.
func (c *Controller) Play() bool { return c.setProperty("pause", false) }

// Pause pauses playback.
func (c *Controller) Pause() bool { return c.setProperty("pause", true) }

// Next skips to the next playlist entry.
func (c *Controller) Next() bool {
	resp, _ := c.sendCommand("playlist-next")
	return resp.ok()
}

// Prev steps back to the previous playlist entry.
func (c *Controller) Prev() bool {
	resp, _ := c.sendCommand("playlist-prev")
	return resp.ok()
}

// Seek moves within the current item, relatively by default or absolutely.
func (c *Controller) Seek(seconds float64, absolute bool) bool {
	mode := "relative"
	if absolute {
		mode = "absolute"
	}
	resp, _ := c.sendCommand("seek", fmt.Sprintf("%g", seconds), mode)
	return resp.ok()
}

// SetVolume sets the engine volume (0-100).
func (c *Controller) SetVolume(volume int) bool { return c.setProperty("volume", volume) }

// Status assembles a playback snapshot from individual property queries.
// Each missing or failed property falls back to its zero value so partial
// telemetry never fails the whole call.
func (c *Controller) Status() core.PlaybackStatus {
	// An unreadable idle-active property must default the snapshot to "not
	// playing", so idle is assumed until the engine says otherwise.
	idle := true
	if raw := c.getProperty("idle-active"); raw != nil {
		_ = json.Unmarshal(raw, &idle)
	}
	return core.PlaybackStatus{
		Playing:       !idle,
		Paused:        c.propBool("pause"),
		Filename:      c.propString("filename"),
		Position:      c.propFloat("time-pos"),
		Duration:      c.propFloat("duration"),
		PlaylistCount: c.propInt("playlist-count"),
		PlaylistPos:   c.propInt("playlist-pos"),
	}
}

// QueueSeconds estimates remaining buffered playtime: the remainder of the
// current item plus the assumed average duration for every not-yet-reached
// playlist entry. True durations of queued items are deliberately not
// queried; one round trip of status beats N probes.
func (c *Controller) QueueSeconds() float64 {
	status := c.Status()
	remaining := status.Remaining()
	if untouched := status.PlaylistCount - status.PlaylistPos - 1; untouched > 0 {
		remaining += float64(untouched) * c.opts.AssumedItemSeconds
	}
	return remaining
}
