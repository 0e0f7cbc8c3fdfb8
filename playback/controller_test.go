package playback

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.Player = (*Controller)(nil)
	_ core.Player = (*Simulated)(nil)
)

// fakeEngine is a scripted IPC endpoint standing in for mpv. The handler maps
// a decoded command to one raw response line; returning "" suppresses the
// reply entirely so timeout behavior can be exercised.
type fakeEngine struct {
	t  *testing.T
	ln net.Listener

	handle func(cmd []any) string

	// chunked splits each response across multiple delayed writes to force
	// partial-read reassembly on the client.
	chunked bool

	mu       sync.Mutex
	commands [][]any
}

func newFakeEngine(t *testing.T, handle func(cmd []any) string) (*fakeEngine, string) {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "engine.sock")
	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fe := &fakeEngine{t: t, ln: ln, handle: handle}
	t.Cleanup(func() { _ = ln.Close() })
	go fe.serve()
	return fe, socket
}

func (fe *fakeEngine) serve() {
	for {
		conn, err := fe.ln.Accept()
		if err != nil {
			return
		}
		go fe.serveConn(conn)
	}
}

func (fe *fakeEngine) serveConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return
		}
		var req struct {
			Command []any `json:"command"`
		}
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}
		fe.mu.Lock()
		fe.commands = append(fe.commands, req.Command)
		fe.mu.Unlock()

		resp := fe.handle(req.Command)
		if resp == "" {
			continue // no reply; client must time out
		}
		payload := []byte(resp + "\n")
		if fe.chunked {
			for _, b := range [][]byte{payload[:3], payload[3 : len(payload)/2], payload[len(payload)/2:]} {
				if _, err := conn.Write(b); err != nil {
					return
				}
				time.Sleep(10 * time.Millisecond)
			}
		} else if _, err := conn.Write(payload); err != nil {
			return
		}
	}
}

func (fe *fakeEngine) recorded() [][]any {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	out := make([][]any, len(fe.commands))
	copy(out, fe.commands)
	return out
}

// propertyHandler serves get_property lookups from a fixed table, answering
// anything unknown with an error envelope.
func propertyHandler(props map[string]string) func(cmd []any) string {
	return func(cmd []any) string {
		if len(cmd) >= 2 && cmd[0] == "get_property" {
			if v, ok := props[cmd[1].(string)]; ok {
				return `{"error":"success","data":` + v + `}`
			}
			return `{"error":"property unavailable"}`
		}
		return `{"error":"success"}`
	}
}

func testController(socket string, optFns ...func(o *Options)) *Controller {
	fns := append([]func(o *Options){func(o *Options) {
		o.SocketPath = socket
		o.CommandTimeout = 2 * time.Second
	}}, optFns...)
	return NewController(fns...)
}

func TestConnect_NoEndpoint(t *testing.T) {
	c := testController(filepath.Join(t.TempDir(), "missing.sock"))
	if err := c.Connect(); !errors.Is(err, ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
}

func TestConnect_Idempotent(t *testing.T) {
	_, socket := newFakeEngine(t, propertyHandler(nil))
	c := testController(socket)
	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("second connect should be a no-op: %v", err)
	}
}

func TestSendCommand_ReassemblesPartialFrames(t *testing.T) {
	fe, socket := newFakeEngine(t, propertyHandler(map[string]string{"volume": "64"}))
	fe.chunked = true

	c := testController(socket)
	resp, err := c.sendCommand("get_property", "volume")
	if err != nil {
		t.Fatalf("sendCommand: %v", err)
	}
	if !resp.ok() || string(resp.Data) != "64" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSendCommand_TimeoutBounded(t *testing.T) {
	_, socket := newFakeEngine(t, func(cmd []any) string { return "" })

	c := testController(socket, func(o *Options) { o.CommandTimeout = 300 * time.Millisecond })

	start := time.Now()
	_, err := c.sendCommand("get_property", "pause")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed < 250*time.Millisecond || elapsed > time.Second {
		t.Fatalf("timeout not bounded by config: took %v", elapsed)
	}
}

func TestSendCommand_ReconnectsAfterFailure(t *testing.T) {
	replies := make(chan string, 2)
	replies <- "" // first command starves and times out
	replies <- `{"error":"success"}`

	_, socket := newFakeEngine(t, func(cmd []any) string { return <-replies })
	c := testController(socket, func(o *Options) { o.CommandTimeout = 200 * time.Millisecond })

	if _, err := c.sendCommand("playlist-next"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout on starved command, got %v", err)
	}
	// Connection was invalidated; the next command must transparently
	// reconnect and succeed.
	resp, err := c.sendCommand("playlist-next")
	if err != nil || !resp.ok() {
		t.Fatalf("expected success after reconnect, got %+v / %v", resp, err)
	}
}

func TestEnqueue_ModesAndPathResolution(t *testing.T) {
	fe, socket := newFakeEngine(t, func(cmd []any) string { return `{"error":"success"}` })
	c := testController(socket, func(o *Options) { o.MediaDir = "/media/pool" })

	if !c.Enqueue("clip_a.mp4", false) {
		t.Fatalf("append enqueue should succeed")
	}
	if !c.Enqueue("clip_b.mp4", true) {
		t.Fatalf("replace enqueue should succeed")
	}

	cmds := fe.recorded()
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	wantA := []any{"loadfile", filepath.Join("/media/pool", "clip_a.mp4"), "append"}
	wantB := []any{"loadfile", filepath.Join("/media/pool", "clip_b.mp4"), "replace"}
	for i, want := range [][]any{wantA, wantB} {
		got := cmds[i]
		if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
			t.Fatalf("command %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestEnqueue_EngineRejection(t *testing.T) {
	_, socket := newFakeEngine(t, func(cmd []any) string { return `{"error":"file not found"}` })
	c := testController(socket)
	if c.Enqueue("ghost.mp4", false) {
		t.Fatalf("rejected enqueue should report false")
	}
}

func TestStatus_FullTelemetry(t *testing.T) {
	_, socket := newFakeEngine(t, propertyHandler(map[string]string{
		"idle-active":    "false",
		"pause":          "true",
		"filename":       `"clip_a.mp4"`,
		"time-pos":       "2.5",
		"duration":       "8",
		"playlist-count": "3",
		"playlist-pos":   "0",
	}))
	c := testController(socket)

	got := c.Status()
	want := core.PlaybackStatus{Playing: true, Paused: true, Filename: "clip_a.mp4", Position: 2.5, Duration: 8, PlaylistCount: 3, PlaylistPos: 0}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestStatus_PartialTelemetryDefaults(t *testing.T) {
	// Every property errors out; the snapshot must still come back whole
	// with zero values, including "not playing".
	_, socket := newFakeEngine(t, propertyHandler(nil))
	c := testController(socket)

	got := c.Status()
	if got != (core.PlaybackStatus{Paused: false}) {
		t.Fatalf("expected zero-value snapshot, got %+v", got)
	}
}

func TestQueueSeconds_Estimate(t *testing.T) {
	// Current item at position 3 of duration 8 (remaining 5) with 2 further
	// untouched playlist entries at the 8-second assumption: 5 + 16 = 21.
	_, socket := newFakeEngine(t, propertyHandler(map[string]string{
		"idle-active":    "false",
		"pause":          "false",
		"filename":       `"clip_a.mp4"`,
		"time-pos":       "3",
		"duration":       "8",
		"playlist-count": "4",
		"playlist-pos":   "1",
	}))
	c := testController(socket)

	if got := c.QueueSeconds(); got != 21 {
		t.Fatalf("expected estimate of exactly 21s, got %v", got)
	}
}

func TestQueueSeconds_ClampsFinishedItem(t *testing.T) {
	// Position past duration must clamp the current-item remainder at zero.
	_, socket := newFakeEngine(t, propertyHandler(map[string]string{
		"time-pos":       "9.5",
		"duration":       "8",
		"playlist-count": "2",
		"playlist-pos":   "1",
	}))
	c := testController(socket)
	if got := c.QueueSeconds(); got != 0 {
		t.Fatalf("expected clamped estimate of 0, got %v", got)
	}
}

func TestSimulated_PlaylistFlow(t *testing.T) {
	s := NewSimulated(8, nil)
	base := time.Unix(1700000000, 0)
	s.now = func() time.Time { return base }

	s.Enqueue("a.mp4", false)
	s.Enqueue("b.mp4", false)
	s.Enqueue("c.mp4", false)
	s.Play()

	st := s.Status()
	if !st.Playing || st.Filename != "a.mp4" || st.PlaylistCount != 3 {
		t.Fatalf("unexpected status: %+v", st)
	}
	// 5 + 2*8 = 21, mirroring the controller estimate arithmetic.
	base = base.Add(3 * time.Second)
	if got := s.QueueSeconds(); got != 21 {
		t.Fatalf("expected 21s buffered, got %v", got)
	}

	s.Next()
	if st := s.Status(); st.Filename != "b.mp4" || st.PlaylistPos != 1 {
		t.Fatalf("unexpected status after skip: %+v", st)
	}

	s.Pause()
	if st := s.Status(); st.Playing || !st.Paused {
		t.Fatalf("expected paused status, got %+v", st)
	}
}

func TestSimulated_AutoAdvanceKeepsRemainder(t *testing.T) {
	s := NewSimulated(8, nil)
	base := time.Unix(1700000000, 0)
	now := base
	s.now = func() time.Time { return now }

	s.Enqueue("a.mp4", false)
	s.Enqueue("b.mp4", false)
	s.Play()

	// 11s in: a.mp4 finished 3s ago, so b.mp4 is 3s along.
	now = base.Add(11 * time.Second)
	st := s.Status()
	if st.Filename != "b.mp4" || st.Position != 3 {
		t.Fatalf("expected b.mp4 at 3s, got %+v", st)
	}
	// A repeated status at the same instant must not restart b's clock.
	if st := s.Status(); st.Filename != "b.mp4" || st.Position != 3 {
		t.Fatalf("remainder lost on repeated status: %+v", st)
	}
	if got := s.QueueSeconds(); got != 5 {
		t.Fatalf("expected 5s buffered, got %v", got)
	}
}

func TestSimulated_ReplaceResets(t *testing.T) {
	s := NewSimulated(8, nil)
	s.Enqueue("a.mp4", false)
	s.Enqueue("b.mp4", false)
	s.Enqueue("solo.mp4", true)
	st := s.Status()
	if st.PlaylistCount != 1 || st.Filename != "solo.mp4" {
		t.Fatalf("replace should reset playlist: %+v", st)
	}
}
