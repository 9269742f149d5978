package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nhpip/ezprofiler-deps/internal/control"
)

// message mirrors the control-channel wire shape. The fake keeps its own
// copy of the envelope so it stays an independent peer implementation.
type message struct {
	ID    uint64 `json:"id,omitempty"`
	Op    string `json:"op,omitempty"`
	Ack   string `json:"ack,omitempty"`
	Event string `json:"event,omitempty"`

	Labels []string `json:"labels,omitempty"`
	Any    bool     `json:"any,omitempty"`
	Mode   string   `json:"mode,omitempty"`
	Allow  *bool    `json:"allow,omitempty"`

	Entries []control.ResultEntry `json:"entries,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// FakeProfiler emulates the external tool's control endpoint for tests:
// it accepts one websocket at a time, applies label-set semantics to enable
// requests, and lets tests push the three notification kinds.
type FakeProfiler struct {
	srv *httptest.Server

	mu        sync.Mutex
	conn      *websocket.Conn
	writeMu   sync.Mutex
	pending   []string
	anyLabel  bool
	mode      string
	transit   bool
	redirect  bool
	entries   []control.ResultEntry
	stopCount int

	// KeepAliveOnStop suppresses the peer disconnect that normally follows
	// a stop operation; used to exercise the NotStopped path.
	KeepAliveOnStop bool

	ops chan string
}

// NewFakeProfiler starts the fake control endpoint on a loopback listener.
func NewFakeProfiler() *FakeProfiler {
	f := &FakeProfiler{
		ops: make(chan string, 64),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ezprofiler", f.handle)
	f.srv = httptest.NewServer(mux)
	return f
}

// Node returns the host:port the fake listens on, suitable for
// SessionConfig.Node.
func (f *FakeProfiler) Node() string {
	return strings.TrimPrefix(f.srv.URL, "http://")
}

// URL returns the websocket URL of the fake control endpoint.
func (f *FakeProfiler) URL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ezprofiler"
}

// Close tears down the endpoint and any open connection.
func (f *FakeProfiler) Close() {
	f.mu.Lock()
	if f.conn != nil {
		_ = f.conn.Close()
		f.conn = nil
	}
	f.mu.Unlock()
	f.srv.Close()
}

// AwaitOp blocks until the fake has processed an operation of the given
// kind, or the timeout elapses.
func (f *FakeProfiler) AwaitOp(op string, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case got := <-f.ops:
			if got == op {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

// PendingLabels returns a copy of the label set still armed remotely.
func (f *FakeProfiler) PendingLabels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.pending))
	copy(out, f.pending)
	return out
}

// TransitionAllowed reports the last allow-transition toggle received.
func (f *FakeProfiler) TransitionAllowed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transit
}

// Redirected reports whether a redirect operation was received.
func (f *FakeProfiler) Redirected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.redirect
}

// StopCount returns how many stop operations were received.
func (f *FakeProfiler) StopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCount
}

// SetEntries seeds the result set returned by get-results.
func (f *FakeProfiler) SetEntries(entries []control.ResultEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = entries
}

// SimulateMatch applies the remote label-set policy for a match on label:
// in sequential mode the matched label removes itself and the remainder
// stays armed; otherwise the whole request is consumed.
func (f *FakeProfiler) SimulateMatch(label string, entry control.ResultEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode == string(control.ModeSequential) && f.transit {
		kept := f.pending[:0]
		for _, l := range f.pending {
			if l != label {
				kept = append(kept, l)
			}
		}
		f.pending = kept
	} else {
		f.pending = nil
	}
	f.entries = append(f.entries, entry)
}

// PushResults delivers a results notification with the payload inline.
func (f *FakeProfiler) PushResults(entries []control.ResultEntry) error {
	return f.send(message{Event: "results", Entries: entries})
}

// PushResultsAvailable delivers a notification that requires a fetch.
func (f *FakeProfiler) PushResultsAvailable() error {
	return f.send(message{Event: "results-available"})
}

// PushTimeout delivers the remote-side timeout notification.
func (f *FakeProfiler) PushTimeout() error {
	return f.send(message{Event: "timeout"})
}

func (f *FakeProfiler) send(msg message) error {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (f *FakeProfiler) handle(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		f.apply(conn, msg)
	}
}

func (f *FakeProfiler) apply(conn *websocket.Conn, msg message) {
	f.mu.Lock()
	reply := message{ID: msg.ID, Ack: msg.Op}
	send := false

	switch msg.Op {
	case "enable":
		f.pending = msg.Labels
		f.anyLabel = msg.Any
		f.mode = msg.Mode
	case "disable":
		f.pending = nil
		f.entries = nil
		send = true
	case "allow-transition":
		if msg.Allow != nil {
			f.transit = *msg.Allow
		}
		send = true
	case "get-results":
		if len(f.entries) == 0 {
			reply.Error = "nothing profiled yet"
		} else {
			reply.Entries = f.entries
		}
		send = true
	case "redirect":
		f.redirect = true
	case "stop":
		f.stopCount++
	}
	keepAlive := f.KeepAliveOnStop
	f.mu.Unlock()

	if send {
		f.writeMu.Lock()
		_ = conn.WriteJSON(reply)
		f.writeMu.Unlock()
	}

	select {
	case f.ops <- msg.Op:
	default:
	}

	// A real tool tears its endpoint down after a stop; the disconnect is
	// the manager's observable teardown signal.
	if msg.Op == "stop" && !keepAlive {
		_ = conn.Close()
	}
}
