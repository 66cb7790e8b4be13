package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"steward/internal/protocol"
	"steward/internal/state"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// startSupervisor runs a fake supervisor endpoint. handle owns the upgraded
// connection for the lifetime of the test connection.
func startSupervisor(t *testing.T, handle func(conn *websocket.Conn, r *http.Request)) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn, r)
	}))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func readCommand(t *testing.T, conn *websocket.Conn) protocol.Command {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var cmd protocol.Command
	if err := conn.ReadJSON(&cmd); err != nil {
		t.Errorf("read command: %v", err)
		return protocol.Command{}
	}
	return cmd
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		<-ticker.C
	}
}

func TestConnectSendsSubscribeBeforeOtherTraffic(t *testing.T) {
	got := make(chan protocol.Command, 4)
	hold := make(chan struct{})
	wsBase := startSupervisor(t, func(conn *websocket.Conn, _ *http.Request) {
		got <- readCommand(t, conn)
		got <- readCommand(t, conn)
		<-hold
	})
	defer close(hold)

	store := state.NewStore(0)
	c := New(Config{WSBase: wsBase}, store, nil)
	if err := c.Connect(context.Background(), "sess-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	if err := c.SendMessage("hello agent"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	first := <-got
	if first.Type != protocol.CmdSubscribe {
		t.Fatalf("first frame must be subscribe, got %q", first.Type)
	}
	second := <-got
	if second.Type != protocol.CmdSendMessage || second.Content != "hello agent" {
		t.Fatalf("unexpected second frame: %#v", second)
	}
}

func TestConnectIsNoOpWhenAlreadyOpen(t *testing.T) {
	var upgrades atomic.Int32
	hold := make(chan struct{})
	wsBase := startSupervisor(t, func(conn *websocket.Conn, _ *http.Request) {
		upgrades.Add(1)
		readCommand(t, conn)
		<-hold
	})
	defer close(hold)

	c := New(Config{WSBase: wsBase}, state.NewStore(0), nil)
	if err := c.Connect(context.Background(), "sess-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()
	waitFor(t, "connection", c.IsConnected)

	if err := c.Connect(context.Background(), "sess-1"); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if n := upgrades.Load(); n != 1 {
		t.Fatalf("expected a single upgrade for repeated connect, got %d", n)
	}
}

func TestDialCarriesSessionPathAndAccessToken(t *testing.T) {
	type dialInfo struct {
		path  string
		token string
	}
	seen := make(chan dialInfo, 1)
	hold := make(chan struct{})
	wsBase := startSupervisor(t, func(conn *websocket.Conn, r *http.Request) {
		seen <- dialInfo{path: r.URL.Path, token: r.URL.Query().Get("access_token")}
		readCommand(t, conn)
		<-hold
	})
	defer close(hold)

	c := New(Config{WSBase: wsBase, AuthToken: "tok-123"}, state.NewStore(0), nil)
	if err := c.Connect(context.Background(), "sess 9"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	info := <-seen
	if info.path != "/ws/sess%209" && info.path != "/ws/sess 9" {
		t.Fatalf("unexpected ws path %q", info.path)
	}
	if info.token != "tok-123" {
		t.Fatalf("expected access_token query, got %q", info.token)
	}
}

func TestSendMessageSetsStreamingOptimistically(t *testing.T) {
	hold := make(chan struct{})
	wsBase := startSupervisor(t, func(conn *websocket.Conn, _ *http.Request) {
		readCommand(t, conn) // subscribe
		readCommand(t, conn) // send_message
		<-hold
	})
	defer close(hold)

	store := state.NewStore(0)
	c := New(Config{WSBase: wsBase}, store, nil)
	if err := c.Connect(context.Background(), "sess-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	if err := c.SendMessage("do the thing"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	// Synchronous, before any inbound frame: no event has been written by
	// the supervisor at this point.
	if !store.Snapshot().Streaming {
		t.Fatalf("streaming must be set optimistically at send time")
	}
}

func TestCommandsDroppedWhileDisconnected(t *testing.T) {
	store := state.NewStore(0)
	c := New(Config{WSBase: "ws://127.0.0.1:1"}, store, nil)

	sends := []func() error{
		func() error { return c.SendMessage("hi") },
		func() error { return c.RunCommand("ls", "") },
		func() error { return c.BrowserNavigate("https://x.test") },
		func() error { return c.RequestBrowserControl(protocol.ControlUser) },
		func() error { return c.PauseSession("stop") },
		func() error { return c.ApproveTodo("t1", "looks done") },
	}
	for i, send := range sends {
		if err := send(); !errors.Is(err, ErrNotConnected) {
			t.Fatalf("send %d: expected ErrNotConnected, got %v", i, err)
		}
	}
	snap := store.Snapshot()
	if snap.Streaming || len(snap.Messages) != 0 || len(snap.Notices) != 0 {
		t.Fatalf("dropped commands must not mutate the store: %#v", snap)
	}
}

func TestBrowserControlRoundTrip(t *testing.T) {
	requested := make(chan struct{})
	release := make(chan struct{})
	hold := make(chan struct{})
	wsBase := startSupervisor(t, func(conn *websocket.Conn, _ *http.Request) {
		readCommand(t, conn) // subscribe
		cmd := readCommand(t, conn)
		if cmd.Type != protocol.CmdBrowserControl || cmd.Control != protocol.ControlUser {
			t.Errorf("unexpected control command: %#v", cmd)
		}
		close(requested)
		<-release
		echo := protocol.Frame{
			Type:  protocol.FrameEvent,
			Event: &protocol.Event{Type: protocol.TypeBrowserControl, Control: protocol.ControlUser},
		}
		data, _ := json.Marshal(echo)
		_ = conn.WriteMessage(websocket.TextMessage, data)
		<-hold
	})
	defer close(hold)

	store := state.NewStore(0)
	c := New(Config{WSBase: wsBase}, store, nil)
	if err := c.Connect(context.Background(), "sess-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	if err := c.RequestBrowserControl(protocol.ControlUser); err != nil {
		t.Fatalf("request control: %v", err)
	}
	<-requested
	// The supervisor has the request but has not echoed yet: the local value
	// must not have moved.
	if got := store.Snapshot().Control; got != state.ControlAgent {
		t.Fatalf("control changed before echo: %q", got)
	}
	close(release)
	waitFor(t, "control echo", func() bool {
		return store.Snapshot().Control == state.ControlUser
	})
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	hold := make(chan struct{})
	wsBase := startSupervisor(t, func(conn *websocket.Conn, _ *http.Request) {
		readCommand(t, conn) // subscribe
		_ = conn.WriteMessage(websocket.TextMessage, []byte("%% not json %%"))
		data, _ := json.Marshal(protocol.Frame{
			Type: protocol.FrameEvent,
			Event: &protocol.Event{
				Type:    protocol.TypeMessageComplete,
				Message: &protocol.Message{ID: "after", Role: state.RoleAssistant, Content: "survived"},
			},
		})
		_ = conn.WriteMessage(websocket.TextMessage, data)
		<-hold
	})
	defer close(hold)

	store := state.NewStore(0)
	c := New(Config{WSBase: wsBase}, store, nil)
	if err := c.Connect(context.Background(), "sess-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	waitFor(t, "frame after garbage", func() bool {
		return len(store.Snapshot().Messages) == 1
	})
	if !c.IsConnected() {
		t.Fatalf("malformed frame must not close the connection")
	}
	if store.Snapshot().Messages[0].ID != "after" {
		t.Fatalf("unexpected transcript: %#v", store.Snapshot().Messages)
	}
}

func TestServerCloseFlipsFlagsButRetainsState(t *testing.T) {
	wsBase := startSupervisor(t, func(conn *websocket.Conn, _ *http.Request) {
		readCommand(t, conn) // subscribe
		data, _ := json.Marshal(protocol.Frame{
			Type: protocol.FrameEvent,
			Event: &protocol.Event{
				Type:    protocol.TypeMessageComplete,
				Message: &protocol.Message{ID: "m1", Role: state.RoleAssistant, Content: "last words"},
			},
		})
		_ = conn.WriteMessage(websocket.TextMessage, data)
		// handler returns, closing the connection server-side
	})

	store := state.NewStore(0)
	c := New(Config{WSBase: wsBase}, store, nil)
	if err := c.Connect(context.Background(), "sess-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	waitFor(t, "message before close", func() bool {
		return len(store.Snapshot().Messages) == 1
	})
	waitFor(t, "disconnect flags", func() bool {
		return !c.IsConnected() && !c.IsConnecting()
	})
	// Stale-but-available: the projected state survives the socket loss.
	if len(store.Snapshot().Messages) != 1 {
		t.Fatalf("projected state must be retained after close")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	c := New(Config{}, state.NewStore(0), nil)
	c.Disconnect()
	c.Disconnect()
	if c.IsConnected() || c.IsConnecting() {
		t.Fatalf("flags must stay down")
	}
}

func TestDialFailureClearsConnectingFlag(t *testing.T) {
	c := New(Config{WSBase: "ws://127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, state.NewStore(0), nil)
	if err := c.Connect(context.Background(), "sess-1"); err == nil {
		t.Fatalf("expected dial failure")
	}
	if c.IsConnecting() || c.IsConnected() {
		t.Fatalf("flags must be cleared after a failed dial")
	}
}
