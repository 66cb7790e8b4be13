package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"steward/internal/protocol"
	"steward/internal/state"
)

// ErrNotConnected is returned when a command is issued while the session
// channel is closed. The command is dropped, never queued.
var ErrNotConnected = errors.New("session channel is not open")

// Recorder archives raw inbound frames; see internal/journal. A nil recorder
// disables archiving.
type Recorder interface {
	AppendFrame(ctx context.Context, sessionID string, raw []byte) error
}

type Config struct {
	WSBase      string // e.g. ws://127.0.0.1:8765
	AuthToken   string // sent as access_token query parameter when non-empty
	DialTimeout time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	out.WSBase = strings.TrimRight(strings.TrimSpace(out.WSBase), "/")
	if out.WSBase == "" {
		out.WSBase = "ws://127.0.0.1:8765"
	}
	if out.DialTimeout <= 0 {
		out.DialTimeout = 10 * time.Second
	}
	return out
}

// Client owns the single duplex channel for the active session: it dials the
// supervisor, sends the subscribe handshake, pumps inbound frames through the
// router into the store, and writes operator commands. Lifecycle is manual;
// callers that want resilience re-invoke Connect themselves.
type Client struct {
	cfg      Config
	store    *state.Store
	router   *router
	recorder Recorder

	mu         sync.RWMutex
	conn       *websocket.Conn
	sessionID  string
	connecting bool
	connected  bool

	writeMu sync.Mutex
}

func New(cfg Config, store *state.Store, recorder Recorder) *Client {
	return &Client{
		cfg:      cfg.withDefaults(),
		store:    store,
		router:   &router{store: store},
		recorder: recorder,
	}
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) IsConnecting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connecting
}

func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Connect opens the channel for sessionID and sends the subscribe handshake
// before any other traffic. It is a no-op when a channel is already open for
// the same id, and while another connect attempt is in flight.
func (c *Client) Connect(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("session id is required")
	}

	c.mu.Lock()
	if c.connecting {
		c.mu.Unlock()
		return nil
	}
	if c.connected && c.conn != nil && c.sessionID == sessionID {
		c.mu.Unlock()
		return nil
	}
	stale := c.conn
	c.conn = nil
	c.connected = false
	c.connecting = true
	c.sessionID = sessionID
	c.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.sessionURL(sessionID), nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
		return fmt.Errorf("dial session %s (status=%d): %w", sessionID, status, err)
	}

	// subscribe is the handshake: it triggers the backfill batch and the
	// live stream on the supervisor side.
	c.writeMu.Lock()
	err = conn.WriteJSON(protocol.Subscribe())
	c.writeMu.Unlock()
	if err != nil {
		_ = conn.Close()
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
		return fmt.Errorf("subscribe session %s: %w", sessionID, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connecting = false
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn, sessionID)
	log.Printf("sync event=connected session=%s", sessionID)
	return nil
}

func (c *Client) sessionURL(sessionID string) string {
	u := c.cfg.WSBase + "/ws/" + url.PathEscape(sessionID)
	if c.cfg.AuthToken != "" {
		u += "?access_token=" + url.QueryEscape(c.cfg.AuthToken)
	}
	return u
}

// Disconnect closes the channel if present; idempotent. Projected state is
// retained as a stale snapshot until the next backfill.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.connecting = false
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) readLoop(conn *websocket.Conn, sessionID string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if c.recorder != nil {
			if err := c.recorder.AppendFrame(context.Background(), sessionID, data); err != nil {
				log.Printf("sync event=journal_write_failed session=%s detail=%q", sessionID, err.Error())
			}
		}
		c.router.route(data)
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.connected = false
		c.connecting = false
	}
	c.mu.Unlock()
	_ = conn.Close()
	log.Printf("sync event=disconnected session=%s", sessionID)
}

// Send writes one command frame. Fire-and-forget: there is no acknowledgment
// and no correlation id; the effect is only visible through a later event.
// Commands issued while the channel is closed are dropped with
// ErrNotConnected and never touch the store.
func (c *Client) Send(cmd protocol.Command) error {
	c.mu.RLock()
	conn := c.conn
	open := c.connected
	c.mu.RUnlock()
	if !open || conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(cmd)
}

// SendMessage submits an operator chat turn. On a successful write the
// streaming flag is set optimistically so the UI shows the agent thinking
// before the first server event arrives; later agent_status and
// message_complete events are the authoritative source that clears it.
func (c *Client) SendMessage(content string) error {
	if err := c.Send(protocol.SendMessage(content)); err != nil {
		return err
	}
	c.store.SetStreaming(true)
	return nil
}

func (c *Client) RunCommand(command, execDir string) error {
	return c.Send(protocol.RunCommand(command, execDir))
}

func (c *Client) BrowserNavigate(rawURL string) error {
	return c.Send(protocol.BrowserNavigate(rawURL))
}

func (c *Client) BrowserClickElement(elementID string) error {
	return c.Send(protocol.BrowserClickElement(elementID))
}

func (c *Client) BrowserClickAt(x, y int) error {
	return c.Send(protocol.BrowserClickAt(x, y))
}

func (c *Client) BrowserType(elementID, text string, pressEnter bool) error {
	return c.Send(protocol.BrowserType(elementID, text, pressEnter))
}

// RequestBrowserControl asks for a handoff of the browser pane. The local
// control flag is not changed here; it only moves once the supervisor echoes
// a browser_control event back.
func (c *Client) RequestBrowserControl(control string) error {
	return c.Send(protocol.BrowserControl(control))
}

func (c *Client) CreateTodo(content string) error {
	return c.Send(protocol.TodoCreate(content))
}

func (c *Client) UpdateTodo(id, status string) error {
	return c.Send(protocol.TodoUpdate(id, status))
}

func (c *Client) EditTodo(id, content string) error {
	return c.Send(protocol.TodoEdit(id, content))
}

func (c *Client) DeleteTodo(id string) error {
	return c.Send(protocol.TodoDelete(id))
}

func (c *Client) AddTodoNote(id, note string) error {
	return c.Send(protocol.TodoAddNote(id, note))
}

// PauseSession asks the agent to halt before its next action.
func (c *Client) PauseSession(reason string) error {
	return c.Send(protocol.PauseSession(reason))
}

// ResumeSession resumes a paused agent with operator feedback.
func (c *Client) ResumeSession(feedback string) error {
	return c.Send(protocol.ResumeSession(feedback))
}

// ApproveTodo verifies a claimed todo.
func (c *Client) ApproveTodo(id, reason string) error {
	return c.Send(protocol.TodoApprove(id, reason))
}

// RejectTodo sends a claimed todo back to pending with feedback.
func (c *Client) RejectTodo(id, reason, feedback string) error {
	return c.Send(protocol.TodoReject(id, reason, feedback))
}
