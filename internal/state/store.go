package state

import (
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Store holds the projected view of the active agent session. Every mutation
// goes through one of the projection methods below; the UI reads through
// Snapshot and re-renders on Watch signals. The store performs no I/O.
type Store struct {
	mu sync.RWMutex

	session       Session
	messages      []Message
	todos         []Todo
	terminalLines []string
	browser       BrowserState
	control       string
	agentStatus   string
	streaming     bool
	notices       []Notice

	// stash keeps the last projected view of recently departed sessions so
	// switching back shows a stale preview until backfill repopulates it.
	stash *lru.Cache[string, Snapshot]
	hub   *hub
}

// Snapshot is a deep copy of the store, safe to hold across further
// mutations.
type Snapshot struct {
	Session       Session
	Messages      []Message
	Todos         []Todo
	TerminalLines []string
	Browser       BrowserState
	Control       string
	AgentStatus   string
	Streaming     bool
	Notices       []Notice
}

func NewStore(snapshotCacheSize int) *Store {
	if snapshotCacheSize <= 0 {
		snapshotCacheSize = 8
	}
	stash, _ := lru.New[string, Snapshot](snapshotCacheSize)
	return &Store{
		control:     ControlAgent,
		agentStatus: "idle",
		stash:       stash,
		hub:         newHub(),
	}
}

// Watch returns a channel that receives a signal after every mutation, and a
// function that cancels the subscription.
func (s *Store) Watch() (<-chan struct{}, func()) {
	return s.hub.subscribe()
}

// SetCurrentSession switches the store to a new session. All projections are
// cleared so the previous session's terminal, browser and todo panes never
// show under the new id; the departing view is stashed and, when the operator
// switches back, restored as a last-known preview until a fresh backfill
// replaces it.
func (s *Store) SetCurrentSession(sess Session) {
	s.mu.Lock()
	if s.session.ID != "" && s.session.ID != sess.ID {
		s.stash.Add(s.session.ID, s.snapshotLocked())
	}
	s.resetLocked()
	s.session = sess
	if cached, ok := s.stash.Get(sess.ID); ok {
		s.messages = cached.Messages
		s.todos = cached.Todos
		s.terminalLines = cached.TerminalLines
		s.browser = cached.Browser
		s.control = cached.Control
		s.agentStatus = cached.AgentStatus
	}
	s.mu.Unlock()
	s.hub.notify()
}

func (s *Store) resetLocked() {
	s.session = Session{}
	s.messages = nil
	s.todos = nil
	s.terminalLines = nil
	s.browser = BrowserState{}
	s.control = ControlAgent
	s.agentStatus = "idle"
	s.streaming = false
	s.notices = nil
}

// AppendMessage adds one transcript entry in arrival order. There is no
// de-duplication by id: the supervisor owns message uniqueness.
func (s *Store) AppendMessage(m Message) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	s.hub.notify()
}

// ReplaceTodos swaps in the supplied list wholesale. The supervisor is the
// single source of truth for the todo set and its order.
func (s *Store) ReplaceTodos(todos []Todo) {
	s.mu.Lock()
	s.todos = append([]Todo(nil), todos...)
	s.mu.Unlock()
	s.hub.notify()
}

// SetTerminalLines replaces the terminal pane content.
func (s *Store) SetTerminalLines(lines []string) {
	s.mu.Lock()
	s.terminalLines = append([]string(nil), lines...)
	s.mu.Unlock()
	s.hub.notify()
}

// SetBrowser replaces the browser pane state wholesale.
func (s *Store) SetBrowser(b BrowserState) {
	s.mu.Lock()
	s.browser = cloneBrowser(b)
	s.mu.Unlock()
	s.hub.notify()
}

func (s *Store) SetBrowserControl(control string) {
	s.mu.Lock()
	s.control = control
	s.mu.Unlock()
	s.hub.notify()
}

// SetAgentStatus records the mapped status and its derived streaming flag.
func (s *Store) SetAgentStatus(status string, streaming bool) {
	s.mu.Lock()
	s.agentStatus = status
	s.streaming = streaming
	s.mu.Unlock()
	s.hub.notify()
}

// SetStreaming flips the streaming flag alone. Used for the optimistic
// local set at send time and for clearing on message_complete and error
// frames; agent_status events remain the authoritative source.
func (s *Store) SetStreaming(v bool) {
	s.mu.Lock()
	s.streaming = v
	s.mu.Unlock()
	s.hub.notify()
}

// PushNotice records a non-fatal protocol error for the UI to display.
func (s *Store) PushNotice(message string) {
	n := Notice{ID: uuid.NewString(), Message: message, At: time.Now().UTC()}
	s.mu.Lock()
	s.notices = append(s.notices, n)
	s.mu.Unlock()
	s.hub.notify()
}

// DismissNotice drops a displayed notice by id.
func (s *Store) DismissNotice(id string) {
	s.mu.Lock()
	kept := s.notices[:0]
	for _, n := range s.notices {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.notices = kept
	s.mu.Unlock()
	s.hub.notify()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Session:       s.session,
		Messages:      make([]Message, len(s.messages)),
		Todos:         append([]Todo(nil), s.todos...),
		TerminalLines: append([]string(nil), s.terminalLines...),
		Browser:       cloneBrowser(s.browser),
		Control:       s.control,
		AgentStatus:   s.agentStatus,
		Streaming:     s.streaming,
		Notices:       append([]Notice(nil), s.notices...),
	}
	for i, m := range s.messages {
		snap.Messages[i] = cloneMessage(m)
	}
	return snap
}

func cloneMessage(m Message) Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			out.ToolCalls[i] = cloneToolCall(tc)
		}
	}
	return out
}

func cloneToolCall(tc ToolCall) ToolCall {
	out := tc
	if tc.Arguments != nil {
		out.Arguments = make(map[string]any, len(tc.Arguments))
		for k, v := range tc.Arguments {
			out.Arguments[k] = v
		}
	}
	return out
}

func cloneBrowser(b BrowserState) BrowserState {
	out := b
	out.Elements = append([]PageElement(nil), b.Elements...)
	return out
}
