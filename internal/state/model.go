package state

import "time"

const (
	SessionRunning   = "running"
	SessionPaused    = "paused"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

const (
	ToolRunning   = "running"
	ToolCompleted = "completed"
	ToolFailed    = "failed"
)

// Todo statuses. The forward chain is pending → in_progress → claimed →
// verified; claimed means the agent asserts completion and is waiting for the
// operator's verdict. Rejection moves a todo back to pending.
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoClaimed    = "claimed"
	TodoVerified   = "verified"
)

// Who currently drives the browser pane.
const (
	ControlUser  = "user"
	ControlAgent = "agent"
)

type Session struct {
	ID        string
	Title     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one transcript entry. Messages are append-only: once projected
// they are never mutated or removed.
type Message struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
	ToolCalls []ToolCall
}

// ToolCall belongs to exactly one message.
type ToolCall struct {
	ID        string
	Name      string
	Status    string
	Arguments map[string]any
	Result    string
}

type Todo struct {
	ID      string
	Content string
	Status  string
}

// BrowserState mirrors the agent browser pane. It is replaced wholesale on
// every browser_state event; fields the supervisor omitted arrive empty, not
// stale.
type BrowserState struct {
	URL        string
	Title      string
	Screenshot string
	Elements   []PageElement
}

type PageElement struct {
	ID   string
	Tag  string
	Text string
}

// Notice is a non-fatal protocol error surfaced to the UI.
type Notice struct {
	ID      string
	Message string
	At      time.Time
}
