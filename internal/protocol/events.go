package protocol

import "time"

const (
	FrameEvent    = "event"
	FrameBackfill = "backfill"
	FrameError    = "error"
)

const (
	TypeMessageComplete = "message_complete"
	TypeTodosUpdated    = "todos_updated"
	TypeTerminalOutput  = "terminal_output"
	TypeBrowserState    = "browser_state"
	TypeBrowserControl  = "browser_control"
	TypeAgentStatus     = "agent_status"
)

// Frame is the envelope around every inbound websocket message. "event"
// carries one live event, "backfill" carries the replay batch sent right
// after subscribe, "error" carries a non-fatal server-side failure.
type Frame struct {
	Type   string  `json:"type"`
	Event  *Event  `json:"event,omitempty"`
	Events []Event `json:"events,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Event is one entry of the multiplexed session stream. Type selects which
// payload fields are meaningful; the rest stay zero. Unknown types decode
// without error so new server events never break older clients.
type Event struct {
	Type       string          `json:"type"`
	Message    *Message        `json:"message,omitempty"`
	Todos      []Todo          `json:"todos,omitempty"`
	Entries    []TerminalEntry `json:"entries,omitempty"`
	URL        string          `json:"url,omitempty"`
	Title      string          `json:"title,omitempty"`
	Screenshot string          `json:"screenshot,omitempty"`
	Elements   []PageElement   `json:"elements,omitempty"`
	Control    string          `json:"control,omitempty"`
	Status     string          `json:"status,omitempty"`
}

type Message struct {
	ID        string     `json:"id,omitempty"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Status    string         `json:"status,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    string         `json:"result,omitempty"`
}

type Todo struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

type TerminalEntry struct {
	Command  string    `json:"command"`
	Output   string    `json:"output"`
	ExitCode int       `json:"exit_code,omitempty"`
	TS       time.Time `json:"ts,omitempty"`
}

type PageElement struct {
	ID   string `json:"id"`
	Tag  string `json:"tag,omitempty"`
	Text string `json:"text,omitempty"`
}
