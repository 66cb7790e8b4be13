package protocol

import "strings"

const (
	StatusPlanning  = "planning"
	StatusExecuting = "executing"
	StatusWorking   = "working"
	StatusIdle      = "idle"
	StatusError     = "error"
)

const (
	ControlUser  = "user"
	ControlAgent = "agent"
)

var allowedEventTypes = map[string]struct{}{
	TypeMessageComplete: {},
	TypeTodosUpdated:    {},
	TypeTerminalOutput:  {},
	TypeBrowserState:    {},
	TypeBrowserControl:  {},
	TypeAgentStatus:     {},
}

var allowedCommandTypes = map[string]struct{}{
	CmdSubscribe:      {},
	CmdSendMessage:    {},
	CmdRunCommand:     {},
	CmdBrowserNavig:   {},
	CmdBrowserClick:   {},
	CmdBrowserType:    {},
	CmdBrowserControl: {},
	CmdTodoCreate:     {},
	CmdTodoUpdate:     {},
	CmdTodoEdit:       {},
	CmdTodoDelete:     {},
	CmdTodoAddNote:    {},
	CmdPauseSession:   {},
	CmdResumeSession:  {},
	CmdTodoApprove:    {},
	CmdTodoReject:     {},
}

var allowedAgentStatuses = map[string]struct{}{
	StatusPlanning:  {},
	StatusExecuting: {},
	StatusWorking:   {},
	StatusIdle:      {},
	StatusError:     {},
}

func AllowedEventTypes() []string {
	return []string{
		TypeMessageComplete,
		TypeTodosUpdated,
		TypeTerminalOutput,
		TypeBrowserState,
		TypeBrowserControl,
		TypeAgentStatus,
	}
}

func AllowedCommandTypes() []string {
	return []string{
		CmdSubscribe,
		CmdSendMessage,
		CmdRunCommand,
		CmdBrowserNavig,
		CmdBrowserClick,
		CmdBrowserType,
		CmdBrowserControl,
		CmdTodoCreate,
		CmdTodoUpdate,
		CmdTodoEdit,
		CmdTodoDelete,
		CmdTodoAddNote,
		CmdPauseSession,
		CmdResumeSession,
		CmdTodoApprove,
		CmdTodoReject,
	}
}

func AllowedAgentStatuses() []string {
	return []string{
		StatusPlanning,
		StatusExecuting,
		StatusWorking,
		StatusIdle,
		StatusError,
	}
}

func KnownEventType(t string) bool {
	_, ok := allowedEventTypes[t]
	return ok
}

func KnownCommandType(t string) bool {
	_, ok := allowedCommandTypes[t]
	return ok
}

// MapAgentStatus normalizes a wire status through the allow-list. Anything
// outside it maps to idle so an unrecognized status can never leave the UI
// stuck in a streaming state.
func MapAgentStatus(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if _, ok := allowedAgentStatuses[v]; ok {
		return v
	}
	return StatusIdle
}

// IsStreamingStatus reports whether the mapped status means the agent is
// mid-turn and the UI should show activity.
func IsStreamingStatus(status string) bool {
	switch status {
	case StatusPlanning, StatusExecuting, StatusWorking:
		return true
	}
	return false
}
