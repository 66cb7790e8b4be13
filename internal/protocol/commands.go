package protocol

const (
	CmdSubscribe      = "subscribe"
	CmdSendMessage    = "send_message"
	CmdRunCommand     = "run_command"
	CmdBrowserNavig   = "browser_navigate"
	CmdBrowserClick   = "browser_click"
	CmdBrowserType    = "browser_type"
	CmdBrowserControl = "browser_control"
	CmdTodoCreate     = "todo_create"
	CmdTodoUpdate     = "todo_update"
	CmdTodoEdit       = "todo_edit"
	CmdTodoDelete     = "todo_delete"
	CmdTodoAddNote    = "todo_add_note"
	CmdPauseSession   = "pause_session"
	CmdResumeSession  = "resume_session"
	CmdTodoApprove    = "todo_approve"
	CmdTodoReject     = "todo_reject"
)

// Command is the flat outgoing wire object: a type discriminator plus the
// payload fields for that command. Zero-valued fields are omitted so each
// command serializes to exactly its own vocabulary. Commands carry no
// correlation id; the matching effect is only observable through a later
// state-update event.
type Command struct {
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	Command     string `json:"command,omitempty"`
	ExecDir     string `json:"exec_dir,omitempty"`
	URL         string `json:"url,omitempty"`
	ElementID   string `json:"element_id,omitempty"`
	Coordinates *Point `json:"coordinates,omitempty"`
	Text        string `json:"text,omitempty"`
	PressEnter  bool   `json:"press_enter,omitempty"`
	Control     string `json:"control,omitempty"`
	ID          string `json:"id,omitempty"`
	Status      string `json:"status,omitempty"`
	Note        string `json:"note,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Feedback    string `json:"feedback,omitempty"`
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Subscribe is the handshake sent right after the channel opens; it asks the
// supervisor for the backfill batch plus the live stream.
func Subscribe() Command {
	return Command{Type: CmdSubscribe}
}

func SendMessage(content string) Command {
	return Command{Type: CmdSendMessage, Content: content}
}

// RunCommand requests a remote shell execution. An empty execDir is omitted
// from the wire and the supervisor applies its own default.
func RunCommand(command, execDir string) Command {
	return Command{Type: CmdRunCommand, Command: command, ExecDir: execDir}
}

func BrowserNavigate(url string) Command {
	return Command{Type: CmdBrowserNavig, URL: url}
}

func BrowserClickElement(elementID string) Command {
	return Command{Type: CmdBrowserClick, ElementID: elementID}
}

func BrowserClickAt(x, y int) Command {
	return Command{Type: CmdBrowserClick, Coordinates: &Point{X: x, Y: y}}
}

func BrowserType(elementID, text string, pressEnter bool) Command {
	return Command{Type: CmdBrowserType, ElementID: elementID, Text: text, PressEnter: pressEnter}
}

// BrowserControl requests a control handoff. The UI must not assume success
// until a browser_control event echoes the new value back.
func BrowserControl(control string) Command {
	return Command{Type: CmdBrowserControl, Control: control}
}

func TodoCreate(content string) Command {
	return Command{Type: CmdTodoCreate, Content: content}
}

func TodoUpdate(id, status string) Command {
	return Command{Type: CmdTodoUpdate, ID: id, Status: status}
}

func TodoEdit(id, content string) Command {
	return Command{Type: CmdTodoEdit, ID: id, Content: content}
}

func TodoDelete(id string) Command {
	return Command{Type: CmdTodoDelete, ID: id}
}

func TodoAddNote(id, note string) Command {
	return Command{Type: CmdTodoAddNote, ID: id, Note: note}
}

// PauseSession asks the agent to halt before its next action.
func PauseSession(reason string) Command {
	return Command{Type: CmdPauseSession, Reason: reason}
}

// ResumeSession resumes a paused agent, carrying operator guidance.
func ResumeSession(feedback string) Command {
	return Command{Type: CmdResumeSession, Feedback: feedback}
}

func TodoApprove(id, reason string) Command {
	return Command{Type: CmdTodoApprove, ID: id, Reason: reason}
}

func TodoReject(id, reason, feedback string) Command {
	return Command{Type: CmdTodoReject, ID: id, Reason: reason, Feedback: feedback}
}
