package client

import (
	"encoding/json"
	"log"

	"steward/internal/protocol"
	"steward/internal/state"
)

// router turns inbound frames into store mutations. It is stateless apart
// from the live/backfill distinction: a live message_complete clears the
// streaming flag, a backfilled one does not.
type router struct {
	store *state.Store
}

func (r *router) route(data []byte) {
	var frame protocol.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("sync event=frame_drop reason=parse detail=%q", err.Error())
		return
	}
	switch frame.Type {
	case protocol.FrameEvent:
		if frame.Event != nil {
			r.apply(*frame.Event, true)
		}
	case protocol.FrameBackfill:
		// Backfill elements replay through the same message_complete rule as
		// live events, in array order, before any later live frame is read.
		for _, ev := range frame.Events {
			r.applyMessageComplete(ev, false)
		}
	case protocol.FrameError:
		msg := frame.Error
		if msg == "" {
			msg = "supervisor reported an error"
		}
		r.store.SetStreaming(false)
		r.store.PushNotice(msg)
	default:
		log.Printf("sync event=frame_drop reason=unknown_frame type=%q", frame.Type)
	}
}

func (r *router) apply(ev protocol.Event, live bool) {
	switch ev.Type {
	case protocol.TypeMessageComplete:
		r.applyMessageComplete(ev, live)
	case protocol.TypeTodosUpdated:
		todos := make([]state.Todo, 0, len(ev.Todos))
		for _, t := range ev.Todos {
			todos = append(todos, state.Todo{ID: t.ID, Content: t.Content, Status: t.Status})
		}
		r.store.ReplaceTodos(todos)
	case protocol.TypeTerminalOutput:
		lines := make([]string, 0, len(ev.Entries))
		for _, e := range ev.Entries {
			lines = append(lines, "$ "+e.Command+"\n"+e.Output)
		}
		r.store.SetTerminalLines(lines)
	case protocol.TypeBrowserState:
		b := state.BrowserState{
			URL:        ev.URL,
			Title:      ev.Title,
			Screenshot: ev.Screenshot,
		}
		for _, el := range ev.Elements {
			b.Elements = append(b.Elements, state.PageElement{ID: el.ID, Tag: el.Tag, Text: el.Text})
		}
		r.store.SetBrowser(b)
	case protocol.TypeBrowserControl:
		r.store.SetBrowserControl(ev.Control)
	case protocol.TypeAgentStatus:
		mapped := protocol.MapAgentStatus(ev.Status)
		r.store.SetAgentStatus(mapped, protocol.IsStreamingStatus(mapped))
	default:
		// Unknown event types are ignored so the vocabulary can grow
		// server-side without breaking older clients.
	}
}

func (r *router) applyMessageComplete(ev protocol.Event, live bool) {
	if ev.Message == nil {
		return
	}
	m := state.Message{
		ID:        ev.Message.ID,
		Role:      ev.Message.Role,
		Content:   ev.Message.Content,
		Timestamp: ev.Message.Timestamp,
	}
	for _, tc := range ev.Message.ToolCalls {
		m.ToolCalls = append(m.ToolCalls, state.ToolCall{
			ID:        tc.ID,
			Name:      tc.Name,
			Status:    tc.Status,
			Arguments: tc.Arguments,
			Result:    tc.Result,
		})
	}
	r.store.AppendMessage(m)
	if live {
		r.store.SetStreaming(false)
	}
}
