package chat

import "github.com/joao-cainglet/fss-va-2025/internal"

// State is the phase of the chat panel
type State int

const (
	// StateIdleNew has no session: the next send creates one
	StateIdleNew State = iota
	// StateIdleLoaded shows an existing session's history
	StateIdleLoaded
	// StateAwaitingFirstReply is creating a session for the first message
	StateAwaitingFirstReply
	// StateStreaming is reading an assistant reply
	StateStreaming
	// StateError follows a failed session creation or history fetch
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdleNew:
		return "idle"
	case StateIdleLoaded:
		return "loaded"
	case StateAwaitingFirstReply:
		return "creating"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Busy reports whether a turn is in flight
func (s State) Busy() bool {
	return s == StateAwaitingFirstReply || s == StateStreaming
}

// View is a snapshot of everything the chat panel renders
type View struct {
	State     State
	SessionID string
	Intent    internal.Intent
	Messages  []internal.Message
	Preview   string
	Error     string
	// Loading is set while a session's history is being fetched
	Loading bool
	// PendingIntent is non-empty while a switch awaits confirmation
	PendingIntent internal.Intent
}

// Confirming reports whether an intent switch awaits confirmation
func (v View) Confirming() bool {
	return v.PendingIntent != ""
}

// ShowSuggestions reports whether suggestion cards apply
func (v View) ShowSuggestions() bool {
	return v.SessionID == "" && len(v.Messages) == 0 && !v.State.Busy()
}

func (v View) clone() View {
	v.Messages = append([]internal.Message(nil), v.Messages...)
	return v
}

func newChatView() View {
	return View{State: StateIdleNew, Intent: internal.DefaultIntent}
}
