package session

import "github.com/meysamhadeli/codecompanion/providers/models"

type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

type EventKind int

const (
	// EventState reports a state transition.
	EventState EventKind = iota
	// EventContent carries the full text accumulated so far.
	EventContent
	EventCompleted
	EventCancelled
	EventFailed
)

// Event is one item on the channel returned by Send. Exactly one of
// EventCompleted, EventCancelled or EventFailed is delivered, last.
type Event struct {
	Kind    EventKind
	State   State
	Content string
	Err     error
	Usage   *models.Usage
}

// IsTerminal reports whether e ends the request.
func (e Event) IsTerminal() bool {
	return e.Kind == EventCompleted || e.Kind == EventCancelled || e.Kind == EventFailed
}
