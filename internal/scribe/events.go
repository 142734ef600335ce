package scribe

// EventKind discriminates the variants of Event.
type EventKind int

const (
	// EventSessionStarted is emitted once the server confirms the session.
	EventSessionStarted EventKind = iota
	// EventPartial carries a provisional hypothesis for the current
	// utterance. Each partial supersedes the previous one.
	EventPartial
	// EventCommitted carries a finalized utterance segment.
	EventCommitted
	// EventError carries a server-reported or terminal session error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventSessionStarted:
		return "session_started"
	case EventPartial:
		return "partial"
	case EventCommitted:
		return "committed"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is a single item on the session's ordered event stream.
// Text is set for partial/committed events, Err for error events.
// Events are immutable once constructed.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}
