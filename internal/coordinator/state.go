package coordinator

import "log/slog"

// State is a stage in a translation request's lifecycle. Requests only
// move along the defined transitions; every terminal request ends in
// Completed or Failed exactly once.
type State string

const (
	StateReceived          State = "received"
	StateLanguageResolved  State = "language_resolved"
	StateCacheChecked      State = "cache_checked"
	StateCacheHit          State = "cache_hit"
	StateBackendDispatched State = "backend_dispatched"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
)

var transitions = map[State][]State{
	StateReceived:          {StateLanguageResolved, StateCompleted, StateFailed},
	StateLanguageResolved:  {StateCacheChecked, StateBackendDispatched, StateCompleted, StateFailed},
	StateCacheChecked:      {StateCacheHit, StateBackendDispatched, StateCompleted, StateFailed},
	StateCacheHit:          {StateCompleted},
	StateBackendDispatched: {StateCompleted, StateFailed},
}

// lifecycle tracks one request through the state machine and logs each
// transition at debug level.
type lifecycle struct {
	messageID string
	current   State
}

func newLifecycle(messageID string) *lifecycle {
	return &lifecycle{messageID: messageID, current: StateReceived}
}

func (l *lifecycle) to(next State) {
	if !validTransition(l.current, next) {
		slog.Warn("invalid state transition",
			"message_id", l.messageID,
			"from", string(l.current),
			"to", string(next),
		)
		return
	}
	slog.Debug("translation state",
		"message_id", l.messageID,
		"from", string(l.current),
		"to", string(next),
	)
	l.current = next
}

func validTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
