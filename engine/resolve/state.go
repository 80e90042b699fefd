package resolve

// State is a step of the /resolve request pipeline.
// Transitions are one way: Received, Validating, Resolving, Completed,
// or one of the terminal failure states.
type State int

const (
	StateReceived State = iota
	StateValidating
	StateResolving
	StateCompleted
	StateRequestError
	StateValidationFailed
	StateResolutionFailed
	StateUnhandled
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidating:
		return "validating"
	case StateResolving:
		return "resolving"
	case StateCompleted:
		return "completed"
	case StateRequestError:
		return "request_error"
	case StateValidationFailed:
		return "validation_failed"
	case StateResolutionFailed:
		return "resolution_failed"
	case StateUnhandled:
		return "unhandled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s >= StateCompleted
}
