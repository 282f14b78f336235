package router

// State is a step of one routed action
type State int

const (
	Idle State = iota
	Requested
	PrimaryAttempt
	PrimaryFailed
	FallbackAttempt
	Succeeded
	FallbackFailed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requested:
		return "requested"
	case PrimaryAttempt:
		return "primary-attempt"
	case PrimaryFailed:
		return "primary-failed"
	case FallbackAttempt:
		return "fallback-attempt"
	case Succeeded:
		return "succeeded"
	case FallbackFailed:
		return "fallback-failed"
	default:
		return "unknown"
	}
}

var allowed = map[State][]State{
	Idle:            {Requested},
	Requested:       {PrimaryAttempt},
	PrimaryAttempt:  {Succeeded, PrimaryFailed},
	PrimaryFailed:   {FallbackAttempt, Idle},
	FallbackAttempt: {Succeeded, FallbackFailed},
	Succeeded:       {Idle},
	FallbackFailed:  {Idle},
}

func canTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
