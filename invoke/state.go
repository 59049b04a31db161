package invoke

import "fmt"

// State is a step of a single invocation. States only move forward; any
// failure ends in StateFailed.
type State int

const (
	StateValidated State = iota
	StateBytesLoaded
	StateInstantiating
	StateInvoked
	StateReported
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidated:
		return "validated"
	case StateBytesLoaded:
		return "bytes_loaded"
	case StateInstantiating:
		return "instantiating"
	case StateInvoked:
		return "invoked"
	case StateReported:
		return "reported"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateReported || s == StateFailed
}
