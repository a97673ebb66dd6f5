package spectro

import "fmt"

// State is a step of the sampling cycle.
type State int

const (
	Idle State = iota
	Sampling
	Aggregating
	Normalizing
	Inferring
	Reporting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Sampling:
		return "SAMPLING"
	case Aggregating:
		return "AGGREGATING"
	case Normalizing:
		return "NORMALIZING"
	case Inferring:
		return "INFERRING"
	case Reporting:
		return "REPORTING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
