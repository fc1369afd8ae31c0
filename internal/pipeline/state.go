package pipeline

// State is the stage a request reached.
type State string

const (
	StateReceived    State = "RECEIVED"
	StateSynthesized State = "SYNTHESIZED"
	StateValidated   State = "VALIDATED"
	StateAdapted     State = "ADAPTED"
	StateExecuted    State = "EXECUTED"
	StateRejected    State = "REJECTED"
	StateFailed      State = "FAILED"
)

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool {
	return s == StateExecuted || s == StateRejected || s == StateFailed
}
