package job

// State is a job state.
type State string

// Job states.
const (
	StateValidating   State = "validating"
	StateAcquiring    State = "acquiring"
	StateTranscribing State = "transcribing"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Terminal reports whether s is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var transitions = map[State][]State{
	StateValidating:   {StateAcquiring, StateTranscribing, StateFailed},
	StateAcquiring:    {StateTranscribing, StateFailed},
	StateTranscribing: {StateCompleted, StateFailed},
}

// CanTransition reports whether a job in from may move to to. Local files
// skip acquiring, so validating may go straight to transcribing.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
