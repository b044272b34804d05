package model

// State is the arming state of the failsafe gate.
type State string

const (
	// StateArmed means the failure count is below the threshold and the
	// gate still runs the unlock check.
	StateArmed State = "armed"
	// StateTripped means the threshold was reached; the gate no longer runs
	// the unlock check and removes its own boot registration.
	StateTripped State = "tripped"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// StateFor returns the state implied by a failure count.
func StateFor(count, threshold int) State {
	if count >= threshold {
		return StateTripped
	}
	return StateArmed
}

// Decision is what the gate tells the boot sequence to do.
type Decision string

const (
	Continue  Decision = "continue"
	Terminate Decision = "terminate"
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	return string(d)
}

// IsValid checks whether the decision is a known value.
func (d Decision) IsValid() bool {
	switch d {
	case Continue, Terminate:
		return true
	}
	return false
}
