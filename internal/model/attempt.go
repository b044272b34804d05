package model

import (
	"encoding/json"
	"time"
)

// Outcome classifies a single gate evaluation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTripped Outcome = "tripped"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// IsValid checks whether the outcome is a known value.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomeTripped:
		return true
	}
	return false
}

// Decision returns the boot decision implied by the outcome.
func (o Outcome) Decision() Decision {
	if o == OutcomeSuccess {
		return Continue
	}
	return Terminate
}

// Attempt records one evaluation of the gate. It is the payload of gate
// events and the unit of the attempt journal.
type Attempt struct {
	ID          string        `json:"id"`
	Host        string        `json:"host,omitempty"`
	At          time.Time     `json:"at"`
	Outcome     Outcome       `json:"outcome"`
	CountBefore int           `json:"count_before"`
	CountAfter  int           `json:"count_after"`
	Threshold   int           `json:"threshold"`
	Ran         bool          `json:"ran"`
	ExitCode    int           `json:"exit_code"`
	TimedOut    bool          `json:"timed_out,omitempty"`
	Duration    time.Duration `json:"-"`
	Reason      string        `json:"reason,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// MarshalJSON renders Duration in milliseconds so journal lines stay
// readable.
func (a Attempt) MarshalJSON() ([]byte, error) {
	type alias Attempt
	return json.Marshal(struct {
		alias
		Duration int64 `json:"duration_ms,omitempty"`
	}{
		alias:    alias(a),
		Duration: a.Duration.Milliseconds(),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (a *Attempt) UnmarshalJSON(data []byte) error {
	type alias Attempt
	aux := struct {
		*alias
		Duration int64 `json:"duration_ms,omitempty"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Duration = time.Duration(aux.Duration) * time.Millisecond
	return nil
}
