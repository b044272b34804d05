package gate

import (
	"fmt"

	"github.com/alfredjeanlab/facegate/internal/model"
)

// Status is a read-only snapshot of the gate for operators.
type Status struct {
	State            model.State `json:"state"`
	Count            int         `json:"count"`
	Threshold        int         `json:"threshold"`
	Registered       bool        `json:"registered"`
	CounterPath      string      `json:"counter_path"`
	RegistrationPath string      `json:"registration_path"`
	// CounterError is set when the counter could not be read; the gate
	// treats that as tripped.
	CounterError     string      `json:"counter_error,omitempty"`
}

// Status reads the counter and the registration file without changing
// either.
func (g *Gate) Status() (Status, error) {
	st := Status{
		Threshold:        g.Threshold,
		CounterPath:      g.Counter.Path(),
		RegistrationPath: g.Registration.Path(),
	}
	count, err := g.Counter.Load()
	if err != nil {
		st.CounterError = err.Error()
		count = g.Threshold
	}
	st.Count = count
	st.State = model.StateFor(count, g.Threshold)

	registered, err := g.Registration.Present()
	if err != nil {
		return st, fmt.Errorf("reading registration: %w", err)
	}
	st.Registered = registered
	return st, nil
}

// Reset clears the failure count.
func (g *Gate) Reset() error {
	if err := g.Counter.Reset(); err != nil {
		return fmt.Errorf("resetting counter: %w", err)
	}
	g.Logger.Info("gate: failure count reset", "path", g.Counter.Path())
	return nil
}

// Arm re-installs the boot registration and clears the failure count. It
// is the only way back to armed after a trip. It reports whether the
// registration had to be inserted.
func (g *Gate) Arm() (bool, error) {
	if err := g.Counter.Reset(); err != nil {
		return false, fmt.Errorf("resetting counter: %w", err)
	}
	inserted, err := g.Registration.Insert()
	if err != nil {
		return false, fmt.Errorf("inserting registration: %w", err)
	}
	g.Logger.Info("gate: armed", "registration", g.Registration.Path(), "inserted", inserted)
	return inserted, nil
}

// Disarm removes the boot registration and leaves the counter alone. It
// reports whether a registration block was found.
func (g *Gate) Disarm() (bool, error) {
	removed, err := g.Registration.Remove()
	if err != nil {
		return false, fmt.Errorf("removing registration: %w", err)
	}
	g.Logger.Info("gate: disarmed", "registration", g.Registration.Path(), "removed", removed)
	return removed, nil
}
