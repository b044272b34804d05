// Package ui renders gate state for operator commands.
package ui

import (
	"fmt"

	"github.com/alfredjeanlab/facegate/internal/model"
)

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorOK     = 114 // green
	colorWarn   = 179 // amber
	colorAlert  = 203 // red
	colorMuted  = 245 // medium gray
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderState colors a gate state: armed is green, tripped is red.
func RenderState(s model.State) string {
	if s == model.StateTripped {
		return render(colorAlert, s.String())
	}
	return render(colorOK, s.String())
}

// RenderOutcome colors an attempt outcome.
func RenderOutcome(o model.Outcome) string {
	switch o {
	case model.OutcomeSuccess:
		return render(colorOK, o.String())
	case model.OutcomeFailure:
		return render(colorWarn, o.String())
	default:
		return render(colorAlert, o.String())
	}
}

// RenderCount renders "count/threshold", amber once any failure is on
// record and red at the threshold.
func RenderCount(count, threshold int) string {
	s := fmt.Sprintf("%d/%d", count, threshold)
	switch {
	case count >= threshold:
		return render(colorAlert, s)
	case count > 0:
		return render(colorWarn, s)
	default:
		return render(colorOK, s)
	}
}

// ForceNoColor disables color output globally. The returned func puts back
// the previous setting.
func ForceNoColor() (restore func()) {
	prev := noColor
	noColor = true
	return func() { noColor = prev }
}
