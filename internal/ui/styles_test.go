package ui

import (
	"strings"
	"testing"

	"github.com/alfredjeanlab/facegate/internal/model"
)

func TestRenderCount(t *testing.T) {
	for _, tc := range []struct {
		count int
		code  string
	}{
		{0, "114"},
		{2, "179"},
		{3, "203"},
	} {
		got := RenderCount(tc.count, 3)
		if !strings.Contains(got, "38;5;"+tc.code+"m") {
			t.Errorf("RenderCount(%d, 3) = %q, want color %s", tc.count, got, tc.code)
		}
	}
}

func TestRenderStateAndOutcome(t *testing.T) {
	if got := RenderState(model.StateTripped); !strings.Contains(got, "tripped") || !strings.Contains(got, "203") {
		t.Errorf("RenderState(tripped) = %q", got)
	}
	if got := RenderOutcome(model.OutcomeFailure); !strings.Contains(got, "179") {
		t.Errorf("RenderOutcome(failure) = %q", got)
	}
}

func TestForceNoColor(t *testing.T) {
	t.Cleanup(ForceNoColor())
	if got := RenderAccent("x"); got != "x" {
		t.Errorf("RenderAccent with no color = %q", got)
	}
	if got := RenderState(model.StateArmed); got != "armed" {
		t.Errorf("RenderState with no color = %q", got)
	}
}

func TestForceNoColorRestores(t *testing.T) {
	prev := noColor
	t.Cleanup(func() { noColor = prev })

	noColor = false
	restore := ForceNoColor()
	inner := ForceNoColor()
	inner()
	if !noColor {
		t.Error("inner restore re-enabled color the outer call disabled")
	}
	restore()
	if noColor {
		t.Error("restore left color disabled")
	}
	if got := RenderAccent("x"); got == "x" {
		t.Errorf("RenderAccent after restore = %q, want color", got)
	}
}
