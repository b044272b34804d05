package sync

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/facegate/internal/model"
)

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(nil, "kiosk-7", &buf); err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header), got %d", len(lines))
	}
	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Type != "header" || h.Version != "1" || h.Host != "kiosk-7" || h.AttemptCount != 0 {
		t.Errorf("header = %+v", h)
	}
}

func TestExportJSONL_SortsAndStampsHost(t *testing.T) {
	at := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)
	attempts := []model.Attempt{
		{ID: "att-late", At: at.Add(time.Hour), Outcome: model.OutcomeSuccess},
		{ID: "att-early", At: at, Outcome: model.OutcomeFailure, Host: "other"},
	}

	var buf bytes.Buffer
	if err := ExportJSONL(attempts, "kiosk-7", &buf); err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}
	if len(nonEmptyLines(buf.String())) != 3 {
		t.Fatalf("expected 3 lines, got %q", buf.String())
	}

	got, err := parseAttempts(buf.Bytes())
	if err != nil {
		t.Fatalf("parseAttempts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parsed %d attempts, want 2", len(got))
	}
	if got[0].ID != "att-early" || got[1].ID != "att-late" {
		t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Host != "other" {
		t.Errorf("existing host overwritten: %q", got[0].Host)
	}
	if got[1].Host != "kiosk-7" {
		t.Errorf("host = %q, want kiosk-7", got[1].Host)
	}

	// The caller's slice is not reordered.
	if attempts[0].ID != "att-late" {
		t.Error("ExportJSONL mutated its input")
	}
}
