package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/facegate/internal/model"
)

// Record types in an export.
const (
	recordHeader  = "header"
	recordAttempt = "attempt"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Host         string    `json:"host,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	AttemptCount int       `json:"attempt_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ExportJSONL writes a header followed by one record per attempt, ordered
// by time. Attempts without a host are stamped with host.
func ExportJSONL(attempts []model.Attempt, host string, w io.Writer) error {
	sorted := make([]model.Attempt, len(attempts))
	copy(sorted, attempts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      "1",
		Type:         recordHeader,
		Host:         host,
		Timestamp:    time.Now().UTC(),
		AttemptCount: len(sorted),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, a := range sorted {
		if a.Host == "" {
			a.Host = host
		}
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode attempt %s: %w", a.ID, err)
		}
		if err := enc.Encode(record{Type: recordAttempt, Data: data}); err != nil {
			return fmt.Errorf("encode attempt %s: %w", a.ID, err)
		}
	}
	return nil
}

// parseAttempts extracts the attempt records from an export payload.
func parseAttempts(data []byte) ([]model.Attempt, error) {
	var attempts []model.Attempt
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		if rec.Type != recordAttempt {
			continue
		}
		var a model.Attempt
		if err := json.Unmarshal(rec.Data, &a); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}
