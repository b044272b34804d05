// Package journal keeps a local append-only record of gate attempts, one
// JSON object per line.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alfredjeanlab/facegate/internal/model"
)

// maxLine bounds a single journal line when reading.
const maxLine = 64 * 1024

// Journal appends attempts to a JSONL file.
type Journal struct {
	path string
}

// New returns a journal backed by the file at path.
func New(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one attempt as a single line. Each line is written with one
// write call on an O_APPEND descriptor, so concurrent appenders do not
// interleave within a line.
func (j *Journal) Append(a model.Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("journal: marshaling attempt: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("journal: creating directory: %w", err)
	}
	f, err := os.OpenFile(j.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("journal: opening: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("journal: writing: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("journal: syncing: %w", err)
	}
	return f.Close()
}

// Read returns all attempts in file order. Lines that do not parse (a torn
// final write, manual edits) are skipped. A missing journal is empty.
func (j *Journal) Read() ([]model.Attempt, error) {
	f, err := os.Open(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: opening: %w", err)
	}
	defer f.Close()

	var attempts []model.Attempt
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var a model.Attempt
		if err := json.Unmarshal(line, &a); err != nil || a.ID == "" {
			continue
		}
		attempts = append(attempts, a)
	}
	if err := sc.Err(); err != nil {
		return attempts, fmt.Errorf("journal: reading: %w", err)
	}
	return attempts, nil
}

// Tail returns the last n attempts (all of them when n <= 0).
func (j *Journal) Tail(n int) ([]model.Attempt, error) {
	attempts, err := j.Read()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(attempts) > n {
		attempts = attempts[len(attempts)-n:]
	}
	return attempts, nil
}
