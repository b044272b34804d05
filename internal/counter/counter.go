// Package counter persists the gate's consecutive-failure count.
//
// The count is stored as a single decimal integer followed by a newline.
// A missing file means zero. Every write goes through atomicfile so a crash
// leaves either the old or the new value, and callers hold the store's lock
// across a read-modify-write.
package counter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/facegate/internal/atomicfile"
)

// ErrCorrupt is returned by Load when the file exists but does not hold a
// non-negative decimal integer.
var ErrCorrupt = errors.New("counter: corrupt contents")

// Store reads and writes the failure count at a fixed path.
type Store struct {
	path      string
	threshold int
}

// New creates a store for the counter file at path. Values read from disk
// are clamped to threshold.
func New(path string, threshold int) *Store {
	return &Store{path: path, threshold: threshold}
}

// Path returns the counter file path.
func (s *Store) Path() string {
	return s.path
}

// Lock takes the exclusive lock that guards read-modify-write cycles on the
// counter. Callers must Release it.
func (s *Store) Lock() (*atomicfile.Lock, error) {
	return atomicfile.Acquire(s.path + ".lock")
}

// Load returns the persisted count. A missing file is a count of zero.
func (s *Store) Load() (int, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading counter: %w", err)
	}
	n, err := parse(data)
	if err != nil {
		return 0, err
	}
	if n > s.threshold {
		n = s.threshold
	}
	return n, nil
}

// Save persists n. Negative values are rejected and values above the
// threshold are clamped, so the file always holds a count in
// [0, threshold].
func (s *Store) Save(n int) error {
	if n < 0 {
		return fmt.Errorf("counter: negative count %d", n)
	}
	if n > s.threshold {
		n = s.threshold
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating counter directory: %w", err)
	}
	if err := atomicfile.WriteFile(s.path, []byte(strconv.Itoa(n)+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing counter: %w", err)
	}
	return nil
}

// Reset sets the count to zero under the lock.
func (s *Store) Reset() error {
	lock, err := s.Lock()
	if err != nil {
		return err
	}
	defer lock.Release()
	return s.Save(0)
}

func parse(data []byte) (int, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, fmt.Errorf("%w: empty file", ErrCorrupt)
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrCorrupt, text)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrCorrupt, n)
	}
	return n, nil
}
