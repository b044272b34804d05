// Package registration edits the gate's entry in a boot registration file
// such as /etc/rc.local.
//
// The entry is a block of exactly two lines: a marker comment followed by
// the invocation line. The block is inserted and removed as a unit, and
// only lines that match the marker or the invocation line exactly are
// ever removed. Edits
// read the whole file, rebuild its content, and write it back atomically
// with the original mode, so a crash never leaves half a block behind.
package registration

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alfredjeanlab/facegate/internal/atomicfile"
)

// File is a boot registration file holding (or not) the gate's block.
type File struct {
	path   string
	marker string
	line   string
}

// New returns a File for the registration block marker+line in path.
func New(path, marker, line string) *File {
	return &File{path: path, marker: marker, line: line}
}

// Path returns the registration file path.
func (f *File) Path() string {
	return f.path
}

// Present reports whether the marker or the invocation line appears in the
// file. Either one means the gate may still be reached at boot. A missing
// file holds no registration.
func (f *File) Present() (bool, error) {
	lines, _, err := f.read()
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, l := range lines {
		if f.isMarker(l) || f.isLine(l) {
			return true, nil
		}
	}
	return false, nil
}

// Remove deletes every marker line and every invocation line, matched
// exactly. A complete block goes as a unit; a stray marker or invocation
// line left by a partial edit goes on its own. Nothing else is touched. It
// reports whether anything was removed. Removing an absent block, or from
// an absent file, is a no-op.
func (f *File) Remove() (bool, error) {
	lines, mode, err := f.read()
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	kept, removed := f.strip(lines)
	if !removed {
		return false, nil
	}
	if err := f.write(kept, mode); err != nil {
		return false, err
	}
	return true, nil
}

// Insert adds the block unless a complete one is already present. Stray
// marker or invocation lines are dropped first so the file ends up with a
// single block. The block goes before a trailing "exit 0" line when one
// exists, otherwise at the end. It reports whether the file changed. A
// missing file is created with a shell header so the boot mechanism can
// execute it.
func (f *File) Insert() (bool, error) {
	lines, mode, err := f.read()
	if errors.Is(err, os.ErrNotExist) {
		lines, mode = []string{"#!/bin/sh -e", "exit 0"}, 0o755
	} else if err != nil {
		return false, err
	}
	if f.hasBlock(lines) {
		return false, nil
	}
	lines, _ = f.strip(lines)

	at := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		t := strings.TrimSpace(lines[i])
		if t == "" {
			continue
		}
		if t == "exit 0" {
			at = i
		}
		break
	}

	out := make([]string, 0, len(lines)+2)
	out = append(out, lines[:at]...)
	out = append(out, f.marker, f.line)
	out = append(out, lines[at:]...)
	if err := f.write(out, mode); err != nil {
		return false, err
	}
	return true, nil
}

// hasBlock reports whether exactly one well-formed block is present and no
// stray marker or invocation line exists.
func (f *File) hasBlock(lines []string) bool {
	blocks, strays := 0, 0
	for i := 0; i < len(lines); i++ {
		switch {
		case f.isMarker(lines[i]) && i+1 < len(lines) && f.isLine(lines[i+1]):
			blocks++
			i++
		case f.isMarker(lines[i]) || f.isLine(lines[i]):
			strays++
		}
	}
	return blocks == 1 && strays == 0
}

// strip drops marker and invocation lines.
func (f *File) strip(lines []string) ([]string, bool) {
	kept := make([]string, 0, len(lines))
	removed := false
	for _, l := range lines {
		if f.isMarker(l) || f.isLine(l) {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	return kept, removed
}

func (f *File) isMarker(l string) bool {
	return strings.TrimSpace(l) == strings.TrimSpace(f.marker)
}

func (f *File) isLine(l string) bool {
	return strings.TrimSpace(l) == strings.TrimSpace(f.line)
}

// read returns the file's lines without their terminators, plus its mode.
func (f *File) read() ([]string, os.FileMode, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading registration file: %w", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, info.Mode().Perm(), nil
	}
	return strings.Split(text, "\n"), info.Mode().Perm(), nil
}

func (f *File) write(lines []string, mode os.FileMode) error {
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := atomicfile.WriteFile(f.path, []byte(content), mode); err != nil {
		return fmt.Errorf("writing registration file: %w", err)
	}
	return nil
}
