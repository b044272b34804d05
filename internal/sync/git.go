package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alfredjeanlab/facegate/internal/atomicfile"
)

// GitDestination commits the journal export into a local clone and pushes
// it, so operators get a reviewable history of gate attempts per host.
type GitDestination struct {
	repo   string
	file   string // relative to repo
	branch string
	host   string
}

// NewGitDestination creates a git destination for an existing clone at
// repo. A "{host}" placeholder in file is expanded.
func NewGitDestination(repo, file, branch, host string) *GitDestination {
	return &GitDestination{
		repo:   repo,
		file:   ExpandHost(file, host),
		branch: branch,
		host:   host,
	}
}

// Write replaces the export file, then commits and pushes when its content
// changed.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if _, err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}
	// The remote branch may not exist yet.
	_, _ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	if _, err := d.git(ctx, "add", "--", d.file); err != nil {
		return err
	}

	changed, err := d.staged(ctx)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	msg := "facegate: update attempt journal"
	if d.host != "" {
		msg += " for " + d.host
	}
	if _, err := d.git(ctx, "commit", "-m", msg); err != nil {
		return err
	}
	_, err = d.git(ctx, "push", "origin", d.branch)
	return err
}

// staged reports whether the index differs from HEAD.
func (d *GitDestination) staged(ctx context.Context) (bool, error) {
	_, err := d.git(ctx, "diff", "--cached", "--quiet")
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return false, nil
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
		return true, nil
	default:
		return false, err
	}
}

// git runs a git subcommand in the clone. Failures carry git's output.
func (d *GitDestination) git(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return out.String(), nil
}
