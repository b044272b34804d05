// Package session asks the host to end the pending user session.
package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Terminator requests the end of the current session. The request is fire
// and forget: a nil error means it was issued, not that the session ended,
// and the call may never return if the host tears down the gate with it.
type Terminator interface {
	Terminate(ctx context.Context) error
}

// CommandTerminator issues the termination request by starting a command.
// With Command empty it runs "loginctl terminate-user <User>"; otherwise it
// runs Command through "sh -c" with FACEGATE_SESSION_USER set.
type CommandTerminator struct {
	User    string
	Command string

	// start launches the command; replaced in tests.
	start func(cmd *exec.Cmd) error
}

// NewCommandTerminator creates a terminator for user.
func NewCommandTerminator(user, command string) *CommandTerminator {
	return &CommandTerminator{User: user, Command: command}
}

// Terminate starts the termination command and does not wait for it.
func (t *CommandTerminator) Terminate(ctx context.Context) error {
	cmd, err := t.command()
	if err != nil {
		return err
	}
	start := t.start
	if start == nil {
		start = startDetached
	}
	if err := start(cmd); err != nil {
		return fmt.Errorf("session: starting %s: %w", cmd.Path, err)
	}
	return nil
}

func (t *CommandTerminator) command() (*exec.Cmd, error) {
	if t.Command != "" {
		cmd := exec.Command("sh", "-c", t.Command) //nolint:gosec // operator-configured command
		cmd.Env = append(os.Environ(), "FACEGATE_SESSION_USER="+t.User)
		return cmd, nil
	}
	if t.User == "" {
		return nil, fmt.Errorf("session: no session user configured")
	}
	return exec.Command("loginctl", "terminate-user", t.User), nil
}

// startDetached starts cmd and releases it so the gate does not wait.
func startDetached(cmd *exec.Cmd) error {
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
