package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/facegate/internal/ui"
)

const testRCLocal = `#!/bin/sh -e
/usr/bin/setleds -D +num
# facegate failsafe gate
/usr/local/bin/facegate run
exit 0
`

// runEnv points every path "facegate run" touches into a temp dir. The
// unlock script and the terminate command each leave a file behind.
type runEnv struct {
	dir        string
	counter    string
	rcLocal    string
	unlocked   string
	terminated string
}

func newRunEnv(t *testing.T) *runEnv {
	t.Helper()
	dir := t.TempDir()
	e := &runEnv{
		dir:        dir,
		counter:    filepath.Join(dir, "failures"),
		rcLocal:    filepath.Join(dir, "rc.local"),
		unlocked:   filepath.Join(dir, "unlocked"),
		terminated: filepath.Join(dir, "terminated"),
	}
	if err := os.WriteFile(e.rcLocal, []byte(testRCLocal), 0o755); err != nil {
		t.Fatal(err)
	}
	unlock := filepath.Join(dir, "face-unlock")
	script := "#!/bin/sh\ntouch " + e.unlocked + "\nexit 0\n"
	if err := os.WriteFile(unlock, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{
		"FACEGATE_MARKER", "FACEGATE_INVOCATION_LINE", "FACEGATE_CHECK_TIMEOUT",
		"FACEGATE_NATS_URL", "FACEGATE_LOG_LEVEL", "FACEGATE_SYNC_INTERVAL",
		"FACEGATE_SYNC_S3_BUCKET", "FACEGATE_SYNC_GIT_REPO", "FACEGATE_SYNC_POSTGRES_URL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("FACEGATE_CONFIG", filepath.Join(dir, "absent.toml"))
	t.Setenv("FACEGATE_COUNTER_PATH", e.counter)
	t.Setenv("FACEGATE_REGISTRATION_PATH", e.rcLocal)
	t.Setenv("FACEGATE_UNLOCK_COMMAND", unlock)
	t.Setenv("FACEGATE_JOURNAL_PATH", filepath.Join(dir, "journal.jsonl"))
	t.Setenv("FACEGATE_SESSION_USER", "kiosk")
	t.Setenv("FACEGATE_TERMINATE_COMMAND", "touch "+e.terminated)

	t.Cleanup(ui.ForceNoColor())
	prevCfg, prevLogger, prevJSON := cfg, logger, jsonOutput
	t.Cleanup(func() { cfg, logger, jsonOutput = prevCfg, prevLogger, prevJSON })
	return e
}

func (e *runEnv) execute() error {
	rootCmd.SetArgs([]string{"run"})
	defer rootCmd.SetArgs(nil)
	return rootCmd.Execute()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// waitFor polls for path; the terminate command runs detached.
func waitFor(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !exists(path) {
		if time.Now().After(deadline) {
			t.Fatalf("%s never appeared", filepath.Base(path))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRun_Success(t *testing.T) {
	e := newRunEnv(t)

	if err := e.execute(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !exists(e.unlocked) {
		t.Error("unlock command did not run")
	}
	data, err := os.ReadFile(e.counter)
	if err != nil {
		t.Fatalf("reading counter: %v", err)
	}
	if string(data) != "0\n" {
		t.Errorf("counter = %q, want %q", data, "0\n")
	}
}

// Settings the gate can do without fall back to defaults; the unlock
// check still runs.
func TestRun_NonGateConfigErrorsDoNotBlock(t *testing.T) {
	for _, tc := range []struct {
		name, key, value string
	}{
		{"SyncInterval", "FACEGATE_SYNC_INTERVAL", "5 minutes"},
		{"LogLevel", "FACEGATE_LOG_LEVEL", "loud"},
		{"CheckTimeout", "FACEGATE_CHECK_TIMEOUT", "soon"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newRunEnv(t)
			t.Setenv(tc.key, tc.value)

			if err := e.execute(); err != nil {
				t.Fatalf("run: %v", err)
			}
			if !exists(e.unlocked) {
				t.Error("unlock command did not run")
			}
			if exists(e.terminated) {
				t.Error("session terminated after a successful check")
			}
			if len(configProblems.Other) == 0 {
				t.Error("config problem was not reported")
			}
		})
	}
}

// A configuration the gate cannot run with trips it without running the
// unlock check.
func TestRun_GateConfigErrorsFailClosed(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(t *testing.T, e *runEnv)
	}{
		{
			name:  "RelativeCounter",
			setup: func(t *testing.T, e *runEnv) { t.Setenv("FACEGATE_COUNTER_PATH", "failures") },
		},
		{
			name:  "RelativeUnlock",
			setup: func(t *testing.T, e *runEnv) { t.Setenv("FACEGATE_UNLOCK_COMMAND", "face-unlock") },
		},
		{
			name: "MalformedFile",
			setup: func(t *testing.T, e *runEnv) {
				path := filepath.Join(e.dir, "facegate.toml")
				if err := os.WriteFile(path, []byte("unlock_command = \n"), 0o600); err != nil {
					t.Fatal(err)
				}
				t.Setenv("FACEGATE_CONFIG", path)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newRunEnv(t)
			tc.setup(t, e)

			err := e.execute()
			if !errors.Is(err, errSessionTerminated) {
				t.Fatalf("err = %v, want errSessionTerminated", err)
			}
			waitFor(t, e.terminated)
			if exists(e.unlocked) {
				t.Error("unlock command ran with an unusable configuration")
			}
			data, err := os.ReadFile(e.rcLocal)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Contains(string(data), "facegate") {
				t.Errorf("registration left in place:\n%s", data)
			}
			if !strings.Contains(string(data), "setleds") {
				t.Errorf("unrelated rc.local lines removed:\n%s", data)
			}
		})
	}
}

func TestRun_TrippedCounterTerminates(t *testing.T) {
	e := newRunEnv(t)
	if err := os.WriteFile(e.counter, []byte("3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := e.execute(); !errors.Is(err, errSessionTerminated) {
		t.Fatalf("err = %v, want errSessionTerminated", err)
	}
	waitFor(t, e.terminated)
	if exists(e.unlocked) {
		t.Error("unlock command ran after the gate tripped")
	}
}
