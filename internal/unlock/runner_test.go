package unlock

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

// writeScript creates an executable shell script in a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "check")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietRunner(path string, timeout time.Duration) *Runner {
	r := NewRunner(path, timeout)
	r.Stdin, r.Stdout, r.Stderr = nil, nil, nil
	return r
}

func TestRun_ExitStatus(t *testing.T) {
	for _, tc := range []struct {
		name     string
		body     string
		wantOK   bool
		wantCode int
	}{
		{name: "Success", body: "exit 0", wantOK: true, wantCode: 0},
		{name: "Failure", body: "exit 1", wantCode: 1},
		{name: "OtherCode", body: "exit 7", wantCode: 7},
		{name: "OutputIgnored", body: "echo unlocked; exit 2", wantCode: 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := quietRunner(writeScript(t, tc.body), 5*time.Second).Run(context.Background())
			if res.OK() != tc.wantOK {
				t.Errorf("OK() = %v, want %v (err=%v)", res.OK(), tc.wantOK, res.Err)
			}
			if res.ExitCode != tc.wantCode {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tc.wantCode)
			}
			if res.TimedOut {
				t.Error("TimedOut = true")
			}
		})
	}
}

func TestRun_MissingCommand(t *testing.T) {
	res := quietRunner(filepath.Join(t.TempDir(), "absent"), time.Second).Run(context.Background())
	if res.OK() {
		t.Fatal("missing command reported success")
	}
	if res.Err == nil {
		t.Error("expected launch error")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
}

func TestRun_NotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "check")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if res := quietRunner(path, time.Second).Run(context.Background()); res.OK() {
		t.Fatal("non-executable command reported success")
	}
}

func TestRun_Timeout(t *testing.T) {
	r := quietRunner(writeScript(t, "exec sleep 30"), time.Second)

	start := time.Now()
	res := r.Run(context.Background())
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("Run took %v, timeout not enforced", elapsed)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false")
	}
	if res.OK() {
		t.Error("timed out check reported success")
	}
}

func TestClampTimeout(t *testing.T) {
	for _, tc := range []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, DefaultTimeout},
		{-time.Second, DefaultTimeout},
		{time.Millisecond, MinTimeout},
		{30 * time.Second, 30 * time.Second},
		{time.Hour, MaxTimeout},
	} {
		if got := ClampTimeout(tc.in); got != tc.want {
			t.Errorf("ClampTimeout(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestShield(t *testing.T) {
	release := Shield{}.Acquire()
	for _, sig := range []syscall.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTSTP} {
		if !signal.Ignored(sig) {
			t.Errorf("%v not ignored while shield is held", sig)
		}
	}
	release()
	release()
}
