package unlock

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ShieldedSignals are ignored while the gate holds the shield: a user at
// the console must not be able to interrupt, stop, or kill the check to
// get past it. The unlock command inherits the ignored dispositions.
var ShieldedSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTSTP,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGQUIT,
}

// Shield ignores ShieldedSignals for a scope.
type Shield struct{}

// Acquire starts ignoring the shielded signals and returns a function that
// restores their default handling. The release function is idempotent, so
// it can be deferred and also called early.
func (Shield) Acquire() (release func()) {
	signal.Ignore(ShieldedSignals...)
	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Reset(ShieldedSignals...)
		})
	}
}
