package atomicfile

import "errors"

// ErrLocked is returned by TryAcquire when the lock is held elsewhere.
var ErrLocked = errors.New("atomicfile: lock held by another process")
