package coordinator

import "sync/atomic"

// indexLock provides non-blocking lock semantics using atomic operations.
// It is the sole mutual-exclusion mechanism for mutating passes: a second
// mutating call while one is running fails to acquire and is rejected as a
// no-op rather than queued.
type indexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// tryAcquire attempts to acquire the lock without blocking.
func (l *indexLock) tryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// release releases the lock. Must only be called by the goroutine that
// successfully acquired it.
func (l *indexLock) release() {
	l.state.Store(0)
}
