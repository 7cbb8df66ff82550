package engine

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// lockOrderGuard is the adversarial test hook guarding lock order: taking
// the thread-id-map lock while the calling goroutine already holds the
// breakpoint table lock is a lock-order violation (the documented ordering
// is thread-id-map before breakpoint table, never the reverse).
// This is process-wide rather than per-Process because the violation is a
// programming error independent of which debuggee triggered it.
var lockOrderGuard struct {
	mu              sync.Mutex
	holdsBreakpoint map[int64]bool
}

func init() {
	lockOrderGuard.holdsBreakpoint = make(map[int64]bool)
}

// goroutineID extracts the calling goroutine's id from its own stack trace
// header ("goroutine 123 [running]:..."). This is the standard informal
// technique for goroutine-local bookkeeping in the absence of a language
// primitive; it is used here only by the adversarial lock-order test hook,
// which runs on every BreakpointTable lock and unlock and on every
// ThreadRegistry.LockChecked call.
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if idx := bytes.IndexByte(buf, ' '); idx >= 0 {
		buf = buf[:idx]
	}
	id, _ := strconv.ParseInt(string(buf), 10, 64)
	return id
}

// markBreakpointLockHeld/clearBreakpointLockHeld bracket a BreakpointTable
// critical section.
func markBreakpointLockHeld() {
	lockOrderGuard.mu.Lock()
	lockOrderGuard.holdsBreakpoint[goroutineID()] = true
	lockOrderGuard.mu.Unlock()
}

func clearBreakpointLockHeld() {
	gid := goroutineID()
	lockOrderGuard.mu.Lock()
	delete(lockOrderGuard.holdsBreakpoint, gid)
	lockOrderGuard.mu.Unlock()
}

// assertThreadLockOrder is called by ThreadRegistry.LockChecked (plain
// ThreadRegistry.Lock does not check); it
// returns ErrLockOrderViolation if the calling goroutine currently holds
// the breakpoint table lock, which would violate the documented order.
func assertThreadLockOrder() error {
	lockOrderGuard.mu.Lock()
	held := lockOrderGuard.holdsBreakpoint[goroutineID()]
	lockOrderGuard.mu.Unlock()
	if held {
		return ErrLockOrderViolation
	}
	return nil
}
