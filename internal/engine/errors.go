package engine

import "fmt"

// EngineError is the error type every public engine operation surfaces.
// Production callers are expected to errors.Is/errors.As against the
// sentinels below rather than string-match messages.
type EngineError error

var (
	// ErrOSPrimitiveFailed wraps a failure of a native OS debug primitive
	// (suspend, resume, read/write memory, continue).
	ErrOSPrimitiveFailed EngineError = fmt.Errorf("os primitive failed")
	// ErrIPCFailed wraps a failure to send or receive on the scripted transport.
	ErrIPCFailed EngineError = fmt.Errorf("ipc transport failed")
	// ErrUnknownBreakpoint is returned when Remove is given an address with
	// no installed record (Find reports that case as false).
	ErrUnknownBreakpoint EngineError = fmt.Errorf("no breakpoint at address")
	// ErrNotStopped names the "process is running" condition. No engine
	// operation returns it: Continue on a running scripted process is a
	// no-op, and Step and DoStackWalk do not check for a stop.
	ErrNotStopped EngineError = fmt.Errorf("process is not stopped")
	// ErrLockOrderViolation is raised by the adversarial lock-order test hook
	// when the breakpoint table lock is held while acquiring the thread-id
	// map lock.
	ErrLockOrderViolation EngineError = fmt.Errorf("lock order violation: breakpoint table held before thread map")
	// ErrWrongKind is returned when a native-only or scripted-only operation
	// is invoked against the other debuggee kind.
	ErrWrongKind EngineError = fmt.Errorf("operation not supported for this debuggee kind")
)

// wrap returns nil if cause is nil, and otherwise wraps cause with
// sentinel so callers can errors.Is against the sentinel while still seeing
// the underlying OS/IPC error text.
func wrap(sentinel EngineError, cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", sentinel, cause)
}
