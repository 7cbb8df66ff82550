package engine

import "time"

// NativeSource is the contract the poll loop and command façade drive a
// native (OS-debugged) debuggee through. Unlike the collaborator contracts
// in external.go, this one IS in scope: process launch/attach is a fixed
// prelude but the ongoing OS debug primitives it exercises (suspend,
// memory access, breakpoint byte patching, single-step control) are the
// engine's own responsibility. A concrete Linux implementation lives in
// native_linux.go, grounded on the standard library's syscall.Ptrace*
// family; other platforms can supply their own NativeSource without
// touching the orchestration engine.
type NativeSource interface {
	// WaitForEvent blocks up to timeout for the next OS debug event. ok is
	// false on timeout, not an error.
	WaitForEvent(timeout time.Duration) (event *RawNativeEvent, ok bool, err error)

	// ContinueEvent resumes the debuggee after handling (or deliberately
	// not handling) the last event delivered by WaitForEvent.
	ContinueEvent(processID, threadID int, handled bool) error

	ReadMemory(addr uint64, size int) ([]byte, error)
	WriteMemory(addr uint64, data []byte) error

	SuspendThread(t *Thread) error
	ResumeThread(t *Thread) error

	GetInstructionPointer(t *Thread) (uint64, error)
	SetInstructionPointer(t *Thread, ip uint64) error
	GetFlagsRegister(t *Thread) (uint32, error)
	SetFlagsRegister(t *Thread, flags uint32) error
	FlushInstructionCache(addr uint64, size int) error

	DebugBreakProcess() error
	DetachProcess() error
	TerminateProcess() error
}
