//go:build linux

package engine

import (
	"fmt"
	"syscall"
	"time"
)

// LinuxPtraceSource is a NativeSource backed by the standard library's
// ptrace wrappers, the same primitives used throughout the ptrace-based
// debugger demos in this codebase's lineage: PtracePeekText/PokeText for
// breakpoint byte patching, PtraceGetRegs/SetRegs for IP and flags,
// PtraceCont for event-driven execution (single-stepping is armed through
// the trap flag in Eflags), syscall.Wait4 for the event pump.
type LinuxPtraceSource struct {
	pid int
}

// NewLinuxPtraceSource wraps an already-ptrace-attached process id. The
// attach/launch prelude that produces this pid is outside this engine's
// scope.
func NewLinuxPtraceSource(pid int) *LinuxPtraceSource {
	return &LinuxPtraceSource{pid: pid}
}

func (s *LinuxPtraceSource) WaitForEvent(timeout time.Duration) (*RawNativeEvent, bool, error) {
	// syscall.Wait4 has no timeout parameter; the poll loop's 50ms budget
	// is honored by polling WNOHANG in a short loop instead of blocking
	// indefinitely on a tracee that may never produce an event within the
	// requested window.
	deadline := time.Now().Add(timeout)
	for {
		var status syscall.WaitStatus
		wpid, err := syscall.Wait4(s.pid, &status, syscall.WNOHANG, nil)
		if err != nil {
			return nil, false, fmt.Errorf("wait4: %w", err)
		}
		if wpid == s.pid {
			return decodeWaitStatus(s.pid, status), true, nil
		}
		if time.Now().After(deadline) {
			return nil, false, nil
		}
		time.Sleep(time.Millisecond)
	}
}

func decodeWaitStatus(pid int, status syscall.WaitStatus) *RawNativeEvent {
	switch {
	case status.Exited():
		return &RawNativeEvent{Kind: RawExitProcess, ProcessID: pid, ExitCode: int32(status.ExitStatus())}
	case status.Stopped() && status.StopSignal() == syscall.SIGTRAP:
		return &RawNativeEvent{Kind: RawException, ProcessID: pid, ThreadID: pid, ExceptionCode: ExceptionCodeBreakpoint}
	default:
		return &RawNativeEvent{Kind: RawRip, ProcessID: pid, RipError: fmt.Errorf("unexpected wait status %v", status)}
	}
}

func (s *LinuxPtraceSource) ContinueEvent(processID, threadID int, handled bool) error {
	return syscall.PtraceCont(threadID, 0)
}

func (s *LinuxPtraceSource) ReadMemory(addr uint64, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := syscall.PtracePeekText(s.pid, uintptr(addr), buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (s *LinuxPtraceSource) WriteMemory(addr uint64, data []byte) error {
	_, err := syscall.PtracePokeText(s.pid, uintptr(addr), data)
	return err
}

func (s *LinuxPtraceSource) SuspendThread(t *Thread) error {
	return syscall.Kill(t.ID, syscall.SIGSTOP)
}

func (s *LinuxPtraceSource) ResumeThread(t *Thread) error {
	return syscall.PtraceCont(t.ID, 0)
}

func (s *LinuxPtraceSource) GetInstructionPointer(t *Thread) (uint64, error) {
	var regs syscall.PtraceRegs
	if err := syscall.PtraceGetRegs(t.ID, &regs); err != nil {
		return 0, err
	}
	return regs.Rip, nil
}

func (s *LinuxPtraceSource) SetInstructionPointer(t *Thread, ip uint64) error {
	var regs syscall.PtraceRegs
	if err := syscall.PtraceGetRegs(t.ID, &regs); err != nil {
		return err
	}
	regs.Rip = ip
	return syscall.PtraceSetRegs(t.ID, &regs)
}

func (s *LinuxPtraceSource) GetFlagsRegister(t *Thread) (uint32, error) {
	var regs syscall.PtraceRegs
	if err := syscall.PtraceGetRegs(t.ID, &regs); err != nil {
		return 0, err
	}
	return uint32(regs.Eflags), nil
}

func (s *LinuxPtraceSource) SetFlagsRegister(t *Thread, flags uint32) error {
	var regs syscall.PtraceRegs
	if err := syscall.PtraceGetRegs(t.ID, &regs); err != nil {
		return err
	}
	regs.Eflags = uint64(flags)
	return syscall.PtraceSetRegs(t.ID, &regs)
}

// FlushInstructionCache is a no-op on x86: the architecture maintains
// instruction/data cache coherency in hardware, unlike ARM where the
// original collaborator contract requires an explicit flush.
func (s *LinuxPtraceSource) FlushInstructionCache(addr uint64, size int) error {
	return nil
}

func (s *LinuxPtraceSource) DebugBreakProcess() error {
	return syscall.Kill(s.pid, syscall.SIGTRAP)
}

func (s *LinuxPtraceSource) DetachProcess() error {
	return syscall.PtraceDetach(s.pid)
}

func (s *LinuxPtraceSource) TerminateProcess() error {
	return syscall.Kill(s.pid, syscall.SIGKILL)
}
