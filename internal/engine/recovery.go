package engine

import "fmt"

// recoverFromBreakpoint performs the native breakpoint-recovery dance
// so execution can continue past an installed int3: rewind the
// faulting thread's IP, restore the original byte, arm the trap flag, and
// remember which record is being stepped over so the ensuing single-step
// exception can rewrite the breakpoint byte without surfacing a callback.
func (p *Process) recoverFromBreakpoint(thread *Thread, address uint64) error {
	if err := p.native.SetInstructionPointer(thread, address); err != nil {
		return wrap(ErrOSPrimitiveFailed, fmt.Errorf("rewind ip: %w", err))
	}

	rec, ok := p.Breakpoints.peekOriginalByte(address)
	if ok {
		if err := p.native.WriteMemory(address, []byte{rec}); err != nil {
			return wrap(ErrOSPrimitiveFailed, fmt.Errorf("restore original byte: %w", err))
		}
		if err := p.native.FlushInstructionCache(address, 1); err != nil {
			return wrap(ErrOSPrimitiveFailed, fmt.Errorf("flush icache: %w", err))
		}
	}

	flags, err := p.native.GetFlagsRegister(thread)
	if err != nil {
		return wrap(ErrOSPrimitiveFailed, fmt.Errorf("get flags: %w", err))
	}
	if err := p.native.SetFlagsRegister(thread, flags|TrapFlagBit); err != nil {
		return wrap(ErrOSPrimitiveFailed, fmt.Errorf("set trap flag: %w", err))
	}

	p.mu.Lock()
	p.recoveryInProgress = true
	p.recoveryAddress = address
	p.recoveryThreadID = thread.ID
	p.mu.Unlock()

	return p.native.ContinueEvent(p.ID, thread.ID, true)
}

// finishRecovery is invoked by the normalizer on the single-step exception
// that follows recoverFromBreakpoint: it rewrites the 0xCC byte, flushes,
// and clears the recovery slot. Failures here are logged rather than
// propagated because the normalizer itself has no error return; they are
// not reported to any caller or to the front end.
func (p *Process) finishRecovery() {
	p.mu.Lock()
	address := p.recoveryAddress
	p.recoveryInProgress = false
	p.mu.Unlock()

	if err := p.native.WriteMemory(address, []byte{BreakpointByte}); err != nil {
		p.Log.Warn("breakpoint recovery: failed to rewrite breakpoint byte", "address", fmt.Sprintf("%#x", address), "error", err)
		return
	}
	if err := p.native.FlushInstructionCache(address, 1); err != nil {
		p.Log.Warn("breakpoint recovery: failed to flush instruction cache", "address", fmt.Sprintf("%#x", address), "error", err)
	}
}
