package engine

import (
	"time"

	"github.com/Manu343726/npldbgworker/internal/ipc"
)

// StepKind distinguishes the three scripted stepping verbs.
type StepKind int

const (
	StepInto StepKind = iota
	StepOver
	StepOut
)

// Break is a no-op if the process is already stopped. Otherwise it sets
// async-break pending and, for scripted, sends "Break"; for native,
// invokes the OS debug-break primitive.
func (p *Process) Break() error {
	if p.IsStopped() {
		return nil
	}

	p.mu.Lock()
	p.expect.asyncBreakPending = true
	p.mu.Unlock()

	if p.Kind == Scripted {
		return wrapIPC(p.transport.Send(ipc.NewOutbound(ipc.MethodBreak, 0, 0, 0, "")))
	}
	return wrap(ErrOSPrimitiveFailed, p.native.DebugBreakProcess())
}

// Continue resumes execution after a stop. In native mode, if the last stop
// was a breakpoint it first performs the recovery dance; in scripted
// mode, continuing while not at a stop is a no-op.
func (p *Process) Continue(thread *Thread) error {
	p.mu.Lock()
	lastStop := p.lastStoppingEvent
	bpAddr := p.currentBreakpoint
	p.mu.Unlock()

	if p.Kind == Scripted {
		if !p.IsStopped() {
			return nil
		}
		p.clearStop()
		return nil
	}

	if lastStop == EventBreakpoint {
		if err := p.recoverFromBreakpoint(thread, bpAddr); err != nil {
			return err
		}
		p.clearStop()
		return nil
	}

	if err := p.native.ContinueEvent(p.ID, thread.ID, true); err != nil {
		return wrap(ErrOSPrimitiveFailed, err)
	}
	p.clearStop()
	return nil
}

// Execute has the identical shape and semantics as Continue; the two exist
// as distinct façade entry points only for front-end UX.
func (p *Process) Execute(thread *Thread) error {
	return p.Continue(thread)
}

func (p *Process) clearStop() {
	p.mu.Lock()
	p.lastRawEvent = nil
	p.lastScriptedEvent = nil
	p.lastStoppingEvent = EventIgnored
	p.pumping = true
	p.mu.Unlock()
}

// Step drives a scripted step (the only supported path): sets
// expecting-step-breakpoint, sends one of step/over/out with lines as the
// line count (1 when lines is not positive), clears last-event state, and
// re-arms the pump.
func (p *Process) Step(kind StepKind, lines int) error {
	if p.Kind != Scripted {
		return ErrWrongKind
	}
	if lines <= 0 {
		lines = 1
	}

	method := ipc.MethodStep
	switch kind {
	case StepOver:
		method = ipc.MethodOver
	case StepOut:
		method = ipc.MethodOut
	}

	p.mu.Lock()
	p.expect.stepBreakpointPending = true
	p.mu.Unlock()

	if err := wrapIPC(p.transport.Send(ipc.NewOutbound(method, 0, 0, lines, ""))); err != nil {
		return err
	}
	p.clearStop()
	return nil
}

// ReadMemory is a native-only wrapper over the OS primitive.
func (p *Process) ReadMemory(base uint64, size int) ([]byte, error) {
	if p.Kind != Native {
		return nil, ErrWrongKind
	}
	data, err := p.native.ReadMemory(base, size)
	return data, wrap(ErrOSPrimitiveFailed, err)
}

// WriteMemory is a native-only wrapper over the OS primitive.
func (p *Process) WriteMemory(base uint64, data []byte) error {
	if p.Kind != Native {
		return ErrWrongKind
	}
	return wrap(ErrOSPrimitiveFailed, p.native.WriteMemory(base, data))
}

// ReadU32 is a native-only convenience wrapper reading one little-endian
// 32-bit word.
func (p *Process) ReadU32(base uint64) (uint32, error) {
	data, err := p.ReadMemory(base, 4)
	if err != nil {
		return 0, err
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24, nil
}

// DoStackWalk populates a stack trace. Scripted mode uses the snapshot
// captured at the last BP message (or a single frame at the current
// breakpoint address if absent); native mode drives the external stack
// walker collaborator.
func (p *Process) DoStackWalk(thread *Thread) ([]FrameInfo, error) {
	if p.Kind == Scripted {
		if len(p.currentStack) > 0 {
			return p.currentStack, nil
		}
		if p.currentBreakpoint != 0 {
			return []FrameInfo{{Address: p.currentBreakpoint}}, nil
		}
		return nil, nil
	}

	if p.walker == nil {
		return nil, ErrWrongKind
	}
	return p.walker.Walk(p.Handle, thread.Handle, p.Modules.List())
}

const (
	evaluatePollInterval  = 100 * time.Millisecond
	evaluatePollIterations = 10
	evaluateQuiescenceTicks = 2
)

// EvaluateExpression sends a scripted expression for evaluation. The
// reserved-character classifier is deliberately literal: any of "=;()"
// routes to "exec", everything else to "dump".
func (p *Process) EvaluateExpression(expr string) (string, bool, error) {
	if p.Kind != Scripted {
		return "", false, ErrWrongKind
	}

	method := ipc.MethodDump
	if containsAny(expr, "=;()") {
		method = ipc.MethodExec
	}

	payload, err := ipc.EncodePayload(ipc.ExpressionPayload{Name: expr})
	if err != nil {
		return "", false, err
	}
	if err := p.transport.Send(ipc.NewOutbound(method, 0, 0, 0, payload)); err != nil {
		// IPC failure during evaluate is transient: yields an empty result,
		// not an error.
		return "", false, nil
	}

	var result string
	emptyTicks := 0
	deadline := time.Now().Add(time.Second)

	for i := 0; i < evaluatePollIterations && emptyTicks < evaluateQuiescenceTicks && time.Now().Before(deadline); i++ {
		time.Sleep(evaluatePollInterval)

		gotAny := false
		for {
			msg, ok, err := p.transport.TryReceive(0)
			if err != nil || !ok {
				break
			}
			if msg.Filename != ipc.TagExpValue {
				continue
			}
			result += msg.Code
			gotAny = true
		}
		if gotAny {
			emptyTicks = 0
		} else {
			emptyTicks++
		}
	}

	return result, true, nil
}

func containsAny(s, chars string) bool {
	for _, c := range chars {
		for _, r := range s {
			if r == c {
				return true
			}
		}
	}
	return false
}

// Detach sends Detach and marks detach-requested for scripted processes;
// native rewinds past a stopped breakpoint before issuing the OS detach.
func (p *Process) Detach() error {
	if p.Kind == Scripted {
		if err := wrapIPC(p.transport.Send(ipc.NewOutbound(ipc.MethodDetach, 0, 0, 0, ""))); err != nil {
			return err
		}
		p.mu.Lock()
		p.expect.scriptedDetachRequested = true
		p.mu.Unlock()
		p.Callbacks.OnProgramDestroy(0)
		return nil
	}

	if err := p.rewindPastBreakpointIfStopped(); err != nil {
		return err
	}
	if err := wrap(ErrOSPrimitiveFailed, p.native.DetachProcess()); err != nil {
		return err
	}
	p.Callbacks.OnProgramDestroy(0)
	return nil
}

// Terminate has the same shape as Detach but calls the OS terminate
// primitive instead of detach.
func (p *Process) Terminate() error {
	if p.Kind == Scripted {
		if err := wrapIPC(p.transport.Send(ipc.NewOutbound(ipc.MethodDetach, 0, 0, 0, ""))); err != nil {
			return err
		}
		p.mu.Lock()
		p.expect.scriptedDetachRequested = true
		p.mu.Unlock()
		p.Callbacks.OnProgramDestroy(0)
		return nil
	}

	if err := p.rewindPastBreakpointIfStopped(); err != nil {
		return err
	}
	if err := wrap(ErrOSPrimitiveFailed, p.native.TerminateProcess()); err != nil {
		return err
	}
	p.Callbacks.OnProgramDestroy(0)
	return nil
}

func (p *Process) rewindPastBreakpointIfStopped() error {
	p.mu.Lock()
	lastStop := p.lastStoppingEvent
	bpAddr := p.currentBreakpoint
	p.mu.Unlock()

	if lastStop != EventBreakpoint {
		return wrap(ErrOSPrimitiveFailed, p.native.ContinueEvent(p.ID, 0, false))
	}
	if err := p.native.SetInstructionPointer(&Thread{ID: p.recoveryThreadID}, bpAddr); err != nil {
		return wrap(ErrOSPrimitiveFailed, err)
	}
	return wrap(ErrOSPrimitiveFailed, p.native.ContinueEvent(p.ID, 0, true))
}

func wrapIPC(err error) error {
	return wrap(ErrIPCFailed, err)
}
