package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Manu343726/npldbgworker/internal/ipc"
)

// WaitFlags are reserved for future front-end hints to wait_and_dispatch;
// no flag currently changes behavior, but the parameter is kept so callers
// don't need a signature change when one is added.
type WaitFlags struct{}

// WaitAndDispatch is the poll loop's single public operation, strictly
// single-threaded: it must only ever be called from the dedicated poll
// thread/goroutine. It waits up to 50ms for one event, normalizes it,
// and either dispatches it to the front end and continues the underlying
// event (non-stopping), or records it as the current stop and returns
// (stopping). Returns the normalized event and whether a stop occurred.
func (p *Process) WaitAndDispatch(ctx context.Context, _ WaitFlags) (StopEvent, bool, error) {
	p.mu.Lock()
	stopped := p.lastRawEvent != nil || p.lastScriptedEvent != nil
	p.mu.Unlock()
	if stopped {
		return StopEvent{Kind: p.lastStoppingEvent}, true, nil
	}

	switch p.Kind {
	case Native:
		return p.waitAndDispatchNative(ctx)
	default:
		return p.waitAndDispatchScripted(ctx)
	}
}

func (p *Process) waitAndDispatchNative(ctx context.Context) (StopEvent, bool, error) {
	raw, ok, err := p.native.WaitForEvent(pollWaitTimeout)
	if err != nil {
		return StopEvent{}, false, wrap(ErrOSPrimitiveFailed, err)
	}
	if !ok {
		return p.handleNoEvent()
	}

	ev := p.normalizeNative(raw)
	if ev.Kind.IsStopping() {
		p.mu.Lock()
		p.lastRawEvent = raw
		p.mu.Unlock()
	}
	return p.dispatch(ev, func(handled bool) error {
		return p.native.ContinueEvent(raw.ProcessID, raw.ThreadID, handled)
	})
}

func (p *Process) waitAndDispatchScripted(ctx context.Context) (StopEvent, bool, error) {
	msg, ok, err := p.transport.TryReceive(pollWaitTimeout)
	if err != nil {
		return StopEvent{}, false, wrap(ErrIPCFailed, err)
	}
	if !ok {
		return p.handleNoEvent()
	}

	raw, ignore := p.decodeScriptedMessage(msg)
	if ignore {
		p.Log.Debug("ignoring unknown ipc message", "filename", msg.Filename)
		return StopEvent{Kind: EventIgnored}, false, nil
	}

	ev := p.normalizeScripted(raw)
	if ev.Kind.IsStopping() {
		p.mu.Lock()
		p.lastScriptedEvent = raw
		p.mu.Unlock()
	}
	return p.dispatch(ev, func(bool) error { return nil })
}

func (p *Process) handleNoEvent() (StopEvent, bool, error) {
	p.mu.Lock()
	detach := p.expect.scriptedDetachRequested
	p.mu.Unlock()
	if detach && p.Kind == Scripted {
		p.Callbacks.OnProcessExit(0)
		return StopEvent{Kind: EventProcessExit}, true, nil
	}
	return StopEvent{Kind: EventIgnored}, false, nil
}

// dispatch applies the common stopping/non-stopping split: stopping events
// clear the pump flag and latch as the current stop; non-stopping events
// invoke the front-end callback and continue the underlying debug event via
// continueFn.
func (p *Process) dispatch(ev StopEvent, continueFn func(handled bool) error) (StopEvent, bool, error) {
	if ev.Kind.IsStopping() {
		p.mu.Lock()
		p.pumping = false
		p.lastStoppingEvent = ev.Kind
		p.mu.Unlock()
		return ev, true, nil
	}

	p.invokeNonStopping(ev)

	if ev.Kind == EventProcessExit {
		// ExitProcess: continue first, then OnProcessExit, then stop the pump.
		if err := continueFn(true); err != nil {
			return ev, false, wrap(ErrOSPrimitiveFailed, err)
		}
		p.Callbacks.OnProcessExit(ev.ExitCode)
		p.mu.Lock()
		p.pumping = false
		p.mu.Unlock()
		return ev, true, nil
	}

	if err := continueFn(true); err != nil {
		return ev, false, wrap(ErrOSPrimitiveFailed, err)
	}
	return ev, false, nil
}

func (p *Process) invokeNonStopping(ev StopEvent) {
	switch ev.Kind {
	case EventThreadCreated:
		p.Callbacks.OnThreadStart(ev.Thread)
	case EventThreadExited:
		p.Callbacks.OnThreadExit(ev.Thread, ev.ExitCode)
	case EventModuleLoaded:
		p.Callbacks.OnModuleLoad(ev.Module)
		p.Callbacks.OnSymbolSearch(ev.Module, ev.Module.SymbolPath, false)
	case EventModuleUnloaded:
		p.Callbacks.OnModuleUnload(ev.Module)
	case EventOutputString:
		p.Callbacks.OnOutputString(ev.Output)
	case EventRip:
		p.Callbacks.OnError(ev.Err)
	}
}

// normalizeNative implements the native half of the dispatch table.
func (p *Process) normalizeNative(raw *RawNativeEvent) StopEvent {
	switch raw.Kind {
	case RawException:
		return p.normalizeNativeException(raw)
	case RawCreateThread:
		t := &Thread{ID: raw.ThreadID}
		p.Threads.Add(t)
		return StopEvent{Kind: EventThreadCreated, Thread: t}
	case RawCreateProcess:
		m := &Module{Base: raw.ModuleBase}
		p.Modules.Add(m)
		return StopEvent{Kind: EventModuleLoaded, Module: m}
	case RawExitThread:
		t := p.Threads.Find(raw.ThreadID)
		p.Threads.Remove(raw.ThreadID)
		return StopEvent{Kind: EventThreadExited, Thread: t, ExitCode: raw.ExitCode}
	case RawExitProcess:
		return StopEvent{Kind: EventProcessExit, ExitCode: raw.ExitCode}
	case RawLoadDll:
		m := &Module{Base: raw.ModuleBase}
		p.Modules.Add(m)
		return StopEvent{Kind: EventModuleLoaded, Module: m}
	case RawUnloadDll:
		m := p.Modules.Find(raw.ModuleBase)
		if m != nil {
			p.Modules.Remove(m)
		}
		return StopEvent{Kind: EventModuleUnloaded, Module: m}
	case RawOutputDebugString:
		out, err := p.readOutputString(raw)
		if err != nil {
			out = ""
		}
		return StopEvent{Kind: EventOutputString, Output: out}
	case RawRip:
		return StopEvent{Kind: EventRip, Err: raw.RipError}
	default:
		return StopEvent{Kind: EventIgnored}
	}
}

// readOutputString performs a bounded, defensive OutputDebugString read: at
// most 4096 bytes, truncated at the first NUL, degrading to an empty string
// (not an error) on read failure.
func (p *Process) readOutputString(raw *RawNativeEvent) (string, error) {
	n := raw.OutputLen
	if n <= 0 || n > 4096 {
		n = 4096
	}
	data, err := p.native.ReadMemory(raw.OutputAddr, n)
	if err != nil {
		return "", err
	}
	if idx := indexByte(data, 0); idx >= 0 {
		data = data[:idx]
	}
	return string(data), nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func (p *Process) normalizeNativeException(raw *RawNativeEvent) StopEvent {
	thread := p.Threads.Find(raw.ThreadID)

	if !p.entryPointSeen {
		p.entryPointSeen = true
		p.Callbacks.OnLoadComplete(thread)
		return StopEvent{Kind: EventLoadComplete, Thread: thread}
	}

	switch raw.ExceptionCode {
	case ExceptionCodeBreakpoint:
		p.mu.Lock()
		asyncPending := p.expect.asyncBreakPending
		p.mu.Unlock()

		if asyncPending {
			p.mu.Lock()
			p.expect.asyncBreakPending = false
			p.mu.Unlock()
			p.Callbacks.OnAsyncBreakComplete(thread)
			return StopEvent{Kind: EventAsyncBreakComplete, Thread: thread}
		}

		if p.Breakpoints.Find(raw.FaultAddress) {
			clients := p.Breakpoints.Snapshot(raw.FaultAddress)
			p.currentBreakpoint = raw.FaultAddress
			p.Callbacks.OnBreakpoint(thread, clients, raw.FaultAddress)
			return StopEvent{Kind: EventBreakpoint, Thread: thread, Address: raw.FaultAddress, Clients: clients}
		}

		// No record: defensive fall-through to async-break semantics.
		p.Log.Warn("breakpoint exception at unknown address", "address", fmt.Sprintf("%#x", raw.FaultAddress))
		p.Callbacks.OnOutputString(fmt.Sprintf("breakpoint at unknown address %#x", raw.FaultAddress))
		p.Callbacks.OnAsyncBreakComplete(thread)
		return StopEvent{Kind: EventAsyncBreakComplete, Thread: thread}

	case ExceptionCodeSingleStep:
		p.mu.Lock()
		recovering := p.recoveryInProgress
		p.mu.Unlock()
		if recovering {
			// Breakpoint recovery single-step: rewrite the breakpoint byte
			// and continue handled, with no front-end callback.
			p.finishRecovery()
			return StopEvent{Kind: EventIgnored}
		}
		return StopEvent{Kind: EventIgnored}

	default:
		p.Log.Warn("unexpected debuggee exception", "code", fmt.Sprintf("%#x", raw.ExceptionCode))
		return StopEvent{Kind: EventIgnored}
	}
}

// decodeScriptedMessage implements the scripted half of the dispatch,
// keyed off the inbound filename tag.
func (p *Process) decodeScriptedMessage(msg ipc.Message) (*RawScriptedEvent, bool) {
	switch msg.Filename {
	case ipc.TagBP:
		var payload ipc.BreakpointHitPayload
		if err := ipc.DecodePayload(msg.Code, &payload); err != nil {
			return nil, true
		}
		frames := make([]FrameInfo, 0, len(payload.StackInfo))
		for _, f := range payload.StackInfo {
			frames = append(frames, FrameInfo{
				Address: p.Codec.Encode(f.Source, f.CurrentLine),
				Name:    f.Name,
			})
		}
		return &RawScriptedEvent{Tag: ipc.TagBP, Filename: payload.Filename, Line: payload.Line, StackInfo: frames}, false
	case ipc.TagAttached:
		var payload ipc.AttachedPayload
		if err := ipc.DecodePayload(msg.Code, &payload); err != nil {
			return nil, true
		}
		return &RawScriptedEvent{Tag: ipc.TagAttached, WorkingDir: payload.WorkingDir, Payload: payload.Desc}, false
	case ipc.TagDetach:
		return &RawScriptedEvent{Tag: ipc.TagDetach}, false
	case ipc.TagDebuggerOutput, ipc.TagExpValue, ipc.TagOutput:
		return &RawScriptedEvent{Tag: msg.Filename, Payload: msg.Code}, false
	default:
		return nil, true
	}
}

func (p *Process) normalizeScripted(raw *RawScriptedEvent) StopEvent {
	switch raw.Tag {
	case ipc.TagBP:
		addr := p.Codec.Encode(raw.Filename, raw.Line)
		thread := p.currentScriptedThread()
		p.currentStack = raw.StackInfo

		p.mu.Lock()
		stepping := p.expect.stepBreakpointPending
		p.expect.stepBreakpointPending = false
		p.mu.Unlock()

		if stepping {
			p.Callbacks.OnStepComplete(thread)
			return StopEvent{Kind: EventStepComplete, Thread: thread, Address: addr}
		}

		if !p.Breakpoints.Find(addr) {
			p.Callbacks.OnOutputString(fmt.Sprintf("breakpoint at unknown fake address %#x", addr))
			p.Callbacks.OnAsyncBreakComplete(thread)
			return StopEvent{Kind: EventAsyncBreakComplete, Thread: thread}
		}

		clients := p.Breakpoints.Snapshot(addr)
		p.currentBreakpoint = addr
		p.Callbacks.OnBreakpoint(thread, clients, addr)
		return StopEvent{Kind: EventBreakpoint, Thread: thread, Address: addr, Clients: clients}

	case ipc.TagAttached:
		p.Codec.SetWorkingDir(raw.WorkingDir)
		p.Callbacks.OnOutputString(raw.Payload)
		if !p.entryPointSeen {
			p.entryPointSeen = true
			thread := p.currentScriptedThread()
			p.Callbacks.OnLoadComplete(thread)
			return StopEvent{Kind: EventLoadComplete, Thread: thread}
		}
		return StopEvent{Kind: EventIgnored}

	case ipc.TagDetach:
		return StopEvent{Kind: EventProcessExit, ExitCode: 0}

	case ipc.TagDebuggerOutput, ipc.TagExpValue, ipc.TagOutput:
		return StopEvent{Kind: EventOutputString, Output: raw.Payload}

	default:
		return StopEvent{Kind: EventIgnored}
	}
}

func (p *Process) currentScriptedThread() *Thread {
	snapshot := p.Threads.Snapshot()
	if len(snapshot) > 0 {
		return snapshot[0]
	}
	t := &Thread{ID: p.ID}
	p.Threads.Add(t)
	return t
}

// PollForever drives WaitAndDispatch in a loop until ctx is cancelled or
// the process reaches a terminal event. Front-end callers are expected to
// run this on the dedicated poll goroutine and otherwise only interact with
// the process through the command façade.
func (p *Process) PollForever(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, stopped, err := p.WaitAndDispatch(ctx, WaitFlags{})
		if err != nil {
			return err
		}
		if stopped && ev.Kind == EventProcessExit {
			return nil
		}
		if stopped {
			// At a stop WaitAndDispatch returns at once; keep the 50ms tick.
			time.Sleep(pollWaitTimeout)
		}
	}
}
