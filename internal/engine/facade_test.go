package engine

import (
	"testing"

	"github.com/Manu343726/npldbgworker/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakIsNoopWhenAlreadyStopped(t *testing.T) {
	p, transport, _ := newScriptedTestProcess(t)
	require.NoError(t, p.Suspend.Suspend()) // any non-zero suspend count counts as stopped
	defer p.Suspend.Resume()

	require.NoError(t, p.Break())
	assert.Empty(t, transport.Outbound, "already-stopped Break should not send anything")
}

func TestBreakScriptedSendsBreakMessage(t *testing.T) {
	p, transport, _ := newScriptedTestProcess(t)

	require.NoError(t, p.Break())

	require.Len(t, transport.Outbound, 1)
	assert.Equal(t, ipc.MethodBreak, transport.Outbound[0].Filename)
}

func TestBreakNativeInvokesDebugBreak(t *testing.T) {
	p, native, _ := newNativeTestProcess(t)

	require.NoError(t, p.Break())

	assert.True(t, native.brokeAsync)
}

func TestContinueScriptedClearsStopWhenStopped(t *testing.T) {
	p, _, _ := newScriptedTestProcess(t)
	p.lastStoppingEvent = EventBreakpoint
	p.lastScriptedEvent = &RawScriptedEvent{}

	require.NoError(t, p.Continue(nil))

	assert.False(t, p.IsStopped())
}

func TestContinueNativeRecoversFromBreakpointBeforeResuming(t *testing.T) {
	p, native, _ := newNativeTestProcess(t)
	thread := &Thread{ID: 1}
	p.Threads.Add(thread)
	native.memory[0x1000] = 0x90
	require.NoError(t, p.Breakpoints.Set(0x1000, "client"))

	p.lastStoppingEvent = EventBreakpoint
	p.currentBreakpoint = 0x1000
	p.lastRawEvent = &RawNativeEvent{}

	require.NoError(t, p.Continue(thread))

	assert.Equal(t, uint64(0x1000), native.ip[1])
	assert.False(t, p.IsStopped())
}

func TestStepRejectsNativeProcesses(t *testing.T) {
	p, _, _ := newNativeTestProcess(t)
	err := p.Step(StepInto, 1)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestStepScriptedSendsCorrectMethodPerKind(t *testing.T) {
	cases := []struct {
		kind   StepKind
		method string
	}{
		{StepInto, ipc.MethodStep},
		{StepOver, ipc.MethodOver},
		{StepOut, ipc.MethodOut},
	}
	for _, tc := range cases {
		p, transport, _ := newScriptedTestProcess(t)
		require.NoError(t, p.Step(tc.kind, 3))
		require.Len(t, transport.Outbound, 1)
		assert.Equal(t, tc.method, transport.Outbound[0].Filename)
		assert.Equal(t, 3, transport.Outbound[0].Param2)
	}
}

func TestReadWriteMemoryRejectScriptedProcesses(t *testing.T) {
	p, _, _ := newScriptedTestProcess(t)

	_, err := p.ReadMemory(0, 4)
	assert.ErrorIs(t, err, ErrWrongKind)

	err = p.WriteMemory(0, []byte{1})
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestReadU32ReadsLittleEndian(t *testing.T) {
	p, native, _ := newNativeTestProcess(t)
	native.memory[0x100] = 0x01
	native.memory[0x101] = 0x02
	native.memory[0x102] = 0x03
	native.memory[0x103] = 0x04

	v, err := p.ReadU32(0x100)

	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), v)
}

func TestDoStackWalkScriptedUsesCapturedFramesOrFallsBackToCurrentBreakpoint(t *testing.T) {
	p, _, _ := newScriptedTestProcess(t)

	frames, err := p.DoStackWalk(nil)
	require.NoError(t, err)
	assert.Empty(t, frames)

	p.currentBreakpoint = 0x42
	frames, err = p.DoStackWalk(nil)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, uint64(0x42), frames[0].Address)

	p.currentStack = []FrameInfo{{Address: 0x1, Name: "foo"}, {Address: 0x2, Name: "bar"}}
	frames, err = p.DoStackWalk(nil)
	require.NoError(t, err)
	assert.Equal(t, p.currentStack, frames)
}

func TestDoStackWalkNativeWithoutWalkerIsWrongKind(t *testing.T) {
	p, _, _ := newNativeTestProcess(t)
	_, err := p.DoStackWalk(&Thread{})
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestEvaluateExpressionChoosesDumpOrExec(t *testing.T) {
	p, transport, _ := newScriptedTestProcess(t)

	_, _, err := p.EvaluateExpression("x")
	require.NoError(t, err)
	require.Len(t, transport.Outbound, 1)
	assert.Equal(t, ipc.MethodDump, transport.Outbound[0].Filename)

	_, _, err = p.EvaluateExpression("x = 1")
	require.NoError(t, err)
	require.Len(t, transport.Outbound, 2)
	assert.Equal(t, ipc.MethodExec, transport.Outbound[1].Filename)
}

func TestEvaluateExpressionCollectsInjectedResultsUntilQuiescent(t *testing.T) {
	p, transport, _ := newScriptedTestProcess(t)

	go func() {
		transport.Inject(ipc.Message{Filename: ipc.TagExpValue, Code: "4"})
		transport.Inject(ipc.Message{Filename: ipc.TagExpValue, Code: "2"})
	}()

	result, ok, err := p.EvaluateExpression("answer")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", result)
}

func TestEvaluateExpressionRejectsNativeProcesses(t *testing.T) {
	p, _, _ := newNativeTestProcess(t)
	_, _, err := p.EvaluateExpression("x")
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestDetachScriptedSendsDetachAndMarksRequested(t *testing.T) {
	p, transport, cb := newScriptedTestProcess(t)

	require.NoError(t, p.Detach())

	require.Len(t, transport.Outbound, 1)
	assert.Equal(t, ipc.MethodDetach, transport.Outbound[0].Filename)
	assert.Equal(t, 1, len(cb.programDestroys))
}

func TestTerminateNativeInvokesOSPrimitive(t *testing.T) {
	p, native, cb := newNativeTestProcess(t)

	require.NoError(t, p.Terminate())

	assert.True(t, native.terminated)
	assert.Equal(t, 1, len(cb.programDestroys))
}
