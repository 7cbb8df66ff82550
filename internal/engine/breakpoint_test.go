package engine

import (
	"testing"

	"github.com/Manu343726/npldbgworker/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNativeBreakpointTable(t *testing.T) (*BreakpointTable, *fakeNativeSource) {
	t.Helper()
	native := newFakeNativeSource()
	threads := NewThreadRegistry()
	suspend := NewSuspendController(threads, native)
	table := NewBreakpointTable(Native, native, nil, nil, suspend, &recordingCallbacks{})
	return table, native
}

func newScriptedBreakpointTable(t *testing.T) (*BreakpointTable, *ipc.MemTransport) {
	t.Helper()
	transport := ipc.NewMemTransport()
	threads := NewThreadRegistry()
	suspend := NewSuspendController(threads, nil)
	codec := NewFakeAddressCodec()
	table := NewBreakpointTable(Scripted, nil, transport, codec, suspend, &recordingCallbacks{})
	return table, transport
}

func TestBreakpointTableNativeInstallsOnce(t *testing.T) {
	table, native := newNativeBreakpointTable(t)
	native.memory[0x1000] = 0x90 // a NOP the breakpoint should displace

	require.NoError(t, table.Set(0x1000, "client-a"))
	require.NoError(t, table.Set(0x1000, "client-b"))

	assert.Equal(t, byte(BreakpointByte), native.memory[0x1000], "first Set should patch in the INT3 byte")
	assert.True(t, table.Find(0x1000))
}

func TestBreakpointTableNativeUninstallsOnlyOnLastRelease(t *testing.T) {
	table, native := newNativeBreakpointTable(t)
	native.memory[0x2000] = 0x55

	require.NoError(t, table.Set(0x2000, "client-a"))
	require.NoError(t, table.Set(0x2000, "client-b"))

	require.NoError(t, table.Remove(0x2000, "client-a"))
	assert.True(t, table.Find(0x2000), "breakpoint should survive while client-b still owns it")
	assert.Equal(t, byte(BreakpointByte), native.memory[0x2000])

	require.NoError(t, table.Remove(0x2000, "client-b"))
	assert.False(t, table.Find(0x2000))
	assert.Equal(t, byte(0x55), native.memory[0x2000], "last release should restore the original byte")
}

func TestBreakpointTableRemoveUnknownAddress(t *testing.T) {
	table, _ := newNativeBreakpointTable(t)
	err := table.Remove(0xdead, "nobody")
	assert.ErrorIs(t, err, ErrUnknownBreakpoint)
}

func TestBreakpointTableSnapshotIsIndependentCopy(t *testing.T) {
	table, _ := newNativeBreakpointTable(t)
	require.NoError(t, table.Set(0x3000, "client-a"))

	snap := table.Snapshot(0x3000)
	require.Len(t, snap, 1)

	require.NoError(t, table.Set(0x3000, "client-b"))
	assert.Len(t, snap, 1, "earlier snapshot must not see a later Set")

	snap2 := table.Snapshot(0x3000)
	assert.Len(t, snap2, 2)
}

func TestBreakpointTableScriptedSendsSetBAndDelB(t *testing.T) {
	table, transport := newScriptedBreakpointTable(t)

	addr := table.codec.Encode("main.lua", 10)
	require.NoError(t, table.Set(addr, "client-a"))
	require.NoError(t, table.Set(addr, "client-b"))

	require.Len(t, transport.Outbound, 1, "only the first client should trigger a wire setb")
	assert.Equal(t, ipc.MethodSetB, transport.Outbound[0].Filename)

	require.NoError(t, table.Remove(addr, "client-a"))
	require.Len(t, transport.Outbound, 1, "intermediate release must not trigger a wire delb")

	require.NoError(t, table.Remove(addr, "client-b"))
	require.Len(t, transport.Outbound, 2, "last release should trigger a wire delb")
	assert.Equal(t, ipc.MethodDelB, transport.Outbound[1].Filename)
}

func TestBreakpointTableEnforcesLockOrder(t *testing.T) {
	table, native := newNativeBreakpointTable(t)
	threads := NewThreadRegistry()
	_ = native

	table.lock()
	defer table.unlock()

	err := threads.LockChecked()
	assert.ErrorIs(t, err, ErrLockOrderViolation)
}
