package session_test

import (
	"testing"
	"time"

	"github.com/Manu343726/npldbgworker/internal/engine"
	"github.com/Manu343726/npldbgworker/internal/ipc"
	"github.com/Manu343726/npldbgworker/internal/session"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubNativeSource is a minimal engine.NativeSource good enough to let a
// Process install/remove breakpoints without touching a real OS debug API.
type stubNativeSource struct {
	memory map[uint64]byte
}

func newStubNativeSource() *stubNativeSource { return &stubNativeSource{memory: map[uint64]byte{}} }

func (s *stubNativeSource) WaitForEvent(time.Duration) (*engine.RawNativeEvent, bool, error) {
	return nil, false, nil
}
func (s *stubNativeSource) ContinueEvent(int, int, bool) error { return nil }
func (s *stubNativeSource) ReadMemory(addr uint64, size int) ([]byte, error) {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		out[i] = s.memory[addr+uint64(i)]
	}
	return out, nil
}
func (s *stubNativeSource) WriteMemory(addr uint64, data []byte) error {
	for i, b := range data {
		s.memory[addr+uint64(i)] = b
	}
	return nil
}
func (s *stubNativeSource) SuspendThread(*engine.Thread) error              { return nil }
func (s *stubNativeSource) ResumeThread(*engine.Thread) error               { return nil }
func (s *stubNativeSource) GetInstructionPointer(*engine.Thread) (uint64, error) { return 0, nil }
func (s *stubNativeSource) SetInstructionPointer(*engine.Thread, uint64) error   { return nil }
func (s *stubNativeSource) GetFlagsRegister(*engine.Thread) (uint32, error)      { return 0, nil }
func (s *stubNativeSource) SetFlagsRegister(*engine.Thread, uint32) error        { return nil }
func (s *stubNativeSource) FlushInstructionCache(uint64, int) error              { return nil }
func (s *stubNativeSource) DebugBreakProcess() error                            { return nil }
func (s *stubNativeSource) DetachProcess() error                                { return nil }
func (s *stubNativeSource) TerminateProcess() error                             { return nil }

func TestSaveRestoreRoundTripScripted(t *testing.T) {
	transport := ipc.NewMemTransport()
	p := engine.NewProcess(engine.Config{ID: 1, Kind: engine.Scripted, Transport: transport, Callbacks: engine.NopCallbacks{}})

	addr := p.Codec.Encode("main.lua", 10)
	require.NoError(t, p.Breakpoints.Set(addr, "client"))

	doc := session.Save(p)
	require.Len(t, doc.Breakpoints, 1)
	assert.Equal(t, "main.lua", doc.Breakpoints[0].File)
	assert.Equal(t, 10, doc.Breakpoints[0].Line)
	assert.Equal(t, "scripted", doc.Kind)

	fs := afero.NewMemMapFs()
	require.NoError(t, session.WriteFile(fs, "/session.yaml", doc))

	loaded, err := session.ReadFile(fs, "/session.yaml")
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	restoreTransport := ipc.NewMemTransport()
	p2 := engine.NewProcess(engine.Config{ID: 2, Kind: engine.Scripted, Transport: restoreTransport, Callbacks: engine.NopCallbacks{}})
	require.NoError(t, session.Restore(p2, loaded))

	restoredAddr := p2.Codec.Encode("main.lua", 10)
	assert.True(t, p2.Breakpoints.Find(restoredAddr))
}

func TestSaveRestoreRoundTripNative(t *testing.T) {
	native := newStubNativeSource()
	native.memory[0x1000] = 0xAB
	p := engine.NewProcess(engine.Config{ID: 1, Kind: engine.Native, Native: native, Callbacks: engine.NopCallbacks{}})
	require.NoError(t, p.Breakpoints.Set(0x1000, "client"))

	doc := session.Save(p)
	require.Len(t, doc.Breakpoints, 1)
	assert.Equal(t, uint64(0x1000), doc.Breakpoints[0].Address)
	assert.Equal(t, "native", doc.Kind)

	native2 := newStubNativeSource()
	native2.memory[0x1000] = 0xCD
	p2 := engine.NewProcess(engine.Config{ID: 2, Kind: engine.Native, Native: native2, Callbacks: engine.NopCallbacks{}})
	require.NoError(t, session.Restore(p2, doc))

	assert.True(t, p2.Breakpoints.Find(0x1000))
}

func TestRestoreRejectsMismatchedKind(t *testing.T) {
	transport := ipc.NewMemTransport()
	p := engine.NewProcess(engine.Config{ID: 1, Kind: engine.Scripted, Transport: transport, Callbacks: engine.NopCallbacks{}})

	err := session.Restore(p, session.Document{Kind: "native", Breakpoints: []session.Entry{{Address: 1}}})
	assert.Error(t, err)
}
