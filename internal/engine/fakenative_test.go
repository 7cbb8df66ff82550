package engine

import (
	"sync"
	"time"
)

// fakeNativeSource is a deterministic in-memory NativeSource double: memory
// is a flat byte map, registers are per-thread maps, and WaitForEvent
// delivers from a queue the test fills ahead of time. It never touches a
// real OS debug API, mirroring how MemTransport stands in for a real
// scripted transport.
type fakeNativeSource struct {
	mu sync.Mutex

	memory map[uint64]byte
	ip     map[int]uint64
	flags  map[int]uint32

	events []*RawNativeEvent

	continued  []continueCall
	suspended  map[int]bool
	detached   bool
	terminated bool
	brokeAsync bool

	failReadAt map[uint64]bool
}

type continueCall struct {
	ProcessID, ThreadID int
	Handled             bool
}

func newFakeNativeSource() *fakeNativeSource {
	return &fakeNativeSource{
		memory:     make(map[uint64]byte),
		ip:         make(map[int]uint64),
		flags:      make(map[int]uint32),
		suspended:  make(map[int]bool),
		failReadAt: make(map[uint64]bool),
	}
}

func (f *fakeNativeSource) pushEvent(ev *RawNativeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeNativeSource) WaitForEvent(timeout time.Duration) (*RawNativeEvent, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil, false, nil
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, true, nil
}

func (f *fakeNativeSource) ContinueEvent(processID, threadID int, handled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continued = append(f.continued, continueCall{processID, threadID, handled})
	return nil
}

func (f *fakeNativeSource) ReadMemory(addr uint64, size int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReadAt[addr] {
		return nil, errFakeReadFailed
	}
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		out[i] = f.memory[addr+uint64(i)]
	}
	return out, nil
}

func (f *fakeNativeSource) WriteMemory(addr uint64, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range data {
		f.memory[addr+uint64(i)] = b
	}
	return nil
}

func (f *fakeNativeSource) SuspendThread(t *Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspended[t.ID] = true
	return nil
}

func (f *fakeNativeSource) ResumeThread(t *Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspended[t.ID] = false
	return nil
}

func (f *fakeNativeSource) GetInstructionPointer(t *Thread) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ip[t.ID], nil
}

func (f *fakeNativeSource) SetInstructionPointer(t *Thread, ip uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ip[t.ID] = ip
	return nil
}

func (f *fakeNativeSource) GetFlagsRegister(t *Thread) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags[t.ID], nil
}

func (f *fakeNativeSource) SetFlagsRegister(t *Thread, flags uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[t.ID] = flags
	return nil
}

func (f *fakeNativeSource) FlushInstructionCache(addr uint64, size int) error {
	return nil
}

func (f *fakeNativeSource) DebugBreakProcess() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brokeAsync = true
	return nil
}

func (f *fakeNativeSource) DetachProcess() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = true
	return nil
}

func (f *fakeNativeSource) TerminateProcess() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = true
	return nil
}

var errFakeReadFailed = fakeErr("fake: read failed")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

// recordingCallbacks captures every callback invocation for assertions,
// embedding NopCallbacks so new interface methods don't break existing tests.
type recordingCallbacks struct {
	NopCallbacks

	mu sync.Mutex

	loadComplete        int
	breakpointHits      []uint64
	asyncBreakCompletes int
	stepCompletes       int
	outputStrings       []string
	errors              []error
	processExits        []int32
	programDestroys     []int32
}

func (c *recordingCallbacks) OnLoadComplete(*Thread) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadComplete++
}

func (c *recordingCallbacks) OnBreakpoint(_ *Thread, _ []ClientToken, address uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakpointHits = append(c.breakpointHits, address)
}

func (c *recordingCallbacks) OnAsyncBreakComplete(*Thread) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asyncBreakCompletes++
}

func (c *recordingCallbacks) OnStepComplete(*Thread) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stepCompletes++
}

func (c *recordingCallbacks) OnOutputString(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputStrings = append(c.outputStrings, s)
}

func (c *recordingCallbacks) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, err)
}

func (c *recordingCallbacks) OnProcessExit(code int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processExits = append(c.processExits, code)
}

func (c *recordingCallbacks) OnProgramDestroy(code int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programDestroys = append(c.programDestroys, code)
}
