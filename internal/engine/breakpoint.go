package engine

import (
	"sync"

	"github.com/Manu343726/npldbgworker/internal/ipc"
	"golang.org/x/exp/maps"
)

// breakpointRecord is one installed breakpoint: its address (real for
// native, fake for scripted), the original byte it displaced (native
// only), and the multiset of client tokens that own it.
type breakpointRecord struct {
	address      uint64
	originalByte byte
	hasOriginal  bool
	clients      map[ClientToken]int // token -> reference count
}

func (r *breakpointRecord) empty() bool {
	return len(r.clients) == 0
}

// lock/unlock bracket every critical section with the lock-order guard in
// lockorder.go so a ThreadRegistry.LockChecked call from the same goroutine
// can detect the forbidden ordering.
func (t *BreakpointTable) lock() {
	t.mu.Lock()
	markBreakpointLockHeld()
}

func (t *BreakpointTable) unlock() {
	clearBreakpointLockHeld()
	t.mu.Unlock()
}

// BreakpointTable is the sole source of truth for "is there a breakpoint at
// address X". set/remove/find may be called from any thread
// and always take the table lock; per the documented lock order, a caller
// that also needs the thread-id-map lock must acquire it first.
type BreakpointTable struct {
	mu      sync.Mutex
	records map[uint64]*breakpointRecord

	kind      Kind
	native    NativeSource
	transport ipc.Transport
	codec     *FakeAddressCodec
	suspend   *SuspendController
	callbacks Callbacks
}

// NewBreakpointTable wires a breakpoint table for one process. native and
// transport are mutually exclusive depending on kind; codec is required
// only for Scripted.
func NewBreakpointTable(kind Kind, native NativeSource, transport ipc.Transport, codec *FakeAddressCodec, suspend *SuspendController, callbacks Callbacks) *BreakpointTable {
	return &BreakpointTable{
		records:   make(map[uint64]*breakpointRecord),
		kind:      kind,
		native:    native,
		transport: transport,
		codec:     codec,
		suspend:   suspend,
		callbacks: callbacks,
	}
}

// Set installs (or ref-counts onto) a breakpoint at address on behalf of
// client. Only the first client at a given address triggers the OS/IPC
// primitive.
// Set takes the suspend controller (and, transitively, the thread-id-map
// lock) before the breakpoint table lock, matching the documented order:
// thread-id-map lock always precedes the breakpoint table lock.
func (t *BreakpointTable) Set(address uint64, client ClientToken) error {
	if err := t.suspend.Suspend(); err != nil {
		return err
	}
	defer t.suspend.Resume()

	t.lock()
	defer t.unlock()

	if rec, ok := t.records[address]; ok {
		rec.clients[client]++
		t.callbacks.OnBreakpointBound(client, address)
		return nil
	}

	rec := &breakpointRecord{clients: make(map[ClientToken]int)}
	if err := t.install(address, rec); err != nil {
		return err
	}
	rec.clients[client] = 1
	t.records[address] = rec
	t.callbacks.OnBreakpointBound(client, address)
	return nil
}

func (t *BreakpointTable) install(address uint64, rec *breakpointRecord) error {
	switch t.kind {
	case Native:
		orig, err := t.native.ReadMemory(address, 1)
		if err != nil {
			return wrap(ErrOSPrimitiveFailed, err)
		}
		rec.originalByte = orig[0]
		rec.hasOriginal = true
		if orig[0] != BreakpointByte {
			if err := t.native.WriteMemory(address, []byte{BreakpointByte}); err != nil {
				return wrap(ErrOSPrimitiveFailed, err)
			}
			if err := t.native.FlushInstructionCache(address, 1); err != nil {
				return wrap(ErrOSPrimitiveFailed, err)
			}
		}
	case Scripted:
		path, line := t.codec.Decode(address)
		payload, err := ipc.EncodePayload(ipc.SetBreakpointPayload{Filename: path, Line: line})
		if err != nil {
			return err
		}
		if err := t.transport.Send(ipc.NewOutbound(ipc.MethodSetB, 0, 0, 0, payload)); err != nil {
			return wrap(ErrIPCFailed, err)
		}
	}
	return nil
}

// Remove releases client's ownership of the breakpoint at address. The
// underlying primitive is only uninstalled when the last client releases it.
func (t *BreakpointTable) Remove(address uint64, client ClientToken) error {
	if err := t.suspend.Suspend(); err != nil {
		return err
	}
	defer t.suspend.Resume()

	t.lock()
	defer t.unlock()

	rec, ok := t.records[address]
	if !ok {
		return ErrUnknownBreakpoint
	}

	rec.clients[client]--
	if rec.clients[client] <= 0 {
		delete(rec.clients, client)
	}
	if !rec.empty() {
		return nil
	}

	if err := t.uninstall(address, rec); err != nil {
		return err
	}
	delete(t.records, address)
	return nil
}

func (t *BreakpointTable) uninstall(address uint64, rec *breakpointRecord) error {
	switch t.kind {
	case Native:
		if rec.hasOriginal {
			if err := t.native.WriteMemory(address, []byte{rec.originalByte}); err != nil {
				return wrap(ErrOSPrimitiveFailed, err)
			}
			if err := t.native.FlushInstructionCache(address, 1); err != nil {
				return wrap(ErrOSPrimitiveFailed, err)
			}
		}
	case Scripted:
		path, line := t.codec.Decode(address)
		payload, err := ipc.EncodePayload(ipc.SetBreakpointPayload{Filename: path, Line: line})
		if err != nil {
			return err
		}
		if err := t.transport.Send(ipc.NewOutbound(ipc.MethodDelB, 0, 0, 0, payload)); err != nil {
			return wrap(ErrIPCFailed, err)
		}
	}
	return nil
}

// Find performs a pure lookup, reporting whether a record exists at address.
func (t *BreakpointTable) Find(address uint64) (exists bool) {
	t.lock()
	defer t.unlock()
	_, ok := t.records[address]
	return ok
}

// Snapshot returns a deep, independent copy of the client set installed at
// address, suitable for handing to OnBreakpoint: the callback must never
// see a set that later mutation can alias.
func (t *BreakpointTable) Snapshot(address uint64) []ClientToken {
	t.lock()
	defer t.unlock()
	rec, ok := t.records[address]
	if !ok {
		return nil
	}
	cloned := maps.Clone(rec.clients)
	return maps.Keys(cloned)
}

// peekOriginalByte returns the original byte shadowed by an installed
// native breakpoint, for use by the recovery dance.
func (t *BreakpointTable) peekOriginalByte(address uint64) (byte, bool) {
	t.lock()
	defer t.unlock()
	rec, ok := t.records[address]
	if !ok || !rec.hasOriginal {
		return 0, false
	}
	return rec.originalByte, true
}

// All returns every address currently tracked, for session save/restore
// tooling and tests.
func (t *BreakpointTable) All() []uint64 {
	t.lock()
	defer t.unlock()
	addrs := make([]uint64, 0, len(t.records))
	for addr := range t.records {
		addrs = append(addrs, addr)
	}
	return addrs
}
