package engine

import "sync"

// Thread is a debuggee execution context.
type Thread struct {
	ID         int
	Handle     uintptr // zero for scripted threads: no OS handle to duplicate
	StartAddr  uint64
	Frames     []FrameInfo
	suspended  bool
}

// FrameInfo is one entry of a stack-walk result. For scripted processes it
// is a (fake address, symbolic name) pair; for native processes the Regs
// field carries the full register context extracted by the external x86
// stack walker (out of scope in this engine; only the contract is here).
type FrameInfo struct {
	Address uint64
	Name    string
	Regs    map[string]uint64
}

// ThreadRegistry owns the id->thread map and the load-order-agnostic list
// used for suspend/resume enumeration. Its lock is the "thread-id-map lock":
// it must be acquired before the breakpoint table lock whenever both are
// held.
type ThreadRegistry struct {
	mu   sync.Mutex
	byID map[int]*Thread
}

// NewThreadRegistry returns an empty registry.
func NewThreadRegistry() *ThreadRegistry {
	return &ThreadRegistry{byID: make(map[int]*Thread)}
}

// Lock acquires the thread-id-map lock. Exposed so the suspend controller
// and the lock-order test hook can participate in the documented ordering
// without this package leaking its mutex type.
func (r *ThreadRegistry) Lock()   { r.mu.Lock() }
func (r *ThreadRegistry) Unlock() { r.mu.Unlock() }

// LockChecked is the adversarial test hook for lock ordering: it behaves
// like Lock but first asserts the calling goroutine is not already holding
// the breakpoint table lock, returning ErrLockOrderViolation instead of
// locking if it is.
func (r *ThreadRegistry) LockChecked() error {
	if err := assertThreadLockOrder(); err != nil {
		return err
	}
	r.mu.Lock()
	return nil
}

// Add registers a new thread. It takes the lock itself, so it blocks while
// a suspend holds the thread-id-map lock.
func (r *ThreadRegistry) Add(t *Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID] = t
}

// Remove unregisters a thread by id.
func (r *ThreadRegistry) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// Find looks up a thread by id.
func (r *ThreadRegistry) Find(id int) *Thread {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

// Snapshot returns every currently registered thread. Used by the suspend
// controller, which must enumerate the full thread list under the same lock
// it uses to block concurrent create/exit dispatch.
func (r *ThreadRegistry) Snapshot() []*Thread {
	out := make([]*Thread, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	return out
}
