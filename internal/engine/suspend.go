package engine

import (
	"fmt"
	"sync"
)

// SuspendController is the reentrant suspend/resume counter shared by a
// process's breakpoint table and its command façade. Native mode actually
// pauses every OS thread; scripted mode is a counted no-op because the
// scripting runtime already self-halts whenever the worker is at a stop —
// the counter still lets breakpoint install/remove reason about being in a
// paused region uniformly across both kinds.
type SuspendController struct {
	mu      sync.Mutex
	count   int
	threads *ThreadRegistry
	native  NativeSource // nil for scripted processes
}

// NewSuspendController wires the controller to the thread registry whose
// lock it takes on first suspend, and to the native OS source (nil for
// scripted processes).
func NewSuspendController(threads *ThreadRegistry, native NativeSource) *SuspendController {
	return &SuspendController{threads: threads, native: native}
}

// Suspend increments the reentrant counter. On the 0->1 transition it takes
// the thread-id-map lock (blocking concurrent thread create/exit dispatch)
// and, for native processes, suspends every currently registered thread,
// rolling back any already-suspended thread if a later one fails.
func (s *SuspendController) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count > 0 {
		s.count++
		return nil
	}

	if err := s.threads.LockChecked(); err != nil {
		return err
	}
	if s.native != nil {
		snapshot := s.threads.Snapshot()
		suspended := make([]*Thread, 0, len(snapshot))
		for _, t := range snapshot {
			if err := s.native.SuspendThread(t); err != nil {
				for _, done := range suspended {
					_ = s.native.ResumeThread(done)
				}
				s.threads.Unlock()
				return wrap(ErrOSPrimitiveFailed, fmt.Errorf("suspend thread %d: %w", t.ID, err))
			}
			t.suspended = true
			suspended = append(suspended, t)
		}
	}
	s.count = 1
	return nil
}

// Resume decrements the counter; on reaching zero it reverses the native
// suspend calls and releases the thread-id-map lock taken by the matching
// Suspend.
func (s *SuspendController) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		return nil
	}
	s.count--
	if s.count > 0 {
		return nil
	}

	var firstErr error
	if s.native != nil {
		for _, t := range s.threads.Snapshot() {
			if !t.suspended {
				continue
			}
			if err := s.native.ResumeThread(t); err != nil && firstErr == nil {
				firstErr = wrap(ErrOSPrimitiveFailed, fmt.Errorf("resume thread %d: %w", t.ID, err))
			}
			t.suspended = false
		}
	}
	s.threads.Unlock()
	return firstErr
}

// Count reports the current reentrancy depth; used by tests asserting
// suspend/resume balance.
func (s *SuspendController) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
