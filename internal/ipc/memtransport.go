package ipc

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Send/TryReceive once Close has been called.
var ErrClosed = errors.New("ipc: transport closed")

// MemTransport is a deterministic in-memory Transport: every Send call is
// recorded in Outbound for assertions, and messages a test feeds in through
// Inject land on an inbound queue that TryReceive drains. It has no relation to a real process and never blocks beyond
// the requested timeout.
type MemTransport struct {
	mu       sync.Mutex
	inbound  []Message
	Outbound []Message
	closed   bool
	notify   chan struct{}
}

// NewMemTransport returns a ready-to-use fake transport.
func NewMemTransport() *MemTransport {
	return &MemTransport{notify: make(chan struct{}, 1)}
}

// Send appends msg to Outbound, where a test can inspect it.
func (t *MemTransport) Send(msg Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.Outbound = append(t.Outbound, msg)
	return nil
}

// Inject makes msg available to the next TryReceive call, simulating the
// runtime placing a message on VSDebug.
func (t *MemTransport) Inject(msg Message) {
	t.mu.Lock()
	t.inbound = append(t.inbound, msg)
	t.mu.Unlock()
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// TryReceive returns the oldest injected message, waiting up to timeout if
// the queue is currently empty.
func (t *MemTransport) TryReceive(timeout time.Duration) (Message, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return Message{}, false, ErrClosed
		}
		if len(t.inbound) > 0 {
			msg := t.inbound[0]
			t.inbound = t.inbound[1:]
			t.mu.Unlock()
			return msg, true, nil
		}
		t.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Message{}, false, nil
		}
		wait := remaining
		if wait > 5*time.Millisecond {
			wait = 5 * time.Millisecond
		}
		select {
		case <-t.notify:
		case <-time.After(wait):
		}
	}
}

// Close marks the transport closed; subsequent Send/TryReceive calls fail.
func (t *MemTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
