package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// PipeTransport implements Transport over a pair of named FIFOs, mirroring
// the real worker's two named interprocess queues (VSDebug inbound,
// NPLDebug outbound) without depending on a platform-specific IPC library.
// Messages are newline-delimited JSON records; the self-describing tabular
// wire format used by the real scripting runtime is an external-serializer
// concern this engine does not own, so JSON is the substitute used
// end-to-end by both this transport and MemTransport.
type PipeTransport struct {
	mu     sync.Mutex
	out    *os.File
	in     *os.File
	reader *bufio.Reader
}

// OpenPipeTransport opens the outbound and inbound FIFOs at
// the given filesystem paths. The caller is responsible for having created
// the FIFOs (e.g. via mkfifo) before calling this; Go's standard library
// has no portable FIFO-creation primitive.
func OpenPipeTransport(outboundPath, inboundPath string) (*PipeTransport, error) {
	out, err := os.OpenFile(outboundPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("ipc: open outbound queue %q: %w", outboundPath, err)
	}
	in, err := os.OpenFile(inboundPath, os.O_RDONLY, 0)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("ipc: open inbound queue %q: %w", inboundPath, err)
	}
	return &PipeTransport{out: out, in: in, reader: bufio.NewReader(in)}, nil
}

// Send writes one JSON-encoded message followed by a newline to the
// outbound queue.
func (t *PipeTransport) Send(msg Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ipc: encode message: %w", err)
	}
	b = append(b, '\n')
	if _, err := t.out.Write(b); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

// TryReceive reads one line from the inbound queue, giving up after
// timeout. A genuine named pipe has no portable deadline API in the
// standard library, so this degrades to reading in a separate goroutine
// and racing it against a timer; a reader left stranded past the deadline
// is abandoned and its result discarded on arrival.
func (t *PipeTransport) TryReceive(timeout time.Duration) (Message, bool, error) {
	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		t.mu.Lock()
		line, err := t.reader.ReadString('\n')
		t.mu.Unlock()
		done <- result{line, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return Message{}, false, fmt.Errorf("%w: %v", ErrClosed, r.err)
		}
		var msg Message
		if err := json.Unmarshal([]byte(r.line), &msg); err != nil {
			return Message{}, false, fmt.Errorf("ipc: decode message: %w", err)
		}
		return msg, true, nil
	case <-time.After(timeout):
		return Message{}, false, nil
	}
}

// Close releases both FIFO file handles.
func (t *PipeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err1 := t.out.Close()
	err2 := t.in.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
