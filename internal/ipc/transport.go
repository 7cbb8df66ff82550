package ipc

import (
	"encoding/json"
	"time"
)

// Transport is the contract the engine drives the scripting runtime
// through. Two concrete implementations exist: a real one backed by named
// pipes (pipetransport.go), which the CLI uses, and a deterministic
// in-memory one for tests (memtransport.go). The poll loop and command façade only
// ever see this interface, which is what lets the scripted path be tested
// without a real runtime attached: the queues are scoped to the process
// aggregate and can be injected as a mock, so tests stay deterministic.
type Transport interface {
	// Send writes one outbound message to NPLDebug. Returns a wrapped error
	// on failure; callers decide whether that is fatal (continue) or
	// transient (evaluate_expression).
	Send(msg Message) error

	// TryReceive attempts to read one inbound message from VSDebug without
	// blocking longer than timeout. ok is false on timeout (not an error).
	TryReceive(timeout time.Duration) (msg Message, ok bool, err error)

	// Close releases the underlying queue handles.
	Close() error
}

// EncodePayload marshals v into the opaque Code field using the same JSON
// codec for every message kind; the wire format itself (a self-describing
// tabular text format in the original protocol) is an external-serializer
// detail this engine does not own, so JSON stands in as the in-process
// substitute behind the same Message.Code shape.
func EncodePayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePayload unmarshals the opaque Code field into v.
func DecodePayload(code string, v any) error {
	return json.Unmarshal([]byte(code), v)
}
