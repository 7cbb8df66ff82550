package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Manu343726/npldbgworker/internal/ipc"
)

// Kind distinguishes the two debuggee kinds behind the engine's one
// interface.
type Kind int

const (
	Native Kind = iota
	Scripted
)

func (k Kind) String() string {
	if k == Native {
		return "native"
	}
	return "scripted"
}

// expectations are the booleans that disambiguate incoming exceptions. The
// poll thread reads and clears them; the command façade (Break, Step,
// Detach, Terminate) sets them. Every access goes through Process.mu.
type expectations struct {
	asyncBreakPending       bool
	breakpointStepPending   bool
	stepBreakpointPending   bool
	scriptedDetachRequested bool
}

// Process is the root aggregate: the immutable identity of one debuggee
// plus the poll-thread-owned mutable state the dispatcher drives.
type Process struct {
	// Immutable after construction.
	ID          int
	DisplayName string
	Kind        Kind
	Handle      uintptr
	StartAddr   uint64
	Callbacks   Callbacks
	Symbols     SymbolEngine
	Resolver    ModuleResolver
	Log         *slog.Logger

	native    NativeSource
	transport ipc.Transport
	walker    StackWalker

	// Poll-thread-owned mutable state.
	lastRawEvent       *RawNativeEvent
	lastScriptedEvent  *RawScriptedEvent
	lastStoppingEvent  EventKind
	pumping            bool
	entryPointSeen     bool
	expect             expectations
	currentBreakpoint  uint64
	currentStack       []FrameInfo
	recoveryInProgress bool
	recoveryAddress    uint64
	recoveryThreadID   int

	// Shared aggregates, each with its own internal locking.
	Modules     *ModuleRegistry
	Threads     *ThreadRegistry
	Breakpoints *BreakpointTable
	Codec       *FakeAddressCodec
	Suspend     *SuspendController

	mu sync.Mutex // guards the poll-thread flags read or set from other goroutines
}

// Config bundles every collaborator a Process needs. Fields irrelevant to
// the chosen Kind may be left nil (e.g. Transport for Native, Native for
// Scripted).
type Config struct {
	ID          int
	DisplayName string
	Kind        Kind
	Handle      uintptr
	StartAddr   uint64
	Callbacks   Callbacks
	Symbols     SymbolEngine
	Resolver    ModuleResolver
	Walker      StackWalker
	Native      NativeSource
	Transport   ipc.Transport
	Log         *slog.Logger
}

// NewProcess constructs a Process ready to be driven by WaitAndDispatch.
// The launch/attach prelude that produces a ready OS handle (or a connected
// transport) happens before this call; it is outside this engine's scope.
func NewProcess(cfg Config) *Process {
	threads := NewThreadRegistry()
	codec := NewFakeAddressCodec()
	suspend := NewSuspendController(threads, cfg.Native)
	bp := NewBreakpointTable(cfg.Kind, cfg.Native, cfg.Transport, codec, suspend, cfg.Callbacks)

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	entrySeen := cfg.Kind == Scripted // attach/scripted path pre-sets it

	return &Process{
		ID:             cfg.ID,
		DisplayName:    cfg.DisplayName,
		Kind:           cfg.Kind,
		Handle:         cfg.Handle,
		StartAddr:      cfg.StartAddr,
		Callbacks:      cfg.Callbacks,
		Symbols:        cfg.Symbols,
		Resolver:       cfg.Resolver,
		Log:            log,
		native:         cfg.Native,
		transport:      cfg.Transport,
		walker:         cfg.Walker,
		entryPointSeen: entrySeen,
		pumping:        true,
		Modules:        NewModuleRegistry(),
		Threads:        threads,
		Breakpoints:    bp,
		Codec:          codec,
		Suspend:        suspend,
	}
}

// IsStopped reports whether the process is stopped: the last raw event slot
// is non-empty or the suspend counter is positive.
func (p *Process) IsStopped() bool {
	p.mu.Lock()
	hasEvent := p.lastRawEvent != nil || p.lastScriptedEvent != nil
	p.mu.Unlock()
	return hasEvent || p.Suspend.Count() > 0
}

// pollWaitTimeout is the budget WaitAndDispatch blocks in the event source
// before giving up for this tick.
const pollWaitTimeout = 50 * time.Millisecond
