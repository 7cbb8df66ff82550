package engine

// ClientToken is an opaque object supplied by the front-end that owns a
// breakpoint; many tokens can share one address (the breakpoint table's
// multiset semantics).
type ClientToken any

// Callbacks is the front-end surface the dispatcher calls into. Its
// implementation is explicitly out of scope for this engine: this
// interface is the contract boundary, not a place to put UI logic. The
// console package provides one concrete, demonstrative implementation.
type Callbacks interface {
	OnLoadComplete(thread *Thread)
	OnThreadStart(thread *Thread)
	OnThreadExit(thread *Thread, exitCode int32)
	OnModuleLoad(module *Module)
	OnModuleUnload(module *Module)
	OnSymbolSearch(module *Module, path string, loaded bool)
	OnBreakpoint(thread *Thread, clients []ClientToken, address uint64)
	OnBreakpointBound(client ClientToken, address uint64)
	OnAsyncBreakComplete(thread *Thread)
	OnStepComplete(thread *Thread)
	OnOutputString(s string)
	OnError(hr error)
	OnProcessExit(code int32)
	OnProgramDestroy(code int32)
}

// NopCallbacks implements Callbacks with no-ops; useful as an embeddable
// base for partial front-end implementations and in tests that only care
// about a handful of the fourteen methods.
type NopCallbacks struct{}

func (NopCallbacks) OnLoadComplete(*Thread)                        {}
func (NopCallbacks) OnThreadStart(*Thread)                         {}
func (NopCallbacks) OnThreadExit(*Thread, int32)                   {}
func (NopCallbacks) OnModuleLoad(*Module)                          {}
func (NopCallbacks) OnModuleUnload(*Module)                        {}
func (NopCallbacks) OnSymbolSearch(*Module, string, bool)          {}
func (NopCallbacks) OnBreakpoint(*Thread, []ClientToken, uint64)   {}
func (NopCallbacks) OnBreakpointBound(ClientToken, uint64)         {}
func (NopCallbacks) OnAsyncBreakComplete(*Thread)                  {}
func (NopCallbacks) OnStepComplete(*Thread)                        {}
func (NopCallbacks) OnOutputString(string)                         {}
func (NopCallbacks) OnError(error)                                 {}
func (NopCallbacks) OnProcessExit(int32)                           {}
func (NopCallbacks) OnProgramDestroy(int32)                        {}
