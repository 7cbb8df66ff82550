// Package console provides a demonstrative, colorized implementation of
// the worker's front-end callback contract, in the same style the
// interactive CPU debugger prints its own status lines.
package console

import (
	"fmt"
	"io"

	"github.com/Manu343726/npldbgworker/internal/engine"
	"github.com/fatih/color"
)

var (
	colorAddr       = color.New(color.FgCyan)
	colorThread     = color.New(color.FgGreen)
	colorModule     = color.New(color.FgHiBlue)
	colorBreakpoint = color.New(color.FgRed, color.Bold)
	colorSuccess    = color.New(color.FgGreen)
	colorWarning    = color.New(color.FgYellow)
	colorError      = color.New(color.FgRed, color.Bold)
	colorOutput     = color.New(color.FgHiWhite)
)

// Callbacks prints every front-end notification to out, embedding
// engine.NopCallbacks so it stays a complete engine.Callbacks even as the
// interface grows.
type Callbacks struct {
	engine.NopCallbacks
	out io.Writer
}

// New returns a Callbacks writing to out.
func New(out io.Writer) *Callbacks {
	return &Callbacks{out: out}
}

func (c *Callbacks) OnLoadComplete(thread *engine.Thread) {
	colorSuccess.Fprintf(c.out, "load complete")
	if thread != nil {
		fmt.Fprintf(c.out, " on thread %s\n", colorThread.Sprintf("%d", thread.ID))
		return
	}
	fmt.Fprintln(c.out)
}

func (c *Callbacks) OnThreadStart(thread *engine.Thread) {
	fmt.Fprintf(c.out, "thread %s started\n", colorThread.Sprintf("%d", thread.ID))
}

func (c *Callbacks) OnThreadExit(thread *engine.Thread, exitCode int32) {
	fmt.Fprintf(c.out, "thread %s exited (%d)\n", colorThread.Sprintf("%d", thread.ID), exitCode)
}

func (c *Callbacks) OnModuleLoad(module *engine.Module) {
	fmt.Fprintf(c.out, "module loaded: %s at %s\n", colorModule.Sprint(module.Path), colorAddr.Sprintf("0x%x", module.Base))
}

func (c *Callbacks) OnModuleUnload(module *engine.Module) {
	fmt.Fprintf(c.out, "module unloaded: %s\n", colorModule.Sprint(module.Path))
}

func (c *Callbacks) OnSymbolSearch(module *engine.Module, path string, loaded bool) {
	if loaded {
		colorSuccess.Fprintf(c.out, "symbols loaded for %s from %s\n", module.Path, path)
		return
	}
	colorWarning.Fprintf(c.out, "no symbols found for %s\n", module.Path)
}

func (c *Callbacks) OnBreakpoint(thread *engine.Thread, clients []engine.ClientToken, address uint64) {
	colorBreakpoint.Fprintf(c.out, "breakpoint hit")
	fmt.Fprintf(c.out, " at %s on thread %s (%d client(s))\n",
		colorAddr.Sprintf("0x%x", address), colorThread.Sprintf("%d", thread.ID), len(clients))
}

func (c *Callbacks) OnBreakpointBound(client engine.ClientToken, address uint64) {
	colorSuccess.Fprintf(c.out, "breakpoint bound at %s\n", colorAddr.Sprintf("0x%x", address))
}

func (c *Callbacks) OnAsyncBreakComplete(thread *engine.Thread) {
	fmt.Fprintf(c.out, "async break complete on thread %s\n", colorThread.Sprintf("%d", thread.ID))
}

func (c *Callbacks) OnStepComplete(thread *engine.Thread) {
	fmt.Fprintf(c.out, "step complete on thread %s\n", colorThread.Sprintf("%d", thread.ID))
}

func (c *Callbacks) OnOutputString(s string) {
	colorOutput.Fprint(c.out, s)
}

func (c *Callbacks) OnError(hr error) {
	colorError.Fprintf(c.out, "error: %v\n", hr)
}

func (c *Callbacks) OnProcessExit(code int32) {
	fmt.Fprintf(c.out, "process exited (%d)\n", code)
}

func (c *Callbacks) OnProgramDestroy(code int32) {
	fmt.Fprintf(c.out, "program destroyed (%d)\n", code)
}
