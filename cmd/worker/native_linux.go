//go:build linux
// +build linux

package worker

import "github.com/Manu343726/npldbgworker/internal/engine"

func newNativeSource(pid int) (engine.NativeSource, error) {
	return engine.NewLinuxPtraceSource(pid), nil
}
