//go:build !linux
// +build !linux

package worker

import (
	"fmt"

	"github.com/Manu343726/npldbgworker/internal/engine"
)

func newNativeSource(pid int) (engine.NativeSource, error) {
	return nil, fmt.Errorf("worker: native debuggee attach is only implemented on linux")
}
