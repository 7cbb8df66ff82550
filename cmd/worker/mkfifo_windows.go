//go:build windows
// +build windows

package worker

import "fmt"

// ensureFifo is unsupported on windows: named pipes there are not
// filesystem FIFOs and need the platform's own named-pipe API, which is
// outside this engine's scope.
func ensureFifo(path string) error {
	return fmt.Errorf("worker: launch over named FIFOs is not supported on windows")
}
