//go:build !windows
// +build !windows

package worker

import (
	"fmt"
	"os"
	"syscall"
)

// ensureFifo creates a named pipe at path if one does not already exist.
func ensureFifo(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := syscall.Mkfifo(path, 0o644); err != nil {
		return fmt.Errorf("worker: mkfifo %q: %w", path, err)
	}
	return nil
}
