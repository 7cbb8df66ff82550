package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Manu343726/npldbgworker/internal/console"
	"github.com/Manu343726/npldbgworker/internal/engine"
	"github.com/Manu343726/npldbgworker/internal/ipc"
	"github.com/Manu343726/npldbgworker/internal/logging"
	"github.com/spf13/cobra"
)

var (
	attachKind       string
	attachOutbound   string
	attachInbound    string
	attachPID        int
	attachWorkingDir string
	attachSessionIn  string
	attachSessionOut string
)

// AttachCmd attaches the worker to an already-running debuggee: a scripted
// runtime reachable over a pair of named FIFOs, or (linux only) a native
// process already under ptrace control.
var AttachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach to a running debuggee",
	RunE:  runAttach,
}

func init() {
	AttachCmd.Flags().StringVar(&attachKind, "kind", "scripted", "debuggee kind: scripted or native")
	AttachCmd.Flags().StringVar(&attachOutbound, "out", "NPLDebug", "scripted outbound queue path")
	AttachCmd.Flags().StringVar(&attachInbound, "in", "VSDebug", "scripted inbound queue path")
	AttachCmd.Flags().IntVar(&attachPID, "pid", 0, "native process id to attach to")
	AttachCmd.Flags().StringVar(&attachWorkingDir, "working-dir", "", "working directory for scripted fake-address resolution")
	AttachCmd.Flags().StringVar(&attachSessionIn, "session", "", "breakpoint session file to restore on attach")
	AttachCmd.Flags().StringVar(&attachSessionOut, "save-session", "", "breakpoint session file to write on detach")
}

func runAttach(cmd *cobra.Command, args []string) error {
	applyProfileDefaults(cmd, &attachOutbound, &attachInbound, &attachWorkingDir, &attachKind)
	p, err := buildProcess(attachKind, attachOutbound, attachInbound, attachPID, attachWorkingDir)
	if err != nil {
		return err
	}
	go func() {
		if err := p.PollForever(context.Background()); err != nil {
			colorError.Printf("poll loop: %v\n", err)
		}
	}()
	return runREPL(p, replOptions{sessionLoadPath: attachSessionIn, sessionSavePath: attachSessionOut})
}

// buildProcess wires a Process for the given kind, reused by both attach
// and launch.
func buildProcess(kind, outbound, inbound string, pid int, workingDir string) (*engine.Process, error) {
	cb := console.New(os.Stdout)
	log := logging.New(os.Stderr, nil, slog.LevelInfo)

	switch kind {
	case "scripted":
		transport, err := ipc.OpenPipeTransport(outbound, inbound)
		if err != nil {
			return nil, fmt.Errorf("worker: open scripted transport: %w", err)
		}
		p := engine.NewProcess(engine.Config{
			Kind:      engine.Scripted,
			Callbacks: cb,
			Transport: transport,
			Log:       log,
		})
		if workingDir != "" {
			p.Codec.SetWorkingDir(workingDir)
		}
		return p, nil
	case "native":
		if pid == 0 {
			return nil, fmt.Errorf("worker: --pid is required for native attach")
		}
		native, err := newNativeSource(pid)
		if err != nil {
			return nil, err
		}
		return engine.NewProcess(engine.Config{
			Kind:      engine.Native,
			Handle:    uintptr(pid),
			Callbacks: cb,
			Native:    native,
			Log:       log,
		}), nil
	default:
		return nil, fmt.Errorf("worker: unknown kind %q (want scripted or native)", kind)
	}
}
