package worker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
)

var (
	launchOutbound   string
	launchInbound    string
	launchWorkingDir string
	launchSessionIn  string
	launchSessionOut string
)

// LaunchCmd starts a scripted debuggee command and attaches to it over a
// freshly created pair of named FIFOs. Launching a native debuggee under
// ptrace from a cold start needs PTRACE_TRACEME cooperation from the child
// process image, which is outside this engine's scope; native
// debuggees are attached to, not launched, by this CLI.
var LaunchCmd = &cobra.Command{
	Use:   "launch -- <command> [args...]",
	Short: "Launch a scripted debuggee and attach to it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLaunch,
}

func init() {
	LaunchCmd.Flags().StringVar(&launchOutbound, "out", "NPLDebug", "scripted outbound queue path")
	LaunchCmd.Flags().StringVar(&launchInbound, "in", "VSDebug", "scripted inbound queue path")
	LaunchCmd.Flags().StringVar(&launchWorkingDir, "working-dir", "", "working directory for scripted fake-address resolution")
	LaunchCmd.Flags().StringVar(&launchSessionIn, "session", "", "breakpoint session file to restore on attach")
	LaunchCmd.Flags().StringVar(&launchSessionOut, "save-session", "", "breakpoint session file to write on detach")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	applyProfileDefaults(cmd, &launchOutbound, &launchInbound, &launchWorkingDir, nil)

	if err := ensureFifo(launchOutbound); err != nil {
		return err
	}
	if err := ensureFifo(launchInbound); err != nil {
		return err
	}

	child := exec.Command(args[0], args[1:]...)
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	child.Stdin = os.Stdin
	if err := child.Start(); err != nil {
		return fmt.Errorf("worker: launch %q: %w", args[0], err)
	}

	// Give the scripting runtime a moment to open its end of the FIFOs
	// before this process blocks opening its own end.
	time.Sleep(200 * time.Millisecond)

	p, err := buildProcess("scripted", launchOutbound, launchInbound, 0, launchWorkingDir)
	if err != nil {
		return err
	}

	go func() {
		if err := p.PollForever(context.Background()); err != nil {
			colorError.Printf("poll loop: %v\n", err)
		}
	}()

	return runREPL(p, replOptions{sessionLoadPath: launchSessionIn, sessionSavePath: launchSessionOut})
}
