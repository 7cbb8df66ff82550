package worker

import (
	"fmt"

	"github.com/Manu343726/npldbgworker/internal/session"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// SessionCmd groups breakpoint-session inspection subcommands. The save and
// restore operations themselves run as part of an attach/launch session
// (via --save-session/--session), since they need a live process to read
// breakpoints from or apply them to; this command only inspects a file
// already on disk.
var SessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect saved breakpoint sessions",
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the breakpoints recorded in a saved session file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionInspect,
}

func init() {
	SessionCmd.AddCommand(sessionInspectCmd)
}

func runSessionInspect(cmd *cobra.Command, args []string) error {
	doc, err := session.ReadFile(afero.NewOsFs(), args[0])
	if err != nil {
		return err
	}
	colorSuccess.Printf("kind: %s, %d breakpoint(s)\n", doc.Kind, len(doc.Breakpoints))
	for _, bp := range doc.Breakpoints {
		if doc.Kind == "scripted" {
			fmt.Printf("  %s:%d\n", bp.File, bp.Line)
			continue
		}
		fmt.Printf("  0x%x\n", bp.Address)
	}
	return nil
}
