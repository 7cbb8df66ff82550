// Package worker implements the npldbgworker CLI's debuggee-facing
// subcommands: attach, launch, and session. Attach and launch each attach
// to (or start) one debuggee and then drive an interactive command loop over
// the engine's command façade, in the same read-eval-print style as the
// teacher CPU interpreter's own "debug" subcommand; session inspects a saved
// breakpoint-session file.
package worker

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Manu343726/npldbgworker/internal/config"
	"github.com/Manu343726/npldbgworker/internal/engine"
	"github.com/Manu343726/npldbgworker/internal/session"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// defaultProfile supplies fallback values for attach/launch flags the user
// left unset, loaded once by the root command from config file/env/defaults
// (see SetDefaultProfile).
var defaultProfile = config.DefaultProfile()

// SetDefaultProfile installs the profile attach/launch fall back to for any
// flag the caller did not explicitly set. Called once by the root command
// after it has loaded config file and environment overrides.
func SetDefaultProfile(p config.Profile) {
	defaultProfile = p
}

// applyProfileDefaults overwrites *outbound/*inbound/*workingDir (and, if
// non-nil, *kind) with the loaded profile's values for any flag the user
// did not explicitly pass on the command line.
func applyProfileDefaults(cmd *cobra.Command, outbound, inbound, workingDir, kind *string) {
	if !cmd.Flags().Changed("out") {
		*outbound = defaultProfile.OutboundQueue
	}
	if !cmd.Flags().Changed("in") {
		*inbound = defaultProfile.InboundQueue
	}
	if !cmd.Flags().Changed("working-dir") && defaultProfile.WorkingDir != "" {
		*workingDir = defaultProfile.WorkingDir
	}
	if kind != nil && !cmd.Flags().Changed("kind") {
		*kind = defaultProfile.DebuggeeKind
	}
}

var (
	colorPrompt  = color.New(color.FgBlue, color.Bold)
	colorError   = color.New(color.FgRed, color.Bold)
	colorSuccess = color.New(color.FgGreen)
	colorWarning = color.New(color.FgYellow)
)

// replOptions configures one interactive attach/launch session.
type replOptions struct {
	sessionLoadPath string
	sessionSavePath string
}

// runREPL drives p interactively from stdin until the user quits, detaches
// or terminates, or stdin reaches EOF; it does not end on its own when the
// debuggee exits. It is shared by the attach and launch subcommands.
func runREPL(p *engine.Process, opts replOptions) error {
	if opts.sessionLoadPath != "" {
		doc, err := session.ReadFile(afero.NewOsFs(), opts.sessionLoadPath)
		if err != nil {
			return fmt.Errorf("worker: load session: %w", err)
		}
		if err := session.Restore(p, doc); err != nil {
			return fmt.Errorf("worker: restore session: %w", err)
		}
		colorSuccess.Printf("restored %d breakpoint(s) from %s\n", len(doc.Breakpoints), opts.sessionLoadPath)
	}

	if opts.sessionSavePath != "" {
		defer func() {
			doc := session.Save(p)
			if err := session.WriteFile(afero.NewOsFs(), opts.sessionSavePath, doc); err != nil {
				colorError.Printf("could not save session: %v\n", err)
				return
			}
			colorSuccess.Printf("saved %d breakpoint(s) to %s\n", len(doc.Breakpoints), opts.sessionSavePath)
		}()
	}

	reader := bufio.NewReader(os.Stdin)
	var lastThread *engine.Thread
	running := true
	for running {
		colorPrompt.Print("(npldbgworker) ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])
		args := fields[1:]

		switch cmd {
		case "break", "b":
			cmdBreak(p, args)
		case "continue", "c":
			if err := p.Continue(lastThread); err != nil {
				colorError.Printf("continue: %v\n", err)
			}
		case "step", "s":
			cmdStep(p, args)
		case "eval", "e":
			cmdEval(p, args)
		case "stack", "bt":
			cmdStack(p, lastThread)
		case "detach":
			if err := p.Detach(); err != nil {
				colorError.Printf("detach: %v\n", err)
			}
			running = false
		case "kill", "terminate":
			if err := p.Terminate(); err != nil {
				colorError.Printf("terminate: %v\n", err)
			}
			running = false
		case "quit", "q", "exit":
			running = false
		case "help", "h", "?":
			printHelp()
		default:
			colorWarning.Printf("unknown command: %s (try 'help')\n", cmd)
		}
	}
	return nil
}

func cmdBreak(p *engine.Process, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: break <address|file:line>")
		return
	}
	addr, err := parseBreakpointTarget(p, args[0])
	if err != nil {
		colorError.Printf("break: %v\n", err)
		return
	}
	if err := p.Breakpoints.Set(addr, "cli"); err != nil {
		colorError.Printf("break: %v\n", err)
		return
	}
	colorSuccess.Printf("breakpoint set at 0x%x\n", addr)
}

func parseBreakpointTarget(p *engine.Process, target string) (uint64, error) {
	if p.Kind == engine.Scripted {
		if file, lineStr, ok := strings.Cut(target, ":"); ok {
			line, err := strconv.Atoi(lineStr)
			if err != nil {
				return 0, fmt.Errorf("invalid line number %q", lineStr)
			}
			return p.Codec.Encode(file, line), nil
		}
		return 0, fmt.Errorf("scripted breakpoints must be file:line")
	}
	s := strings.TrimPrefix(strings.ToLower(target), "0x")
	addr, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", target)
	}
	return addr, nil
}

func cmdStep(p *engine.Process, args []string) {
	if p.Kind != engine.Scripted {
		colorError.Println("step is only supported for scripted debuggees")
		return
	}
	kind := engine.StepInto
	lines := 1
	for _, a := range args {
		switch strings.ToLower(a) {
		case "over":
			kind = engine.StepOver
		case "out":
			kind = engine.StepOut
		default:
			if n, err := strconv.Atoi(a); err == nil {
				lines = n
			}
		}
	}
	if err := p.Step(kind, lines); err != nil {
		colorError.Printf("step: %v\n", err)
	}
}

func cmdEval(p *engine.Process, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: eval <expression>")
		return
	}
	expr := strings.Join(args, " ")
	result, ok, err := p.EvaluateExpression(expr)
	if err != nil {
		colorError.Printf("eval: %v\n", err)
		return
	}
	if !ok {
		colorWarning.Println("eval: no result")
		return
	}
	fmt.Println(result)
}

func cmdStack(p *engine.Process, thread *engine.Thread) {
	frames, err := p.DoStackWalk(thread)
	if err != nil {
		colorError.Printf("stack: %v\n", err)
		return
	}
	for i, f := range frames {
		fmt.Printf("  #%d 0x%x %s\n", i, f.Address, f.Name)
	}
}

func printHelp() {
	fmt.Println(`Commands:
  break, b <address|file:line>   set a breakpoint
  continue, c                    resume execution
  step, s [into|over|out] [n]    step (scripted only)
  eval, e <expr>                 evaluate an expression (scripted only)
  stack, bt                      print the current call stack
  detach                         detach and exit
  kill, terminate                terminate the debuggee and exit
  quit, q, exit                  exit without detaching
  help, h, ?                     show this text`)
}
