package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/dshills/stepgraph/internal/debug"
	"github.com/dshills/stepgraph/internal/memory"
)

// command is one entry of the command table.
type command struct {
	name  string
	usage string
	help  string
	run   func(sh *Shell, ctx context.Context, args []string) error
}

// commands is in help order.
var (
	commands     []command
	commandIndex map[string]*command
)

// The table is built in init because the help command reads it.
func init() {
	commands = []command{
		{"r", "r", "Run the program / continue from a breakpoint", (*Shell).run},
		{"b", "b n", "Breakpoint at line n", (*Shell).setBreakpoint},
		{"rb", "rb n", "Remove breakpoint at line n", (*Shell).removeBreakpoint},
		{"lb", "lb", "List all breakpoints", (*Shell).listBreakpoints},
		{"cb", "cb", "Clear all breakpoints", (*Shell).clearBreakpoints},
		{"p", "p varname", "Print variable", (*Shell).printVariable},
		{"sm", "sm", "Show memory contents", (*Shell).showMemory},
		{"ss", "ss", "Show state of debugger", (*Shell).showState},
		{"w", "w", "What line are we on?", (*Shell).where},
		{"h", "h", "Show this help", (*Shell).help},
		{"q", "q", "Quit the debugger", (*Shell).quit},
	}

	commandIndex = make(map[string]*command, len(commands))
	for i := range commands {
		commandIndex[commands[i].name] = &commands[i]
	}
}

// Shell reads debugger commands and writes their results.
type Shell struct {
	session *debug.Session
	inspect *debug.Inspector
	out     io.Writer
	format  memory.Format
	prompt  string
	logger  *Logger
}

// NewShell creates a command loop over session writing to out.
func NewShell(session *debug.Session, out io.Writer, format memory.Format, prompt string, logger *Logger) *Shell {
	if logger == nil {
		logger = NullLogger
	}
	return &Shell{
		session: session,
		inspect: debug.NewInspector(session),
		out:     out,
		format:  format,
		prompt:  prompt,
		logger:  logger,
	}
}

// Run executes commands from in until q, end of input or ctx is done.
// The prompt is only written when in is a terminal.
func (sh *Shell) Run(ctx context.Context, in io.Reader) error {
	interactive := isTerminal(in)
	scanner := bufio.NewScanner(in)

	for {
		if interactive {
			fmt.Fprint(sh.out, sh.prompt)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading commands: %w", err)
			}
			return nil
		}

		err := sh.Execute(ctx, scanner.Text())
		switch {
		case err == nil:
		case errors.Is(err, ErrQuit):
			return nil
		case errors.Is(err, debug.ErrSessionClosed), ctx.Err() != nil:
			return err
		default:
			sh.logger.Error("command %q: %v", scanner.Text(), err)
		}
	}
}

// Execute runs a single command line. It returns ErrQuit for q.
func (sh *Shell) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, ok := commandIndex[fields[0]]
	if !ok {
		sh.println("unknown command")
		return nil
	}
	return cmd.run(sh, ctx, fields[1:])
}

func (sh *Shell) println(a ...any) {
	fmt.Fprintln(sh.out, a...)
}

func (sh *Shell) run(ctx context.Context, _ []string) error {
	stop, err := sh.session.Continue(ctx)
	switch {
	case errors.Is(err, debug.ErrCompleted):
		sh.println("program has completed")
	case err != nil:
		return err
	case stop.Err != nil:
		sh.println("execution failed:", stop.Err)
	case stop.State == debug.StateRunning:
		sh.println("stopped at line", stop.Line)
	default:
		sh.println("completed execution")
	}
	return nil
}

// lineArg parses the single line number argument of b and rb.
func lineArg(args []string) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	return n, err == nil
}

func (sh *Shell) setBreakpoint(_ context.Context, args []string) error {
	line, ok := lineArg(args)
	if !ok {
		sh.println("usage: b <line>")
		return nil
	}

	err := sh.session.SetBreakpoint(line)
	switch {
	case err == nil:
		sh.println("breakpoint set at line", line)
	case errors.Is(err, debug.ErrBreakpointAlreadySet):
		sh.println("breakpoint already set")
	case errors.Is(err, debug.ErrNoSuchLine):
		sh.println("no such line")
	default:
		return err
	}
	return nil
}

func (sh *Shell) removeBreakpoint(_ context.Context, args []string) error {
	line, ok := lineArg(args)
	if !ok {
		sh.println("usage: rb <line>")
		return nil
	}

	err := sh.session.RemoveBreakpoint(line)
	switch {
	case err == nil:
		sh.println("breakpoint removed")
	case errors.Is(err, debug.ErrNoSuchBreakpoint):
		sh.println("no such breakpoint")
	default:
		return err
	}
	return nil
}

func (sh *Shell) listBreakpoints(context.Context, []string) error {
	if line, ok := sh.session.Breakpoint(); ok {
		sh.println("breakpoints on lines:", line)
	} else {
		sh.println("no breakpoints")
	}
	return nil
}

func (sh *Shell) clearBreakpoints(context.Context, []string) error {
	sh.session.ClearBreakpoints()
	sh.println("breakpoints cleared")
	return nil
}

func (sh *Shell) printVariable(_ context.Context, args []string) error {
	if len(args) != 1 {
		sh.println("usage: p <varname>")
		return nil
	}

	v, ok := sh.inspect.Variable(args[0])
	if !ok {
		sh.println("no such variable")
		return nil
	}
	sh.println(memory.Describe(args[0], v))
	return nil
}

func (sh *Shell) showMemory(context.Context, []string) error {
	return sh.inspect.DumpMemory(sh.out, sh.format)
}

func (sh *Shell) showState(context.Context, []string) error {
	sh.println(sh.inspect.State())
	return nil
}

func (sh *Shell) where(context.Context, []string) error {
	line, err := sh.inspect.CurrentLine()
	if errors.Is(err, debug.ErrCompleted) {
		sh.println("completed execution")
		return nil
	}
	if err != nil {
		return err
	}
	sh.println("line", line)
	return nil
}

func (sh *Shell) help(context.Context, []string) error {
	sh.println("Available commands:")
	for _, c := range commands {
		sh.println(c.usage, "->", c.help)
	}
	return nil
}

func (sh *Shell) quit(context.Context, []string) error {
	return ErrQuit
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
