// Package app wires the stepgraph debugger together: configuration, the
// program graph, the executor, the debug session and the command loop.
package app

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dshills/stepgraph/internal/config"
	"github.com/dshills/stepgraph/internal/debug"
	"github.com/dshills/stepgraph/internal/exec"
	"github.com/dshills/stepgraph/internal/memory"
	"github.com/dshills/stepgraph/internal/program"
)

// Options configures the application.
type Options struct {
	// ProgramPath is the program file to debug.
	ProgramPath string

	// Config holds the loaded settings. Defaults are used when nil.
	Config *config.Config

	// Input supplies commands. Defaults to os.Stdin.
	Input io.Reader

	// Output receives command results and program output. Defaults to
	// os.Stdout.
	Output io.Writer

	// Logger receives diagnostics. Defaults to a logger on os.Stderr.
	Logger *Logger
}

// Application owns one debug session over one program.
type Application struct {
	opts   Options
	cfg    *config.Config
	logger *Logger

	graph   *program.Graph
	session *debug.Session
	shell   *Shell
	watcher *program.Watcher

	running      atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// New loads the program and creates the session.
func New(opts Options) (*Application, error) {
	if opts.ProgramPath == "" {
		return nil, ErrNoProgram
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logger == nil {
		lc := DefaultLoggerConfig()
		lc.Level = ParseLogLevel(opts.Config.Logging.Level)
		opts.Logger = NewLogger(lc)
	}

	app := &Application{
		opts:   opts,
		cfg:    opts.Config,
		logger: opts.Logger,
	}

	if err := app.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes components in dependency order.
func (app *Application) bootstrap() error {
	var err error

	// 1. Program graph
	app.graph, err = program.Load(app.opts.ProgramPath)
	if err != nil {
		return &InitError{Component: "program", Err: err}
	}
	app.logger.Debug("loaded %s: %d statements, root at line %d",
		app.opts.ProgramPath, app.graph.Len(), app.graph.Line(app.graph.Root()))

	// 2. Executor and session
	executor := exec.NewLuaExecutor(
		exec.WithOutput(app.opts.Output),
		exec.WithMaxSteps(app.cfg.Executor.MaxSteps),
	)
	app.session = debug.NewSession(app.graph, memory.New(), executor)
	log := app.logger.WithField("session", app.session.ID())
	app.session.SetHandlers(sessionHandlers(app.graph, log))

	// 3. Command loop
	app.shell = NewShell(app.session, app.opts.Output,
		memory.ParseFormat(app.cfg.Shell.MemoryFormat), app.cfg.Shell.Prompt,
		log.WithComponent("shell"))

	// 4. Optional program file watcher
	if app.cfg.Program.Watch {
		wlog := app.logger.WithComponent("watcher")
		app.watcher, err = program.Watch(app.opts.ProgramPath,
			func(c program.Change) {
				wlog.Warn("program file %s changed (%s); restart to debug the new version", c.Path, c.Op)
			},
			func(err error) {
				wlog.Error("watching program file: %v", err)
			})
		if err != nil {
			app.session.Close()
			return &InitError{Component: "watcher", Err: err}
		}
	}

	return nil
}

// sessionHandlers logs session events.
func sessionHandlers(g *program.Graph, log *Logger) debug.SessionHandlers {
	return debug.SessionHandlers{
		OnStateChanged: func(old, new debug.State) {
			log.Debug("state %s -> %s", old, new)
		},
		OnBreakpointChanged: func(line int, set bool) {
			if set {
				log.Debug("breakpoint set at line %d", line)
			} else {
				log.Debug("breakpoint at line %d cleared", line)
			}
		},
		OnExecuted: func(start program.NodeID, result exec.Result) {
			if result.Err != nil {
				if exec.IsAborted(result) {
					log.Warn("execution aborted: %v", result.Err)
				} else {
					log.Warn("execution failed: %v", result.Err)
				}
				return
			}
			log.Debug("executed lines %d..%d", g.Line(start), g.Line(result.Last))
		},
	}
}

// Run runs the command loop until q or end of input.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	return app.shell.Run(ctx, app.opts.Input)
}

// Shutdown stops the watcher and closes the session, restoring any cut
// edge. It is safe to call more than once and from an exit hook.
func (app *Application) Shutdown() error {
	app.shutdownOnce.Do(func() {
		if app.watcher != nil {
			if err := app.watcher.Close(); err != nil {
				app.logger.WithComponent("watcher").Error("close: %v", err)
			}
		}
		app.shutdownErr = app.session.Close()
		app.logger.Debug("session %s closed", app.session.ID())
	})
	return app.shutdownErr
}

// IsRunning returns true while the command loop is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Config returns the settings the application was created with.
func (app *Application) Config() *config.Config {
	return app.cfg
}

// Graph returns the loaded program graph.
func (app *Application) Graph() *program.Graph {
	return app.graph
}

// Session returns the debug session.
func (app *Application) Session() *debug.Session {
	return app.session
}
