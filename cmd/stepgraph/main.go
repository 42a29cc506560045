// Package main is the entry point for the stepgraph debugger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tebeka/atexit"

	"github.com/dshills/stepgraph/internal/app"
	"github.com/dshills/stepgraph/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath   string
	logLevel     string
	memoryFormat string
	maxSteps     int
	watch        bool
	program      string
}

func main() {
	atexit.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath, opts.configPath != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	application, err := app.New(app.Options{
		ProgramPath: opts.program,
		Config:      cfg,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// The session must restore the graph on every exit path, including
	// atexit.Exit from the signal handler below.
	atexit.Register(func() { application.Shutdown() })
	defer application.Shutdown()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		fmt.Fprintln(os.Stderr)
		atexit.Exit(128 + int(sig.(syscall.Signal)))
	}()

	if err := application.Run(context.Background()); err != nil && !errors.Is(err, app.ErrQuit) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// applyFlags overrides configuration with explicitly set flags.
func applyFlags(cfg *config.Config, opts options) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.Logging.Level = opts.logLevel
		case "memory-format":
			cfg.Shell.MemoryFormat = opts.memoryFormat
		case "max-steps":
			cfg.Executor.MaxSteps = opts.maxSteps
		case "watch":
			cfg.Program.Watch = opts.watch
		}
	})
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error, off)")
	flag.StringVar(&opts.memoryFormat, "memory-format", "table", "Memory dump format (table, plain)")
	flag.IntVar(&opts.maxSteps, "max-steps", 100_000, "Statements one run may execute")
	flag.BoolVar(&opts.watch, "watch", false, "Warn when the program file changes")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "stepgraph - breakpoint debugger for statement graphs\n\n")
		fmt.Fprintf(os.Stderr, "Usage: stepgraph [options] <program.yaml|program.json>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  STEPGRAPH_LOG_LEVEL, STEPGRAPH_PROMPT, STEPGRAPH_MEMORY_FORMAT,\n")
		fmt.Fprintf(os.Stderr, "  STEPGRAPH_MAX_STEPS, STEPGRAPH_WATCH override the config file\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  stepgraph testdata/branch.yaml\n")
		fmt.Fprintf(os.Stderr, "  stepgraph -c stepgraph.toml -log-level debug prog.json\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("stepgraph %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	// Validate log level
	switch opts.logLevel {
	case "debug", "info", "warn", "error", "off":
		// Valid
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, error, or off)\n", opts.logLevel)
		os.Exit(1)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts.program = flag.Arg(0)

	return opts
}
