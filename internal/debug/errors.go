package debug

import (
	"errors"
	"fmt"
)

// Errors returned by session and breakpoint operations.
var (
	// ErrBreakpointAlreadySet indicates a breakpoint is already active.
	ErrBreakpointAlreadySet = errors.New("breakpoint already set")

	// ErrNoSuchLine indicates no statement on the line is reachable from
	// the resume point.
	ErrNoSuchLine = errors.New("no such line")

	// ErrNoSuchBreakpoint indicates no active breakpoint on the line.
	ErrNoSuchBreakpoint = errors.New("no such breakpoint")

	// ErrCompleted indicates the program has already completed.
	ErrCompleted = errors.New("program has completed")

	// ErrSessionClosed indicates the session was closed.
	ErrSessionClosed = errors.New("session closed")
)

// BreakpointError is a failed breakpoint operation.
type BreakpointError struct {
	// Op is the operation ("set" or "remove").
	Op string
	// Line is the requested line.
	Line int
	// Err is one of the breakpoint sentinel errors.
	Err error
}

// Error implements the error interface.
func (e *BreakpointError) Error() string {
	return fmt.Sprintf("%s breakpoint at line %d: %v", e.Op, e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *BreakpointError) Unwrap() error {
	return e.Err
}

// invariant panics with a message describing a broken graph invariant.
// Continuing after one would run the program on a corrupted graph.
func invariant(format string, args ...any) {
	panic(fmt.Sprintf("debug: invariant violated: "+format, args...))
}
