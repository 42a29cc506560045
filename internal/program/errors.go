package program

import (
	"errors"
	"fmt"
)

// Errors returned by graph and loader operations.
var (
	// ErrUnknownNode indicates a node ID or name that is not in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidSlot indicates an edge slot the node's kind does not own.
	ErrInvalidSlot = errors.New("invalid edge slot")

	// ErrEmptyProgram indicates a program with no statements.
	ErrEmptyProgram = errors.New("program has no statements")

	// ErrUnsupportedFormat indicates a program file extension with no loader.
	ErrUnsupportedFormat = errors.New("unsupported program format")
)

// LoadError describes a program source that could not be turned into a graph.
type LoadError struct {
	// Path is the program file, or "<reader>" for in-memory sources.
	Path string
	// Statement is the offending statement ID, if any.
	Statement string
	// Message describes the problem.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	path := e.Path
	if path == "" {
		path = "program"
	}
	if e.Statement != "" {
		return fmt.Sprintf("load %s: statement %q: %s", path, e.Statement, e.Message)
	}
	return fmt.Sprintf("load %s: %s", path, e.Message)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
