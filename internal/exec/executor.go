// Package exec runs statement graphs.
//
// An Executor starts at a node and follows the edges selected by each node
// until it reaches an absent edge, which is either the natural end of the
// program or an edge cut by the debugger. It reports where forward progress
// stopped so that a caller can resume from the following node.
package exec

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/stepgraph/internal/memory"
	"github.com/dshills/stepgraph/internal/program"
)

// Errors returned by executors.
var (
	// ErrStepLimit indicates a run exceeded the executor's step budget.
	ErrStepLimit = errors.New("step limit exceeded")

	// ErrUnknownFunction indicates a call to a function that does not exist.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrUnsupportedValue indicates an expression produced a value the
	// memory store cannot hold.
	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrNoStart indicates an execution request without a start node.
	ErrNoStart = errors.New("no start statement")
)

// Result reports the outcome of a run.
type Result struct {
	// Success is false when a statement failed or the run was aborted.
	Success bool

	// Last is the last statement that completed, or program.NoNode if none
	// did.
	Last program.NodeID

	// Err describes the failure when Success is false.
	Err error
}

// Executor runs a graph from a start node until an absent edge.
type Executor interface {
	Execute(ctx context.Context, g *program.Graph, start program.NodeID, mem *memory.Store) Result
}

// StatementError is a failure while executing a specific statement.
type StatementError struct {
	// Node is the failing statement.
	Node program.NodeID
	// Line is its source line.
	Line int
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StatementError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *StatementError) Unwrap() error {
	return e.Err
}
