package debug

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/stepgraph/internal/exec"
	"github.com/dshills/stepgraph/internal/memory"
	"github.com/dshills/stepgraph/internal/program"
)

// State represents the current state of a debug session.
type State int

const (
	// StateLoaded is the state before the first continue.
	StateLoaded State = iota
	// StateRunning is the state after a continue stopped at a breakpoint.
	StateRunning
	// StateCompleted is the state after the program finished or failed.
	StateCompleted
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateLoaded:
		return "Loaded"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Stop describes where a continue left the session.
type Stop struct {
	// State is the session state after the continue.
	State State

	// Line is the line the next continue will execute. Zero when Completed.
	Line int

	// Breakpoint is true if execution stopped at the breakpoint.
	Breakpoint bool

	// Err is the executor failure, if any.
	Err error
}

// SessionHandlers contains callbacks for session events. Handlers run
// synchronously inside the session operation and must not call back into
// the session.
type SessionHandlers struct {
	// OnStateChanged is called when the session state changes.
	OnStateChanged func(old, new State)

	// OnBreakpointChanged is called when a breakpoint is set or cleared.
	OnBreakpointChanged func(line int, set bool)

	// OnExecuted is called after every executor run.
	OnExecuted func(start program.NodeID, result exec.Result)
}

// Session drives one program through the executor.
//
// Every public method leaves the graph uncut unless a breakpoint is active,
// and Close always leaves it uncut.
type Session struct {
	mu sync.Mutex

	id       string
	g        *program.Graph
	mem      *memory.Store
	executor exec.Executor
	splice   *Splice
	handlers SessionHandlers

	state State

	// Successor of the last executed statement while Running.
	resume program.NodeID
	last   program.NodeID

	closed bool
}

// NewSession creates a Loaded session over g.
func NewSession(g *program.Graph, mem *memory.Store, executor exec.Executor) *Session {
	return &Session{
		id:       uuid.New().String(),
		g:        g,
		mem:      mem,
		executor: executor,
		splice:   NewSplice(g),
		state:    StateLoaded,
		resume:   program.NoNode,
		last:     program.NoNode,
	}
}

// ID returns the unique session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetHandlers sets the session event handlers.
func (s *Session) SetHandlers(handlers SessionHandlers) {
	s.mu.Lock()
	s.handlers = handlers
	s.mu.Unlock()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Memory returns the session's variable store.
func (s *Session) Memory() *memory.Store {
	return s.mem
}

// setState updates the state and notifies the handler. Caller holds mu.
func (s *Session) setState(state State) {
	old := s.state
	s.state = state
	if old != state && s.handlers.OnStateChanged != nil {
		s.handlers.OnStateChanged(old, state)
	}
}

// resumePoint returns the node the next continue starts from. Caller holds mu.
func (s *Session) resumePoint() program.NodeID {
	switch s.state {
	case StateLoaded:
		return s.g.Root()
	case StateRunning:
		if s.resume == program.NoNode {
			invariant("running session has no resume point")
		}
		return s.resume
	default:
		return program.NoNode
	}
}

// Continue runs the program from the resume point until the breakpoint or
// the end of the program. It returns ErrCompleted without running anything
// if the program has already completed. Executor failures are reported in
// Stop.Err and complete the session.
func (s *Session) Continue(ctx context.Context) (Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Stop{State: s.state}, ErrSessionClosed
	}
	if s.state == StateCompleted {
		return Stop{State: StateCompleted}, ErrCompleted
	}

	start := s.resumePoint()
	armed := s.splice.Active()
	target := s.splice.Target()

	result := s.executor.Execute(ctx, s.g, start, s.mem)
	s.last = result.Last

	// The cut only lives for one run, whatever its outcome.
	if armed {
		line, _ := s.splice.List()
		s.splice.Restore()
		s.notifyBreakpoint(line, false)
	}

	if s.handlers.OnExecuted != nil {
		s.handlers.OnExecuted(start, result)
	}

	stop := Stop{Err: result.Err}
	next := program.NoNode
	if result.Success && armed {
		next = s.g.Successor(result.Last)
		if next != program.NoNode && next != target {
			invariant("run stopped before line %d, breakpoint was on line %d", s.g.Line(next), s.g.Line(target))
		}
	}

	if next == program.NoNode {
		s.resume = program.NoNode
		s.setState(StateCompleted)
	} else {
		s.resume = next
		s.setState(StateRunning)
		stop.Line = s.g.Line(next)
		stop.Breakpoint = true
	}
	stop.State = s.state

	return stop, nil
}

// SetBreakpoint sets the breakpoint on the first statement on line
// reachable from the resume point.
func (s *Session) SetBreakpoint(line int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if err := s.splice.Set(line, s.resumePoint()); err != nil {
		return err
	}
	s.notifyBreakpoint(line, true)
	return nil
}

// RemoveBreakpoint removes the breakpoint on line.
func (s *Session) RemoveBreakpoint(line int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if err := s.splice.Remove(line); err != nil {
		return err
	}
	s.notifyBreakpoint(line, false)
	return nil
}

// ClearBreakpoints removes the breakpoint if there is one.
func (s *Session) ClearBreakpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.splice.List()
	s.splice.ClearAll()
	if ok {
		s.notifyBreakpoint(line, false)
	}
}

// ResumePoint returns the statement the next continue starts from, or
// program.NoNode once the program has completed.
func (s *Session) ResumePoint() program.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumePoint()
}

// Graph returns the program graph the session runs.
func (s *Session) Graph() *program.Graph {
	return s.g
}

// Breakpoint returns the line of the active breakpoint.
func (s *Session) Breakpoint() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.splice.List()
}

func (s *Session) notifyBreakpoint(line int, set bool) {
	if s.handlers.OnBreakpointChanged != nil {
		s.handlers.OnBreakpointChanged(line, set)
	}
}

// Close restores any cut edge and destroys the variable store. The graph is
// left exactly as it was loaded. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	line, ok := s.splice.List()
	if s.splice.Restore() && ok {
		s.notifyBreakpoint(line, false)
	}
	s.mem.Destroy()
	return nil
}
