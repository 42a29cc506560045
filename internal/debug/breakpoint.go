package debug

import (
	"github.com/dshills/stepgraph/internal/program"
)

// Splice implements the single breakpoint as a cut edge in the graph.
type Splice struct {
	g *program.Graph

	active bool

	// The cut: pred's slot pointed at target before it was cleared.
	pred   program.NodeID
	slot   program.Slot
	target program.NodeID
}

// NewSplice creates a splice over g with no breakpoint.
func NewSplice(g *program.Graph) *Splice {
	return &Splice{
		g:      g,
		pred:   program.NoNode,
		target: program.NoNode,
	}
}

// Active reports whether a breakpoint is set.
func (s *Splice) Active() bool {
	return s.active
}

// Set cuts the edge leading into the first statement on line reachable
// from the resume node from. The resume node is where execution already
// stands, so it only matches when the walk comes back to it through a loop.
func (s *Splice) Set(line int, from program.NodeID) error {
	if s.active {
		return &BreakpointError{Op: "set", Line: line, Err: ErrBreakpointAlreadySet}
	}

	c := program.NewCursor(s.g, from)
	c.Advance()
	if !c.Seek(line) {
		return &BreakpointError{Op: "set", Line: line, Err: ErrNoSuchLine}
	}

	pred, target := c.Previous(), c.Current()
	slot := s.g.SelectSlot(pred)
	if s.g.Edge(pred, slot) != target {
		invariant("cursor reached node %d but %d.%s points at %d", target, pred, slot, s.g.Edge(pred, slot))
	}
	if err := s.g.SetEdge(pred, slot, program.NoNode); err != nil {
		invariant("cut %d.%s: %v", pred, slot, err)
	}

	s.active = true
	s.pred, s.slot, s.target = pred, slot, target
	return nil
}

// Remove restores the cut if the active breakpoint is on line.
func (s *Splice) Remove(line int) error {
	if !s.active || s.g.Line(s.target) != line {
		return &BreakpointError{Op: "remove", Line: line, Err: ErrNoSuchBreakpoint}
	}
	s.Restore()
	return nil
}

// ClearAll restores the cut if there is one. It is idempotent.
func (s *Splice) ClearAll() {
	s.Restore()
}

// List returns the line of the active breakpoint.
func (s *Splice) List() (int, bool) {
	if !s.active {
		return 0, false
	}
	return s.g.Line(s.target), true
}

// Target returns the statement the active breakpoint stops before, or
// program.NoNode.
func (s *Splice) Target() program.NodeID {
	if !s.active {
		return program.NoNode
	}
	return s.target
}

// Restore reconnects the cut edge and clears the breakpoint. It reports
// whether there was anything to restore.
//
// The recorded slot is restored even if the predecessor's condition has
// changed since the cut, so the original edge always comes back.
func (s *Splice) Restore() bool {
	if !s.active {
		return false
	}
	if s.pred == program.NoNode || s.target == program.NoNode {
		invariant("active breakpoint without a recorded edge")
	}
	if cur := s.g.Edge(s.pred, s.slot); cur != program.NoNode {
		invariant("cut edge %d.%s was reconnected to %d behind the splice", s.pred, s.slot, cur)
	}
	if err := s.g.SetEdge(s.pred, s.slot, s.target); err != nil {
		invariant("restore %d.%s: %v", s.pred, s.slot, err)
	}

	s.active = false
	s.pred, s.target = program.NoNode, program.NoNode
	return true
}
