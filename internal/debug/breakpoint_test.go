package debug

import (
	"errors"
	"strings"
	"testing"

	"github.com/dshills/stepgraph/internal/program"
)

func TestSpliceSetRemove(t *testing.T) {
	tests := []struct {
		name string
		line int
		err  error
	}{
		{"if", 2, nil},
		{"then branch", 3, nil},
		{"join", 5, nil},
		{"root", 1, ErrNoSuchLine},
		{"else branch not taken", 4, ErrNoSuchLine},
		{"missing", 99, ErrNoSuchLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, branchStatements())
			before := g.Edges()
			s := NewSplice(g)

			err := s.Set(tt.line, g.Root())
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				if s.Active() {
					t.Error("failed set left a breakpoint")
				}
				assertEdges(t, g, before)
				return
			}
			if err != nil {
				t.Fatalf("Set(%d): %v", tt.line, err)
			}
			if len(g.Edges()) != len(before)-1 {
				t.Errorf("expected exactly one cut edge, have %d of %d", len(g.Edges()), len(before))
			}
			if line, ok := s.List(); !ok || line != tt.line {
				t.Errorf("List() = %d, %v", line, ok)
			}

			if err := s.Remove(tt.line); err != nil {
				t.Fatalf("Remove(%d): %v", tt.line, err)
			}
			assertEdges(t, g, before)
			if s.Active() {
				t.Error("breakpoint still active after remove")
			}
		})
	}
}

func TestSpliceCutsIncomingEdge(t *testing.T) {
	g := buildGraph(t, branchStatements())
	s := NewSplice(g)

	if err := s.Set(3, g.Root()); err != nil {
		t.Fatalf("Set: %v", err)
	}

	b, c := lookup(t, g, "b"), lookup(t, g, "c")
	if g.Edge(b, program.SlotTrue) != program.NoNode {
		t.Error("expected then edge of line 2 to be cut")
	}
	if g.Edge(b, program.SlotFalse) == program.NoNode {
		t.Error("else edge must stay connected")
	}
	if s.Target() != c {
		t.Errorf("expected target %d, got %d", c, s.Target())
	}
}

func TestSpliceRepeatedLineCutsFirst(t *testing.T) {
	g := buildGraph(t, repeatedLineStatements())
	s := NewSplice(g)

	if err := s.Set(2, g.Root()); err != nil {
		t.Fatalf("Set: %v", err)
	}

	a, b, c := lookup(t, g, "a"), lookup(t, g, "b"), lookup(t, g, "c")
	if g.Edge(a, program.SlotNext) != program.NoNode {
		t.Error("expected a.next to be cut")
	}
	if g.Edge(b, program.SlotNext) != c {
		t.Error("b.next must stay connected")
	}
	if s.Target() != b {
		t.Errorf("expected target %d, got %d", b, s.Target())
	}
}

func TestSpliceAlreadySet(t *testing.T) {
	g := buildGraph(t, branchStatements())
	s := NewSplice(g)

	if err := s.Set(3, g.Root()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	cut := g.Edges()

	for _, line := range []int{3, 5, 99} {
		err := s.Set(line, g.Root())
		if !errors.Is(err, ErrBreakpointAlreadySet) {
			t.Errorf("Set(%d): expected ErrBreakpointAlreadySet, got %v", line, err)
		}
		assertEdges(t, g, cut)
	}

	var be *BreakpointError
	if err := s.Set(5, g.Root()); !errors.As(err, &be) || be.Op != "set" || be.Line != 5 {
		t.Errorf("expected BreakpointError for line 5, got %v", err)
	}
}

func TestSpliceRemoveNoSuchBreakpoint(t *testing.T) {
	g := buildGraph(t, branchStatements())
	s := NewSplice(g)

	if err := s.Remove(3); !errors.Is(err, ErrNoSuchBreakpoint) {
		t.Errorf("expected ErrNoSuchBreakpoint with nothing set, got %v", err)
	}

	if err := s.Set(3, g.Root()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Remove(5); !errors.Is(err, ErrNoSuchBreakpoint) {
		t.Errorf("expected ErrNoSuchBreakpoint for other line, got %v", err)
	}
	if !s.Active() {
		t.Error("failed remove cleared the breakpoint")
	}
}

func TestSpliceClearAllIdempotent(t *testing.T) {
	g := buildGraph(t, branchStatements())
	before := g.Edges()
	s := NewSplice(g)

	if err := s.Set(5, g.Root()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.ClearAll()
	s.ClearAll()

	if s.Active() {
		t.Error("breakpoint still active")
	}
	if _, ok := s.List(); ok {
		t.Error("List reports a breakpoint")
	}
	assertEdges(t, g, before)
}

func TestSpliceRestoreAfterConditionChange(t *testing.T) {
	g := buildGraph(t, branchStatements())
	before := g.Edges()
	s := NewSplice(g)

	if err := s.Set(3, g.Root()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	g.Node(lookup(t, g, "b")).Condition = false

	if !s.Restore() {
		t.Fatal("expected restore to report a cut")
	}
	assertEdges(t, g, before)
}

func TestSpliceLoop(t *testing.T) {
	g := buildGraph(t, loopStatements())
	loop, add := lookup(t, g, "loop"), lookup(t, g, "add")

	t.Run("back edge", func(t *testing.T) {
		s := NewSplice(g)
		if err := s.Set(3, add); err != nil {
			t.Fatalf("Set: %v", err)
		}
		defer s.ClearAll()
		if g.Edge(lookup(t, g, "inc"), program.SlotNext) != program.NoNode {
			t.Error("expected back edge into the loop to be cut")
		}
	})

	t.Run("resume node reached again", func(t *testing.T) {
		s := NewSplice(g)
		if err := s.Set(4, add); err != nil {
			t.Fatalf("Set: %v", err)
		}
		defer s.ClearAll()
		if g.Edge(loop, program.SlotBody) != program.NoNode {
			t.Error("expected loop body edge to be cut")
		}
	})

	t.Run("search over cycle terminates", func(t *testing.T) {
		s := NewSplice(g)
		if err := s.Set(6, g.Root()); !errors.Is(err, ErrNoSuchLine) {
			t.Errorf("expected ErrNoSuchLine for line behind a cycling loop, got %v", err)
		}
		if err := s.Set(42, add); !errors.Is(err, ErrNoSuchLine) {
			t.Errorf("expected ErrNoSuchLine, got %v", err)
		}
	})
}

func TestSpliceInvariantViolation(t *testing.T) {
	g := buildGraph(t, branchStatements())
	s := NewSplice(g)

	if err := s.Set(3, g.Root()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = g.SetEdge(lookup(t, g, "b"), program.SlotTrue, lookup(t, g, "e"))

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "invariant violated") {
			t.Errorf("unexpected panic %v", r)
		}
	}()
	s.Restore()
}
