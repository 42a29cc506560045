package debug

import (
	"io"

	"github.com/dshills/stepgraph/internal/memory"
	"github.com/dshills/stepgraph/internal/program"
)

// Inspector answers read-only questions about a session.
type Inspector struct {
	s *Session
}

// NewInspector creates an inspector for s.
func NewInspector(s *Session) *Inspector {
	return &Inspector{s: s}
}

// CurrentLine returns the line the next continue would execute first.
// It returns ErrCompleted once the program has completed.
func (i *Inspector) CurrentLine() (int, error) {
	id := i.s.ResumePoint()
	if id == program.NoNode {
		return 0, ErrCompleted
	}
	return i.s.Graph().Line(id), nil
}

// Variable returns the value of the named variable.
func (i *Inspector) Variable(name string) (memory.Value, bool) {
	return i.s.Memory().Read(name)
}

// DumpMemory writes every variable to w.
func (i *Inspector) DumpMemory(w io.Writer, format memory.Format) error {
	return i.s.Memory().Dump(w, format)
}

// State returns the session state.
func (i *Inspector) State() State {
	return i.s.State()
}
