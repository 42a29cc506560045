package program

import (
	"errors"
	"fmt"
)

// Statement is the source form of a node: edges refer to other statements
// by ID. Program files decode into slices of Statement.
type Statement struct {
	ID        string   `yaml:"id"`
	Line      int      `yaml:"line"`
	Kind      string   `yaml:"kind"`
	Condition bool     `yaml:"condition,omitempty"`
	Var       string   `yaml:"var,omitempty"`
	Type      string   `yaml:"type,omitempty"`
	Expr      string   `yaml:"expr,omitempty"`
	Func      string   `yaml:"func,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	Next      string   `yaml:"next,omitempty"`
	Then      string   `yaml:"then,omitempty"`
	Else      string   `yaml:"else,omitempty"`
	Body      string   `yaml:"body,omitempty"`
}

// edges returns the statement's populated edge references by slot.
func (s *Statement) edges() map[Slot]string {
	refs := make(map[Slot]string, 2)
	for slot, ref := range map[Slot]string{
		SlotNext:  s.Next,
		SlotTrue:  s.Then,
		SlotFalse: s.Else,
		SlotBody:  s.Body,
	} {
		if ref != "" {
			refs[slot] = ref
		}
	}
	return refs
}

// Build resolves statements into a graph. Root names the entry statement;
// an empty root selects the first statement.
func Build(root string, stmts []Statement) (*Graph, error) {
	if len(stmts) == 0 {
		return nil, ErrEmptyProgram
	}

	g := New()
	ids := make(map[string]NodeID, len(stmts))

	for _, s := range stmts {
		if s.ID == "" {
			return nil, stmtError(s.ID, "missing id", nil)
		}
		if _, dup := ids[s.ID]; dup {
			return nil, stmtError(s.ID, "duplicate id", nil)
		}
		kind, ok := ParseKind(s.Kind)
		if !ok {
			return nil, stmtError(s.ID, fmt.Sprintf("unknown kind %q", s.Kind), nil)
		}
		if s.Line <= 0 {
			return nil, stmtError(s.ID, fmt.Sprintf("invalid line %d", s.Line), nil)
		}
		if kind == KindAssignment && s.Var == "" {
			return nil, stmtError(s.ID, "assignment without var", nil)
		}
		if kind == KindFunctionCall && s.Func == "" {
			return nil, stmtError(s.ID, "call without func", nil)
		}

		ids[s.ID] = g.Add(Node{
			Name:      s.ID,
			Line:      s.Line,
			Kind:      kind,
			Condition: s.Condition,
			Var:       s.Var,
			Type:      s.Type,
			Expr:      s.Expr,
			Func:      s.Func,
			Args:      append([]string(nil), s.Args...),
		})
	}

	for _, s := range stmts {
		from := ids[s.ID]
		for slot, ref := range s.edges() {
			to, ok := ids[ref]
			if !ok {
				return nil, stmtError(s.ID, fmt.Sprintf("%s refers to unknown statement %q", slot, ref), ErrUnknownNode)
			}
			if err := g.SetEdge(from, slot, to); err != nil {
				return nil, stmtError(s.ID, err.Error(), errors.Unwrap(err))
			}
		}
	}

	if root != "" {
		id, ok := ids[root]
		if !ok {
			return nil, &LoadError{Message: fmt.Sprintf("unknown root %q", root), Err: ErrUnknownNode}
		}
		if err := g.SetRoot(id); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func stmtError(id, msg string, err error) *LoadError {
	return &LoadError{Statement: id, Message: msg, Err: err}
}
