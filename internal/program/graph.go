// Package program provides the statement graph that the debugger drives.
//
// A program is a directed control-flow graph of statement nodes stored in an
// arena and addressed by NodeID. Each node owns a fixed set of edge slots
// determined by its Kind. Edges are only ever changed through Graph.SetEdge,
// so every mutation names the node and slot it touches.
package program

import (
	"fmt"
	"sort"
)

// NodeID identifies a node within a Graph.
type NodeID int

// NoNode marks an absent edge, the end of a control-flow path.
const NoNode NodeID = -1

// Kind is the statement kind of a node.
type Kind int

const (
	// KindAssignment assigns the value of an expression to a variable.
	KindAssignment Kind = iota
	// KindFunctionCall calls a named function.
	KindFunctionCall
	// KindIfThenElse branches on its condition.
	KindIfThenElse
	// KindWhileLoop enters its body while its condition holds.
	KindWhileLoop
	// KindPass does nothing.
	KindPass
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAssignment:
		return "assignment"
	case KindFunctionCall:
		return "call"
	case KindIfThenElse:
		return "if"
	case KindWhileLoop:
		return "while"
	case KindPass:
		return "pass"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name as written in program files.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "assignment", "assign":
		return KindAssignment, true
	case "call", "function_call":
		return KindFunctionCall, true
	case "if", "if_then_else":
		return KindIfThenElse, true
	case "while", "while_loop":
		return KindWhileLoop, true
	case "pass":
		return KindPass, true
	default:
		return 0, false
	}
}

// Slot names an outgoing edge field of a node.
type Slot int

const (
	// SlotNext is the fall-through edge.
	SlotNext Slot = iota
	// SlotTrue is the edge taken by an if whose condition holds.
	SlotTrue
	// SlotFalse is the edge taken by an if whose condition does not hold.
	SlotFalse
	// SlotBody is the edge into a while loop's body.
	SlotBody

	numSlots
)

// String returns a string representation of the slot.
func (s Slot) String() string {
	switch s {
	case SlotNext:
		return "next"
	case SlotTrue:
		return "then"
	case SlotFalse:
		return "else"
	case SlotBody:
		return "body"
	default:
		return "unknown"
	}
}

// Slots returns the edge slots owned by nodes of this kind.
func (k Kind) Slots() []Slot {
	switch k {
	case KindIfThenElse:
		return []Slot{SlotTrue, SlotFalse}
	case KindWhileLoop:
		return []Slot{SlotBody, SlotNext}
	case KindAssignment, KindFunctionCall, KindPass:
		return []Slot{SlotNext}
	default:
		return nil
	}
}

// HasSlot reports whether nodes of this kind own the slot.
func (k Kind) HasSlot(slot Slot) bool {
	for _, s := range k.Slots() {
		if s == slot {
			return true
		}
	}
	return false
}

// Node is a single statement in the graph.
type Node struct {
	// Name is the statement identifier from the program source.
	Name string

	// Line is the source line (1-based). Lines need not be unique.
	Line int

	// Kind is the statement kind.
	Kind Kind

	// Condition selects the outgoing edge of if and while nodes. It holds
	// the value last computed by the executor, or the static value from the
	// program source before the node has run.
	Condition bool

	// Var is the assignment target.
	Var string

	// Type is an optional type hint for the assigned value.
	Type string

	// Expr is the assigned expression or the branch/loop condition.
	Expr string

	// Func is the called function name.
	Func string

	// Args are the call argument expressions.
	Args []string

	edges [numSlots]NodeID
}

// Edge is a single populated edge, used for structural snapshots.
type Edge struct {
	From NodeID
	Slot Slot
	To   NodeID
}

// Graph is an arena of statement nodes with a designated root.
type Graph struct {
	nodes []*Node
	root  NodeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{root: NoNode}
}

// Add appends a node with all edges absent and returns its ID.
// The first node added becomes the root.
func (g *Graph) Add(n Node) NodeID {
	for i := range n.edges {
		n.edges[i] = NoNode
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &n)
	if g.root == NoNode {
		g.root = id
	}
	return id
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Root returns the program entry node.
func (g *Graph) Root() NodeID {
	return g.root
}

// SetRoot sets the program entry node.
func (g *Graph) SetRoot(id NodeID) error {
	if !g.valid(id) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	g.root = id
	return nil
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if !g.valid(id) {
		return nil
	}
	return g.nodes[id]
}

// Line returns the source line of a node, or 0 for NoNode.
func (g *Graph) Line(id NodeID) int {
	if !g.valid(id) {
		return 0
	}
	return g.nodes[id].Line
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// Edge returns the target of a node's slot. Slots the node's kind does not
// own always read as NoNode.
func (g *Graph) Edge(id NodeID, slot Slot) NodeID {
	n := g.Node(id)
	if n == nil || slot < 0 || slot >= numSlots {
		return NoNode
	}
	return n.edges[slot]
}

// SetEdge points a node's slot at target. Target may be NoNode.
func (g *Graph) SetEdge(id NodeID, slot Slot, target NodeID) error {
	n := g.Node(id)
	if n == nil {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	if !n.Kind.HasSlot(slot) {
		return fmt.Errorf("%w: %s node has no %s edge", ErrInvalidSlot, n.Kind, slot)
	}
	if target != NoNode && !g.valid(target) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, target)
	}
	n.edges[slot] = target
	return nil
}

// SelectSlot returns the slot execution follows out of a node. It is the
// single place the per-kind edge rule lives.
func (g *Graph) SelectSlot(id NodeID) Slot {
	n := g.Node(id)
	if n == nil {
		return SlotNext
	}
	switch n.Kind {
	case KindIfThenElse:
		if n.Condition {
			return SlotTrue
		}
		return SlotFalse
	case KindWhileLoop:
		if n.Condition {
			return SlotBody
		}
		return SlotNext
	default:
		return SlotNext
	}
}

// Successor returns the node execution reaches next from id.
func (g *Graph) Successor(id NodeID) NodeID {
	return g.Edge(id, g.SelectSlot(id))
}

// Edges returns every populated edge, ordered by source node and slot.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for i, n := range g.nodes {
		for _, slot := range n.Kind.Slots() {
			if to := n.edges[slot]; to != NoNode {
				edges = append(edges, Edge{From: NodeID(i), Slot: slot, To: to})
			}
		}
	}
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].From != edges[b].From {
			return edges[a].From < edges[b].From
		}
		return edges[a].Slot < edges[b].Slot
	})
	return edges
}

// Lookup returns the ID of the node with the given name.
func (g *Graph) Lookup(name string) (NodeID, bool) {
	for i, n := range g.nodes {
		if n.Name == name {
			return NodeID(i), true
		}
	}
	return NoNode, false
}
