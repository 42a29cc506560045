package program

// Cursor walks a graph along the edges execution would take, without
// mutating it.
//
// Conditions are not evaluated: if and while nodes are followed according to
// the Condition flag they currently hold. A cursor never visits a node twice
// without matching it, so a walk over a loop whose flags keep it cycling
// terminates.
type Cursor struct {
	g    *Graph
	prev NodeID
	cur  NodeID
	seen map[NodeID]bool
}

// NewCursor creates a cursor positioned at start.
func NewCursor(g *Graph, start NodeID) *Cursor {
	return &Cursor{
		g:    g,
		prev: NoNode,
		cur:  start,
		seen: make(map[NodeID]bool),
	}
}

// Current returns the node under the cursor, or NoNode at the end of a path.
func (c *Cursor) Current() NodeID {
	return c.cur
}

// Previous returns the node the cursor arrived from, or NoNode before the
// first move.
func (c *Cursor) Previous() NodeID {
	return c.prev
}

// Advance moves to the successor of the current node. It returns false when
// the cursor has run off the end of the path.
func (c *Cursor) Advance() bool {
	if c.cur == NoNode {
		return false
	}
	c.seen[c.cur] = true
	c.prev, c.cur = c.cur, c.g.Successor(c.cur)
	return c.cur != NoNode
}

// Seek advances until the current node is on line, checking the current
// node first. It returns false at the end of the path, or when the walk
// returns to a node it has already passed without matching.
func (c *Cursor) Seek(line int) bool {
	for c.cur != NoNode {
		if c.g.Line(c.cur) == line {
			return true
		}
		if c.seen[c.cur] {
			return false
		}
		c.Advance()
	}
	return false
}
