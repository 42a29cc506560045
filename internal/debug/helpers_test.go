package debug

import (
	"reflect"
	"testing"

	"github.com/dshills/stepgraph/internal/program"
)

// branchStatements is a five line program:
//
//	1 x = 10
//	2 if x > 5
//	3   x = x * 2
//	4 else x = 0
//	5 pass
func branchStatements() []program.Statement {
	return []program.Statement{
		{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "10", Next: "b"},
		{ID: "b", Line: 2, Kind: "if", Condition: true, Expr: "x > 5", Then: "c", Else: "d"},
		{ID: "c", Line: 3, Kind: "assignment", Var: "x", Expr: "x * 2", Next: "e"},
		{ID: "d", Line: 4, Kind: "assignment", Var: "x", Expr: "0", Next: "e"},
		{ID: "e", Line: 5, Kind: "pass"},
	}
}

// loopStatements sums 0..2 into sum.
func loopStatements() []program.Statement {
	return []program.Statement{
		{ID: "init", Line: 1, Kind: "assignment", Var: "i", Expr: "0", Next: "sum0"},
		{ID: "sum0", Line: 2, Kind: "assignment", Var: "sum", Expr: "0", Next: "loop"},
		{ID: "loop", Line: 3, Kind: "while", Condition: true, Expr: "i < 3", Body: "add", Next: "done"},
		{ID: "add", Line: 4, Kind: "assignment", Var: "sum", Expr: "sum + i", Next: "inc"},
		{ID: "inc", Line: 5, Kind: "assignment", Var: "i", Expr: "i + 1", Next: "loop"},
		{ID: "done", Line: 6, Kind: "pass"},
	}
}

func buildGraph(t *testing.T, stmts []program.Statement) *program.Graph {
	t.Helper()
	g, err := program.Build("", stmts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func lookup(t *testing.T, g *program.Graph, name string) program.NodeID {
	t.Helper()
	id, ok := g.Lookup(name)
	if !ok {
		t.Fatalf("statement %s not found", name)
	}
	return id
}

func assertEdges(t *testing.T, g *program.Graph, want []program.Edge) {
	t.Helper()
	if got := g.Edges(); !reflect.DeepEqual(got, want) {
		t.Errorf("graph edges changed:\n got  %v\n want %v", got, want)
	}
}

// repeatedLineStatements puts two statements on line 2.
func repeatedLineStatements() []program.Statement {
	return []program.Statement{
		{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "1", Next: "b"},
		{ID: "b", Line: 2, Kind: "assignment", Var: "x", Expr: "x + 1", Next: "c"},
		{ID: "c", Line: 2, Kind: "assignment", Var: "x", Expr: "x * 10", Next: "d"},
		{ID: "d", Line: 3, Kind: "pass"},
	}
}
