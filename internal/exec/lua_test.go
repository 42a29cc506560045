package exec

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/stepgraph/internal/memory"
	"github.com/dshills/stepgraph/internal/program"
)

func build(t *testing.T, stmts []program.Statement) *program.Graph {
	t.Helper()
	g, err := program.Build("", stmts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func readInt(t *testing.T, mem *memory.Store, name string) int64 {
	t.Helper()
	v, ok := mem.Read(name)
	if !ok {
		t.Fatalf("variable %s not found", name)
	}
	if v.Type != memory.TypeInt {
		t.Fatalf("variable %s has type %s, want int", name, v.Type)
	}
	return v.Int
}

func TestExecuteBranch(t *testing.T) {
	g := build(t, []program.Statement{
		{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "10", Next: "b"},
		{ID: "b", Line: 2, Kind: "if", Expr: "x > 5", Then: "c", Else: "d"},
		{ID: "c", Line: 3, Kind: "assignment", Var: "x", Expr: "x * 2", Next: "e"},
		{ID: "d", Line: 4, Kind: "assignment", Var: "x", Expr: "0", Next: "e"},
		{ID: "e", Line: 5, Kind: "pass"},
	})
	mem := memory.New()

	res := NewLuaExecutor().Execute(context.Background(), g, g.Root(), mem)
	if !res.Success {
		t.Fatalf("execute failed: %v", res.Err)
	}
	if g.Line(res.Last) != 5 {
		t.Errorf("expected last line 5, got %d", g.Line(res.Last))
	}
	if x := readInt(t, mem, "x"); x != 20 {
		t.Errorf("expected x = 20, got %d", x)
	}

	b, _ := g.Lookup("b")
	if !g.Node(b).Condition {
		t.Error("expected if condition flag to be recorded")
	}
}

func TestExecuteWhileLoop(t *testing.T) {
	g := build(t, []program.Statement{
		{ID: "init", Line: 1, Kind: "assignment", Var: "i", Expr: "0", Next: "sum0"},
		{ID: "sum0", Line: 2, Kind: "assignment", Var: "sum", Expr: "0", Next: "loop"},
		{ID: "loop", Line: 3, Kind: "while", Expr: "i < 5", Body: "add", Next: "done"},
		{ID: "add", Line: 4, Kind: "assignment", Var: "sum", Expr: "sum + i", Next: "inc"},
		{ID: "inc", Line: 5, Kind: "assignment", Var: "i", Expr: "i + 1", Next: "loop"},
		{ID: "done", Line: 6, Kind: "pass"},
	})
	mem := memory.New()

	res := NewLuaExecutor().Execute(context.Background(), g, g.Root(), mem)
	if !res.Success {
		t.Fatalf("execute failed: %v", res.Err)
	}
	if sum := readInt(t, mem, "sum"); sum != 10 {
		t.Errorf("expected sum = 10, got %d", sum)
	}

	loop, _ := g.Lookup("loop")
	if g.Node(loop).Condition {
		t.Error("expected loop flag false after exit")
	}
}

func TestExecuteStopsAtAbsentEdge(t *testing.T) {
	g := build(t, []program.Statement{
		{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "1", Next: "b"},
		{ID: "b", Line: 2, Kind: "assignment", Var: "x", Expr: "2", Next: "c"},
		{ID: "c", Line: 3, Kind: "assignment", Var: "x", Expr: "3"},
	})
	a, _ := g.Lookup("a")
	g.SetEdge(a, program.SlotNext, program.NoNode)

	mem := memory.New()
	res := NewLuaExecutor().Execute(context.Background(), g, g.Root(), mem)
	if !res.Success {
		t.Fatalf("execute failed: %v", res.Err)
	}
	if res.Last != a {
		t.Errorf("expected stop after node %d, got %d", a, res.Last)
	}
	if x := readInt(t, mem, "x"); x != 1 {
		t.Errorf("expected x = 1, got %d", x)
	}
}

func TestExecuteTypes(t *testing.T) {
	g := build(t, []program.Statement{
		{ID: "i", Line: 1, Kind: "assignment", Var: "i", Expr: "7", Next: "r"},
		{ID: "r", Line: 2, Kind: "assignment", Var: "r", Expr: "7 / 2", Next: "b"},
		{ID: "b", Line: 3, Kind: "assignment", Var: "b", Expr: "i > 3", Next: "s"},
		{ID: "s", Line: 4, Kind: "assignment", Var: "s", Expr: "'n=' .. i", Next: "n"},
		{ID: "n", Line: 5, Kind: "assignment", Var: "n", Next: "p"},
		{ID: "p", Line: 6, Kind: "assignment", Var: "p", Type: "ptr", Expr: "4096", Next: "f"},
		{ID: "f", Line: 7, Kind: "assignment", Var: "f", Type: "real", Expr: "3"},
	})
	mem := memory.New()

	res := NewLuaExecutor().Execute(context.Background(), g, g.Root(), mem)
	if !res.Success {
		t.Fatalf("execute failed: %v", res.Err)
	}

	tests := []struct {
		name     string
		typ      memory.Type
		expected string
	}{
		{"i", memory.TypeInt, "7"},
		{"r", memory.TypeReal, "3.5"},
		{"b", memory.TypeBool, "1"},
		{"s", memory.TypeStr, "n=7"},
		{"n", memory.TypeNone, "None"},
		{"p", memory.TypePtr, "4096"},
		{"f", memory.TypeReal, "3"},
	}

	for _, tt := range tests {
		v, ok := mem.Read(tt.name)
		if !ok {
			t.Errorf("variable %s not found", tt.name)
			continue
		}
		if v.Type != tt.typ || v.String() != tt.expected {
			t.Errorf("%s = %s (%s), want %s (%s)", tt.name, v, v.Type, tt.expected, tt.typ)
		}
	}
}

func TestExecutePrint(t *testing.T) {
	g := build(t, []program.Statement{
		{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "3", Next: "b"},
		{ID: "b", Line: 2, Kind: "call", Func: "print", Args: []string{"'x is'", "x"}},
	})

	var out bytes.Buffer
	res := NewLuaExecutor(WithOutput(&out)).Execute(context.Background(), g, g.Root(), memory.New())
	if !res.Success {
		t.Fatalf("execute failed: %v", res.Err)
	}
	if out.String() != "x is\t3\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestExecuteCustomFunction(t *testing.T) {
	var got []float64
	record := func(L *lua.LState) int {
		got = append(got, float64(L.CheckNumber(1)))
		return 0
	}

	g := build(t, []program.Statement{
		{ID: "a", Line: 1, Kind: "call", Func: "record", Args: []string{"1 + 1"}},
	})

	res := NewLuaExecutor(WithFunction("record", record)).Execute(context.Background(), g, g.Root(), memory.New())
	if !res.Success {
		t.Fatalf("execute failed: %v", res.Err)
	}
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("unexpected calls %v", got)
	}
}

func TestExecuteFailures(t *testing.T) {
	tests := []struct {
		name  string
		stmts []program.Statement
		is    error
		line  int
	}{
		{"syntax error", []program.Statement{
			{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "1", Next: "b"},
			{ID: "b", Line: 2, Kind: "assignment", Var: "y", Expr: "(("},
		}, nil, 2},
		{"runtime error", []program.Statement{
			{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "nil + 1"},
		}, nil, 1},
		{"unknown function", []program.Statement{
			{ID: "a", Line: 1, Kind: "call", Func: "launch"},
		}, ErrUnknownFunction, 1},
		{"table value", []program.Statement{
			{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "{}"},
		}, ErrUnsupportedValue, 1},
		{"bad type hint", []program.Statement{
			{ID: "a", Line: 1, Kind: "assignment", Var: "x", Type: "int", Expr: "'abc'"},
		}, ErrUnsupportedValue, 1},
		{"fractional int", []program.Statement{
			{ID: "a", Line: 1, Kind: "assignment", Var: "x", Type: "int", Expr: "2.7"},
		}, ErrUnsupportedValue, 1},
		{"dofile", []program.Statement{
			{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "1", Next: "b"},
			{ID: "b", Line: 2, Kind: "assignment", Var: "y", Expr: "dofile('testdata/any.lua')"},
		}, nil, 2},
		{"loadfile", []program.Statement{
			{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "loadfile('/etc/hostname')"},
		}, nil, 1},
		{"load", []program.Statement{
			{ID: "a", Line: 1, Kind: "assignment", Var: "x", Expr: "load('return 1')()"},
		}, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, tt.stmts)
			res := NewLuaExecutor().Execute(context.Background(), g, g.Root(), memory.New())
			if res.Success {
				t.Fatal("expected failure")
			}
			var se *StatementError
			if !errors.As(res.Err, &se) {
				t.Fatalf("expected StatementError, got %v", res.Err)
			}
			if se.Line != tt.line {
				t.Errorf("expected failing line %d, got %d", tt.line, se.Line)
			}
			if tt.is != nil && !errors.Is(res.Err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, res.Err)
			}
		})
	}
}

func TestExecuteStepLimit(t *testing.T) {
	g := build(t, []program.Statement{
		{ID: "loop", Line: 1, Kind: "while", Expr: "true", Body: "body", Next: "done"},
		{ID: "body", Line: 2, Kind: "pass", Next: "loop"},
		{ID: "done", Line: 3, Kind: "pass"},
	})

	res := NewLuaExecutor(WithMaxSteps(50)).Execute(context.Background(), g, g.Root(), memory.New())
	if res.Success {
		t.Fatal("expected step limit failure")
	}
	if !errors.Is(res.Err, ErrStepLimit) || !IsAborted(res) {
		t.Errorf("expected ErrStepLimit, got %v", res.Err)
	}
}

func TestExecuteCancelled(t *testing.T) {
	g := build(t, []program.Statement{
		{ID: "a", Line: 1, Kind: "pass"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewLuaExecutor().Execute(ctx, g, g.Root(), memory.New())
	if res.Success || !errors.Is(res.Err, context.Canceled) {
		t.Errorf("expected cancellation, got %+v", res)
	}
	if res.Last != program.NoNode {
		t.Errorf("expected no statement to run, got %d", res.Last)
	}
}

func TestExecuteNoStart(t *testing.T) {
	g := build(t, []program.Statement{{ID: "a", Line: 1, Kind: "pass"}})

	res := NewLuaExecutor().Execute(context.Background(), g, program.NoNode, memory.New())
	if res.Success || !errors.Is(res.Err, ErrNoStart) {
		t.Errorf("expected ErrNoStart, got %+v", res)
	}
}

func TestExpressionsCannotAssign(t *testing.T) {
	g := build(t, []program.Statement{
		{ID: "a", Line: 1, Kind: "call", Func: "print", Args: []string{"(function() y = 1 end)()"}},
	})

	var out bytes.Buffer
	res := NewLuaExecutor(WithOutput(&out)).Execute(context.Background(), g, g.Root(), memory.New())
	if res.Success {
		t.Error("expected assignment inside an expression to fail")
	}
}

func TestExecuteFileLoadersRemoved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "side.lua")
	if err := os.WriteFile(path, []byte("return 42"), 0o600); err != nil {
		t.Fatal(err)
	}

	g := build(t, []program.Statement{
		{ID: "a", Line: 1, Kind: "assignment", Var: "kinds",
			Expr: "type(dofile) .. type(loadfile) .. type(load) .. type(loadstring)", Next: "b"},
		{ID: "b", Line: 2, Kind: "assignment", Var: "x", Expr: "dofile(" + strconv.Quote(path) + ")"},
	})
	mem := memory.New()

	res := NewLuaExecutor().Execute(context.Background(), g, g.Root(), mem)
	if res.Success {
		t.Fatal("expected dofile to fail the run")
	}
	if g.Line(res.Last) != 1 {
		t.Errorf("expected last line 1, got %d", g.Line(res.Last))
	}

	v, ok := mem.Read("kinds")
	if !ok || v.String() != "nilnilnilnil" {
		t.Errorf("expected loaders to be nil, got %v", v)
	}
	if _, ok := mem.Read("x"); ok {
		t.Error("x should not be assigned")
	}
}
