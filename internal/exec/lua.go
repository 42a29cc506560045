package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/stepgraph/internal/memory"
	"github.com/dshills/stepgraph/internal/program"
)

// DefaultMaxSteps is the default number of statements one run may execute.
const DefaultMaxSteps = 100_000

// LuaExecutor evaluates statement expressions with an embedded Lua VM.
//
// Expressions see program variables as globals; reads fall through to the
// safe Lua libraries (math, string, table, base). Assignments write to the
// memory store, never to Lua globals. If and while statements with an
// expression store the evaluated truth value in the node's Condition flag,
// which is what later graph walks follow.
type LuaExecutor struct {
	out      io.Writer
	maxSteps int
	funcs    map[string]lua.LGFunction
}

// Option configures a LuaExecutor.
type Option func(*LuaExecutor)

// WithOutput sets where the print builtin writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(e *LuaExecutor) {
		if w != nil {
			e.out = w
		}
	}
}

// WithMaxSteps sets the statement budget per run.
func WithMaxSteps(n int) Option {
	return func(e *LuaExecutor) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithFunction registers a callable function for call statements.
func WithFunction(name string, fn lua.LGFunction) Option {
	return func(e *LuaExecutor) {
		e.funcs[name] = fn
	}
}

// NewLuaExecutor creates an executor.
func NewLuaExecutor(opts ...Option) *LuaExecutor {
	e := &LuaExecutor{
		out:      os.Stdout,
		maxSteps: DefaultMaxSteps,
		funcs:    make(map[string]lua.LGFunction),
	}
	e.funcs["print"] = e.luaPrint

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs g from start until an absent edge.
func (e *LuaExecutor) Execute(ctx context.Context, g *program.Graph, start program.NodeID, mem *memory.Store) Result {
	if g.Node(start) == nil {
		return Result{Last: program.NoNode, Err: ErrNoStart}
	}

	L := newState(ctx)
	defer L.Close()
	env := e.environment(L, mem)

	last := program.NoNode
	steps := 0
	for cur := start; cur != program.NoNode; cur = g.Successor(cur) {
		if err := ctx.Err(); err != nil {
			return Result{Last: last, Err: err}
		}
		if steps >= e.maxSteps {
			return Result{Last: last, Err: fmt.Errorf("%w (%d)", ErrStepLimit, e.maxSteps)}
		}
		steps++

		if err := e.step(L, env, g.Node(cur), mem); err != nil {
			return Result{
				Last: last,
				Err:  &StatementError{Node: cur, Line: g.Line(cur), Err: err},
			}
		}
		last = cur
	}

	return Result{Success: true, Last: last}
}

// newState creates a Lua state with only the side-effect free libraries.
func newState(ctx context.Context) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Base functions that reach the file system or compile new chunks.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetContext(ctx)
	return L
}

// environment builds the table expressions run in. Variable reads resolve
// against the memory store first, then against Lua globals.
func (e *LuaExecutor) environment(L *lua.LState, mem *memory.Store) *lua.LTable {
	env := L.NewTable()
	for name, fn := range e.funcs {
		env.RawSetString(name, L.NewFunction(fn))
	}

	meta := L.NewTable()
	meta.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(2)
		if v, ok := mem.Read(name); ok {
			L.Push(toLua(v))
			return 1
		}
		L.Push(L.GetGlobal(name))
		return 1
	}))
	meta.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("expressions cannot assign to %s", L.CheckString(2))
		return 0
	}))
	L.SetMetatable(env, meta)

	return env
}

func (e *LuaExecutor) step(L *lua.LState, env *lua.LTable, n *program.Node, mem *memory.Store) error {
	switch n.Kind {
	case program.KindAssignment:
		v := lua.LValue(lua.LNil)
		if n.Expr != "" {
			var err error
			if v, err = eval(L, env, n.Expr); err != nil {
				return err
			}
		}
		val, err := fromLua(v, n.Type)
		if err != nil {
			return fmt.Errorf("assign %s: %w", n.Var, err)
		}
		return mem.Write(n.Var, val)

	case program.KindFunctionCall:
		fn, ok := env.RawGetString(n.Func).(*lua.LFunction)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFunction, n.Func)
		}
		args := make([]lua.LValue, 0, len(n.Args))
		for _, a := range n.Args {
			v, err := eval(L, env, a)
			if err != nil {
				return err
			}
			args = append(args, v)
		}
		return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)

	case program.KindIfThenElse, program.KindWhileLoop:
		if n.Expr == "" {
			return nil
		}
		v, err := eval(L, env, n.Expr)
		if err != nil {
			return err
		}
		n.Condition = lua.LVAsBool(v)
		return nil

	case program.KindPass:
		return nil

	default:
		return fmt.Errorf("unknown statement kind %d", n.Kind)
	}
}

// eval evaluates a single Lua expression in env.
func eval(L *lua.LState, env *lua.LTable, expr string) (lua.LValue, error) {
	fn, err := L.LoadString("return " + expr)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expr, err)
	}
	fn.Env = env

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	v := L.Get(-1)
	L.Pop(1)
	return v, nil
}

// luaPrint writes its arguments separated by tabs, like Lua's print.
func (e *LuaExecutor) luaPrint(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(e.out, strings.Join(parts, "\t"))
	return 0
}

// toLua converts a stored value for use in expressions.
func toLua(v memory.Value) lua.LValue {
	switch v.Type {
	case memory.TypeInt, memory.TypePtr:
		return lua.LNumber(v.Int)
	case memory.TypeBool:
		return lua.LBool(v.Int != 0)
	case memory.TypeReal:
		return lua.LNumber(v.Real)
	case memory.TypeStr:
		return lua.LString(v.Str)
	default:
		return lua.LNil
	}
}

// fromLua converts an expression result into a stored value. An empty hint
// infers the type: integral numbers become int, other numbers real.
func fromLua(v lua.LValue, hint string) (memory.Value, error) {
	if hint == "" {
		return inferValue(v)
	}

	typ, ok := memory.ParseType(hint)
	if !ok {
		return memory.Value{}, fmt.Errorf("unknown type %q", hint)
	}

	switch typ {
	case memory.TypeInt, memory.TypePtr:
		i, err := toInt(v)
		if err != nil {
			return memory.Value{}, err
		}
		if typ == memory.TypePtr {
			return memory.Ptr(i), nil
		}
		return memory.Int(i), nil
	case memory.TypeReal:
		f, err := toFloat(v)
		if err != nil {
			return memory.Value{}, err
		}
		return memory.Real(f), nil
	case memory.TypeBool:
		return memory.Bool(lua.LVAsBool(v)), nil
	case memory.TypeStr:
		if v == lua.LNil {
			return memory.Str(""), nil
		}
		return memory.Str(v.String()), nil
	default:
		return memory.None(), nil
	}
}

func inferValue(v lua.LValue) (memory.Value, error) {
	switch lv := v.(type) {
	case *lua.LNilType:
		return memory.None(), nil
	case lua.LBool:
		return memory.Bool(bool(lv)), nil
	case lua.LNumber:
		f := float64(lv)
		if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
			return memory.Int(int64(f)), nil
		}
		return memory.Real(f), nil
	case lua.LString:
		return memory.Str(string(lv)), nil
	default:
		return memory.Value{}, fmt.Errorf("%w: %s", ErrUnsupportedValue, v.Type())
	}
}

func toInt(v lua.LValue) (int64, error) {
	switch lv := v.(type) {
	case lua.LNumber:
		f := float64(lv)
		if f != math.Trunc(f) || math.Abs(f) >= 1<<63 {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrUnsupportedValue, f)
		}
		return int64(f), nil
	case lua.LBool:
		if lv {
			return 1, nil
		}
		return 0, nil
	case lua.LString:
		i, err := strconv.ParseInt(strings.TrimSpace(string(lv)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrUnsupportedValue, string(lv))
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: %s is not an integer", ErrUnsupportedValue, v.Type())
	}
}

func toFloat(v lua.LValue) (float64, error) {
	switch lv := v.(type) {
	case lua.LNumber:
		return float64(lv), nil
	case lua.LString:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(lv)), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrUnsupportedValue, string(lv))
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s is not a number", ErrUnsupportedValue, v.Type())
	}
}

// IsAborted reports whether a failed result was caused by cancellation or
// the step budget rather than by a statement.
func IsAborted(r Result) bool {
	return errors.Is(r.Err, context.Canceled) ||
		errors.Is(r.Err, context.DeadlineExceeded) ||
		errors.Is(r.Err, ErrStepLimit)
}
