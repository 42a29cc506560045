// Package debug provides the stepping and breakpoint controller for
// statement graphs.
//
// # Architecture
//
// The debugger has no program counter. A breakpoint is a cut edge: the edge
// that execution would follow into the target statement is set to absent, so
// the executor stops right before the target as if the program ended there.
// The cut is restored as soon as the executor returns.
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Session                                  │
//	│  - Loaded → Running → Completed state machine                   │
//	│  - Runs the executor from the root or the resume point          │
//	│  - Restores the cut edge after every run and on Close           │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Splice                                   │
//	│  - Locates the target line with a program.Cursor                │
//	│  - Cuts (predecessor, slot) and records the target              │
//	└─────────────────────────────────────────────────────────────────┘
//
// The Inspector answers read-only questions about a session: the line the
// next continue would execute, variable values, the memory contents and the
// session state.
//
// # Session States
//
//   - Loaded: nothing has run; the resume point is the program root.
//   - Running: a continue stopped at a breakpoint; the resume point is the
//     successor of the last executed statement.
//   - Completed: the program ran off its end or failed. Terminal.
//
// # Breakpoints
//
// At most one breakpoint is active. While it is active exactly one edge of
// the graph is cut; at every other time the graph is exactly the graph that
// was loaded.
//
// # Usage
//
//	session := debug.NewSession(graph, memory.New(), exec.NewLuaExecutor())
//	defer session.Close()
//
//	if err := session.SetBreakpoint(3); err != nil {
//	    return err
//	}
//	stop, err := session.Continue(ctx)
//
//	line, _ := debug.NewInspector(session).CurrentLine()
package debug
