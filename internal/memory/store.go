// Package memory provides the typed variable store a program executes
// against.
package memory

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Type is the type tag of a stored value.
type Type int

const (
	// TypeInt is an integer.
	TypeInt Type = iota
	// TypePtr is an address held as an integer.
	TypePtr
	// TypeBool is a boolean.
	TypeBool
	// TypeReal is a floating point number.
	TypeReal
	// TypeStr is a string.
	TypeStr
	// TypeNone is the absence of a value.
	TypeNone
)

// String returns the short type name used in variable listings.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypePtr:
		return "ptr"
	case TypeBool:
		return "bool"
	case TypeReal:
		return "real"
	case TypeStr:
		return "str"
	case TypeNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseType parses a type name. Long forms ("integer", "pointer",
// "boolean", "string") are accepted.
func ParseType(s string) (Type, bool) {
	switch s {
	case "int", "integer":
		return TypeInt, true
	case "ptr", "pointer":
		return TypePtr, true
	case "bool", "boolean":
		return TypeBool, true
	case "real", "float":
		return TypeReal, true
	case "str", "string":
		return TypeStr, true
	case "none":
		return TypeNone, true
	default:
		return 0, false
	}
}

// Value is a typed value. Only the field matching Type is meaningful.
type Value struct {
	Type Type
	Int  int64
	Real float64
	Str  string
}

// Int returns an int value.
func Int(i int64) Value { return Value{Type: TypeInt, Int: i} }

// Ptr returns a pointer value.
func Ptr(addr int64) Value { return Value{Type: TypePtr, Int: addr} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{Type: TypeBool}
	if b {
		v.Int = 1
	}
	return v
}

// Real returns a real value.
func Real(f float64) Value { return Value{Type: TypeReal, Real: f} }

// Str returns a string value.
func Str(s string) Value { return Value{Type: TypeStr, Str: s} }

// None returns the none value.
func None() Value { return Value{Type: TypeNone} }

// String formats the value the way variable listings print it.
// Booleans print as 0/1.
func (v Value) String() string {
	switch v.Type {
	case TypeInt, TypePtr, TypeBool:
		return strconv.FormatInt(v.Int, 10)
	case TypeReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case TypeStr:
		return v.Str
	case TypeNone:
		return "None"
	default:
		return fmt.Sprintf("<%d>", v.Type)
	}
}

// Cell is a named value, as returned by Cells.
type Cell struct {
	Name  string
	Value Value
}

// Store holds named variables. Reads return copies.
type Store struct {
	mu        sync.RWMutex
	cells     map[string]Value
	destroyed bool
}

// New creates an empty store.
func New() *Store {
	return &Store{cells: make(map[string]Value)}
}

// Read returns the value of a variable.
func (s *Store) Read(name string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.cells[name]
	return v, ok
}

// Write sets a variable, creating it if needed.
func (s *Store) Write(name string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrDestroyed
	}
	if name == "" {
		return ErrEmptyName
	}
	s.cells[name] = v
	return nil
}

// Len returns the number of variables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cells)
}

// Cells returns all variables sorted by name.
func (s *Store) Cells() []Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cells := make([]Cell, 0, len(s.cells))
	for name, v := range s.cells {
		cells = append(cells, Cell{Name: name, Value: v})
	}
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Name < cells[j].Name
	})
	return cells
}

// Destroy releases all variables. Later writes fail with ErrDestroyed.
func (s *Store) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cells = make(map[string]Value)
	s.destroyed = true
}
