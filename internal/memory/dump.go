package memory

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Format selects how Dump renders the store.
type Format int

const (
	// FormatTable renders a bordered table.
	FormatTable Format = iota
	// FormatPlain renders one "name (type): value" line per variable.
	FormatPlain
)

// ParseFormat parses a dump format name, defaulting to FormatTable.
func ParseFormat(s string) Format {
	if s == "plain" {
		return FormatPlain
	}
	return FormatTable
}

// Describe formats a single variable as "name (type): value".
func Describe(name string, v Value) string {
	return fmt.Sprintf("%s (%s): %s", name, v.Type, v)
}

// Dump writes every variable to w.
func (s *Store) Dump(w io.Writer, format Format) error {
	cells := s.Cells()
	if len(cells) == 0 {
		_, err := fmt.Fprintln(w, "memory is empty")
		return err
	}

	if format == FormatPlain {
		for _, c := range cells {
			if _, err := fmt.Fprintln(w, Describe(c.Name, c.Value)); err != nil {
				return err
			}
		}
		return nil
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Name", "Type", "Value"})
	for i, c := range cells {
		tw.AppendRow(table.Row{i, c.Name, c.Value.Type.String(), c.Value.String()})
	}
	_, err := fmt.Fprintln(w, tw.Render())
	return err
}
