package program

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// document is the top-level shape of a program file.
type document struct {
	Root       string      `yaml:"root"`
	Statements []Statement `yaml:"statements"`
}

// Load reads a program file and builds its graph. The format is chosen by
// extension: .yaml/.yml or .json.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program %s: %w", path, err)
	}

	var g *Graph
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		g, err = ParseYAML(data)
	case ".json":
		g, err = ParseJSON(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return g, nil
}

// ParseYAML builds a graph from a YAML program document.
func ParseYAML(data []byte) (*Graph, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: "<reader>", Message: err.Error(), Err: err}
	}
	return Build(doc.Root, doc.Statements)
}

// ParseJSON builds a graph from a JSON program document.
func ParseJSON(data []byte) (*Graph, error) {
	if !gjson.ValidBytes(data) {
		return nil, &LoadError{Path: "<reader>", Message: "invalid JSON"}
	}

	doc := gjson.ParseBytes(data)
	stmts := doc.Get("statements")
	if stmts.Exists() && !stmts.IsArray() {
		return nil, &LoadError{Path: "<reader>", Message: "statements must be an array"}
	}

	var parsed []Statement
	stmts.ForEach(func(_, v gjson.Result) bool {
		s := Statement{
			ID:        v.Get("id").String(),
			Line:      int(v.Get("line").Int()),
			Kind:      v.Get("kind").String(),
			Condition: v.Get("condition").Bool(),
			Var:       v.Get("var").String(),
			Type:      v.Get("type").String(),
			Expr:      v.Get("expr").String(),
			Func:      v.Get("func").String(),
			Next:      v.Get("next").String(),
			Then:      v.Get("then").String(),
			Else:      v.Get("else").String(),
			Body:      v.Get("body").String(),
		}
		for _, arg := range v.Get("args").Array() {
			s.Args = append(s.Args, arg.String())
		}
		parsed = append(parsed, s)
		return true
	})

	return Build(doc.Get("root").String(), parsed)
}
