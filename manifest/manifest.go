// Package manifest reads directive lists from YAML so that templates authored
// as files can be compiled without Go code.
//
// A manifest looks like:
//
//	directives:
//	  - kind: binding
//	    path: user.name
//	    target: title
//	  - kind: binding
//	    value: "static text"
//	  - kind: behavior
//	    name: repeat
//	    options:
//	      items: users
//
// The position of an entry is the index used by @{n} placeholders and marker
// comments in the template.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vcrobe/tplc/directive"
)

const (
	KindBinding  = "binding"
	KindBehavior = "behavior"
)

var knownKinds = []string{KindBinding, KindBehavior}

// Entry is a single directive declaration.
type Entry struct {
	Kind    string  `yaml:"kind"`
	Path    string  `yaml:"path,omitempty"`
	Value   *string `yaml:"value,omitempty"`
	Target  string  `yaml:"target,omitempty"`
	Name    string  `yaml:"name,omitempty"`
	Options any     `yaml:"options,omitempty"`
}

// Manifest is the decoded content of a directives file.
type Manifest struct {
	Directives []Entry `yaml:"directives"`
}

// Load decodes a manifest from r. Unknown fields are rejected.
func Load(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// LoadFile decodes the manifest stored at path.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Build turns the entries into directives, in order.
func (m *Manifest) Build() ([]directive.Directive, error) {
	directives := make([]directive.Directive, 0, len(m.Directives))
	for i, e := range m.Directives {
		d, err := e.directive()
		if err != nil {
			return nil, fmt.Errorf("directive %d: %w", i, err)
		}
		directives = append(directives, d)
	}
	return directives, nil
}

func (e Entry) directive() (directive.Directive, error) {
	switch e.Kind {
	case KindBinding:
		if e.Name != "" || e.Options != nil {
			return nil, errors.New("a binding takes 'path' or 'value', not 'name' or 'options'")
		}
		switch {
		case e.Value != nil && e.Path != "":
			return nil, errors.New("a binding takes either 'path' or 'value', not both")
		case e.Value != nil:
			return directive.Literal(*e.Value, e.Target), nil
		case e.Path != "":
			return PathBinding(e.Path, e.Target), nil
		}
		return nil, errors.New("a binding needs a 'path' or a 'value'")

	case KindBehavior:
		if e.Name == "" {
			return nil, errors.New("a behavior needs a 'name'")
		}
		if e.Path != "" || e.Value != nil || e.Target != "" {
			return nil, errors.New("a behavior takes 'name' and 'options' only")
		}
		return directive.NewAttachedBehavior(e.Name, e.Options), nil
	}

	msg := fmt.Sprintf("unknown kind %q", e.Kind)
	if s := closest(e.Kind, knownKinds); s != "" {
		msg += fmt.Sprintf(", did you mean %q?", s)
	} else {
		msg += fmt.Sprintf(" (expected one of: %s)", strings.Join(knownKinds, ", "))
	}
	return nil, errors.New(msg)
}

// PathBinding returns a binding evaluating path against the scope.
// A path that cannot be resolved evaluates to nil.
func PathBinding(path string, target string) *directive.Binding {
	return directive.NewBinding(func(scope any, ctx *directive.ExpressionContext) any {
		v, err := Resolve(scope, ctx, path)
		if err != nil {
			return nil
		}
		return v
	}, target)
}

// closest returns the candidate within two edits of s, if any.
func closest(s string, candidates []string) string {
	const threshold = 2

	best, bestDist := "", threshold+1
	for _, c := range candidates {
		if d := levenshteinDistance(strings.ToLower(s), c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// levenshteinDistance is the number of single-character edits between a and b.
func levenshteinDistance(a, b string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) == 0 {
		return len(b)
	}

	prevRow := make([]int, len(a)+1)
	currRow := make([]int, len(a)+1)
	for j := range prevRow {
		prevRow[j] = j
	}

	for i := 1; i <= len(b); i++ {
		currRow[0] = i
		for j := 1; j <= len(a); j++ {
			cost := 1
			if a[j-1] == b[i-1] {
				cost = 0
			}
			currRow[j] = min(currRow[j-1]+1, prevRow[j]+1, prevRow[j-1]+cost)
		}
		prevRow, currRow = currRow, prevRow
	}
	return prevRow[len(a)]
}
