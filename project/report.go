package project

import (
	"github.com/vcrobe/tplc/compiler"
	"github.com/vcrobe/tplc/directive"
)

// Report describes a compiled template file.
type Report struct {
	Template   string            `yaml:"template"`
	Package    string            `yaml:"package,omitempty"`
	ImportPath string            `yaml:"importPath,omitempty"`
	Content    string            `yaml:"content"`
	Host       []PlacementReport `yaml:"host,omitempty"`
	View       []PlacementReport `yaml:"view,omitempty"`

	// Output is the file the report was written to.
	Output string `yaml:"-"`
}

// PlacementReport describes one placement of a compiled template.
type PlacementReport struct {
	// Directive is the manifest index of the directive, or -1 when the
	// compiler synthesized it from literal text and placeholders.
	Directive  int    `yaml:"directive"`
	Target     int    `yaml:"target"`
	Kind       string `yaml:"kind"`
	Mode       string `yaml:"mode,omitempty"`
	TargetName string `yaml:"targetName,omitempty"`
	Attribute  string `yaml:"attribute,omitempty"`
	Behavior   string `yaml:"behavior,omitempty"`
	// Value is the binding evaluated against the preview scope.
	Value *string `yaml:"value,omitempty"`
}

// NewReport describes tmpl. When scope is not nil, bindings other than event
// handlers are evaluated against it.
func NewReport(src Source, tmpl *compiler.Template, scope any) (*Report, error) {
	content, err := tmpl.HTML()
	if err != nil {
		return nil, err
	}

	describe := func(placements []compiler.Placement) []PlacementReport {
		var reports []PlacementReport
		for _, p := range placements {
			reports = append(reports, describePlacement(p, scope))
		}
		return reports
	}

	return &Report{
		Template:   src.Path,
		Package:    src.Package,
		ImportPath: src.ImportPath,
		Content:    content,
		Host:       describe(tmpl.HostFactories),
		View:       describe(tmpl.ViewFactories),
	}, nil
}

func describePlacement(p compiler.Placement, scope any) PlacementReport {
	r := PlacementReport{
		Directive:  p.DirectiveIndex,
		Target:     p.TargetIndex,
		Kind:       "synthesized",
		TargetName: p.Directive.TargetName(),
		Attribute:  p.Attribute,
	}
	switch {
	case p.Directive.IsAttachedBehavior():
		r.Kind = "behavior"
	case p.DirectiveIndex >= 0:
		r.Kind = "binding"
	}

	switch d := p.Directive.(type) {
	case *directive.AttachedBehavior:
		r.Behavior = d.Name
	case *directive.Binding:
		mode := d.Mode()
		r.Mode = mode.String()
		if scope != nil && mode != directive.ModeEvent {
			v := directive.Stringify(d.Evaluate(scope, nil))
			r.Value = &v
		}
	}
	return r
}
