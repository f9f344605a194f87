// Package compiler analyzes markup containing @{n} placeholders and marker
// comments and builds the positional index of the directives it references.
//
// Compilation is a pure, synchronous function of its inputs. Each call owns the
// tree it mutates until it returns; the resulting Template is then read-only
// and may be shared.
package compiler

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/vcrobe/tplc/directive"
	"github.com/vcrobe/tplc/dom"
)

// textPlaceholder replaces the content of a text node bound to a directive.
const textPlaceholder = " "

// Placement associates a directive with the node it is bound to.
type Placement struct {
	Directive directive.Directive
	// DirectiveIndex is the position of Directive in the directive list, or
	// -1 when the compiler synthesized it from literal text and placeholders.
	DirectiveIndex int
	// TargetIndex is the position of the node among the retained nodes of
	// the content, in document order. Host placements use -1.
	TargetIndex int
	// Attribute is the attribute the directive was lifted from, if any.
	Attribute string
}

// Template is the result of a compilation.
type Template struct {
	// Content is the cleaned <template> element. Its children are the
	// template content, free of placeholder syntax.
	Content *html.Node
	// ViewFactories are the placements on descendants of the root.
	ViewFactories []Placement
	// HostFactories are the placements on the root itself.
	HostFactories []Placement
}

// HTML serializes the cleaned content.
func (t *Template) HTML() (string, error) {
	return dom.RenderChildren(t.Content)
}

// Options configures a compilation. The zero value is ready to use.
type Options struct {
	// Marker is the prefix of marker comments. Defaults to dom.DefaultMarker.
	Marker dom.Marker
}

// Compile compiles markup with the default options.
func Compile(markup string, directives []directive.Directive) (*Template, error) {
	return Options{}.Compile(markup, directives)
}

// CompileNode compiles an already parsed template container with the default options.
func CompileNode(container *html.Node, directives []directive.Directive) (*Template, error) {
	return Options{}.CompileNode(container, directives)
}

// Compile parses markup as template content and compiles it. When the
// markup is a single <template> element, that element is the container.
func (o Options) Compile(markup string, directives []directive.Directive) (*Template, error) {
	container, err := dom.ParseTemplate(markup)
	if err != nil {
		return nil, err
	}

	if inner := dom.SoleElementChild(container); dom.IsTemplate(inner) {
		container.RemoveChild(inner)
		container = inner
	}

	return o.CompileNode(container, directives)
}

// CompileNode compiles container in place. The attributes of container itself
// become host placements; its descendants produce view placements.
func (o Options) CompileNode(container *html.Node, directives []directive.Directive) (*Template, error) {
	if container == nil || container.Type != html.ElementNode {
		return nil, fmt.Errorf("template container must be an element node")
	}

	marker := o.Marker
	if marker == "" {
		marker = dom.DefaultMarker
	}

	c := &compilation{
		directives:  directives,
		placed:      make([]bool, len(directives)),
		marker:      marker,
		targetIndex: -1,
	}
	return c.run(container)
}

// compilation holds the counters of a single compile call.
type compilation struct {
	directives []directive.Directive
	placed     []bool
	marker     dom.Marker

	locatedDirectives int
	targetIndex       int

	viewFactories []Placement
	hostFactories []Placement
}

func (c *compilation) run(container *html.Node) (*Template, error) {
	if err := c.compileAttributes(container, &c.hostFactories, true); err != nil {
		return nil, err
	}

	w := dom.NewWalker(container)
	for c.locatedDirectives < len(c.directives) {
		n := w.Next()
		if n == nil {
			break
		}
		c.targetIndex++

		var err error
		switch n.Type {
		case html.ElementNode:
			err = c.compileAttributes(n, &c.viewFactories, false)
		case html.TextNode:
			err = c.compileText(n)
		case html.CommentNode:
			err = c.compileComment(w, n)
		}
		if err != nil {
			return nil, err
		}
	}

	if c.locatedDirectives != len(c.directives) {
		return nil, &CompilationError{
			Kind:     ErrCountMismatch,
			Index:    -1,
			Located:  c.locatedDirectives,
			Expected: len(c.directives),
		}
	}

	return &Template{
		Content:       container,
		ViewFactories: c.viewFactories,
		HostFactories: c.hostFactories,
	}, nil
}

// compileText binds the merged text of n and its following text siblings.
// The siblings are removed before the walker reaches them, so they never
// take a target index.
func (c *compilation) compileText(n *html.Node) error {
	d, index, unescaped, err := c.parsePlaceholders(dom.WholeText(n))
	if err != nil {
		return err
	}

	if d == nil {
		if unescaped != dom.WholeText(n) {
			n.Data = unescaped
			dom.RemoveFollowingText(n)
		}
		return nil
	}

	n.Data = textPlaceholder
	if tb, ok := d.(directive.TextBinder); ok {
		tb.MakeIntoTextBinding()
	}
	c.viewFactories = append(c.viewFactories, Placement{Directive: d, DirectiveIndex: index, TargetIndex: c.targetIndex})
	dom.RemoveFollowingText(n)
	return nil
}

// compileComment places the directive of a marker comment. Any other comment
// is removed and gives its target index back.
func (c *compilation) compileComment(w *dom.Walker, n *html.Node) error {
	if !c.marker.Is(n) {
		w.Remove()
		c.targetIndex--
		return nil
	}

	index, ok := c.marker.Index(n)
	if !ok || index >= len(c.directives) {
		if !ok {
			index = -1
		}
		return &CompilationError{
			Kind:     ErrUnresolvedMarker,
			Index:    index,
			Expected: len(c.directives),
			Detail:   fmt.Sprintf("comment %q", n.Data),
		}
	}

	if err := c.place(index); err != nil {
		return err
	}
	c.viewFactories = append(c.viewFactories, Placement{Directive: c.directives[index], DirectiveIndex: index, TargetIndex: c.targetIndex})
	return nil
}
