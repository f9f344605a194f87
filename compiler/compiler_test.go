package compiler

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"

	"github.com/vcrobe/tplc/directive"
	"github.com/vcrobe/tplc/dom"
)

func value(v string, target string) *directive.Binding {
	return directive.NewBinding(func(any, *directive.ExpressionContext) any { return v }, target)
}

func block(i int) string {
	return dom.DefaultMarker.Block(i)
}

// nodeAt returns the node an instantiation walk over the cleaned content
// would reach at index.
func nodeAt(t *testing.T, tmpl *Template, index int) *html.Node {
	t.Helper()
	w := dom.NewWalker(tmpl.Content)
	for i, n := 0, w.Next(); n != nil; i, n = i+1, w.Next() {
		if i == index {
			return n
		}
	}
	t.Fatalf("No node at target index %d", index)
	return nil
}

func mustCompile(t *testing.T, markup string, directives ...directive.Directive) *Template {
	t.Helper()
	tmpl, err := Compile(markup, directives)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", markup, err)
	}
	return tmpl
}

func mustHTML(t *testing.T, tmpl *Template) string {
	t.Helper()
	s, err := tmpl.HTML()
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	return s
}

// TestCompile_TextBinding verifies that a text placeholder becomes a content
// binding on a single neutral text node.
func TestCompile_TextBinding(t *testing.T) {
	// Arrange
	name := value("World", "")

	// Act
	tmpl := mustCompile(t, `<p>Hello @{0}!</p>`, name)

	// Assert
	if got := mustHTML(t, tmpl); got != "<p> </p>" {
		t.Errorf("Expected '<p> </p>', got %q", got)
	}
	if len(tmpl.ViewFactories) != 1 {
		t.Fatalf("Expected 1 view factory, got %d", len(tmpl.ViewFactories))
	}
	f := tmpl.ViewFactories[0]
	if f.TargetIndex != 1 {
		t.Errorf("Expected target index 1, got %d", f.TargetIndex)
	}
	b := f.Directive.(*directive.Binding)
	if !b.IsTextBinding() {
		t.Errorf("Expected the binding to be a text binding")
	}
	if got := b.Evaluate(nil, nil); got != "Hello World!" {
		t.Errorf("Expected 'Hello World!', got %v", got)
	}
	if n := nodeAt(t, tmpl, f.TargetIndex); n.Type != html.TextNode {
		t.Errorf("Expected target to be a text node, got type %v", n.Type)
	}
}

// TestCompile_SoleTextPlaceholderKeepsIdentity verifies that a text node made of
// one placeholder places the directive itself.
func TestCompile_SoleTextPlaceholderKeepsIdentity(t *testing.T) {
	d := value("x", "")

	tmpl := mustCompile(t, `<span>@{0}</span>`, d)

	if tmpl.ViewFactories[0].Directive != directive.Directive(d) {
		t.Errorf("Expected the original directive to be placed")
	}
	if !d.IsTextBinding() {
		t.Errorf("Expected the original directive to become a text binding")
	}
}

// TestCompile_AttributeBindings verifies that bound attributes are removed and
// static ones are kept.
func TestCompile_AttributeBindings(t *testing.T) {
	// Arrange
	title := value("T", "title")
	cls := value("big", "")

	// Act
	tmpl := mustCompile(t, `<div id="static" title="@{0}"><span class="text-@{1}"></span></div>`, title, cls)

	// Assert
	if got := mustHTML(t, tmpl); got != `<div id="static"><span></span></div>` {
		t.Errorf("Unexpected cleaned markup %q", got)
	}
	want := []struct {
		index int
		attr  string
		value string
	}{
		{0, "title", "T"},
		{1, "class", "text-big"},
	}
	if len(tmpl.ViewFactories) != len(want) {
		t.Fatalf("Expected %d view factories, got %d", len(want), len(tmpl.ViewFactories))
	}
	for i, w := range want {
		f := tmpl.ViewFactories[i]
		if f.TargetIndex != w.index || f.Attribute != w.attr {
			t.Errorf("Factory %d: expected (%d, %s), got (%d, %s)", i, w.index, w.attr, f.TargetIndex, f.Attribute)
		}
		got := f.Directive.(directive.Evaluator).Evaluate(nil, nil)
		if got != w.value {
			t.Errorf("Factory %d: expected value %q, got %v", i, w.value, got)
		}
	}
	if tmpl.ViewFactories[0].Directive != directive.Directive(title) {
		t.Errorf("Expected the sole attribute directive to keep its identity")
	}
}

// TestCompile_Markers verifies node-level directives anchored by marker comments.
func TestCompile_Markers(t *testing.T) {
	// Arrange
	repeat := directive.NewAttachedBehavior("repeat", nil)
	when := directive.NewAttachedBehavior("when", nil)

	// Act
	tmpl := mustCompile(t, `<ul>`+block(0)+`</ul>`+block(1), repeat, when)

	// Assert
	got := []int{tmpl.ViewFactories[0].TargetIndex, tmpl.ViewFactories[1].TargetIndex}
	if diff := cmp.Diff([]int{1, 2}, got); diff != "" {
		t.Errorf("Target index mismatch (-want +got):\n%s", diff)
	}
	if tmpl.ViewFactories[0].Directive != directive.Directive(repeat) || tmpl.ViewFactories[1].Directive != directive.Directive(when) {
		t.Errorf("Expected marker directives in document order")
	}
	for _, f := range tmpl.ViewFactories {
		if !dom.DefaultMarker.Is(nodeAt(t, tmpl, f.TargetIndex)) {
			t.Errorf("Expected target %d to be a marker comment", f.TargetIndex)
		}
	}
}

// TestCompile_CommentRemovalKeepsAlignment verifies that an ordinary
// comment is removed and does not shift later target indices.
func TestCompile_CommentRemovalKeepsAlignment(t *testing.T) {
	// Arrange
	withComment := mustCompile(t, `<a></a><!-- note --><b title="@{0}"></b>`, value("x", ""))
	without := mustCompile(t, `<a></a><b title="@{0}"></b>`, value("x", ""))

	// Act
	got := withComment.ViewFactories[0].TargetIndex
	want := without.ViewFactories[0].TargetIndex

	// Assert
	if got != want {
		t.Errorf("Expected target index %d, got %d", want, got)
	}
	if n := nodeAt(t, withComment, got); n.Data != "b" {
		t.Errorf("Expected target to be <b>, got %q", n.Data)
	}
	if strings.Contains(mustHTML(t, withComment), "note") {
		t.Errorf("Expected the ordinary comment to be removed")
	}
}

// TestCompile_TextMerge verifies that adjacent text nodes are merged
// into one binding and the extra nodes removed.
func TestCompile_TextMerge(t *testing.T) {
	// Arrange
	container := dom.NewTemplate()
	p := &html.Node{Type: html.ElementNode, Data: "p"}
	container.AppendChild(p)
	for _, s := range []string{"a", "@{0}", "b"} {
		p.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}

	// Act
	tmpl, err := CompileNode(container, []directive.Directive{value("X", "")})

	// Assert
	if err != nil {
		t.Fatalf("CompileNode failed: %v", err)
	}
	if p.FirstChild == nil || p.FirstChild != p.LastChild {
		t.Fatalf("Expected exactly one text node to remain")
	}
	if p.FirstChild.Data != " " {
		t.Errorf("Expected the neutral placeholder, got %q", p.FirstChild.Data)
	}
	got := tmpl.ViewFactories[0].Directive.(directive.Evaluator).Evaluate(nil, nil)
	if got != "aXb" {
		t.Errorf("Expected 'aXb', got %v", got)
	}
}

// TestCompile_TextSiblingRemovalAlignment checks both orderings of a merged
// text binding and an element binding: every placement must point at the
// node a walk of the cleaned tree finds at that index.
func TestCompile_TextSiblingRemovalAlignment(t *testing.T) {
	build := func(textFirst bool) *html.Node {
		container := dom.NewTemplate()
		el := &html.Node{Type: html.ElementNode, Data: "i", Attr: []html.Attribute{{Key: "title", Val: "@{1}"}}}
		texts := []*html.Node{
			{Type: html.TextNode, Data: "x"},
			{Type: html.TextNode, Data: "@{0}"},
			{Type: html.TextNode, Data: "y"},
		}
		if !textFirst {
			container.AppendChild(el)
		}
		for _, n := range texts {
			container.AppendChild(n)
		}
		if textFirst {
			container.AppendChild(el)
		}
		return container
	}

	for _, textFirst := range []bool{true, false} {
		tmpl, err := CompileNode(build(textFirst), []directive.Directive{value("T", ""), value("E", "")})
		if err != nil {
			t.Fatalf("textFirst=%v: CompileNode failed: %v", textFirst, err)
		}

		for _, f := range tmpl.ViewFactories {
			n := nodeAt(t, tmpl, f.TargetIndex)
			if f.Attribute == "title" && n.Data != "i" {
				t.Errorf("textFirst=%v: expected <i> at %d, got %q", textFirst, f.TargetIndex, n.Data)
			}
			if f.Attribute == "" && n.Type != html.TextNode {
				t.Errorf("textFirst=%v: expected a text node at %d", textFirst, f.TargetIndex)
			}
		}
	}
}

// TestCompile_HostAndViewSeparation verifies that root attributes become host
// placements and descendants become view placements.
func TestCompile_HostAndViewSeparation(t *testing.T) {
	// Arrange
	cls := value("root", "")
	title := value("child", "")

	// Act
	tmpl := mustCompile(t, `<template class="@{0}" role="list"><div title="@{1}" role="item"></div></template>`, cls, title)

	// Assert
	if len(tmpl.Content.Attr) != 0 {
		t.Errorf("Expected every root attribute to be lifted, got %v", tmpl.Content.Attr)
	}
	var host []string
	for _, f := range tmpl.HostFactories {
		if f.TargetIndex != -1 {
			t.Errorf("Expected host target index -1, got %d", f.TargetIndex)
		}
		host = append(host, f.Attribute+"="+directive.Stringify(f.Directive.(directive.Evaluator).Evaluate(nil, nil)))
	}
	if diff := cmp.Diff([]string{"class=root", "role=list"}, host); diff != "" {
		t.Errorf("Host factories mismatch (-want +got):\n%s", diff)
	}
	if tmpl.HostFactories[1].Directive.TargetName() != "role" {
		t.Errorf("Expected literal host binding to target 'role'")
	}
	if len(tmpl.ViewFactories) != 1 || tmpl.ViewFactories[0].Attribute != "title" {
		t.Errorf("Expected only the child title in view factories, got %+v", tmpl.ViewFactories)
	}
	if got := mustHTML(t, tmpl); got != `<div role="item"></div>` {
		t.Errorf("Unexpected cleaned markup %q", got)
	}
}

// TestCompile_UnwrapsOnlyWhenTemplateIsAlone verifies the outer template handling.
func TestCompile_UnwrapsOnlyWhenTemplateIsAlone(t *testing.T) {
	tmpl := mustCompile(t, "\n  <template><p>@{0}</p></template>\n", value("x", ""))
	if got := mustHTML(t, tmpl); got != "<p> </p>" {
		t.Errorf("Expected the inner template content, got %q", got)
	}

	// A template next to other content is an ordinary element.
	tmpl = mustCompile(t, `<template></template><p>@{0}</p>`, value("x", ""))
	if tmpl.ViewFactories[0].TargetIndex != 2 {
		t.Errorf("Expected target index 2, got %d", tmpl.ViewFactories[0].TargetIndex)
	}
}

// TestCompile_EscapedPlaceholder verifies that \@{n} is unescaped and never bound.
func TestCompile_EscapedPlaceholder(t *testing.T) {
	tmpl := mustCompile(t, `<p>\@{0}</p><i title="\@{0}"></i>`+block(0), value("x", ""))

	if got := mustHTML(t, tmpl); got != `<p>@{0}</p><i title="@{0}"></i>`+block(0) {
		t.Errorf("Unexpected cleaned markup %q", got)
	}
	if len(tmpl.ViewFactories) != 1 || tmpl.ViewFactories[0].TargetIndex != 3 {
		t.Errorf("Expected only the marker to be placed at index 3, got %+v", tmpl.ViewFactories)
	}
}

// TestCompile_CountMismatch verifies that unplaced directives fail the compilation.
func TestCompile_CountMismatch(t *testing.T) {
	ds := []directive.Directive{value("a", ""), value("b", ""), value("c", "")}

	_, err := Compile(`<p>`+block(0)+`</p>`+block(1), ds)

	var cerr *CompilationError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected a *CompilationError, got %v", err)
	}
	if !errors.Is(err, ErrCountMismatch) {
		t.Errorf("Expected ErrCountMismatch, got %v", err)
	}
	if cerr.Located != 2 || cerr.Expected != 3 {
		t.Errorf("Expected 2 of 3 located, got %d of %d", cerr.Located, cerr.Expected)
	}
}

// TestCompile_ConsumesEveryDirective verifies that each directive is placed exactly once.
func TestCompile_ConsumesEveryDirective(t *testing.T) {
	ds := []directive.Directive{
		value("h", "class"),
		value("a", ""),
		value("b", ""),
		directive.NewAttachedBehavior("slot", nil),
	}

	tmpl := mustCompile(t, `<template class="@{0}"><p title="@{1}">@{2}</p>`+block(3)+`</template>`, ds...)

	seen := map[directive.Directive]int{}
	for _, f := range append(append([]Placement{}, tmpl.HostFactories...), tmpl.ViewFactories...) {
		seen[f.Directive]++
	}
	for i, d := range ds {
		if seen[d] != 1 {
			t.Errorf("Expected directive %d to be placed once, got %d", i, seen[d])
		}
	}
}

// TestCompile_UnbalancedPlaceholder verifies that an unterminated placeholder
// binds nothing and surfaces as a count mismatch.
func TestCompile_UnbalancedPlaceholder(t *testing.T) {
	_, err := Compile(`<p title="@{0"></p>`, []directive.Directive{value("x", "")})
	if !errors.Is(err, ErrCountMismatch) {
		t.Errorf("Expected ErrCountMismatch, got %v", err)
	}
}

func TestCompile_UnresolvedMarker(t *testing.T) {
	_, err := Compile(block(5), []directive.Directive{value("x", "")})

	var cerr *CompilationError
	if !errors.As(err, &cerr) || !errors.Is(err, ErrUnresolvedMarker) {
		t.Fatalf("Expected ErrUnresolvedMarker, got %v", err)
	}
	if cerr.Index != 5 {
		t.Errorf("Expected index 5, got %d", cerr.Index)
	}
}

func TestCompile_UnresolvedPlaceholder(t *testing.T) {
	_, err := Compile(`<p>@{9}</p>`, []directive.Directive{value("x", "")})
	if !errors.Is(err, ErrUnresolvedPlaceholder) {
		t.Errorf("Expected ErrUnresolvedPlaceholder, got %v", err)
	}

	_, err = Compile(`<p>@{name}</p>`, []directive.Directive{value("x", "")})
	if !errors.Is(err, ErrUnresolvedPlaceholder) {
		t.Errorf("Expected ErrUnresolvedPlaceholder for a non-numeric index, got %v", err)
	}
}

// TestCompile_StopsOnceEveryDirectiveIsPlaced verifies that markup after the
// last placement is left untouched.
func TestCompile_StopsOnceEveryDirectiveIsPlaced(t *testing.T) {
	tmpl := mustCompile(t, `<p>@{0}</p><!-- kept -->`, value("x", ""))

	if !strings.Contains(mustHTML(t, tmpl), "<!-- kept -->") {
		t.Errorf("Expected the trailing comment to be left in place")
	}
}

func TestCompile_CustomMarker(t *testing.T) {
	opts := Options{Marker: "tplc"}
	d := directive.NewAttachedBehavior("when", nil)

	tmpl, err := opts.Compile(`<div><!--tplc:0--></div>`+dom.DefaultMarker.Block(0), []directive.Directive{d})

	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if tmpl.ViewFactories[0].TargetIndex != 1 {
		t.Errorf("Expected target index 1, got %d", tmpl.ViewFactories[0].TargetIndex)
	}
}

func TestCompileNode_RejectsNonElement(t *testing.T) {
	_, err := CompileNode(&html.Node{Type: html.TextNode}, nil)
	if err == nil {
		t.Errorf("Expected an error for a text container")
	}
}

// TestCompile_Concurrent compiles the same directive list from several
// goroutines; every result must be complete and independent.
func TestCompile_Concurrent(t *testing.T) {
	ds := []directive.Directive{value("a", ""), value("b", "")}
	markup := `<!-- c --><p title="@{0}">@{1}</p>`

	var wg sync.WaitGroup
	results := make([]*Template, 8)
	errs := make([]error, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = Compile(markup, ds)
		}()
	}
	wg.Wait()

	for i, tmpl := range results {
		if errs[i] != nil {
			t.Fatalf("Compile %d failed: %v", i, errs[i])
		}
		got := []int{tmpl.ViewFactories[0].TargetIndex, tmpl.ViewFactories[1].TargetIndex}
		if diff := cmp.Diff([]int{0, 1}, got); diff != "" {
			t.Errorf("Compile %d: target index mismatch (-want +got):\n%s", i, diff)
		}
	}
}

// TestCompile_DuplicateReference verifies that a directive bound twice fails
// even when the number of bindings matches the directive list.
func TestCompile_DuplicateReference(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"two text nodes", `<p>@{0}</p><i>@{0}</i>`},
		{"one value", `<p title="@{0}-@{0}"></p>`},
		{"placeholder and marker", `<p>@{0}</p>` + block(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := []directive.Directive{value("a", ""), value("b", "")}

			_, err := Compile(tt.markup, ds)

			var cerr *CompilationError
			if !errors.As(err, &cerr) || !errors.Is(err, ErrDuplicateReference) {
				t.Fatalf("Expected ErrDuplicateReference, got %v", err)
			}
			if cerr.Index != 0 {
				t.Errorf("Expected index 0, got %d", cerr.Index)
			}
		})
	}
}

// TestCompile_DirectiveIndex verifies that placements carry the position of
// their directive, and -1 for synthesized ones.
func TestCompile_DirectiveIndex(t *testing.T) {
	ds := []directive.Directive{
		value("a", ""),
		value("b", ""),
		directive.NewAttachedBehavior("when", nil),
	}

	tmpl := mustCompile(t, `<template role="list"><p title="x-@{1}">@{0}</p>`+block(2)+`</template>`, ds...)

	var got []int
	for _, f := range append(append([]Placement{}, tmpl.HostFactories...), tmpl.ViewFactories...) {
		got = append(got, f.DirectiveIndex)
	}
	if diff := cmp.Diff([]int{-1, -1, 0, 2}, got); diff != "" {
		t.Errorf("Directive index mismatch (-want +got):\n%s", diff)
	}
}
