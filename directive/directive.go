// Package directive defines the units of dynamic behavior that the template
// compiler binds to positions in a document tree.
package directive

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Directive is a compile-time resolved unit of behavior bound to a tree position.
type Directive interface {
	// TargetName is the attribute or property the directive binds to, if any.
	TargetName() string
	// IsAttachedBehavior reports whether the directive is a self-contained
	// behavior that must never be composed into a string binding.
	IsAttachedBehavior() bool
}

// Evaluator is implemented by directives that produce a value for a scope.
type Evaluator interface {
	Evaluate(scope any, ctx *ExpressionContext) any
}

// TextBinder is implemented by directives that can be turned into text content bindings.
type TextBinder interface {
	MakeIntoTextBinding()
}

// Expression computes the value of a binding for a data item.
type Expression func(scope any, ctx *ExpressionContext) any

// ExpressionContext carries the position of a data item when a template is
// rendered inside a repeated list.
type ExpressionContext struct {
	Index         int
	Length        int
	Parent        any
	ParentContext *ExpressionContext
	Event         any
}

func (c *ExpressionContext) IsEven() bool  { return c.Index%2 == 0 }
func (c *ExpressionContext) IsOdd() bool   { return c.Index%2 != 0 }
func (c *ExpressionContext) IsFirst() bool { return c.Index == 0 }
func (c *ExpressionContext) IsLast() bool  { return c.Index == c.Length-1 }

// IsInMiddle reports whether the item is neither the first nor the last one.
func (c *ExpressionContext) IsInMiddle() bool {
	return c.Index > 0 && c.Index < c.Length-1
}

// Mode describes what kind of target a binding updates.
type Mode int

const (
	ModeAttribute Mode = iota
	ModeBooleanAttribute
	ModeProperty
	ModeEvent
	ModeContent
)

func (m Mode) String() string {
	switch m {
	case ModeAttribute:
		return "attribute"
	case ModeBooleanAttribute:
		return "boolean-attribute"
	case ModeProperty:
		return "property"
	case ModeEvent:
		return "event"
	case ModeContent:
		return "content"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Binding evaluates an expression against a scope.
//
// A Binding must not be copied after first use.
type Binding struct {
	expression Expression
	targetName string
	text       atomic.Bool
}

// Compile-time assertions.
var (
	_ Directive  = (*Binding)(nil)
	_ Evaluator  = (*Binding)(nil)
	_ TextBinder = (*Binding)(nil)
)

// NewBinding returns a binding for expr targeting targetName.
// targetName may be empty when the target is not known yet.
func NewBinding(expr Expression, targetName string) *Binding {
	return &Binding{expression: expr, targetName: targetName}
}

// Literal returns a binding that always evaluates to value.
func Literal(value string, targetName string) *Binding {
	return NewBinding(func(any, *ExpressionContext) any { return value }, targetName)
}

func (b *Binding) TargetName() string       { return b.targetName }
func (b *Binding) IsAttachedBehavior() bool { return false }

// Evaluate runs the binding expression. A nil expression evaluates to nil.
func (b *Binding) Evaluate(scope any, ctx *ExpressionContext) any {
	if b.expression == nil {
		return nil
	}
	return b.expression(scope, ctx)
}

// MakeIntoTextBinding marks the binding as updating the text content of a node.
func (b *Binding) MakeIntoTextBinding() {
	b.text.Store(true)
}

// IsTextBinding reports whether MakeIntoTextBinding was called.
func (b *Binding) IsTextBinding() bool {
	return b.text.Load()
}

// Mode classifies the binding from its text flag and its target name prefix:
// '@' for events, '?' for boolean attributes and ':' for properties.
func (b *Binding) Mode() Mode {
	if b.IsTextBinding() {
		return ModeContent
	}
	switch {
	case strings.HasPrefix(b.targetName, "@"):
		return ModeEvent
	case strings.HasPrefix(b.targetName, "?"):
		return ModeBooleanAttribute
	case strings.HasPrefix(b.targetName, ":"):
		return ModeProperty
	}
	return ModeAttribute
}

// AttachedBehavior is a previously resolved behavior, such as a structural
// directive or a nested compiled template, placed into the tree by reference.
type AttachedBehavior struct {
	Name    string
	Options any
}

var _ Directive = (*AttachedBehavior)(nil)

// NewAttachedBehavior returns a behavior directive.
func NewAttachedBehavior(name string, options any) *AttachedBehavior {
	return &AttachedBehavior{Name: name, Options: options}
}

func (a *AttachedBehavior) TargetName() string       { return "" }
func (a *AttachedBehavior) IsAttachedBehavior() bool { return true }

// Stringify converts an evaluated value to the text used when it is
// concatenated with literal parts. nil becomes the empty string.
func Stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	}
	return fmt.Sprint(v)
}
