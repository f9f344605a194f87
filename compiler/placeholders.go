package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vcrobe/tplc/directive"
)

const openToken = "@{"

// part is either literal text or a resolved directive.
type part struct {
	literal   string
	directive directive.Directive
	index     int
}

// parsePlaceholders scans value for @{n} placeholders and resolves them against
// the directive list.
//
// It returns nil when value holds no live placeholder. In that case the third
// result is value with escaped placeholders (\@{n}) unescaped. A value made of
// a single placeholder returns that directive unchanged along with its index;
// anything else returns a new binding concatenating the parts and index -1.
func (c *compilation) parsePlaceholders(value string) (directive.Directive, int, string, error) {
	var parts []part
	n := len(value)
	pos := 0
	i := strings.Index(value, openToken)

	for i >= 0 && i < n-2 {
		start := i
		open := 1
		var quote byte
		i += 2

		for open > 0 && i < n {
			ch := value[i]
			i++
			switch {
			case ch == '\'' || ch == '"':
				if quote == 0 {
					quote = ch
				} else if quote == ch {
					quote = 0
				}
			case ch == '\\':
				// Skips the escaped character, quotes included.
				i++
			case quote != 0:
			case ch == '{':
				open++
			case ch == '}':
				open--
			}
		}

		if open != 0 {
			// Unterminated, the rest of the value is literal text.
			break
		}

		if start > 0 && value[start-1] == '\\' && (start < 2 || value[start-2] != '\\') {
			parts = append(parts, part{literal: value[pos:start-1] + value[start:i]})
		} else {
			index, d, err := c.resolvePlaceholder(value[start+2 : i-1])
			if err != nil {
				return nil, -1, "", err
			}
			parts = append(parts, part{literal: value[pos:start]}, part{directive: d, index: index})
		}

		pos = i
		if next := strings.Index(value[i:], openToken); next >= 0 {
			i += next
		} else {
			i = -1
		}
	}

	if len(parts) == 0 {
		return nil, -1, value, nil
	}
	parts = append(parts, part{literal: value[pos:]})

	kept := make([]part, 0, len(parts))
	dynamic := 0
	for _, p := range parts {
		if p.directive == nil && p.literal == "" {
			continue
		}
		if p.directive != nil {
			dynamic++
		}
		kept = append(kept, p)
	}

	if dynamic == 0 {
		var sb strings.Builder
		for _, p := range kept {
			sb.WriteString(p.literal)
		}
		return nil, -1, sb.String(), nil
	}

	if len(kept) == 1 {
		if err := c.place(kept[0].index); err != nil {
			return nil, -1, "", err
		}
		return kept[0].directive, kept[0].index, value, nil
	}

	d, err := c.interpolate(kept)
	return d, -1, value, err
}

// interpolate builds a binding that concatenates literal parts with the
// string value of each directive part. The target name is the last non-empty
// target name among the directive parts.
func (c *compilation) interpolate(parts []part) (directive.Directive, error) {
	type segment struct {
		literal string
		eval    directive.Evaluator
	}

	segments := make([]segment, len(parts))
	var targetName string

	for i, p := range parts {
		if p.directive == nil {
			segments[i] = segment{literal: p.literal}
			continue
		}
		eval, ok := p.directive.(directive.Evaluator)
		if !ok || p.directive.IsAttachedBehavior() {
			return nil, &CompilationError{
				Kind:     ErrBehaviorInterpolation,
				Index:    p.index,
				Expected: len(c.directives),
				Detail:   "an attached behavior must be the only content of a value",
			}
		}
		if name := p.directive.TargetName(); name != "" {
			targetName = name
		}
		if err := c.place(p.index); err != nil {
			return nil, err
		}
		segments[i] = segment{eval: eval}
	}

	expr := func(scope any, ctx *directive.ExpressionContext) any {
		var sb strings.Builder
		for _, s := range segments {
			if s.eval == nil {
				sb.WriteString(s.literal)
				continue
			}
			sb.WriteString(directive.Stringify(s.eval.Evaluate(scope, ctx)))
		}
		return sb.String()
	}

	return directive.NewBinding(expr, targetName), nil
}

// resolvePlaceholder looks up the directive named by the text between the
// placeholder delimiters. Only the leading integer of the expression is
// significant.
func (c *compilation) resolvePlaceholder(expr string) (int, directive.Directive, error) {
	digits := leadingDigits(strings.TrimSpace(expr))
	if digits == "" {
		return -1, nil, &CompilationError{
			Kind:     ErrUnresolvedPlaceholder,
			Index:    -1,
			Expected: len(c.directives),
			Detail:   fmt.Sprintf("%q is not a directive index", expr),
		}
	}

	index, err := strconv.Atoi(digits)
	if err != nil {
		index = -1
	}
	if index < 0 || index >= len(c.directives) {
		return -1, nil, &CompilationError{
			Kind:     ErrUnresolvedPlaceholder,
			Index:    index,
			Expected: len(c.directives),
			Detail:   fmt.Sprintf("placeholder %q", openToken+expr+"}"),
		}
	}
	return index, c.directives[index], nil
}

// place records that the directive at index is bound. A directive can only be
// bound once.
func (c *compilation) place(index int) error {
	if c.placed[index] {
		return &CompilationError{
			Kind:     ErrDuplicateReference,
			Index:    index,
			Located:  c.locatedDirectives,
			Expected: len(c.directives),
		}
	}
	c.placed[index] = true
	c.locatedDirectives++
	return nil
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
