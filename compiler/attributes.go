package compiler

import (
	"golang.org/x/net/html"

	"github.com/vcrobe/tplc/directive"
	"github.com/vcrobe/tplc/dom"
)

// compileAttributes lifts every attribute of n whose value resolves to a
// directive out of the tree and records it in factories at the current target
// index. With includeLiterals, attributes without placeholders become literal
// bindings too; this is only used for the template root.
func (c *compilation) compileAttributes(n *html.Node, factories *[]Placement, includeLiterals bool) error {
	for i := 0; i < len(n.Attr); {
		attr := n.Attr[i]

		d, index, unescaped, err := c.parsePlaceholders(attr.Val)
		if err != nil {
			return err
		}
		if d == nil && includeLiterals {
			d, index = directive.Literal(unescaped, attrName(attr)), -1
		}

		if d == nil {
			n.Attr[i].Val = unescaped
			i++
			continue
		}

		// The removal shifts the next attribute into slot i.
		dom.RemoveAttr(n, i)
		*factories = append(*factories, Placement{
			Directive:      d,
			DirectiveIndex: index,
			TargetIndex:    c.targetIndex,
			Attribute:      attrName(attr),
		})
	}
	return nil
}

// attrName returns the qualified name of an attribute, e.g. xlink:href.
func attrName(a html.Attribute) string {
	if a.Namespace != "" {
		return a.Namespace + ":" + a.Key
	}
	return a.Key
}
