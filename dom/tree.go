// Package dom holds the document tree primitives the template compiler walks.
// Trees are golang.org/x/net/html nodes; a template container is a <template>
// element whose children are its content.
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NewTemplate returns an empty, detached <template> element.
func NewTemplate() *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: atom.Template, Data: "template"}
}

// ParseTemplate parses markup as the content of a new <template> element.
func ParseTemplate(markup string) (*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), NewTemplate())
	if err != nil {
		return nil, fmt.Errorf("failed to parse template markup: %w", err)
	}

	tmpl := NewTemplate()
	for _, n := range nodes {
		tmpl.AppendChild(n)
	}
	return tmpl, nil
}

// IsTemplate reports whether n is a <template> element.
func IsTemplate(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == atom.Template && n.Namespace == ""
}

// SoleElementChild returns the only element child of n when every other child
// is whitespace text.
func SoleElementChild(n *html.Node) *html.Node {
	var sole *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.ElementNode && sole == nil:
			sole = c
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		default:
			return nil
		}
	}
	return sole
}

// WholeText returns the text of n merged with the text nodes that
// immediately follow it.
func WholeText(n *html.Node) string {
	if n.NextSibling == nil || n.NextSibling.Type != html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n; c != nil && c.Type == html.TextNode; c = c.NextSibling {
		sb.WriteString(c.Data)
	}
	return sb.String()
}

// RemoveFollowingText detaches the text nodes that immediately follow n
// and returns how many were removed.
func RemoveFollowingText(n *html.Node) int {
	removed := 0
	for n.NextSibling != nil && n.NextSibling.Type == html.TextNode {
		n.Parent.RemoveChild(n.NextSibling)
		removed++
	}
	return removed
}

// RemoveAttr deletes the i-th attribute of n.
func RemoveAttr(n *html.Node, i int) {
	n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
}

// RenderChildren serializes the children of n.
func RenderChildren(n *html.Node) (string, error) {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}
