package dom

import "golang.org/x/net/html"

// Walker visits the element, text and comment nodes below a root in document
// order. It never descends into nested <template> elements: their content is a
// separate template. Other node kinds are skipped.
//
// The current node may be removed through Remove without ending the walk.
type Walker struct {
	root    *html.Node
	current *html.Node

	// resume is the node to continue from after the current node was removed.
	resume   *html.Node
	detached bool
	done     bool
}

// NewWalker returns a walker positioned on root. root itself is never visited.
func NewWalker(root *html.Node) *Walker {
	return &Walker{root: root, current: root}
}

// Next advances to the next visible node, or returns nil when the walk is over.
func (w *Walker) Next() *html.Node {
	if w.done {
		return nil
	}
	var n *html.Node
	if w.detached {
		n = w.resume
		w.resume, w.detached = nil, false
	} else {
		n = w.advance(w.current)
	}
	for n != nil && !visible(n) {
		n = w.advance(n)
	}
	if n == nil {
		w.done = true
		return nil
	}
	w.current = n
	return n
}

// Remove detaches the current node from the tree. The next call to Next
// continues with the node that followed it.
func (w *Walker) Remove() {
	n := w.current
	if n == w.root || n.Parent == nil {
		return
	}
	w.resume = w.skip(n)
	w.detached = true
	n.Parent.RemoveChild(n)
}

func (w *Walker) advance(n *html.Node) *html.Node {
	if n.FirstChild != nil && (n == w.root || !IsTemplate(n)) {
		return n.FirstChild
	}
	return w.skip(n)
}

// skip returns the node following n in document order, ignoring n's subtree.
func (w *Walker) skip(n *html.Node) *html.Node {
	for n != nil && n != w.root {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

func visible(n *html.Node) bool {
	switch n.Type {
	case html.ElementNode, html.TextNode, html.CommentNode:
		return true
	}
	return false
}
