package dom

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Marker is the reserved prefix of comments that anchor node-level directives.
// A marker comment has the form <!--{marker}:{index}-->.
type Marker string

// DefaultMarker is unique per process so that hand-written comments never
// collide with generated markers.
var DefaultMarker = Marker(fmt.Sprintf("fast-%06x", rand.Uint32()&0xffffff))

// Block returns the comment markup anchoring the directive at index.
func (m Marker) Block(index int) string {
	return "<!--" + string(m) + ":" + strconv.Itoa(index) + "-->"
}

// Is reports whether n is a comment carrying this marker.
func (m Marker) Is(n *html.Node) bool {
	return n != nil && n.Type == html.CommentNode && strings.HasPrefix(n.Data, string(m)+":")
}

// Index extracts the directive index embedded in a marker comment.
// It returns false when n is not a marker or the index is not a non-negative integer.
func (m Marker) Index(n *html.Node) (int, bool) {
	if !m.Is(n) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(n.Data[len(m)+1:]))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Interpolation returns the inline placeholder for the directive at index.
func Interpolation(index int) string {
	return "@{" + strconv.Itoa(index) + "}"
}
