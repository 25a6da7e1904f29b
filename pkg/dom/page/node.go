package page

import (
	"math"

	"golang.org/x/net/html"

	"github.com/MrWong99/yuetip/pkg/dom"
)

// ---- node ----

type node struct {
	kind   dom.NodeKind
	tag    string
	attrs  []html.Attribute
	text   string
	parent *node
	root   *tree

	children []*node
	shadow   *tree

	// box is the union of everything the element renders; glyphs holds one
	// box per rune of a text node.
	box    dom.Rect
	glyphs []dom.Rect
	hidden bool
}

func (n *node) Kind() dom.NodeKind { return n.kind }
func (n *node) Tag() string        { return n.tag }
func (n *node) Text() string       { return n.text }
func (n *node) Root() dom.Root     { return n.root }

func (n *node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (n *node) Parent() dom.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Children() []dom.Node {
	out := make([]dom.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *node) ShadowRoot() dom.Root {
	if n.shadow == nil {
		return nil
	}
	return n.shadow
}

// ---- tree ----

// tree is the document tree or one shadow tree.
type tree struct {
	page *Page
	host *node
	top  []*node
}

// ElementFromPoint returns the deepest element of this tree whose box holds
// (x, y). Shadow hosts are opaque: their light children are searched but the
// shadow content is not.
func (t *tree) ElementFromPoint(x, y float64) dom.Node {
	for i := len(t.top) - 1; i >= 0; i-- {
		if hit := hitTest(t.top[i], x, y); hit != nil {
			return hit
		}
	}
	return nil
}

func (t *tree) Host() dom.Node {
	if t.host == nil {
		return nil
	}
	return t.host
}

func (t *tree) Nodes() []dom.Node {
	out := make([]dom.Node, len(t.top))
	for i, n := range t.top {
		out[i] = n
	}
	return out
}

// CaretFromPoint returns the caret boundary nearest to (x, y) among the text
// nodes of this tree on the line under y. Like the browser primitive it
// rounds to the closer side of a character, so the caret may sit just after
// the covered character.
func (t *tree) CaretFromPoint(x, y float64) (dom.Caret, bool) {
	enabled := t.page.docCaret
	if t.host != nil {
		enabled = t.page.shadowCaret
	}
	if !enabled {
		return dom.Caret{}, false
	}

	var (
		best     *node
		bestOff  int
		bestDist = math.Inf(1)
	)
	visit := func(n *node) {
		for i, g := range n.glyphs {
			if g.Empty() || y < g.Top || y > g.Bottom {
				continue
			}
			var d float64
			switch {
			case x < g.Left:
				d = g.Left - x
			case x > g.Right:
				d = x - g.Right
			}
			if d >= bestDist {
				continue
			}
			best, bestDist = n, d
			bestOff = i
			if x > (g.Left+g.Right)/2 {
				bestOff = i + 1
			}
		}
	}
	for _, n := range t.top {
		walkTree(n, func(c *node) {
			if c.kind == dom.TextNode {
				visit(c)
			}
		})
	}
	if best == nil {
		return dom.Caret{}, false
	}
	return dom.Caret{Node: best, Offset: bestOff}, true
}

func hitTest(n *node, x, y float64) dom.Node {
	if n.kind != dom.ElementNode || n.hidden || !n.box.Contains(x, y) {
		return nil
	}
	for i := len(n.children) - 1; i >= 0; i-- {
		if hit := hitTest(n.children[i], x, y); hit != nil {
			return hit
		}
	}
	return n
}

// walkTree visits n and its light descendants, without entering shadow trees.
func walkTree(n *node, fn func(*node)) {
	fn(n)
	for _, c := range n.children {
		walkTree(c, fn)
	}
}
