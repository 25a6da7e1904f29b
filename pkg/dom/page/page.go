// Package page is an in-memory, laid-out document built from HTML. It
// implements [dom.Document] for the command-line tools and for tests, so the
// hover engine can run without a browser.
//
// Layout is a simple flow on a fixed cell grid: every rune occupies
// uniseg.StringWidth cells (CJK ideographs take two), block elements start on
// a new line and text wraps at the viewport edge. That is enough to give every
// character its own box, which is all hit-testing and caret lookup need.
//
// Supported structure:
//
//   - <template shadowrootmode="open"> declares a shadow root on its parent
//     element. The shadow content is laid out first, followed by the host's
//     light children.
//   - Elements with the hidden attribute or an inline "display:none" style
//     take no space; their characters have zero-size boxes.
//   - <input value="…">, <textarea> and contenteditable elements are laid
//     out like ordinary text and can be focused with [Page.Focus].
//
// Typical usage:
//
//	p, err := page.ParseString(`<p>我講廣東話</p>`, page.WithViewport(400, 300))
//	pt, _ := p.Locate("廣東話")
//	hit := p.ElementFromPoint(pt.X, pt.Y)
package page

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/MrWong99/yuetip/pkg/dom"
)

// Compile-time interface assertions.
var (
	_ dom.Document     = (*Page)(nil)
	_ dom.CaretLocator = (*Page)(nil)
	_ dom.CaretLocator = (*tree)(nil)
	_ dom.Node         = (*node)(nil)
)

// ErrForeignNode is returned when a node from another page is passed in.
var ErrForeignNode = errors.New("page: node does not belong to this page")

// ---- defaults ----

const (
	defaultViewportW  = 800
	defaultViewportH  = 600
	defaultCellW      = 8
	defaultLineHeight = 16
)

// ---- options ----

// Option configures a Page.
type Option func(*Page)

// WithViewport sets the viewport size in pixels.
func WithViewport(w, h float64) Option {
	return func(p *Page) {
		p.viewport = dom.Size{W: w, H: h}
	}
}

// WithCellSize sets the width of one cell and the height of one line.
func WithCellSize(cellW, lineHeight float64) Option {
	return func(p *Page) {
		p.cellW = cellW
		p.lineH = lineHeight
	}
}

// WithDocumentCaret toggles the document-level point-to-caret lookup.
// Enabled by default.
func WithDocumentCaret(enabled bool) Option {
	return func(p *Page) {
		p.docCaret = enabled
	}
}

// WithShadowCaret toggles point-to-caret lookup on shadow roots. Disabled by
// default, as on most platforms.
func WithShadowCaret(enabled bool) Option {
	return func(p *Page) {
		p.shadowCaret = enabled
	}
}

// ---- Page ----

// Page is a parsed and laid-out HTML document.
//
// Layout is immutable after parsing. Focus and the selection may be changed
// concurrently.
type Page struct {
	viewport    dom.Size
	cellW       float64
	lineH       float64
	docCaret    bool
	shadowCaret bool

	doc *tree

	mu    sync.Mutex
	focus *node
	sel   selection
}

// Parse reads HTML from r and lays it out.
func Parse(r io.Reader, opts ...Option) (*Page, error) {
	p := &Page{
		viewport: dom.Size{W: defaultViewportW, H: defaultViewportH},
		cellW:    defaultCellW,
		lineH:    defaultLineHeight,
		docCaret: true,
	}
	for _, o := range opts {
		o(p)
	}
	if p.viewport.W <= 0 || p.viewport.H <= 0 {
		return nil, fmt.Errorf("page: viewport must be positive, got %vx%v", p.viewport.W, p.viewport.H)
	}
	if p.cellW <= 0 || p.lineH <= 0 {
		return nil, fmt.Errorf("page: cell size must be positive, got %vx%v", p.cellW, p.lineH)
	}

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("page: parse: %w", err)
	}
	body := findElement(doc, "body")
	if body == nil {
		return nil, errors.New("page: document has no body")
	}

	p.doc = &tree{page: p}
	top := p.build(body, nil, p.doc)
	p.doc.top = []*node{top}

	l := layout{page: p, space: true}
	l.node(top, false)
	p.sel.page = p
	return p, nil
}

// ParseString is a convenience wrapper around [Parse].
func ParseString(s string, opts ...Option) (*Page, error) {
	return Parse(strings.NewReader(s), opts...)
}

// ---- dom.Document ----

// ElementFromPoint implements [dom.Root] for the document tree.
func (p *Page) ElementFromPoint(x, y float64) dom.Node {
	return p.doc.ElementFromPoint(x, y)
}

// Host implements [dom.Root]; the document has none.
func (p *Page) Host() dom.Node { return nil }

// Nodes implements [dom.Root].
func (p *Page) Nodes() []dom.Node { return p.doc.Nodes() }

// CaretFromPoint implements [dom.CaretLocator] over the document's light
// tree. It never looks into shadow trees.
func (p *Page) CaretFromPoint(x, y float64) (dom.Caret, bool) {
	return p.doc.CaretFromPoint(x, y)
}

// RangeRect implements [dom.Ranger].
func (p *Page) RangeRect(n dom.Node, start, end int) (dom.Rect, error) {
	t, err := p.textNode(n)
	if err != nil {
		return dom.Rect{}, err
	}
	if start < 0 || end > len(t.glyphs) || start > end {
		return dom.Rect{}, fmt.Errorf("page: range [%d,%d) out of bounds for length %d", start, end, len(t.glyphs))
	}
	var r dom.Rect
	for _, g := range t.glyphs[start:end] {
		r = r.Union(g)
	}
	return r, nil
}

// ActiveElement implements [dom.Document].
func (p *Page) ActiveElement() dom.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.focus == nil {
		return nil
	}
	return p.focus
}

// Selection implements [dom.Document].
func (p *Page) Selection() dom.Selection { return &p.sel }

// Viewport implements [dom.Document].
func (p *Page) Viewport() dom.Size { return p.viewport }

// ---- helpers for hosts and tests ----

// Focus moves focus to n; nil blurs.
func (p *Page) Focus(n dom.Node) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n == nil {
		p.focus = nil
		return nil
	}
	el, ok := n.(*node)
	if !ok || el.root.page != p {
		return ErrForeignNode
	}
	p.focus = el
	return nil
}

// FindByID returns the element with the given id attribute in any tree.
func (p *Page) FindByID(id string) dom.Node {
	var found *node
	p.walk(func(n *node) bool {
		if v, ok := n.Attr("id"); ok && v == id && n.kind == dom.ElementNode {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return found
}

// Locate returns the centre of the first character of the first visible
// occurrence of s in any text node, shadow trees included.
func (p *Page) Locate(s string) (dom.Point, bool) {
	var (
		pt    dom.Point
		found bool
	)
	p.walk(func(n *node) bool {
		if n.kind != dom.TextNode {
			return true
		}
		idx := strings.Index(n.text, s)
		if idx < 0 {
			return true
		}
		i := len([]rune(n.text[:idx]))
		g := n.glyphs[i]
		if g.Empty() {
			return true
		}
		pt = dom.Point{X: (g.Left + g.Right) / 2, Y: (g.Top + g.Bottom) / 2}
		found = true
		return false
	})
	return pt, found
}

// SelectionRange returns the selected text node and rune range, if any.
func (p *Page) SelectionRange() (dom.Node, int, int, bool) {
	return p.sel.Range()
}

// SelectedText returns the text of the current selection, or "".
func (p *Page) SelectedText() string {
	n, start, end, ok := p.sel.Range()
	if !ok {
		return ""
	}
	return string([]rune(n.Text())[start:end])
}

func (p *Page) textNode(n dom.Node) (*node, error) {
	t, ok := n.(*node)
	if !ok || t.root.page != p {
		return nil, ErrForeignNode
	}
	if t.kind != dom.TextNode {
		return nil, fmt.Errorf("page: %s is not a text node", t.tag)
	}
	return t, nil
}

// walk visits every node of every tree in document order until fn returns
// false.
func (p *Page) walk(fn func(*node) bool) {
	var visit func(n *node) bool
	visit = func(n *node) bool {
		if !fn(n) {
			return false
		}
		if n.shadow != nil {
			for _, c := range n.shadow.top {
				if !visit(c) {
					return false
				}
			}
		}
		for _, c := range n.children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	for _, n := range p.doc.top {
		if !visit(n) {
			return
		}
	}
}

// ---- construction ----

// skipped elements are never rendered.
var skipped = map[string]bool{
	"head": true, "script": true, "style": true, "title": true,
	"meta": true, "link": true, "noscript": true, "template": true,
}

func (p *Page) build(hn *html.Node, parent *node, t *tree) *node {
	switch hn.Type {
	case html.TextNode:
		n := &node{kind: dom.TextNode, text: hn.Data, parent: parent, root: t}
		n.glyphs = make([]dom.Rect, len([]rune(hn.Data)))
		return n
	case html.ElementNode:
	default:
		return nil
	}

	n := &node{kind: dom.ElementNode, tag: hn.Data, parent: parent, root: t}
	for _, a := range hn.Attr {
		n.attrs = append(n.attrs, html.Attribute{Key: strings.ToLower(a.Key), Val: a.Val})
	}

	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "template" && n.shadow == nil && hasAttr(c, "shadowrootmode") {
			sr := &tree{page: p, host: n}
			for tc := c.FirstChild; tc != nil; tc = tc.NextSibling {
				if child := p.build(tc, nil, sr); child != nil {
					sr.top = append(sr.top, child)
				}
			}
			n.shadow = sr
			continue
		}
		if c.Type == html.ElementNode && skipped[c.Data] {
			continue
		}
		if child := p.build(c, n, t); child != nil {
			n.children = append(n.children, child)
		}
	}
	return n
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}
