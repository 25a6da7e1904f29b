package page

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"

	"github.com/MrWong99/yuetip/pkg/dom"
)

// blocks start and end on their own line.
var blocks = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"textarea": true, "tr": true, "ul": true,
}

// defaultInputCells is the width of an <input> without a value.
const defaultInputCells = 20

// layout is the flow cursor.
type layout struct {
	page *Page
	x, y float64

	// space is true at the start of a line and after a rendered space, so
	// runs of whitespace collapse to one.
	space bool
}

func (l *layout) newline() {
	if l.x > 0 {
		l.x = 0
		l.y += l.page.lineH
	}
	l.space = true
}

func (l *layout) node(n *node, hidden bool) {
	if n.kind == dom.TextNode {
		l.text(n, hidden)
		return
	}

	hidden = hidden || isHidden(n)
	n.hidden = hidden
	block := blocks[n.tag]
	if block && !hidden {
		l.newline()
	}

	switch n.tag {
	case "br":
		if !hidden {
			n.box = dom.Rect{Left: l.x, Top: l.y, Right: l.x, Bottom: l.y + l.page.lineH}
			l.x = 0
			l.y += l.page.lineH
			l.space = true
		}
		return
	case "input":
		if !hidden {
			l.input(n)
		}
		return
	}

	if n.shadow != nil {
		for _, c := range n.shadow.top {
			l.node(c, hidden)
			n.box = n.box.Union(extent(c))
		}
	}
	for _, c := range n.children {
		l.node(c, hidden)
		n.box = n.box.Union(extent(c))
	}

	if block && !hidden {
		l.newline()
	}
}

func (l *layout) text(n *node, hidden bool) {
	i := 0
	for _, r := range n.text {
		if hidden {
			n.glyphs[i] = dom.Rect{}
			i++
			continue
		}
		n.glyphs[i] = l.glyph(r)
		i++
	}
}

// glyph places one rune and returns its box. Collapsed whitespace and
// zero-width runes get a zero-width box at the cursor.
func (l *layout) glyph(r rune) dom.Rect {
	lh := l.page.lineH
	if unicode.IsSpace(r) {
		if l.space {
			return dom.Rect{Left: l.x, Top: l.y, Right: l.x, Bottom: l.y + lh}
		}
		l.space = true
		return l.advance(1)
	}
	l.space = false
	return l.advance(uniseg.StringWidth(string(r)))
}

func (l *layout) advance(cells int) dom.Rect {
	w := float64(cells) * l.page.cellW
	if l.x > 0 && l.x+w > l.page.viewport.W {
		l.x = 0
		l.y += l.page.lineH
	}
	r := dom.Rect{Left: l.x, Top: l.y, Right: l.x + w, Bottom: l.y + l.page.lineH}
	l.x += w
	return r
}

func (l *layout) input(n *node) {
	cells := defaultInputCells
	if v, ok := n.Attr("value"); ok && uniseg.StringWidth(v) > cells {
		cells = uniseg.StringWidth(v)
	}
	n.box = l.advance(cells)
	l.space = false
}

func isHidden(n *node) bool {
	if _, ok := n.Attr("hidden"); ok {
		return true
	}
	style, _ := n.Attr("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(style, "display:none")
}

func extent(n *node) dom.Rect {
	if n.kind == dom.ElementNode {
		return n.box
	}
	var r dom.Rect
	for _, g := range n.glyphs {
		r = r.Union(g)
	}
	return r
}
