// Package anchor turns a pointer coordinate into an exact character position
// inside a rendered document.
//
// Resolution runs in two phases. First the deepest element under the point
// is found, descending into nested shadow trees. Then an ordered list of
// [Strategy] values each try to produce a caret. Native point-to-caret
// primitives often return the nearest character rather than the covered one,
// so every candidate caret is refined by measuring each CJK ideograph of its
// text node and keeping the first whose box holds the point. The first
// strategy whose caret survives refinement wins.
package anchor

import (
	"strings"

	"github.com/MrWong99/yuetip/pkg/dict"
	"github.com/MrWong99/yuetip/pkg/dom"
)

// MaxShadowDepth bounds the descent into nested shadow trees.
const MaxShadowDepth = 32

// Anchor is the matched word under the pointer for one hover cycle.
type Anchor struct {
	Node   dom.Node
	Offset int
	Word   string
	Length int

	// Rect is the bounding box of the matched characters.
	Rect dom.Rect
}

// New measures the matched span and returns its Anchor. The span is clamped
// to the node's length; a measurement failure leaves Rect empty.
func New(r dom.Ranger, c dom.Caret, word string, length int) Anchor {
	a := Anchor{Node: c.Node, Offset: c.Offset, Word: word, Length: length}
	end := min(c.Offset+length, len([]rune(c.Node.Text())))
	if rect, err := r.RangeRect(c.Node, c.Offset, end); err == nil {
		a.Rect = rect
	}
	return a
}

// Tail returns up to n runes of the anchor node's text starting at offset.
func Tail(c dom.Caret, n int) string {
	runes := []rune(c.Node.Text())
	if c.Offset < 0 || c.Offset >= len(runes) {
		return ""
	}
	return string(runes[c.Offset:min(len(runes), c.Offset+n)])
}

// Deepest returns the innermost element under (x, y), following shadow
// roots until the nested hit-test stops yielding a different element.
func Deepest(doc dom.Root, x, y float64) dom.Node {
	el := doc.ElementFromPoint(x, y)
	for depth := 0; el != nil && depth < MaxShadowDepth; depth++ {
		sr := el.ShadowRoot()
		if sr == nil {
			break
		}
		inner := sr.ElementFromPoint(x, y)
		if inner == nil || inner == el {
			break
		}
		el = inner
	}
	return el
}

// Refine scans the text node of c from its start over CJK ideographs only and
// returns the offset of the first one whose non-empty box contains (x, y).
// Measurement errors skip the character.
func Refine(r dom.Ranger, n dom.Node, x, y float64) (int, bool) {
	if n == nil || n.Kind() != dom.TextNode {
		return 0, false
	}
	for i, ch := range []rune(n.Text()) {
		if !dict.IsCJK(ch) {
			continue
		}
		rect, err := r.RangeRect(n, i, i+1)
		if err != nil || rect.Empty() {
			continue
		}
		if rect.Contains(x, y) {
			return i, true
		}
	}
	return 0, false
}

// isBlank reports whether a text node holds only whitespace.
func isBlank(n dom.Node) bool {
	return strings.TrimSpace(n.Text()) == ""
}
