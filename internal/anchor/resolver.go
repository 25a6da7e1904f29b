package anchor

import (
	"github.com/MrWong99/yuetip/pkg/dom"
)

// Strategy produces a candidate caret for a point. deepest is the result of
// [Deepest] and may be nil.
type Strategy struct {
	Name   string
	Locate func(doc dom.Document, deepest dom.Node, x, y float64) (dom.Caret, bool)
}

// DocumentCaret asks the document's own point-to-caret primitive, when it has
// one. Carets that do not land in a text node are rejected.
var DocumentCaret = Strategy{
	Name: "document",
	Locate: func(doc dom.Document, _ dom.Node, x, y float64) (dom.Caret, bool) {
		cl, ok := doc.(dom.CaretLocator)
		if !ok {
			return dom.Caret{}, false
		}
		return textCaret(cl.CaretFromPoint(x, y))
	},
}

// ScopedCaret asks the shadow root owning the deepest element, when that root
// offers a point-to-caret primitive.
var ScopedCaret = Strategy{
	Name: "scoped",
	Locate: func(_ dom.Document, deepest dom.Node, x, y float64) (dom.Caret, bool) {
		if deepest == nil {
			return dom.Caret{}, false
		}
		root := deepest.Root()
		if root == nil || root.Host() == nil {
			return dom.Caret{}, false
		}
		cl, ok := root.(dom.CaretLocator)
		if !ok {
			return dom.Caret{}, false
		}
		return textCaret(cl.CaretFromPoint(x, y))
	},
}

// ScanTextNodes measures every character of every non-blank text node under
// the deepest element and returns the first whose box contains the point.
// When the deepest element is a shadow host whose tree yielded no element
// (bare text at the top of the shadow tree), that tree is scanned first.
var ScanTextNodes = Strategy{
	Name: "scan",
	Locate: func(doc dom.Document, deepest dom.Node, x, y float64) (dom.Caret, bool) {
		if deepest == nil {
			return dom.Caret{}, false
		}
		var (
			hit   dom.Caret
			found bool
		)
		visit := func(n dom.Node) bool {
			if isBlank(n) {
				return true
			}
			for i := range len([]rune(n.Text())) {
				rect, err := doc.RangeRect(n, i, i+1)
				if err != nil || rect.Empty() {
					continue
				}
				if rect.Contains(x, y) {
					hit, found = dom.Caret{Node: n, Offset: i}, true
					return false
				}
			}
			return true
		}
		roots := []dom.Node{deepest}
		if sr := deepest.ShadowRoot(); sr != nil {
			roots = append(sr.Nodes(), deepest)
		}
		for _, n := range roots {
			if !walkText(n, visit) {
				break
			}
		}
		return hit, found
	},
}

// DefaultStrategies is the order used by [NewResolver].
var DefaultStrategies = []Strategy{DocumentCaret, ScopedCaret, ScanTextNodes}

// ---- Resolver ----

// Option configures a Resolver.
type Option func(*Resolver)

// WithStrategies replaces the strategy list.
func WithStrategies(s ...Strategy) Option {
	return func(r *Resolver) {
		r.strategies = s
	}
}

// WithObserver installs a callback told which strategy produced each
// resolution; strategy is "" when nothing resolved.
func WithObserver(fn func(strategy string)) Option {
	return func(r *Resolver) {
		r.observe = fn
	}
}

// Resolver maps points of one document to characters.
type Resolver struct {
	doc        dom.Document
	strategies []Strategy
	observe    func(string)
}

// NewResolver returns a Resolver over doc using [DefaultStrategies].
func NewResolver(doc dom.Document, opts ...Option) *Resolver {
	r := &Resolver{doc: doc, strategies: DefaultStrategies}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the caret of the CJK ideograph under (x, y).
func (r *Resolver) Resolve(x, y float64) (dom.Caret, bool) {
	deepest := Deepest(r.doc, x, y)
	for _, s := range r.strategies {
		c, ok := s.Locate(r.doc, deepest, x, y)
		if !ok {
			continue
		}
		off, ok := Refine(r.doc, c.Node, x, y)
		if !ok {
			continue
		}
		r.report(s.Name)
		return dom.Caret{Node: c.Node, Offset: off}, true
	}
	r.report("")
	return dom.Caret{}, false
}

func (r *Resolver) report(name string) {
	if r.observe != nil {
		r.observe(name)
	}
}

func textCaret(c dom.Caret, ok bool) (dom.Caret, bool) {
	if !ok || c.Node == nil || c.Node.Kind() != dom.TextNode {
		return dom.Caret{}, false
	}
	return c, true
}

// walkText visits the text nodes under n in document order, without entering
// shadow trees, until fn returns false.
func walkText(n dom.Node, fn func(dom.Node) bool) bool {
	if n.Kind() == dom.TextNode {
		return fn(n)
	}
	for _, c := range n.Children() {
		if !walkText(c, fn) {
			return false
		}
	}
	return true
}
