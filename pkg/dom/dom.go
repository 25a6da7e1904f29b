// Package dom defines the document capabilities the hover engine needs from a
// rendered document: hit-testing, caret lookup, range measurement, focus and
// the native selection.
//
// The interfaces are deliberately small. A host adapts its own document model
// (a browser bridge, a terminal renderer, or the in-memory [page] package used
// by the CLI and tests) by implementing [Document]. Optional capabilities such
// as [CaretLocator] are discovered with type assertions, mirroring how some
// platforms expose a point-to-caret primitive and others do not.
//
// Text offsets are rune offsets into [Node.Text].
package dom

// NodeKind distinguishes element nodes from text nodes.
type NodeKind int

const (
	// ElementNode is a tagged element.
	ElementNode NodeKind = iota

	// TextNode is a run of character data.
	TextNode
)

// String returns the human-readable name of the kind.
func (k NodeKind) String() string {
	switch k {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	default:
		return "unknown"
	}
}

// Node is a single node of a document or shadow tree.
type Node interface {
	// Kind reports whether this is an element or a text node.
	Kind() NodeKind

	// Tag returns the lower-case tag name of an element, or "" for text nodes.
	Tag() string

	// Attr returns the value of the named attribute and whether it is present.
	Attr(name string) (string, bool)

	// Text returns the character data of a text node, or "" for elements.
	Text() string

	// Parent returns the parent node inside the same tree. It returns nil for
	// the top-level nodes of a tree; use [Node.Root] and [Root.Host] to step
	// out of a shadow tree.
	Parent() Node

	// Children returns the child nodes in document order.
	Children() []Node

	// Root returns the tree (document or shadow root) the node belongs to.
	Root() Root

	// ShadowRoot returns the encapsulated subtree hosted by this element, or
	// nil when the element hosts none.
	ShadowRoot() Root
}

// Root is a hit-testable tree: the document itself or a shadow root.
type Root interface {
	// ElementFromPoint returns the topmost element of this tree under (x, y),
	// or nil. Like its browser counterpart it does not look into nested
	// shadow trees; it returns their host instead.
	ElementFromPoint(x, y float64) Node

	// Host returns the element hosting this tree, or nil for the document.
	Host() Node

	// Nodes returns the top-level nodes of the tree.
	Nodes() []Node
}

// Caret is a position inside a text node.
type Caret struct {
	Node   Node
	Offset int
}

// CaretLocator is the optional point-to-caret primitive. Roots that cannot
// provide it simply do not implement it.
type CaretLocator interface {
	// CaretFromPoint returns the caret nearest to (x, y). The result may point
	// into an element rather than a text node and may be the nearest rather
	// than the covered character.
	CaretFromPoint(x, y float64) (Caret, bool)
}

// Ranger measures the rendered box of a character range.
type Ranger interface {
	// RangeRect returns the bounding box of runes [start, end) of the text
	// node n. It returns an error when the offsets are out of range.
	RangeRect(n Node, start, end int) (Rect, error)
}

// Selection is the document's native, single-range selection.
type Selection interface {
	// Select replaces any existing ranges with runes [start, end) of n.
	Select(n Node, start, end int) error

	// Clear removes every range.
	Clear()
}

// Document is everything the hover engine needs from a rendered document.
type Document interface {
	Root
	Ranger

	// ActiveElement returns the element holding focus, or nil.
	ActiveElement() Node

	// Selection returns the document's native selection.
	Selection() Selection

	// Viewport returns the visible area size.
	Viewport() Size
}
