// Package highlight mirrors the current anchor into the document's native
// selection so the matched word is visibly marked.
//
// Highlighting is cosmetic: a failure to build the range is logged and
// swallowed, and the popup still shows.
package highlight

import (
	"log/slog"

	"github.com/MrWong99/yuetip/internal/anchor"
	"github.com/MrWong99/yuetip/pkg/dom"
)

// Controller owns the document selection on behalf of the hover engine.
// It is not safe for concurrent use; the engine calls it from its loop.
type Controller struct {
	sel    dom.Selection
	active bool
}

// New returns a Controller writing to sel.
func New(sel dom.Selection) *Controller {
	return &Controller{sel: sel}
}

// Mark replaces the selection with the anchor's matched characters, clamped
// to the end of the text node. It reports whether the range was installed.
func (c *Controller) Mark(a anchor.Anchor) bool {
	if a.Node == nil {
		return false
	}
	end := min(a.Offset+a.Length, len([]rune(a.Node.Text())))
	c.sel.Clear()
	if err := c.sel.Select(a.Node, a.Offset, end); err != nil {
		slog.Debug("highlight: selection failed", "word", a.Word, "offset", a.Offset, "err", err)
		c.active = false
		return false
	}
	c.active = true
	return true
}

// Clear removes every selection range.
func (c *Controller) Clear() {
	c.sel.Clear()
	c.active = false
}

// Active reports whether a mark installed by Mark is in place.
func (c *Controller) Active() bool { return c.active }
