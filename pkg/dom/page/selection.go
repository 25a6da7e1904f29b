package page

import (
	"fmt"

	"github.com/MrWong99/yuetip/pkg/dom"
)

// selection is the page's single-range selection.
type selection struct {
	page *Page

	node       *node
	start, end int
}

// Select implements [dom.Selection].
func (s *selection) Select(n dom.Node, start, end int) error {
	t, err := s.page.textNode(n)
	if err != nil {
		return err
	}
	if start < 0 || end > len(t.glyphs) || start > end {
		return fmt.Errorf("page: select [%d,%d) out of bounds for length %d", start, end, len(t.glyphs))
	}
	s.page.mu.Lock()
	defer s.page.mu.Unlock()
	s.node, s.start, s.end = t, start, end
	return nil
}

// Clear implements [dom.Selection].
func (s *selection) Clear() {
	s.page.mu.Lock()
	defer s.page.mu.Unlock()
	s.node = nil
	s.start, s.end = 0, 0
}

// Range returns the selected range, if any.
func (s *selection) Range() (dom.Node, int, int, bool) {
	s.page.mu.Lock()
	defer s.page.mu.Unlock()
	if s.node == nil {
		return nil, 0, 0, false
	}
	return s.node, s.start, s.end, true
}
