package popup

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/MrWong99/yuetip/pkg/dom"
)

// Surface draws the popup. Implementations must not block.
type Surface interface {
	// Render shows v inside box, replacing any previous content.
	Render(v View, box dom.Rect)

	// Hide removes the popup.
	Hide()
}

// NopSurface discards everything.
type NopSurface struct{}

func (NopSurface) Render(View, dom.Rect) {}
func (NopSurface) Hide() {}

// TextSurface prints every render as plain text. It is used by the
// command-line hover tool.
type TextSurface struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSurface returns a TextSurface writing to w.
func NewTextSurface(w io.Writer) *TextSurface {
	return &TextSurface{w: w}
}

// Render implements [Surface].
func (s *TextSurface) Render(v View, box dom.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, Format(v, box))
}

// Hide implements [Surface].
func (s *TextSurface) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, "(hidden)\n")
}

// Format renders v as indented plain text.
func Format(v View, box dom.Rect) string {
	var b strings.Builder
	fmt.Fprintf(&b, "┌ %s", v.Headword)
	if v.Alternate != "" {
		fmt.Fprintf(&b, " (%s)", v.Alternate)
	}
	if v.Sticky {
		b.WriteString(" [sticky]")
	}
	fmt.Fprintf(&b, "  @%.0f,%.0f %.0fx%.0f\n", box.Left, box.Top, box.Width(), box.Height())
	if v.Pronunciation != "" {
		fmt.Fprintf(&b, "│ %s: %s\n", v.PronunciationLabel, v.Pronunciation)
	}
	for _, g := range v.Glosses {
		marker := " "
		if g.Cantonese {
			marker = "粵"
		}
		suffix := ""
		if g.HasExamples {
			suffix = " ▸"
			if g.Active {
				suffix = " ▾"
			}
		}
		fmt.Fprintf(&b, "│ %d.%s %s%s\n", g.Index+1, marker, g.Text, suffix)
	}
	for _, r := range v.Relations {
		fmt.Fprintf(&b, "│ %s: %s\n", r.Label, strings.Join(r.Words, "、"))
	}
	for _, ex := range v.Examples {
		fmt.Fprintf(&b, "│   %s\n│   %s\n", ex.Yue, ex.Eng)
	}
	b.WriteString("└\n")
	return b.String()
}
