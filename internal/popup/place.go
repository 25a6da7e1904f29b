package popup

import "github.com/MrWong99/yuetip/pkg/dom"

// Layout constants used by [Place].
const (
	// DefaultMargin keeps the popup this far from every viewport edge when
	// there is room.
	DefaultMargin = 5.0

	// DefaultGap separates the popup from the anchor it describes.
	DefaultGap = 5.0
)

// Place positions a box of the given size next to anchor inside viewport.
//
// The box goes below and to the right of the anchor. It is shifted left just
// enough to fit the right edge without crossing the left edge, flipped above
// the anchor when it would overflow the bottom, and pinned to the top when
// neither fits. The result is fully contained whenever the viewport is at
// least as large as the box.
func Place(anchor dom.Rect, size dom.Size, viewport dom.Size) dom.Rect {
	return place(anchor, size, viewport, DefaultMargin, DefaultGap)
}

func place(anchor dom.Rect, size, vp dom.Size, margin, gap float64) dom.Rect {
	w, h := size.W, size.H

	left := anchor.Left
	if left+w > vp.W-margin {
		left = vp.W - margin - w
	}
	if left < margin {
		left = margin
		if left+w > vp.W {
			left = max(0, vp.W-w)
		}
	}

	top := max(anchor.Bottom+gap, margin)
	if top+h > vp.H-margin {
		switch above := anchor.Top - gap - h; {
		case above >= margin && above+h <= vp.H-margin:
			top = above
		case margin+h <= vp.H:
			top = margin
		default:
			top = 0
		}
	}

	return dom.Rect{Left: left, Top: top, Right: left + w, Bottom: top + h}
}
