// Package guard decides whether the hover engine must stay out of the way
// because the user is working inside an editable field.
package guard

import (
	"strings"

	"github.com/MrWong99/yuetip/pkg/dom"
)

// IsBlocked reports whether either the element under the pointer or the
// focused element is editable. Either may be nil.
func IsBlocked(target, focus dom.Node) bool {
	return IsEditable(target) || IsEditable(focus)
}

// IsEditable reports whether n is an input, a textarea, or sits inside
// editable content. The ancestor walk crosses shadow boundaries through the
// host element. An explicit contenteditable="false" ends the walk.
func IsEditable(n dom.Node) bool {
	for n != nil {
		if n.Kind() == dom.ElementNode {
			switch n.Tag() {
			case "input", "textarea":
				return true
			}
			if v, ok := n.Attr("contenteditable"); ok {
				return !strings.EqualFold(strings.TrimSpace(v), "false")
			}
		}
		n = up(n)
	}
	return false
}

// up returns the parent of n, stepping from the top of a shadow tree to its
// host.
func up(n dom.Node) dom.Node {
	if p := n.Parent(); p != nil {
		return p
	}
	if r := n.Root(); r != nil {
		return r.Host()
	}
	return nil
}
