package engine

// EventKind identifies a host input event.
type EventKind int

const (
	// Move is a pointer movement to (X, Y).
	Move EventKind = iota
	// Press is a primary button press at (X, Y).
	Press
	// Release ends a press.
	Release
	// Escape is the Escape key.
	Escape
	// Scroll is any document scroll.
	Scroll
	// Leave is the pointer leaving the document viewport.
	Leave
	// PopupAction is a click on an interactive part of the popup.
	PopupAction
)

// String returns the lower-case event name.
func (k EventKind) String() string {
	switch k {
	case Move:
		return "move"
	case Press:
		return "press"
	case Release:
		return "release"
	case Escape:
		return "escape"
	case Scroll:
		return "scroll"
	case Leave:
		return "leave"
	case PopupAction:
		return "popup-action"
	default:
		return "unknown"
	}
}

// Event is one input event delivered to [Engine.Send].
type Event struct {
	Kind EventKind
	X, Y float64

	// Action is set for [PopupAction].
	Action Action
}

// ActionKind identifies what was clicked inside the popup.
type ActionKind int

const (
	// FollowLink is a relation link; Action.Word names the target.
	FollowLink ActionKind = iota
	// ToggleGloss is a gloss line; Action.Gloss is its index.
	ToggleGloss
	// SpeakHeadword is the headword.
	SpeakHeadword
	// SpeakPronunciation is the romanization line.
	SpeakPronunciation
)

// Action is a click inside the popup.
type Action struct {
	Kind  ActionKind
	Word  string
	Gloss int
}
