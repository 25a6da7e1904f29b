// Package popup is the hover popup: its state machine, placement and the
// view model handed to a [Surface] for drawing.
//
// The [Machine] is the only writer of the popup and of the highlight it
// mirrors into the document selection. It is driven by the engine's event
// loop and is not safe for concurrent use.
//
// States:
//
//	Idle ──match──▶ Showing ──relation link──▶ Sticky
//	  ▲               │  ▲                       │
//	  │               │  └──pointer enters popup─┘
//	  │               └──gloss with examples──▶ Expanded (Showing or Sticky, wider)
//	  └──leave / scroll / press / Escape / hide grace── any visible state
package popup

import (
	"time"

	"github.com/MrWong99/yuetip/internal/anchor"
	"github.com/MrWong99/yuetip/internal/highlight"
	"github.com/MrWong99/yuetip/pkg/dict"
	"github.com/MrWong99/yuetip/pkg/dom"
)

// DefaultHideGrace is how long the pointer may rest off a word before the
// popup hides.
const DefaultHideGrace = 200 * time.Millisecond

// ---- Kind ----

// Kind is the coarse state of the popup.
type Kind int

const (
	Idle Kind = iota
	Showing
	Sticky
	Expanded
)

// String returns the lower-case state name.
func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Showing:
		return "showing"
	case Sticky:
		return "sticky"
	case Expanded:
		return "expanded"
	default:
		return "unknown"
	}
}

// ---- State ----

// State is the full popup state. The zero value is Idle.
type State struct {
	Visible bool

	// Word and Entry are what the popup currently shows. After following a
	// relation link they differ from the word under the anchor.
	Word  string
	Entry *dict.Entry

	// Anchor is the box of the hovered word the popup is attached to.
	Anchor dom.Rect

	// Box is where the popup was last placed.
	Box dom.Rect

	Sticky bool

	// Active is the expanded gloss index, -1 when collapsed.
	Active int
}

// Kind maps the state onto the coarse state set.
func (s State) Kind() Kind {
	switch {
	case !s.Visible:
		return Idle
	case s.Active >= 0:
		return Expanded
	case s.Sticky:
		return Sticky
	default:
		return Showing
	}
}

// ---- options ----

// Option configures a Machine.
type Option func(*Machine)

// WithDimensions overrides the box size estimate.
func WithDimensions(d Dimensions) Option {
	return func(m *Machine) {
		m.dims = d
	}
}

// WithHideGrace overrides the hide delay.
func WithHideGrace(d time.Duration) Option {
	return func(m *Machine) {
		m.grace = d
	}
}

// WithDisplayMode sets the initial romanization.
func WithDisplayMode(mode DisplayMode) Option {
	return func(m *Machine) {
		m.mode = mode
	}
}

// WithHighlight lets the machine mirror shown words into the selection.
func WithHighlight(hl *highlight.Controller) Option {
	return func(m *Machine) {
		m.hl = hl
	}
}

// WithObserver is told about every change of [Kind].
func WithObserver(fn func(from, to Kind)) Option {
	return func(m *Machine) {
		m.observe = fn
	}
}

// ---- Machine ----

// Machine drives one popup.
type Machine struct {
	surface  Surface
	viewport func() dom.Size
	dims     Dimensions
	grace    time.Duration
	mode     DisplayMode
	hl       *highlight.Controller
	observe  func(from, to Kind)

	state  State
	hideAt time.Time
}

// New returns an idle Machine drawing on surface. viewport is consulted on
// every placement.
func New(surface Surface, viewport func() dom.Size, opts ...Option) *Machine {
	m := &Machine{
		surface:  surface,
		viewport: viewport,
		dims:     DefaultDimensions,
		grace:    DefaultHideGrace,
		mode:     Jyutping,
		state:    State{Active: -1},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns a copy of the current state.
func (m *Machine) State() State { return m.state }

// Show presents the match at a. Showing the word that is already visible only
// cancels a pending hide and leaves placement alone. It reports whether the
// popup content changed.
func (m *Machine) Show(a anchor.Anchor, e *dict.Entry) bool {
	m.hideAt = time.Time{}
	if m.state.Visible && m.state.Word == a.Word {
		return false
	}

	from := m.state.Kind()
	m.state = State{Visible: true, Word: a.Word, Entry: e, Anchor: a.Rect, Active: -1}
	if m.hl != nil {
		m.hl.Mark(a)
	}
	m.render()
	m.transition(from)
	return true
}

// Follow replaces the content with a related entry and makes the popup
// sticky. It does nothing while hidden.
func (m *Machine) Follow(word string, e *dict.Entry) bool {
	if !m.state.Visible || e == nil {
		return false
	}
	from := m.state.Kind()
	m.hideAt = time.Time{}
	m.state.Word, m.state.Entry = word, e
	m.state.Sticky = true
	m.state.Active = -1
	m.render()
	m.transition(from)
	return true
}

// Enter records the pointer entering the popup: any pending hide is cancelled
// and stickiness ends while the popup stays visible.
func (m *Machine) Enter() {
	m.hideAt = time.Time{}
	if !m.state.Visible || !m.state.Sticky {
		return
	}
	from := m.state.Kind()
	m.state.Sticky = false
	m.transition(from)
}

// Toggle expands gloss i, or collapses it when it is already active. Glosses
// without examples are ignored.
func (m *Machine) Toggle(i int) bool {
	if !m.state.Visible || m.state.Entry == nil || !m.state.Entry.HasExamples(i) {
		return false
	}
	from := m.state.Kind()
	if m.state.Active == i {
		m.state.Active = -1
	} else {
		m.state.Active = i
	}
	m.render()
	m.transition(from)
	return true
}

// SetDisplayMode switches romanization and redraws a visible popup in place.
func (m *Machine) SetDisplayMode(mode DisplayMode) {
	if m.mode == mode {
		return
	}
	m.mode = mode
	if m.state.Visible {
		m.surface.Render(m.view(), m.state.Box)
	}
}

// Mode returns the current romanization.
func (m *Machine) Mode() DisplayMode { return m.mode }

// SetDimensions changes the size estimate used by the next placement.
func (m *Machine) SetDimensions(d Dimensions) { m.dims = d }

// SetHideGrace changes the delay used by the next ScheduleHide.
func (m *Machine) SetHideGrace(d time.Duration) { m.grace = d }

// Hide returns to Idle. A highlight the machine installed is cleared unless
// keepSelection is set, which the engine uses while an editable element holds
// focus. A selection the machine never made is left alone. It reports whether
// the popup was visible.
func (m *Machine) Hide(keepSelection bool) bool {
	m.hideAt = time.Time{}
	if !keepSelection && m.hl != nil && m.hl.Active() {
		m.hl.Clear()
	}
	if !m.state.Visible {
		return false
	}
	from := m.state.Kind()
	m.state = State{Active: -1}
	m.surface.Hide()
	m.transition(from)
	return true
}

// ScheduleHide arms the hide deadline at now plus the grace period unless
// one is already pending or the popup is hidden.
func (m *Machine) ScheduleHide(now time.Time) {
	if !m.state.Visible || !m.hideAt.IsZero() {
		return
	}
	m.hideAt = now.Add(m.grace)
}

// CancelHide drops a pending hide.
func (m *Machine) CancelHide() { m.hideAt = time.Time{} }

// Deadline returns the pending hide time, if any.
func (m *Machine) Deadline() (time.Time, bool) {
	return m.hideAt, !m.hideAt.IsZero()
}

// Tick hides the popup when the hide deadline has passed. It reports whether
// it hid.
func (m *Machine) Tick(now time.Time) bool {
	if m.hideAt.IsZero() || now.Before(m.hideAt) {
		return false
	}
	return m.Hide(false)
}

// Contains reports whether (x, y) lies inside the visible popup.
func (m *Machine) Contains(x, y float64) bool {
	return m.state.Visible && m.state.Box.Contains(x, y)
}

// View returns the view of the current content.
func (m *Machine) View() View { return m.view() }

func (m *Machine) view() View {
	if m.state.Entry == nil {
		return View{}
	}
	v := NewView(m.state.Entry, m.mode, m.state.Active)
	v.Sticky = m.state.Sticky
	return v
}

// render recomputes placement for the current size and draws.
func (m *Machine) render() {
	size := m.dims.Size(m.state.Active >= 0)
	m.state.Box = Place(m.state.Anchor, size, m.viewport())
	m.surface.Render(m.view(), m.state.Box)
}

func (m *Machine) transition(from Kind) {
	if to := m.state.Kind(); to != from && m.observe != nil {
		m.observe(from, to)
	}
}
