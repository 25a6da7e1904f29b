// Package engine is the hover loop: it turns pointer events over a rendered
// document into dictionary popups, highlights and speech.
//
// For every forwarded pointer sample the engine checks the editable guard,
// resolves the character under the pointer, matches the longest lexicon word
// starting there and hands the result to the popup state machine. All
// hover state lives in one [State] value owned by the engine.
//
// [Engine.Run] is the single event loop. The direct methods (HandleMove,
// Tick and friends) exist for hosts that already run their own loop and for
// tests; they are not safe for concurrent use with Run.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrWong99/yuetip/internal/anchor"
	"github.com/MrWong99/yuetip/internal/config"
	"github.com/MrWong99/yuetip/internal/guard"
	"github.com/MrWong99/yuetip/internal/highlight"
	"github.com/MrWong99/yuetip/internal/observe"
	"github.com/MrWong99/yuetip/internal/pointer"
	"github.com/MrWong99/yuetip/internal/popup"
	"github.com/MrWong99/yuetip/internal/speech"
	"github.com/MrWong99/yuetip/pkg/dict"
	"github.com/MrWong99/yuetip/pkg/dom"
)

// ErrStopped is returned by [Engine.Send] once Run has returned.
var ErrStopped = errors.New("engine: stopped")

// Speaker plays a word. [speech.Dispatcher] implements it.
type Speaker interface {
	Speak(ctx context.Context, text string, s speech.Settings) (speech.Result, error)
}

// State is everything one hover session knows. It is owned by the engine and
// only changed from its loop.
type State struct {
	// Settings is the current configuration snapshot.
	Settings *config.Config

	// Anchor is the word under the pointer that the popup was last shown
	// for. It is valid only while HasAnchor is set.
	Anchor    anchor.Anchor
	HasAnchor bool
}

// ---- options ----

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source for sampling and hide timing.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSpeaker enables speech.
func WithSpeaker(s Speaker) Option {
	return func(e *Engine) {
		e.speaker = s
	}
}

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithStrategies replaces the anchor resolution strategies.
func WithStrategies(s ...anchor.Strategy) Option {
	return func(e *Engine) {
		e.strategies = s
	}
}

// ---- Engine ----

// Engine drives the popup for one document.
type Engine struct {
	doc     dom.Document
	lex     dict.Lookuper
	surface popup.Surface
	clock   clockwork.Clock
	speaker Speaker
	metrics *observe.Metrics

	strategies []anchor.Strategy
	resolver   *anchor.Resolver
	sampler    *pointer.Sampler
	hl         *highlight.Controller
	popup      *popup.Machine

	state State

	ctx    context.Context
	events chan Event
	posts  chan func()
	done   chan struct{}
}

// New returns an engine for doc looking words up in lex and drawing on
// surface. cfg may be nil for the defaults.
func New(doc dom.Document, lex dict.Lookuper, surface popup.Surface, cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		doc:        doc,
		lex:        lex,
		surface:    surface,
		clock:      clockwork.NewRealClock(),
		strategies: anchor.DefaultStrategies,
		ctx:        context.Background(),
		events:     make(chan Event, 64),
		posts:      make(chan func(), 16),
		done:       make(chan struct{}),
		state:      State{Settings: cfg},
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}

	e.resolver = anchor.NewResolver(doc,
		anchor.WithStrategies(e.strategies...),
		anchor.WithObserver(func(strategy string) {
			e.metrics.RecordResolution(e.ctx, strategy)
		}),
	)
	e.hl = highlight.New(doc.Selection())
	e.popup = popup.New(surface, doc.Viewport,
		popup.WithDimensions(cfg.Popup.Dimensions()),
		popup.WithHideGrace(cfg.Hover.HideGrace),
		popup.WithDisplayMode(cfg.DisplayMode),
		popup.WithHighlight(e.hl),
		popup.WithObserver(func(from, to popup.Kind) {
			slog.Debug("engine: popup transition", "from", from, "to", to)
			e.metrics.RecordTransition(e.ctx, from.String(), to.String())
		}),
	)
	e.sampler = e.newSampler(cfg.Hover)
	return e
}

func (e *Engine) newSampler(h config.HoverConfig) *pointer.Sampler {
	opts := append(timings(h),
		pointer.WithClock(e.clock),
		pointer.WithSuppressed(func() bool { return e.popup.State().Sticky }),
	)
	return pointer.New(opts...)
}

func timings(h config.HoverConfig) []pointer.Option {
	return []pointer.Option{
		pointer.WithThrottle(h.Throttle),
		pointer.WithMinDelta(h.MinDelta),
		pointer.WithSelectionGrace(h.SelectionGrace),
	}
}

// State returns a copy of the engine state.
func (e *Engine) State() State { return e.state }

// Popup returns the popup state.
func (e *Engine) Popup() popup.State { return e.popup.State() }

// View returns what the popup currently shows.
func (e *Engine) View() popup.View { return e.popup.View() }

// ---- pointer ----

// HandleMove processes a pointer movement to (x, y).
func (e *Engine) HandleMove(x, y float64) {
	if !e.admit(x, y) {
		return
	}
	if !e.sampler.Offer(pointer.Point{X: x, Y: y}) {
		return
	}
	e.lookup(x, y)
}

// admit runs the checks every pointer position goes through before sampling.
// It reports whether (x, y) may be looked up.
func (e *Engine) admit(x, y float64) bool {
	if !e.state.Settings.Enabled {
		return false
	}
	target := anchor.Deepest(e.doc, x, y)
	if guard.IsBlocked(target, e.doc.ActiveElement()) {
		e.sampler.Discard()
		e.hide()
		return false
	}
	if e.popup.Contains(x, y) {
		e.sampler.Discard()
		e.popup.Enter()
		return false
	}
	return true
}

// lookup resolves the character at (x, y) and shows or schedules hiding the
// popup.
func (e *Engine) lookup(x, y float64) {
	caret, ok := e.resolver.Resolve(x, y)
	if !ok {
		e.miss()
		return
	}
	if e.withinAnchor(caret) {
		e.popup.CancelHide()
		return
	}

	res, ok := dict.Match(e.lex, anchor.Tail(caret, dict.MaxLookahead))
	e.metrics.RecordLookup(e.ctx, ok)
	if !ok {
		e.miss()
		return
	}
	a := anchor.New(e.doc, caret, res.Word, res.Length)
	e.state.Anchor, e.state.HasAnchor = a, true
	e.popup.Show(a, res.Entry)
}

// withinAnchor reports whether c falls inside the anchored word while the
// popup still shows that word. After following a relation it shows another.
func (e *Engine) withinAnchor(c dom.Caret) bool {
	st := e.popup.State()
	if !e.state.HasAnchor || !st.Visible || st.Word != e.state.Anchor.Word {
		return false
	}
	a := e.state.Anchor
	return c.Node == a.Node && c.Offset >= a.Offset && c.Offset < a.Offset+a.Length
}

func (e *Engine) miss() {
	e.popup.ScheduleHide(e.clock.Now())
}

// HandlePress starts a selection unless the press landed inside the popup.
func (e *Engine) HandlePress(x, y float64) {
	if e.popup.Contains(x, y) {
		return
	}
	e.sampler.Press()
	e.hide()
}

// HandleRelease ends a selection.
func (e *Engine) HandleRelease() {
	e.sampler.Release()
}

// HandleEscape hides the popup.
func (e *Engine) HandleEscape() { e.hide() }

// HandleScroll hides the popup.
func (e *Engine) HandleScroll() { e.hide() }

// HandleLeave hides the popup when the pointer leaves the document.
func (e *Engine) HandleLeave() {
	e.sampler.Discard()
	e.hide()
}

// hide returns the popup to Idle. The selection belongs to the focused editor
// while one has focus, so the highlight is only cleared otherwise.
func (e *Engine) hide() {
	e.popup.Hide(guard.IsEditable(e.doc.ActiveElement()))
	e.state.HasAnchor = false
}

// ---- popup actions ----

// HandleAction processes a click inside the popup. Clicks never dismiss.
func (e *Engine) HandleAction(a Action) {
	switch a.Kind {
	case FollowLink:
		entry, ok := e.lex.Lookup(a.Word)
		if !ok {
			slog.Debug("engine: relation target not in lexicon", "word", a.Word)
			return
		}
		e.popup.Follow(a.Word, entry)
	case ToggleGloss:
		e.popup.Toggle(a.Gloss)
	case SpeakHeadword, SpeakPronunciation:
		e.speakCurrent()
	}
}

func (e *Engine) speakCurrent() {
	s := e.state.Settings.Speech
	entry := e.popup.State().Entry
	if e.speaker == nil || !s.Enabled || entry == nil || !entry.Speakable() {
		return
	}
	text := entry.Headword()
	settings := speech.Settings{Engine: s.Engine, Rate: s.Rate}
	speaker, ctx := e.speaker, e.ctx
	go func() {
		res, err := speaker.Speak(ctx, text, settings)
		if err != nil {
			slog.Warn("engine: speech failed", "text", text, "engine", settings.Engine, "err", err)
			return
		}
		slog.Debug("engine: spoke", "text", text, "result", res)
	}()
}

// ---- timing ----

// NextDeadline returns when [Engine.Tick] next has work to do: a pointer
// sample held back by the throttle or the end of the hide grace.
func (e *Engine) NextDeadline() (time.Time, bool) {
	hideAt, hiding := e.popup.Deadline()
	due, trailing := e.sampler.Due()
	switch {
	case hiding && trailing:
		if due.Before(hideAt) {
			return due, true
		}
		return hideAt, true
	case trailing:
		return due, true
	default:
		return hideAt, hiding
	}
}

// Tick looks up the position the pointer came to rest on once its throttle
// window has passed, and hides the popup once the hide grace has run out.
func (e *Engine) Tick(now time.Time) {
	if p, ok := e.sampler.Flush(); ok && e.admit(p.X, p.Y) {
		e.lookup(p.X, p.Y)
	}
	at, ok := e.popup.Deadline()
	if !ok || now.Before(at) {
		return
	}
	e.hide()
}

// ---- settings ----

// ApplySettings switches to a new configuration snapshot.
func (e *Engine) ApplySettings(cfg *config.Config) {
	if cfg == nil {
		return
	}
	d := config.Diff(e.state.Settings, cfg)
	e.state.Settings = cfg

	if d.EnabledChanged && !cfg.Enabled {
		e.sampler.Discard()
		e.hide()
	}
	if d.DisplayModeChanged {
		e.popup.SetDisplayMode(cfg.DisplayMode)
	}
	if d.PopupChanged {
		e.popup.SetDimensions(cfg.Popup.Dimensions())
	}
	if d.HoverChanged {
		e.popup.SetHideGrace(cfg.Hover.HideGrace)
		e.sampler.Configure(timings(cfg.Hover)...)
	}
}

// SetSpeaker replaces the speaker, for example after the speech settings
// changed. nil disables speech.
func (e *Engine) SetSpeaker(s Speaker) { e.speaker = s }

// ---- loop ----

// Send queues ev for the loop. It fails once Run has returned.
func (e *Engine) Send(ctx context.Context, ev Event) error {
	select {
	case e.events <- ev:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post runs fn on the loop. It fails once Run has returned.
func (e *Engine) Post(ctx context.Context, fn func()) error {
	select {
	case e.posts <- fn:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is done. Call it once.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	defer close(e.done)

	var timer clockwork.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var fire <-chan time.Time
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		if at, ok := e.NextDeadline(); ok {
			timer = e.clock.NewTimer(at.Sub(e.clock.Now()))
			fire = timer.Chan()
		}

		select {
		case <-ctx.Done():
			return nil
		case ev := <-e.events:
			e.guarded(func() { e.dispatch(ev) })
		case fn := <-e.posts:
			e.guarded(fn)
		case now := <-fire:
			e.guarded(func() { e.Tick(now) })
		}
	}
}

func (e *Engine) dispatch(ev Event) {
	switch ev.Kind {
	case Move:
		e.HandleMove(ev.X, ev.Y)
	case Press:
		e.HandlePress(ev.X, ev.Y)
	case Release:
		e.HandleRelease()
	case Escape:
		e.HandleEscape()
	case Scroll:
		e.HandleScroll()
	case Leave:
		e.HandleLeave()
	case PopupAction:
		e.HandleAction(ev.Action)
	}
}

// guarded runs fn and logs a panic instead of ending the loop.
func (e *Engine) guarded(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("engine: recovered from panic", "panic", r)
		}
	}()
	fn()
}
