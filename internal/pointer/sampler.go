// Package pointer thins out raw pointer movement before it reaches the
// expensive per-character hit-testing.
//
// A [Sampler] forwards at most one sample per throttle window and drops
// samples that moved less than a minimum distance on both axes. Nothing is
// forwarded while the user is selecting text (from press until a grace period
// after release) or while an external predicate suppresses hovering.
//
// The most recent sample held back by the throttle is kept as the trailing
// sample; [Sampler.Flush] hands it out once the window has passed, so the
// position the pointer came to rest on is always resolved.
package pointer

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults taken over by [New] when no option overrides them.
const (
	DefaultThrottle       = 50 * time.Millisecond
	DefaultMinDelta       = 5.0
	DefaultSelectionGrace = 300 * time.Millisecond
)

// Point is a pointer position in viewport pixels.
type Point struct {
	X, Y float64
}

// ---- options ----

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock sets the time source. Defaults to the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Sampler) {
		s.clock = c
	}
}

// WithThrottle sets the minimum time between two forwarded samples.
func WithThrottle(d time.Duration) Option {
	return func(s *Sampler) {
		s.throttle = d
	}
}

// WithMinDelta sets the movement below which (on both axes) a sample is
// dropped.
func WithMinDelta(px float64) Option {
	return func(s *Sampler) {
		s.minDelta = px
	}
}

// WithSelectionGrace sets how long after a release samples stay suppressed.
func WithSelectionGrace(d time.Duration) Option {
	return func(s *Sampler) {
		s.grace = d
	}
}

// WithSuppressed installs a predicate that drops every sample while it
// returns true. The engine uses it while the popup is sticky.
func WithSuppressed(fn func() bool) Option {
	return func(s *Sampler) {
		s.suppressed = fn
	}
}

// ---- Sampler ----

// Sampler is safe for concurrent use.
type Sampler struct {
	clock      clockwork.Clock
	throttle   time.Duration
	minDelta   float64
	grace      time.Duration
	suppressed func() bool

	mu        sync.Mutex
	last      Point
	lastAt    time.Time
	forwarded bool
	pressed   bool
	releaseAt time.Time

	trailing    Point
	hasTrailing bool
}

// New returns a Sampler with the default timings.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		clock:    clockwork.NewRealClock(),
		throttle: DefaultThrottle,
		minDelta: DefaultMinDelta,
		grace:    DefaultSelectionGrace,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Configure applies timing options to a running Sampler without losing a
// selection in progress or the last forwarded sample.
func (s *Sampler) Configure(opts ...Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range opts {
		o(s)
	}
}

// Offer reports whether p should be forwarded to the resolver. A forwarded
// sample becomes the reference for the next distance check and opens a new
// throttle window.
func (s *Sampler) Offer(p Point) bool {
	suppressed := s.suppressed != nil && s.suppressed()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if suppressed || s.selectingLocked(now) {
		s.hasTrailing = false
		return false
	}
	if s.forwarded {
		near := math.Abs(p.X-s.last.X) < s.minDelta && math.Abs(p.Y-s.last.Y) < s.minDelta
		if now.Sub(s.lastAt) < s.throttle {
			s.trailing, s.hasTrailing = p, !near
			return false
		}
		if near {
			s.hasTrailing = false
			return false
		}
	}

	s.forwardLocked(p, now)
	return true
}

// Due returns when a held-back trailing sample may be flushed.
func (s *Sampler) Due() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasTrailing {
		return time.Time{}, false
	}
	return s.lastAt.Add(s.throttle), true
}

// Flush returns the trailing sample once its throttle window has passed and
// forwards it as if it had just been offered.
func (s *Sampler) Flush() (Point, bool) {
	suppressed := s.suppressed != nil && s.suppressed()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasTrailing {
		return Point{}, false
	}
	now := s.clock.Now()
	if suppressed || s.selectingLocked(now) {
		s.hasTrailing = false
		return Point{}, false
	}
	if now.Sub(s.lastAt) < s.throttle {
		return Point{}, false
	}
	p := s.trailing
	s.forwardLocked(p, now)
	return p, true
}

// Discard drops the trailing sample, for example when the pointer moved
// somewhere the engine does not sample.
func (s *Sampler) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasTrailing = false
}

func (s *Sampler) forwardLocked(p Point, now time.Time) {
	s.last, s.lastAt, s.forwarded = p, now, true
	s.hasTrailing = false
}

// Press marks the start of a text selection.
func (s *Sampler) Press() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed = true
	s.hasTrailing = false
}

// Release ends the selection; sampling resumes after the grace period.
func (s *Sampler) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed = false
	s.releaseAt = s.clock.Now()
}

// Selecting reports whether a selection is in progress or still within its
// grace period.
func (s *Sampler) Selecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectingLocked(s.clock.Now())
}

// Reset forgets the last forwarded sample so the next one passes the
// distance and throttle checks.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwarded = false
	s.hasTrailing = false
}

func (s *Sampler) selectingLocked(now time.Time) bool {
	if s.pressed {
		return true
	}
	return !s.releaseAt.IsZero() && now.Sub(s.releaseAt) < s.grace
}
