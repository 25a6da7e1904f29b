// Package speech turns "say this word" requests into played audio.
//
// The [Dispatcher] checks a small insertion-ordered cache first, then calls the
// back end for the requested engine behind a rate limiter. Identical requests
// that overlap share one back-end call. When the configured engine fails and a
// local synthesizer is available, the request is retried through it.
//
// Speech never blocks hover handling: callers run Speak in their own
// goroutine and only log its error.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/MrWong99/yuetip/internal/observe"
	"github.com/MrWong99/yuetip/internal/resilience"
	provider "github.com/MrWong99/yuetip/pkg/provider/speech"
)

// ErrNoBackend is returned when no back end is configured for the requested
// engine.
var ErrNoBackend = errors.New("speech: no back end for engine")

// Settings are the per-request speech options taken from the current config
// snapshot.
type Settings struct {
	Engine provider.Engine
	Rate   float64
}

// Result says how one Speak call was served.
type Result int

const (
	// Cached means the payload came from the cache.
	Cached Result = iota
	// Dispatched means a back end was called and its result cached.
	Dispatched
	// Stale means a back end was called but a newer request superseded it;
	// the audio was played but not cached.
	Stale
	// Shared means the call joined an identical in-flight request.
	Shared
	// Spoken means the back end played the audio itself.
	Spoken
)

// String returns the lower-case result name.
func (r Result) String() string {
	switch r {
	case Cached:
		return "hit"
	case Dispatched:
		return "miss"
	case Stale:
		return "stale"
	case Shared:
		return "shared"
	case Spoken:
		return "spoken"
	default:
		return "unknown"
	}
}

// ---- options ----

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPlayer sets where finished audio goes. Default: [Discard].
func WithPlayer(p Player) Option {
	return func(d *Dispatcher) {
		if p != nil {
			d.player = p
		}
	}
}

// WithLocalFallback retries failed network engines through local.
func WithLocalFallback(local provider.Provider) Option {
	return func(d *Dispatcher) {
		d.local = local
	}
}

// WithRateLimit limits back-end calls to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(d *Dispatcher) {
		if rps <= 0 {
			d.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout bounds one back-end call including fallback. Default: 30s.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithCacheSize sets the cache capacity. Default: [DefaultCacheSize].
func WithCacheSize(n int) Option {
	return func(d *Dispatcher) {
		d.cacheSize = n
	}
}

// WithCache shares an existing cache, for example across a settings reload.
func WithCache(c *Cache) Option {
	return func(d *Dispatcher) {
		d.cache = c
	}
}

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithClock replaces the clock used for latency and breaker timing.
func WithClock(c clockwork.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// WithBreaker overrides the circuit breaker template used per engine.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(d *Dispatcher) {
		d.breaker = cfg
	}
}

// ---- Dispatcher ----

// Dispatcher caches, deduplicates and plays speech. It is safe for concurrent
// use.
type Dispatcher struct {
	backends map[provider.Engine]provider.Provider
	local    provider.Provider
	player   Player
	limiter  *rate.Limiter
	timeout  time.Duration
	metrics  *observe.Metrics
	clock    clockwork.Clock
	breaker  resilience.CircuitBreakerConfig

	cacheSize int
	cache     *Cache
	flight    singleflight.Group

	mu      sync.Mutex
	pending CacheKey
}

// NewDispatcher returns a dispatcher calling backends by engine. Network
// engines are wrapped with a local fallback when [WithLocalFallback] is given.
func NewDispatcher(backends map[provider.Engine]provider.Provider, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		player:  Discard,
		timeout: 30 * time.Second,
		clock:   clockwork.NewRealClock(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	if d.cache == nil {
		c, err := NewCache(d.cacheSize)
		if err != nil {
			return nil, err
		}
		d.cache = c
	}
	if d.breaker.Clock == nil {
		d.breaker.Clock = d.clock
	}
	if d.breaker.OnStateChange == nil {
		d.breaker.OnStateChange = func(name string, from, to resilience.State) {
			slog.Info("speech: circuit breaker changed state", "engine", name, "from", from, "to", to)
			d.metrics.RecordBreakerTransition(context.Background(), name, to.String())
		}
	}

	d.backends = make(map[provider.Engine]provider.Provider, len(backends))
	for engine, p := range backends {
		if p == nil {
			continue
		}
		d.backends[engine] = d.withFallback(engine, p)
	}
	return d, nil
}

func (d *Dispatcher) withFallback(engine provider.Engine, p provider.Provider) provider.Provider {
	if d.local == nil || engine == provider.Local {
		return p
	}
	fb := resilience.NewSpeechFallback(p, string(engine), resilience.FallbackConfig{
		CircuitBreaker: d.breaker,
		OnFallback: func(name string, err error) {
			slog.Warn("speech: back end failed, trying next", "engine", name, "err", err)
		},
	})
	fb.AddFallback(string(provider.Local), d.local)
	return fb
}

// Cache returns the dispatcher's cache.
func (d *Dispatcher) Cache() *Cache { return d.cache }

// Has reports whether a back end is configured for engine.
func (d *Dispatcher) Has(engine provider.Engine) bool {
	_, ok := d.backends[engine]
	return ok
}

// Speak plays text with the given settings. A cached payload plays at once.
// Otherwise the back end is called and its result is played, and cached
// when no newer request has been made since. Errors are returned for the
// caller to log; nothing is played on failure.
func (d *Dispatcher) Speak(ctx context.Context, text string, s Settings) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("speech: speak: panic: %v", r)
		}
	}()

	req := provider.Request{Text: text, Rate: s.Rate}
	if err := req.Validate(); err != nil {
		return 0, fmt.Errorf("speech: speak: %w", err)
	}
	key := CacheKey{Engine: s.Engine, Rate: s.Rate, Text: text}

	if a, ok := d.cache.Get(key); ok {
		d.metrics.RecordSpeechCache(ctx, Cached.String())
		if err := d.player.Play(ctx, a); err != nil {
			return Cached, err
		}
		return Cached, nil
	}

	backend, ok := d.backends[s.Engine]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrNoBackend, s.Engine)
	}

	d.mu.Lock()
	d.pending = key
	d.mu.Unlock()

	v, err, shared := d.flight.Do(key.String(), func() (any, error) {
		return d.dispatch(ctx, key, req, backend)
	})
	if err != nil {
		return 0, err
	}
	res = v.(Result)
	if shared {
		return Shared, nil
	}
	return res, nil
}

// dispatch runs one back-end call, caches and plays the result.
func (d *Dispatcher) dispatch(ctx context.Context, key CacheKey, req provider.Request, backend provider.Provider) (Result, error) {
	ctx, span := observe.StartSpan(ctx, "speech.dispatch")
	log := observe.Logger(ctx).With("engine", key.Engine, "text", key.Text, "rate", key.Rate)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			err = fmt.Errorf("speech: rate limit: %w", err)
			observe.EndSpan(span, err)
			return 0, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	start := d.clock.Now()
	audio, err := backend.Synthesize(callCtx, req)
	cancel()
	d.metrics.RecordSpeechRequest(ctx, string(key.Engine), d.clock.Since(start).Seconds(), err)
	if err != nil {
		err = fmt.Errorf("speech: synthesize %s: %w", key.Engine, err)
		log.Warn("speech: synthesis failed", "err", err)
		observe.EndSpan(span, err)
		return 0, err
	}
	defer observe.EndSpan(span, nil)

	if audio.Empty() {
		log.Debug("speech: back end spoke directly")
		return Spoken, nil
	}

	res := Dispatched
	d.mu.Lock()
	current := d.pending == key
	d.mu.Unlock()
	if current {
		d.cache.Put(key, audio)
	} else {
		res = Stale
		log.Debug("speech: superseded result played without caching")
	}
	d.metrics.RecordSpeechCache(ctx, res.String())

	if err := d.player.Play(ctx, audio); err != nil {
		log.Warn("speech: playback failed", "err", err)
		return res, err
	}
	return res, nil
}
