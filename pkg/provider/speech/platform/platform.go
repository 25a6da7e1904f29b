// Package platform adapts an event-driven platform voice (the kind that
// reports start, end and error through a callback) to speech.Provider.
// Synthesize blocks until the utterance ended, failed or ctx was cancelled.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

// DefaultLang is the language tag passed to the voice.
const DefaultLang = "zh-HK"

// EventType is the kind of a voice callback.
type EventType int

const (
	EventStart EventType = iota
	EventEnd
	EventError
)

// String implements fmt.Stringer.
func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is delivered by a Voice while it speaks. Err is set for EventError.
type Event struct {
	Type EventType
	Err  error
}

// Utterance is what the voice is asked to say.
type Utterance struct {
	Text string
	Lang string
	Rate float64
}

// Voice is the platform speech facility.
type Voice interface {
	// Speak starts speaking u and returns immediately. onEvent may be called
	// from any goroutine and must eventually report EventEnd or EventError
	// unless Stop is called.
	Speak(u Utterance, onEvent func(Event)) error

	// Stop interrupts the current utterance.
	Stop()
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLang overrides the language tag. Defaults to [DefaultLang].
func WithLang(lang string) Option {
	return func(p *Provider) {
		if lang != "" {
			p.lang = lang
		}
	}
}

// Provider implements speech.Provider over a Voice. Utterances are serialised.
type Provider struct {
	voice Voice
	lang  string
	mu    sync.Mutex
}

// New wraps voice.
func New(voice Voice, opts ...Option) (*Provider, error) {
	if voice == nil {
		return nil, errors.New("platform: voice must not be nil")
	}
	p := &Provider{voice: voice, lang: DefaultLang}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Synthesize implements speech.Provider. It always returns empty audio.
func (p *Provider) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	if err := req.Validate(); err != nil {
		return speech.Audio{}, fmt.Errorf("platform: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	done := make(chan error, 1)
	var once sync.Once
	finish := func(err error) { once.Do(func() { done <- err }) }

	err := p.voice.Speak(Utterance{Text: req.Text, Lang: p.lang, Rate: req.Rate}, func(ev Event) {
		switch ev.Type {
		case EventEnd:
			finish(nil)
		case EventError:
			if ev.Err == nil {
				ev.Err = errors.New("unknown voice error")
			}
			finish(ev.Err)
		}
	})
	if err != nil {
		return speech.Audio{}, fmt.Errorf("platform: speak: %w", err)
	}

	select {
	case err := <-done:
		if err != nil {
			return speech.Audio{}, fmt.Errorf("platform: %w", err)
		}
		return speech.Audio{}, nil
	case <-ctx.Done():
		p.voice.Stop()
		return speech.Audio{}, ctx.Err()
	}
}
