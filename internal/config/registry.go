package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// ErrProviderNotRegistered is returned by [Registry.CreateSpeech] when no
// factory has been registered for the requested engine.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// SpeechFactory builds a speech back end from the speech settings.
type SpeechFactory func(SpeechConfig) (speech.Provider, error)

// Registry maps speech engines to their constructor functions. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	speech map[speech.Engine]SpeechFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		speech: make(map[speech.Engine]SpeechFactory),
	}
}

// RegisterSpeech registers a factory for engine.
// Subsequent calls with the same engine overwrite the previous registration.
func (r *Registry) RegisterSpeech(engine speech.Engine, factory SpeechFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech[engine] = factory
}

// CreateSpeech instantiates the back end for engine using cfg.
// Returns [ErrProviderNotRegistered] if no factory exists for engine.
func (r *Registry) CreateSpeech(engine speech.Engine, cfg SpeechConfig) (speech.Provider, error) {
	r.mu.RLock()
	factory, ok := r.speech[engine]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: speech engine %q", ErrProviderNotRegistered, engine)
	}
	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: create speech engine %q: %w", engine, err)
	}
	return p, nil
}

// Engines returns the registered engines in [speech.Engines] order.
func (r *Registry) Engines() []speech.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []speech.Engine
	for _, e := range speech.Engines() {
		if _, ok := r.speech[e]; ok {
			out = append(out, e)
		}
	}
	return slices.Clip(out)
}
