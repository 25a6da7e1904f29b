package resilience

import (
	"context"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// SpeechFallback implements [speech.Provider] with failover across speech
// back ends, typically the configured engine followed by the local
// synthesizer. Each back end has its own circuit breaker.
type SpeechFallback struct {
	group *FallbackGroup[speech.Provider]
}

// Compile-time interface assertion.
var _ speech.Provider = (*SpeechFallback)(nil)

// NewSpeechFallback creates a [SpeechFallback] with primary as the preferred
// back end.
func NewSpeechFallback(primary speech.Provider, primaryName string, cfg FallbackConfig) *SpeechFallback {
	return &SpeechFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional back end.
func (f *SpeechFallback) AddFallback(name string, p speech.Provider) {
	f.group.AddFallback(name, p)
}

// Names returns the back-end names in the order they are tried.
func (f *SpeechFallback) Names() []string { return f.group.Names() }

// Synthesize tries each healthy back end in order.
func (f *SpeechFallback) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, p speech.Provider) (speech.Audio, error) {
		return p.Synthesize(ctx, req)
	})
}
