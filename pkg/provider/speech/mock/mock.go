// Package mock provides a test double for the speech.Provider interface.
//
// Use Provider to return a controlled payload or error and to verify which
// requests reached the back end.
//
// Example:
//
//	p := &mock.Provider{Result: speech.Audio{Data: []byte("mp3"), MIME: "audio/mpeg"}}
//	audio, _ := p.Synthesize(ctx, speech.Request{Text: "你好", Rate: 1})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Req is the request passed to Synthesize.
	Req speech.Request
}

// Provider is a mock implementation of speech.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Result is returned by Synthesize when Err is nil.
	Result speech.Audio

	// Err, if non-nil, is returned by Synthesize.
	Err error

	// Block, if non-nil, makes Synthesize wait until it is closed or the
	// context is done.
	Block chan struct{}

	// --- Call records ---

	// SynthesizeCalls records every call to Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns Result, Err.
func (p *Provider) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Req: req})
	block, result, err := p.Block, p.Result, p.Err
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return speech.Audio{}, ctx.Err()
		}
	}
	if err != nil {
		return speech.Audio{}, err
	}
	return result, nil
}

// Calls returns a copy of the recorded calls. Thread-safe.
func (p *Provider) Calls() []SynthesizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SynthesizeCall, len(p.SynthesizeCalls))
	copy(out, p.SynthesizeCalls)
	return out
}

// CallCount returns the number of recorded calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SynthesizeCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
}

// Ensure Provider implements speech.Provider at compile time.
var _ speech.Provider = (*Provider)(nil)
