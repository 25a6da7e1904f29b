// Package speech defines the Provider interface for Cantonese speech back ends.
//
// A provider turns a short piece of text (usually one dictionary headword) into
// audio. Network back ends return a finished audio payload that the caller
// caches and plays; back ends that drive a speaker directly (the local
// synthesizer and the platform voice) play while Synthesize runs and return an
// empty [Audio].
//
// The set of back ends is closed and tagged by [Engine]; each has its own
// configuration struct in its sub-package.
//
// Implementations must be safe for concurrent use.
package speech

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when there is nothing to say.
var ErrEmptyText = errors.New("speech: empty text")

// Provider is the abstraction over any speech back end.
type Provider interface {
	// Synthesize produces speech for req. Providers that speak directly
	// return an empty Audio once playback finished. Returns an error on any
	// transport failure, non-success status or malformed response.
	Synthesize(ctx context.Context, req Request) (Audio, error)
}

// ProviderFunc adapts a function to [Provider].
type ProviderFunc func(ctx context.Context, req Request) (Audio, error)

// Synthesize implements [Provider].
func (f ProviderFunc) Synthesize(ctx context.Context, req Request) (Audio, error) {
	return f(ctx, req)
}
