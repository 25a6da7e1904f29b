// Package mock provides a test double for the engine's Speaker.
//
// The engine speaks on its own goroutine, so tests that need to wait for a
// call set Notify and receive from it.
//
// Example:
//
//	calls := make(chan mock.SpeakCall, 1)
//	sp := &mock.Speaker{Result: speech.Dispatched, Notify: calls}
//	e := engine.New(doc, lex, surface, cfg, engine.WithSpeaker(sp))
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/yuetip/internal/speech"
)

// SpeakCall records the arguments of a single [Speaker.Speak] call.
type SpeakCall struct {
	Text     string
	Settings speech.Settings
}

// Speaker is a mock implementation of the engine's Speaker.
type Speaker struct {
	mu sync.Mutex

	// Result is returned by Speak when Err is nil.
	Result speech.Result

	// Err, if non-nil, is returned by Speak.
	Err error

	// Notify, if non-nil, receives every call after it was recorded.
	Notify chan<- SpeakCall

	calls []SpeakCall
}

// Speak records the call and returns Result, Err.
func (s *Speaker) Speak(ctx context.Context, text string, st speech.Settings) (speech.Result, error) {
	call := SpeakCall{Text: text, Settings: st}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	notify, result, err := s.Notify, s.Result, s.Err
	s.mu.Unlock()

	if notify != nil {
		select {
		case notify <- call:
		case <-ctx.Done():
		}
	}
	if err != nil {
		return 0, err
	}
	return result, nil
}

// Calls returns a copy of the recorded calls.
func (s *Speaker) Calls() []SpeakCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SpeakCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of recorded calls.
func (s *Speaker) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
