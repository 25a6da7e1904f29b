// Package dict holds the Cantonese lexicon and the greedy longest-match
// lookup used by the hover engine.
//
// A [Lexicon] is loaded exactly once, usually in the background with
// [Lexicon.LoadAsync]. Until the load finishes every lookup reports "no
// match"; callers never see a not-ready error.
//
//	lex := dict.NewLexicon()
//	lex.LoadAsync(ctx, dict.FileSource("lexicon.json"))
//	if res, ok := dict.Match(lex, "屈機王死"); ok {
//	    fmt.Println(res.Word, res.Entry.Jyutping)
//	}
package dict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotReady is returned by [Lexicon.Wait] callers that give up before the
// load finished. Lookups never return it.
var ErrNotReady = errors.New("dict: lexicon not ready")

// Compile-time interface assertion.
var _ Lookuper = (*Lexicon)(nil)

// Lexicon is a flat word → entry map. It is safe for concurrent use.
type Lexicon struct {
	entries atomic.Pointer[map[string]*Entry]

	once sync.Once
	done chan struct{}
	err  error // written once before done is closed
}

// NewLexicon returns an empty lexicon that is not ready yet.
func NewLexicon() *Lexicon {
	return &Lexicon{done: make(chan struct{})}
}

// FromEntries returns a ready lexicon holding the given entries, keyed by
// their Word.
func FromEntries(entries ...*Entry) *Lexicon {
	m := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		m[e.Word] = e
	}
	l := NewLexicon()
	l.once.Do(func() {
		l.entries.Store(&m)
		close(l.done)
	})
	return l
}

// LoadAsync starts loading src in a new goroutine. Only the first call to
// LoadAsync or [Lexicon.Load] has any effect.
func (l *Lexicon) LoadAsync(ctx context.Context, src Source) {
	go func() {
		if err := l.Load(ctx, src); err != nil {
			slog.Error("dict: lexicon load failed", "source", src.String(), "err", err)
		}
	}()
}

// Load reads and decodes src synchronously. Only the first call to
// [Lexicon.LoadAsync] or Load has any effect; later calls return the first
// load's error.
func (l *Lexicon) Load(ctx context.Context, src Source) error {
	l.once.Do(func() {
		defer close(l.done)
		start := time.Now()
		m, err := load(ctx, src)
		if err != nil {
			l.err = err
			return
		}
		l.entries.Store(&m)
		slog.Info("dict: lexicon loaded", "source", src.String(), "entries", len(m), "elapsed", time.Since(start))
	})
	<-l.done
	return l.err
}

// Wait blocks until the load finished or ctx is done.
func (l *Lexicon) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
}

// Ready reports whether entries are available.
func (l *Lexicon) Ready() bool { return l.entries.Load() != nil }

// Len returns the number of entries, 0 before the load completes.
func (l *Lexicon) Len() int {
	m := l.entries.Load()
	if m == nil {
		return 0
	}
	return len(*m)
}

// Lookup returns the entry for word. It reports false before the load
// completes.
func (l *Lexicon) Lookup(word string) (*Entry, bool) {
	m := l.entries.Load()
	if m == nil {
		return nil, false
	}
	e, ok := (*m)[word]
	return e, ok
}

// Words returns every key in sorted order.
func (l *Lexicon) Words() []string {
	m := l.entries.Load()
	if m == nil {
		return nil
	}
	words := make([]string, 0, len(*m))
	for w := range *m {
		words = append(words, w)
	}
	slices.Sort(words)
	return words
}

func load(ctx context.Context, src Source) (map[string]*Entry, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("dict: open %s: %w", src, err)
	}
	defer rc.Close()
	return decode(rc)
}

func decode(r io.Reader) (map[string]*Entry, error) {
	var raw map[string]rawEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("dict: decode: %w", err)
	}
	m := make(map[string]*Entry, len(raw))
	for word, re := range raw {
		if word == "" {
			continue
		}
		m[word] = normalise(word, re)
	}
	return m, nil
}
