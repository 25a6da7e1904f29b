// Package mcpserver exposes the lexicon as Model Context Protocol tools, so an
// assistant can look up, segment and search Cantonese words the same way the
// hover popup does.
//
// Tools:
//
//   - lookup: longest-prefix dictionary match for a piece of text.
//   - segment: greedy word segmentation of a sentence.
//   - search_jyutping: fuzzy search by romanization, tones optional.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/yuetip/pkg/dict"
)

const (
	serverName    = "yuetip"
	serverVersion = "1.0.0"

	defaultSearchLimit = 10
	maxSearchLimit     = 50

	// minSearchScore is the Jaro-Winkler similarity a romanization must reach
	// to be listed.
	minSearchScore = 0.8
)

// Lexicon is the part of [dict.Lexicon] the tools need.
type Lexicon interface {
	dict.Lookuper
	Ready() bool
	Words() []string
}

// errNotReady is reported to the client while the lexicon is still loading.
var errNotReady = errors.New("lexicon is still loading")

// New returns an MCP server with the lexicon tools registered.
func New(lex Lexicon) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	t := &tools{lex: lex}

	mcp.AddTool(s, &mcp.Tool{
		Name:        "lookup",
		Description: "Look up the longest Cantonese dictionary word at the start of text. Returns headword, pronunciation, glosses, examples and related words.",
	}, t.lookup)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "segment",
		Description: "Split Cantonese text into dictionary words with their Jyutping. Characters without an entry are returned on their own.",
	}, t.segment)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "search_jyutping",
		Description: "Find dictionary words whose Jyutping romanization resembles query. Tone numbers are optional.",
	}, t.search)
	return s
}

// Run serves the tools on t until ctx is done or the client disconnects.
func Run(ctx context.Context, lex Lexicon, t mcp.Transport) error {
	if err := New(lex).Run(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

type tools struct {
	lex Lexicon
}

// ---- lookup ----

// LookupInput is the lookup tool's argument.
type LookupInput struct {
	Text string `json:"text" jsonschema:"Cantonese text; matching starts at the first character"`
	Yale bool   `json:"yale,omitempty" jsonschema:"show Yale romanization instead of Jyutping"`
}

// LookupOutput is the lookup tool's result.
type LookupOutput struct {
	Found bool       `json:"found"`
	Entry *EntryView `json:"entry,omitempty"`
}

// EntryView is a dictionary entry as returned to clients.
type EntryView struct {
	Word          string              `json:"word"`
	Headword      string              `json:"headword"`
	Alternate     string              `json:"alternate,omitempty"`
	Pronunciation string              `json:"pronunciation"`
	Glosses       []GlossView         `json:"glosses"`
	Related       map[string][]string `json:"related,omitempty"`
}

// GlossView is one gloss with its usage examples.
type GlossView struct {
	Text      string         `json:"text"`
	Cantonese bool           `json:"cantonese,omitempty"`
	Examples  []dict.Example `json:"examples,omitempty"`
}

func (t *tools) lookup(_ context.Context, _ *mcp.CallToolRequest, in LookupInput) (*mcp.CallToolResult, LookupOutput, error) {
	if !t.lex.Ready() {
		return nil, LookupOutput{}, errNotReady
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, LookupOutput{}, errors.New("text is required")
	}
	res, ok := dict.Match(t.lex, text)
	if !ok {
		return nil, LookupOutput{}, nil
	}
	return nil, LookupOutput{Found: true, Entry: newEntryView(res.Word, res.Entry, in.Yale)}, nil
}

func newEntryView(word string, e *dict.Entry, yale bool) *EntryView {
	v := &EntryView{
		Word:          word,
		Headword:      e.Headword(),
		Alternate:     e.AlternateForm(),
		Pronunciation: e.Pronunciation(yale),
		Glosses:       make([]GlossView, len(e.Glosses)),
	}
	for i, g := range e.Glosses {
		v.Glosses[i] = GlossView{Text: g.Text, Cantonese: g.Origin == dict.Cantonese}
		if e.HasExamples(i) {
			v.Glosses[i].Examples = e.Examples[i]
		}
	}
	for _, rel := range dict.Relations {
		if words := e.Related[rel]; len(words) > 0 {
			if v.Related == nil {
				v.Related = make(map[string][]string)
			}
			v.Related[string(rel)] = words
		}
	}
	return v
}

// ---- segment ----

// SegmentInput is the segment tool's argument.
type SegmentInput struct {
	Text string `json:"text" jsonschema:"Cantonese text to split into words"`
}

// SegmentOutput is the segment tool's result.
type SegmentOutput struct {
	Segments []SegmentView `json:"segments"`
}

// SegmentView is one segment. Jyutping is empty for characters without an
// entry.
type SegmentView struct {
	Text     string `json:"text"`
	Offset   int    `json:"offset"`
	Jyutping string `json:"jyutping,omitempty"`
}

func (t *tools) segment(_ context.Context, _ *mcp.CallToolRequest, in SegmentInput) (*mcp.CallToolResult, SegmentOutput, error) {
	if !t.lex.Ready() {
		return nil, SegmentOutput{}, errNotReady
	}
	segs := dict.Segmentize(t.lex, in.Text)
	out := SegmentOutput{Segments: make([]SegmentView, len(segs))}
	for i, s := range segs {
		out.Segments[i] = SegmentView{Text: s.Text, Offset: s.Offset}
		if s.Entry != nil {
			out.Segments[i].Jyutping = s.Entry.Jyutping
		}
	}
	return nil, out, nil
}
