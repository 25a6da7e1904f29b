package mcpserver

import (
	"context"
	"errors"
	"slices"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchInput is the search_jyutping tool's argument.
type SearchInput struct {
	Query string `json:"query" jsonschema:"Jyutping to search for, e.g. 'nei hou' or 'nei5 hou2'"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 10, at most 50)"`
}

// SearchOutput is the search_jyutping tool's result, best match first.
type SearchOutput struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is one scored hit.
type SearchResult struct {
	Word     string  `json:"word"`
	Jyutping string  `json:"jyutping"`
	Gloss    string  `json:"gloss,omitempty"`
	Score    float64 `json:"score"`
}

func (t *tools) search(_ context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if !t.lex.Ready() {
		return nil, SearchOutput{}, errNotReady
	}
	query := normaliseJyutping(in.Query)
	if query == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	return nil, SearchOutput{Results: Search(t.lex, query, limit)}, nil
}

// Search scores every entry's Jyutping against query with Jaro-Winkler and
// returns the best limit hits. When query carries no tone numbers, tones are
// ignored on both sides.
func Search(lex Lexicon, query string, limit int) []SearchResult {
	query = normaliseJyutping(query)
	toneless := !strings.ContainsFunc(query, unicode.IsDigit)
	if toneless {
		query = stripTones(query)
	}

	var hits []SearchResult
	for _, w := range lex.Words() {
		e, ok := lex.Lookup(w)
		if !ok || e.Jyutping == "" {
			continue
		}
		target := normaliseJyutping(e.Jyutping)
		if toneless {
			target = stripTones(target)
		}
		score := matchr.JaroWinkler(query, target, false)
		if score < minSearchScore {
			continue
		}
		r := SearchResult{Word: w, Jyutping: e.Jyutping, Score: score}
		if len(e.Glosses) > 0 {
			r.Gloss = e.Glosses[0].Text
		}
		hits = append(hits, r)
	}

	slices.SortFunc(hits, func(a, b SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.Word, b.Word)
		}
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func normaliseJyutping(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func stripTones(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '1' && r <= '6' {
			return -1
		}
		return r
	}, s)
}
