package mcpserver_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/yuetip/internal/mcpserver"
	"github.com/MrWong99/yuetip/pkg/dict"
	"github.com/MrWong99/yuetip/pkg/dict/sample"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func loadSample(t *testing.T) *dict.Lexicon {
	t.Helper()
	lex := dict.NewLexicon()
	if err := lex.Load(context.Background(), sample.Source()); err != nil {
		t.Fatalf("load sample lexicon: %v", err)
	}
	return lex
}

// connect runs the server on one end of an in-memory pipe and returns a
// client session on the other.
func connect(t *testing.T, lex mcpserver.Lexicon) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverT, clientT := mcp.NewInMemoryTransports()

	ss, err := mcpserver.New(lex).Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

// call invokes a tool and decodes its text payload into out.
func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError || out == nil {
		return res
	}
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			if err := json.Unmarshal([]byte(tc.Text), out); err != nil {
				t.Fatalf("decode %s result %q: %v", name, tc.Text, err)
			}
			return res
		}
	}
	t.Fatalf("%s returned no text content", name)
	return res
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestTools_Listed(t *testing.T) {
	t.Parallel()
	cs := connect(t, loadSample(t))

	want := map[string]bool{"lookup": false, "segment": false, "search_jyutping": false}
	for tool, err := range cs.Tools(context.Background(), nil) {
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %q not listed", name)
		}
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	cs := connect(t, loadSample(t))

	tests := []struct {
		name      string
		args      map[string]any
		wantFound bool
		wantWord  string
		wantPron  string
	}{
		{name: "longest prefix", args: map[string]any{"text": "屈機王死"}, wantFound: true, wantWord: "屈機王", wantPron: "wat1 gei1 wong4"},
		{name: "yale", args: map[string]any{"text": "你", "yale": true}, wantFound: true, wantWord: "你", wantPron: "néih"},
		{name: "latin text", args: map[string]any{"text": "hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out mcpserver.LookupOutput
			call(t, cs, "lookup", tt.args, &out)
			if out.Found != tt.wantFound {
				t.Fatalf("found = %v, want %v", out.Found, tt.wantFound)
			}
			if !tt.wantFound {
				return
			}
			if out.Entry.Word != tt.wantWord || out.Entry.Pronunciation != tt.wantPron {
				t.Errorf("entry = %+v", out.Entry)
			}
		})
	}
}

func TestLookup_GlossesAndRelations(t *testing.T) {
	t.Parallel()
	cs := connect(t, loadSample(t))

	var out mcpserver.LookupOutput
	call(t, cs, "lookup", map[string]any{"text": "屈機"}, &out)
	if !out.Found || len(out.Entry.Glosses) != 2 {
		t.Fatalf("entry = %+v", out.Entry)
	}
	if !out.Entry.Glosses[1].Cantonese {
		t.Error("second gloss should be marked Cantonese")
	}
	if got := out.Entry.Related["synonyms"]; len(got) != 1 || got[0] != "屈機王" {
		t.Errorf("synonyms = %v", got)
	}
}

func TestSegment(t *testing.T) {
	t.Parallel()
	cs := connect(t, loadSample(t))

	var out mcpserver.SegmentOutput
	call(t, cs, "segment", map[string]any{"text": "你好，食飯"}, &out)

	want := []mcpserver.SegmentView{
		{Text: "你好", Offset: 0, Jyutping: "nei5 hou2"},
		{Text: "，", Offset: 2},
		{Text: "食飯", Offset: 3, Jyutping: "sik6 faan6"},
	}
	if len(out.Segments) != len(want) {
		t.Fatalf("segments = %+v", out.Segments)
	}
	for i := range want {
		if out.Segments[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, out.Segments[i], want[i])
		}
	}
}

func TestSearchJyutping(t *testing.T) {
	t.Parallel()
	cs := connect(t, loadSample(t))

	var out mcpserver.SearchOutput
	call(t, cs, "search_jyutping", map[string]any{"query": "Nei Hou", "limit": 3}, &out)
	if len(out.Results) == 0 || out.Results[0].Word != "你好" {
		t.Fatalf("results = %+v, want 你好 first", out.Results)
	}
	if len(out.Results) > 3 {
		t.Errorf("limit ignored: %d results", len(out.Results))
	}
}

func TestSearch_TonesNarrow(t *testing.T) {
	t.Parallel()
	lex := loadSample(t)

	got := mcpserver.Search(lex, "sik6 faan6", 5)
	if len(got) == 0 || got[0].Word != "食飯" || got[0].Score != 1 {
		t.Fatalf("results = %+v", got)
	}
	if mcpserver.Search(lex, "zzzz", 5) != nil {
		t.Error("unrelated query should find nothing")
	}
}

func TestTools_NotReady(t *testing.T) {
	t.Parallel()
	cs := connect(t, dict.NewLexicon())

	res := call(t, cs, "lookup", map[string]any{"text": "你好"}, nil)
	if !res.IsError {
		t.Error("lookup on an unloaded lexicon should report a tool error")
	}
}
