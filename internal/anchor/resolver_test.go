package anchor

import (
	"errors"
	"testing"

	"github.com/MrWong99/yuetip/pkg/dom"
	"github.com/MrWong99/yuetip/pkg/dom/page"
)

func parse(t *testing.T, src string, opts ...page.Option) *page.Page {
	t.Helper()
	p, err := page.ParseString(src, opts...)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return p
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		opts     []page.Option
		x, y     float64
		wantText string
		wantOff  int
		wantVia  string
	}{
		{
			// 廣 covers [32,48); the right half makes the caret land after it.
			name:     "document caret rounded right is refined back",
			src:      `<p>我講廣東話</p>`,
			x:        45, y: 8,
			wantText: "我講廣東話", wantOff: 2, wantVia: "document",
		},
		{
			name:     "shadow content falls back to scanning",
			src:      `<div><template shadowrootmode="open"><p>屈機王死</p></template></div>`,
			x:        20, y: 8,
			wantText: "屈機王死", wantOff: 1, wantVia: "scan",
		},
		{
			name:     "shadow root with caret support",
			src:      `<div><template shadowrootmode="open"><p>屈機王死</p></template></div>`,
			opts:     []page.Option{page.WithShadowCaret(true)},
			x:        40, y: 8,
			wantText: "屈機王死", wantOff: 2, wantVia: "scoped",
		},
		{
			name: "nested shadow roots",
			src: `<div><template shadowrootmode="open"><section><template shadowrootmode="open">` +
				`<span>食飯</span></template></section></template></div>`,
			x:        20, y: 8,
			wantText: "食飯", wantOff: 1, wantVia: "scan",
		},
		{
			// The document caret lands on light text next to the shadow text;
			// refinement rejects it and the scan finds the bare shadow text.
			name:     "nearest light text is rejected",
			src:      `<p>你好<span><template shadowrootmode="open">屈機</template></span></p>`,
			x:        40, y: 8,
			wantText: "屈機", wantOff: 0, wantVia: "scan",
		},
		{
			name:     "no document caret support",
			src:      `<p>廣東話</p>`,
			opts:     []page.Option{page.WithDocumentCaret(false)},
			x:        40, y: 8,
			wantText: "廣東話", wantOff: 2, wantVia: "scan",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := parse(t, tc.src, tc.opts...)
			var via string
			r := NewResolver(p, WithObserver(func(s string) { via = s }))

			c, ok := r.Resolve(tc.x, tc.y)
			if !ok {
				t.Fatal("no caret")
			}
			if c.Node.Text() != tc.wantText || c.Offset != tc.wantOff {
				t.Errorf("caret = %q@%d, want %q@%d", c.Node.Text(), c.Offset, tc.wantText, tc.wantOff)
			}
			if via != tc.wantVia {
				t.Errorf("resolved via %q, want %q", via, tc.wantVia)
			}
		})
	}
}

func TestResolve_Misses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		x, y float64
	}{
		{"latin text", `<p>hello world</p>`, 12, 8},
		{"empty space", `<p>你好</p>`, 400, 300},
		{"punctuation only", `<p>，。！</p>`, 20, 8},
		{"hidden text", `<p><span hidden>你好</span>abc</p>`, 4, 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var via = "unset"
			r := NewResolver(parse(t, tc.src), WithObserver(func(s string) { via = s }))
			if c, ok := r.Resolve(tc.x, tc.y); ok {
				t.Errorf("unexpected caret %q@%d", c.Node.Text(), c.Offset)
			}
			if via != "" {
				t.Errorf("observer got %q, want empty strategy", via)
			}
		})
	}
}

func TestDeepest_BoundedDescent(t *testing.T) {
	t.Parallel()

	// Every hit is a new host, so only the depth bound ends the descent.
	if got := Deepest(loopRoot{}, 0, 0); got == nil {
		t.Fatal("no element")
	}
}

// loopRoot yields a fresh host every time, so an unbounded descent would
// never terminate.
type loopRoot struct{}

func (loopRoot) ElementFromPoint(float64, float64) dom.Node { return &loopNode{} }
func (loopRoot) Host() dom.Node { return nil }
func (loopRoot) Nodes() []dom.Node { return nil }

type loopNode struct{}

func (*loopNode) Kind() dom.NodeKind { return dom.ElementNode }
func (*loopNode) Tag() string { return "x-loop" }
func (*loopNode) Attr(string) (string, bool) { return "", false }
func (*loopNode) Text() string { return "" }
func (*loopNode) Parent() dom.Node { return nil }
func (*loopNode) Children() []dom.Node { return nil }
func (*loopNode) Root() dom.Root { return loopRoot{} }
func (*loopNode) ShadowRoot() dom.Root { return loopRoot{} }

func TestRefine_SkipsMeasurementErrors(t *testing.T) {
	t.Parallel()

	p := parse(t, `<p id="p">你好</p>`)
	text := p.FindByID("p").Children()[0]

	failing := failRanger{fail: map[int]bool{0: true}, next: p}
	if off, ok := Refine(failing, text, 8, 8); ok {
		t.Errorf("got offset %d, want miss when the covered char cannot be measured", off)
	}
	if off, ok := Refine(failing, text, 24, 8); !ok || off != 1 {
		t.Errorf("got %d %v, want 1 true", off, ok)
	}
}

type failRanger struct {
	fail map[int]bool
	next dom.Ranger
}

func (f failRanger) RangeRect(n dom.Node, start, end int) (dom.Rect, error) {
	if f.fail[start] {
		return dom.Rect{}, errors.New("boom")
	}
	return f.next.RangeRect(n, start, end)
}

func TestNewAndTail(t *testing.T) {
	t.Parallel()

	p := parse(t, `<p id="p">講廣東話啦</p>`)
	text := p.FindByID("p").Children()[0]
	c := dom.Caret{Node: text, Offset: 1}

	if got := Tail(c, 3); got != "廣東話" {
		t.Errorf("Tail = %q", got)
	}
	if got := Tail(dom.Caret{Node: text, Offset: 9}, 3); got != "" {
		t.Errorf("Tail past end = %q", got)
	}

	a := New(p, c, "廣東話", 3)
	want := dom.Rect{Left: 16, Top: 0, Right: 64, Bottom: 16}
	if a.Rect != want {
		t.Errorf("Rect = %+v, want %+v", a.Rect, want)
	}

	// Length past the end of the node is clamped.
	a = New(p, dom.Caret{Node: text, Offset: 4}, "啦啦", 2)
	if a.Rect.Empty() {
		t.Error("clamped span must still be measured")
	}
}
