package page

import (
	"errors"
	"testing"

	"github.com/MrWong99/yuetip/pkg/dom"
)

func mustParse(t *testing.T, src string, opts ...Option) *Page {
	t.Helper()
	p, err := ParseString(src, opts...)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return p
}

func TestLayout_CJKCellsAndWrapping(t *testing.T) {
	t.Parallel()

	// 40px viewport fits two ideographs (16px each) per line.
	p := mustParse(t, `<p id="p">我講廣東話</p>`, WithViewport(40, 100))
	el := p.FindByID("p")
	if el == nil {
		t.Fatal("p not found")
	}
	text := el.Children()[0]

	tests := []struct {
		i    int
		want dom.Rect
	}{
		{0, dom.Rect{Left: 0, Top: 0, Right: 16, Bottom: 16}},
		{1, dom.Rect{Left: 16, Top: 0, Right: 32, Bottom: 16}},
		{2, dom.Rect{Left: 0, Top: 16, Right: 16, Bottom: 32}},
		{4, dom.Rect{Left: 0, Top: 32, Right: 16, Bottom: 48}},
	}
	for _, tc := range tests {
		got, err := p.RangeRect(text, tc.i, tc.i+1)
		if err != nil {
			t.Fatalf("RangeRect(%d): %v", tc.i, err)
		}
		if got != tc.want {
			t.Errorf("rune %d: got %+v, want %+v", tc.i, got, tc.want)
		}
	}

	if _, err := p.RangeRect(text, 3, 9); err == nil {
		t.Error("expected out-of-bounds error")
	}
}

func TestElementFromPoint(t *testing.T) {
	t.Parallel()

	p := mustParse(t, `<p id="a">你好<b id="b">廣東話</b></p><div id="c">食飯</div>`)
	tests := []struct {
		name string
		x, y float64
		want string
	}{
		{"plain text", 8, 8, "a"},
		{"nested inline", 40, 8, "b"},
		{"second block", 8, 24, "c"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hit := p.ElementFromPoint(tc.x, tc.y)
			if hit == nil {
				t.Fatal("no hit")
			}
			if id, _ := hit.Attr("id"); id != tc.want {
				t.Errorf("hit %s#%s, want #%s", hit.Tag(), id, tc.want)
			}
		})
	}

	if hit := p.ElementFromPoint(700, 500); hit != nil {
		t.Errorf("hit %s outside all content", hit.Tag())
	}
}

func TestCaretFromPoint_RoundsToNearestBoundary(t *testing.T) {
	t.Parallel()

	p := mustParse(t, `<p>我講廣東話</p>`)

	// 廣 covers [32,48); its centre is 40.
	c, ok := p.CaretFromPoint(36, 8)
	if !ok || c.Offset != 2 {
		t.Errorf("left half: got %+v %v, want offset 2", c, ok)
	}
	c, ok = p.CaretFromPoint(45, 8)
	if !ok || c.Offset != 3 {
		t.Errorf("right half: got %+v %v, want offset 3", c, ok)
	}
	if c.Node.Kind() != dom.TextNode {
		t.Errorf("caret node kind = %v", c.Node.Kind())
	}

	if _, ok := p.CaretFromPoint(10, 300); ok {
		t.Error("no line under y must miss")
	}

	off := mustParse(t, `<p>我講廣東話</p>`, WithDocumentCaret(false))
	if _, ok := off.CaretFromPoint(36, 8); ok {
		t.Error("disabled document caret must miss")
	}
}

func TestShadowRoot(t *testing.T) {
	t.Parallel()

	src := `<div id="host"><template shadowrootmode="open"><span id="inner">屈機王</span></template></div><p>你好</p>`
	p := mustParse(t, src)

	hit := p.ElementFromPoint(8, 8)
	if id, _ := hit.Attr("id"); id != "host" {
		t.Fatalf("document hit #%s, want the host", id)
	}
	sr := hit.ShadowRoot()
	if sr == nil {
		t.Fatal("host has no shadow root")
	}
	inner := sr.ElementFromPoint(8, 8)
	if id, _ := inner.Attr("id"); id != "inner" {
		t.Fatalf("shadow hit #%s, want #inner", id)
	}
	if inner.Parent() != nil {
		t.Error("top-level shadow node must have no parent")
	}
	if inner.Root().Host() != hit {
		t.Error("shadow root host mismatch")
	}

	// The document caret cannot see shadow text.
	if _, ok := p.CaretFromPoint(8, 8); ok {
		t.Error("document caret must not reach into the shadow tree")
	}
	if _, ok := inner.Root().(dom.CaretLocator).CaretFromPoint(8, 8); ok {
		t.Error("shadow caret is disabled by default")
	}

	p = mustParse(t, src, WithShadowCaret(true))
	inner = p.FindByID("inner")
	c, ok := inner.Root().(dom.CaretLocator).CaretFromPoint(8, 8)
	if !ok || c.Node.Text() != "屈機王" || c.Offset != 0 {
		t.Errorf("shadow caret = %+v %v", c, ok)
	}

	if pt, ok := p.Locate("機"); !ok || pt.X != 24 || pt.Y != 8 {
		t.Errorf("Locate(機) = %+v %v, want (24,8)", pt, ok)
	}
}

func TestHiddenContent(t *testing.T) {
	t.Parallel()

	p := mustParse(t, `<p>你<span id="h" hidden>好</span>嗎<span style="display: none">呀</span></p>`)
	hidden := p.FindByID("h").Children()[0]
	r, err := p.RangeRect(hidden, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Empty() {
		t.Errorf("hidden glyph has box %+v", r)
	}
	if pt, ok := p.Locate("嗎"); !ok || pt.X != 24 {
		t.Errorf("嗎 at %+v, want x=24 (hidden text takes no space)", pt)
	}
	if _, ok := p.Locate("呀"); ok {
		t.Error("hidden text must not be locatable")
	}
}

func TestInputsAndFocus(t *testing.T) {
	t.Parallel()

	p := mustParse(t, `<p>名<input id="i" value="abc">字</p><textarea id="t">你好</textarea><div id="e" contenteditable>編輯</div>`)

	in := p.FindByID("i")
	if hit := p.ElementFromPoint(20, 8); hit != in {
		t.Errorf("hit %v, want the input", hit)
	}
	if p.ActiveElement() != nil {
		t.Error("nothing focused initially")
	}
	if err := p.Focus(in); err != nil {
		t.Fatal(err)
	}
	if p.ActiveElement() != in {
		t.Error("focus not moved")
	}
	_ = p.Focus(nil)
	if p.ActiveElement() != nil {
		t.Error("blur failed")
	}

	other := mustParse(t, `<p id="x">x</p>`)
	if err := p.Focus(other.FindByID("x")); !errors.Is(err, ErrForeignNode) {
		t.Errorf("got %v, want ErrForeignNode", err)
	}

	if hit := p.ElementFromPoint(8, 24); hit == nil || hit.Tag() != "textarea" {
		t.Errorf("hit %v, want textarea", hit)
	}
}

func TestSelection(t *testing.T) {
	t.Parallel()

	p := mustParse(t, `<p id="p">屈機王死</p>`)
	text := p.FindByID("p").Children()[0]
	sel := p.Selection()

	if err := sel.Select(text, 0, 3); err != nil {
		t.Fatal(err)
	}
	if got := p.SelectedText(); got != "屈機王" {
		t.Errorf("selected %q", got)
	}
	if err := sel.Select(text, 2, 9); err == nil {
		t.Error("expected bounds error")
	}
	if err := sel.Select(p.FindByID("p"), 0, 1); err == nil {
		t.Error("selecting an element must fail")
	}
	sel.Clear()
	if _, _, _, ok := p.SelectionRange(); ok {
		t.Error("selection not cleared")
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	if _, err := ParseString(`<p>x</p>`, WithViewport(0, 10)); err == nil {
		t.Error("expected viewport error")
	}
	if _, err := ParseString(`<p>x</p>`, WithCellSize(8, 0)); err == nil {
		t.Error("expected cell size error")
	}
}
