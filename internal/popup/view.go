package popup

import (
	"github.com/MrWong99/yuetip/pkg/dict"
	"github.com/MrWong99/yuetip/pkg/dom"
)

// ---- DisplayMode ----

// DisplayMode picks the romanization shown in the popup.
type DisplayMode string

const (
	// Jyutping is the default romanization.
	Jyutping DisplayMode = "jyutping"

	// Yale shows Yale romanization, falling back to Jyutping per entry.
	Yale DisplayMode = "yale"
)

// Label is the caption printed before the pronunciation.
func (m DisplayMode) Label() string {
	if m == Yale {
		return "Yale"
	}
	return "粵拼"
}

// ---- Dimensions ----

// Dimensions is the popup box size estimate used for placement.
type Dimensions struct {
	Width         float64
	ExpandedWidth float64
	Height        float64
}

// DefaultDimensions matches the stock popup stylesheet.
var DefaultDimensions = Dimensions{Width: 320, ExpandedWidth: 560, Height: 150}

// Size returns the box size for the given expansion state.
func (d Dimensions) Size(expanded bool) dom.Size {
	if expanded {
		return dom.Size{W: d.ExpandedWidth, H: d.Height}
	}
	return dom.Size{W: d.Width, H: d.Height}
}

// ---- View ----

// relationLabels captions each kind of cross-reference.
var relationLabels = map[dict.Relation]string{
	dict.Synonyms: "近義詞",
	dict.Antonyms: "反義詞",
	dict.Variants: "異體",
}

// View is the renderable content of the popup. Surfaces draw it; they never
// look at the entry directly.
type View struct {
	Headword  string
	Alternate string

	PronunciationLabel string
	Pronunciation      string

	Glosses   []GlossView
	Relations []RelationView

	// Examples holds the active gloss's examples; empty when collapsed.
	Examples []dict.Example

	Sticky   bool
	Expanded bool
}

// GlossView is one gloss line.
type GlossView struct {
	Index       int
	Text        string
	Cantonese   bool
	HasExamples bool
	Active      bool
}

// RelationView is one group of cross-reference links.
type RelationView struct {
	Relation dict.Relation
	Label    string
	Words    []string
}

// NewView builds the view of e. active is the expanded gloss index or -1.
func NewView(e *dict.Entry, mode DisplayMode, active int) View {
	v := View{
		Headword:           e.Headword(),
		Alternate:          e.AlternateForm(),
		PronunciationLabel: mode.Label(),
		Pronunciation:      e.Pronunciation(mode == Yale),
	}
	for i, g := range e.Glosses {
		v.Glosses = append(v.Glosses, GlossView{
			Index:       i,
			Text:        g.Text,
			Cantonese:   g.Origin == dict.Cantonese,
			HasExamples: e.HasExamples(i),
			Active:      i == active,
		})
	}
	for _, r := range dict.Relations {
		if words := e.Related[r]; len(words) > 0 {
			v.Relations = append(v.Relations, RelationView{Relation: r, Label: relationLabels[r], Words: words})
		}
	}
	if e.HasExamples(active) {
		v.Examples = e.Examples[active]
		v.Expanded = true
	}
	return v
}
