package dict

import "strings"

// cantoneseMarker prefixes glosses written in Cantonese rather than English.
const cantoneseMarker = "[粵] "

// ---- Origin ----

// Origin tells which language a gloss is written in.
type Origin int

const (
	// English is the default gloss language.
	English Origin = iota

	// Cantonese marks a gloss written in Cantonese.
	Cantonese
)

// String returns "eng" or "yue".
func (o Origin) String() string {
	if o == Cantonese {
		return "yue"
	}
	return "eng"
}

// ---- Relation ----

// Relation names a kind of link between two entries.
type Relation string

const (
	// Synonyms are near-synonyms of the entry.
	Synonyms Relation = "synonyms"

	// Antonyms are opposites of the entry.
	Antonyms Relation = "antonyms"

	// Variants are alternative written forms of the entry.
	Variants Relation = "variants"
)

// Relations lists every relation in display order.
var Relations = []Relation{Synonyms, Antonyms, Variants}

// ---- Entry ----

// Gloss is one definition of an entry.
type Gloss struct {
	Text   string
	Origin Origin
}

// Example is a Cantonese usage sample with its English translation.
type Example struct {
	Yue string `json:"yue"`
	Eng string `json:"eng"`
}

// Entry is one lexicon record. Entries are immutable once the lexicon is
// loaded and are shared between lookups.
type Entry struct {
	// Word is the lookup key.
	Word string

	// Traditional and Simplified are the two written forms. Simplified is only
	// worth showing when it differs from Traditional.
	Traditional string
	Simplified  string

	// Jyutping is the primary romanization; Yale is optional.
	Jyutping string
	Yale     string

	Glosses []Gloss

	// Examples is aligned index-for-index with Glosses; a nil slot means the
	// gloss has no examples.
	Examples [][]Example

	Related map[Relation][]string
}

// Headword returns the form shown as the popup title.
func (e *Entry) Headword() string {
	if e.Traditional != "" {
		return e.Traditional
	}
	return e.Word
}

// AlternateForm returns the simplified form when it differs from the
// headword, or "".
func (e *Entry) AlternateForm() string {
	if e.Simplified == "" || e.Simplified == e.Headword() {
		return ""
	}
	return e.Simplified
}

// Pronunciation returns the romanization for the given mode. Yale falls back
// to Jyutping when the entry has none.
func (e *Entry) Pronunciation(yale bool) string {
	if yale && e.Yale != "" {
		return e.Yale
	}
	return e.Jyutping
}

// HasExamples reports whether gloss i has at least one example.
func (e *Entry) HasExamples(i int) bool {
	return i >= 0 && i < len(e.Examples) && len(e.Examples[i]) > 0
}

// Speakable reports whether the entry carries a pronunciation.
func (e *Entry) Speakable() bool { return e.Jyutping != "" }

// ---- wire format ----

// rawEntry is the on-disk JSON shape produced by the lexicon build tooling.
type rawEntry struct {
	Traditional string      `json:"traditional"`
	Simplified  string      `json:"simplified"`
	Jyutping    string      `json:"jyutping"`
	Yale        string      `json:"yale"`
	English     []string    `json:"english"`
	Examples    [][]Example `json:"examples"`
	Sims        []string    `json:"sims"`
	Ants        []string    `json:"ants"`
	Vars        []string    `json:"vars"`
}

// normalise converts a raw record into an Entry. Examples are padded or
// truncated so that len(Examples) == len(Glosses).
func normalise(word string, raw rawEntry) *Entry {
	e := &Entry{
		Word:        word,
		Traditional: raw.Traditional,
		Simplified:  raw.Simplified,
		Jyutping:    strings.TrimSpace(raw.Jyutping),
		Yale:        strings.TrimSpace(raw.Yale),
	}

	e.Glosses = make([]Gloss, 0, len(raw.English))
	for _, g := range raw.English {
		if text, ok := strings.CutPrefix(g, cantoneseMarker); ok {
			e.Glosses = append(e.Glosses, Gloss{Text: text, Origin: Cantonese})
			continue
		}
		e.Glosses = append(e.Glosses, Gloss{Text: g, Origin: English})
	}

	e.Examples = make([][]Example, len(e.Glosses))
	copy(e.Examples, raw.Examples)

	related := map[Relation][]string{
		Synonyms: nonEmpty(raw.Sims),
		Antonyms: nonEmpty(raw.Ants),
		Variants: nonEmpty(raw.Vars),
	}
	for r, words := range related {
		if len(words) == 0 {
			delete(related, r)
		}
	}
	if len(related) > 0 {
		e.Related = related
	}
	return e
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
