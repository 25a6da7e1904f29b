package dict

import "unicode/utf8"

// MaxLookahead is the number of runes considered when matching at a position.
const MaxLookahead = 15

// Lookuper is anything words can be looked up in.
type Lookuper interface {
	Lookup(word string) (*Entry, bool)
}

// Result is a successful match.
type Result struct {
	// Word is the matched prefix.
	Word string

	// Length is the length of Word in runes.
	Length int

	Entry *Entry
}

// IsCJK reports whether r is in the CJK Unified Ideographs block
// (U+4E00–U+9FFF).
func IsCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// ContainsCJK reports whether s has at least one CJK ideograph.
func ContainsCJK(s string) bool {
	for _, r := range s {
		if IsCJK(r) {
			return true
		}
	}
	return false
}

// Match finds the longest lexicon word that is a prefix of text. Only the
// first [MaxLookahead] runes are considered and text without any CJK
// ideograph never matches. The search is greedy: the longest hit wins and
// there is no backtracking.
func Match(lex Lookuper, text string) (Result, bool) {
	if lex == nil || text == "" {
		return Result{}, false
	}

	runes := make([]rune, 0, MaxLookahead)
	for _, r := range text {
		if len(runes) == MaxLookahead {
			break
		}
		runes = append(runes, r)
	}
	if !ContainsCJK(string(runes)) {
		return Result{}, false
	}

	for n := len(runes); n > 0; n-- {
		word := string(runes[:n])
		if e, ok := lex.Lookup(word); ok {
			return Result{Word: word, Length: n, Entry: e}, true
		}
	}
	return Result{}, false
}

// Segment is one piece of a segmented string.
type Segment struct {
	// Text is the matched word, or a single unmatched rune.
	Text string

	// Offset is the rune offset of Text in the input.
	Offset int

	// Entry is nil for unmatched runes.
	Entry *Entry
}

// Segmentize splits text by repeatedly applying [Match]. Positions without a
// match advance by one rune.
func Segmentize(lex Lookuper, text string) []Segment {
	var (
		out    []Segment
		offset int
	)
	for len(text) > 0 {
		if res, ok := Match(lex, text); ok {
			out = append(out, Segment{Text: res.Word, Offset: offset, Entry: res.Entry})
			text = text[len(res.Word):]
			offset += res.Length
			continue
		}
		_, size := utf8.DecodeRuneInString(text)
		out = append(out, Segment{Text: text[:size], Offset: offset})
		text = text[size:]
		offset++
	}
	return out
}
