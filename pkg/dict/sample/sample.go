// Package sample embeds a small lexicon for demos and tests.
package sample

import (
	"embed"

	"github.com/MrWong99/yuetip/pkg/dict"
)

// Name is the file name of the lexicon inside [FS].
const Name = "lexicon.json"

//go:embed lexicon.json
var FS embed.FS

// Source returns a [dict.Source] reading the embedded lexicon.
func Source() dict.Source {
	return dict.FSSource{FS: FS, Name: Name}
}
