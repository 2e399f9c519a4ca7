package lexicon

import (
	"strings"

	"sensegraph/internal/model/wordnet"
)

// Pointer addresses a synset inside a lexical database
type Pointer struct {
	Offset int64
	POS    wordnet.POS
}

// Entry is one synset as returned by a lexical database lookup
type Entry struct {
	Pointer
	Labels    []string
	Gloss     string
	Hypernyms []Pointer
}

// Database is the lexical database capability the ontology builder consumes
type Database interface {
	// LookupSynsets returns the synsets containing form, in the database's native sense order.
	// An empty result is not an error.
	LookupSynsets(form string, pos wordnet.POS) ([]Entry, error)

	// Synset resolves a hypernym pointer
	Synset(p Pointer) (Entry, error)

	// MorphologicalStem returns the base form of form for pos, or "" when none is known
	MorphologicalStem(form string, pos wordnet.POS) string
}

// Normalize maps a surface form to the key used by the indexes: lower case, blanks
// collapsed to underscores
func Normalize(form string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(form, "_", " ")), "_"))
}

func expandPOS(pos wordnet.POS) []wordnet.POS {
	if pos == wordnet.AllPOS {
		return wordnet.LexicalPOS
	}
	return []wordnet.POS{pos}
}
