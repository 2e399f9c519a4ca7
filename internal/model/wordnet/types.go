package wordnet

import (
	"sort"
	"strings"
)

// SynsetID identifies a node of the ontology graph
type SynsetID int

// WordID identifies a word of a vocabulary
type WordID int

// Reserved synset ids. Regular synsets start at FirstRegularSynsetID.
const (
	RootSynsetID SynsetID = iota
	SuperUnknownSynsetID
	NounSynsetID
	VerbSynsetID
	AdjSynsetID
	AdvSynsetID
	OOVSynsetID
	ProperNounSynsetID
	NumericSynsetID
	PunctuationSynsetID
	StopSynsetID
	BOSSynsetID
	EOSSynsetID
	FirstRegularSynsetID
)

// NoSynset is used in numeric records for an absent sense
const NoSynset SynsetID = -1

// NoWord is used in numeric records for an absent word
const NoWord WordID = -1

// POS is a syntactic category tag
type POS int

const (
	Undefined POS = iota
	Noun
	Verb
	Adjective
	Adverb
	// AllPOS is only a lookup filter, never a node tag
	AllPOS
)

// LexicalPOS lists the tags a lexical database may hold synsets for
var LexicalPOS = []POS{Noun, Verb, Adjective, Adverb}

func (p POS) String() string {
	switch p {
	case Noun:
		return "noun"
	case Verb:
		return "verb"
	case Adjective:
		return "adj"
	case Adverb:
		return "adv"
	case AllPOS:
		return "all"
	}
	return "undefined"
}

// ParsePOS accepts both long names and the single-letter WordNet tags
func ParsePOS(s string) (POS, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "noun", "n", "nn", "nns", "nnp", "nnps":
		return Noun, true
	case "verb", "v", "vb", "vbd", "vbg", "vbn", "vbp", "vbz":
		return Verb, true
	case "adj", "adjective", "a", "s", "jj", "jjr", "jjs":
		return Adjective, true
	case "adv", "adverb", "r", "rb", "rbr", "rbs":
		return Adverb, true
	case "all":
		return AllPOS, true
	case "undefined", "u", "":
		return Undefined, true
	}
	return Undefined, false
}

// RootSynset returns the POS root a category of the given tag hangs under
func (p POS) RootSynset() SynsetID {
	switch p {
	case Noun:
		return NounSynsetID
	case Verb:
		return VerbSynsetID
	case Adjective:
		return AdjSynsetID
	case Adverb:
		return AdvSynsetID
	}
	return RootSynsetID
}

// POSSet is a bit set of POS tags
type POSSet uint8

func (s POSSet) Has(p POS) bool {
	return s&(1<<uint(p)) != 0
}

func (s POSSet) With(p POS) POSSet {
	return s | (1 << uint(p))
}

func (s POSSet) Union(o POSSet) POSSet {
	return s | o
}

// Tags returns the tags in the set in enum order
func (s POSSet) Tags() []POS {
	var tags []POS
	for p := Undefined; p < AllPOS; p++ {
		if s.Has(p) {
			tags = append(tags, p)
		}
	}
	return tags
}

// Single returns the only tag of the set, if it holds exactly one lexical tag
func (s POSSet) Single() (POS, bool) {
	var found POS
	n := 0
	for _, p := range LexicalPOS {
		if s.Has(p) {
			found = p
			n++
		}
	}
	return found, n == 1
}

// IDSet is a set of synset ids
type IDSet map[SynsetID]struct{}

func NewIDSet(ids ...SynsetID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id SynsetID) {
	s[id] = struct{}{}
}

func (s IDSet) Remove(id SynsetID) {
	delete(s, id)
}

func (s IDSet) Contains(id SynsetID) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the ids in ascending order so traversals stay deterministic
func (s IDSet) Sorted() []SynsetID {
	ids := make([]SynsetID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Intersects reports whether the two sets share at least one id
func (s IDSet) Intersects(o IDSet) bool {
	small, large := s, o
	if len(small) > len(large) {
		small, large = large, small
	}
	for id := range small {
		if large.Contains(id) {
			return true
		}
	}
	return false
}

// WordSet is a set of word ids
type WordSet map[WordID]struct{}

func (s WordSet) Add(id WordID) {
	s[id] = struct{}{}
}

func (s WordSet) Contains(id WordID) bool {
	_, ok := s[id]
	return ok
}

func (s WordSet) Sorted() []WordID {
	ids := make([]WordID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
