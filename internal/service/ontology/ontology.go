package ontology

import (
	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/lexicon"

	"go.uber.org/zap"
)

// Word is a vocabulary entry and the senses attached to it, in the lexical database's order
type Word struct {
	ID          wordnet.WordID
	Form        string
	InWordNet   bool
	Senses      []wordnet.SynsetID
	SensesByPOS map[wordnet.POS][]wordnet.SynsetID
}

func (w *Word) clone() Word {
	c := *w
	c.Senses = append([]wordnet.SynsetID(nil), w.Senses...)
	c.SensesByPOS = make(map[wordnet.POS][]wordnet.SynsetID, len(w.SensesByPOS))
	for p, ids := range w.SensesByPOS {
		c.SensesByPOS[p] = append([]wordnet.SynsetID(nil), ids...)
	}
	return c
}

func (w *Word) hasSense(id wordnet.SynsetID) bool {
	for _, s := range w.Senses {
		if s == id {
			return true
		}
	}
	return false
}

// Options are the construction-time policies of an ontology
type Options struct {
	// DifferentiateUnknownWords gives every unknown word its own synthetic sense instead of
	// the shared SUPER_UNKNOWN sense
	DifferentiateUnknownWords bool
}

// ExtractOptions control a single ExtractWord call
type ExtractOptions struct {
	// POS filters the lexical lookup; Undefined and AllPOS both mean every tag
	POS  wordnet.POS
	Stem bool
	// SplitUnderscores retries an unknown compound (a_b_c) with its head, the last component
	SplitUnderscores bool
}

var reservedSynsets = []struct {
	id     wordnet.SynsetID
	label  string
	parent wordnet.SynsetID
	pos    wordnet.POS
}{
	{wordnet.RootSynsetID, "ROOT", wordnet.RootSynsetID, wordnet.Undefined},
	{wordnet.SuperUnknownSynsetID, "SUPER_UNKNOWN", wordnet.RootSynsetID, wordnet.Undefined},
	{wordnet.NounSynsetID, "NOUN", wordnet.RootSynsetID, wordnet.Noun},
	{wordnet.VerbSynsetID, "VERB", wordnet.RootSynsetID, wordnet.Verb},
	{wordnet.AdjSynsetID, "ADJECTIVE", wordnet.RootSynsetID, wordnet.Adjective},
	{wordnet.AdvSynsetID, "ADVERB", wordnet.RootSynsetID, wordnet.Adverb},
	{wordnet.OOVSynsetID, "OOV", wordnet.SuperUnknownSynsetID, wordnet.Undefined},
	{wordnet.ProperNounSynsetID, "PROPER_NOUN", wordnet.SuperUnknownSynsetID, wordnet.Undefined},
	{wordnet.NumericSynsetID, "NUMERIC", wordnet.SuperUnknownSynsetID, wordnet.Undefined},
	{wordnet.PunctuationSynsetID, "PUNCTUATION", wordnet.SuperUnknownSynsetID, wordnet.Undefined},
	{wordnet.StopSynsetID, "STOP", wordnet.SuperUnknownSynsetID, wordnet.Undefined},
	{wordnet.BOSSynsetID, "BOS", wordnet.SuperUnknownSynsetID, wordnet.Undefined},
	{wordnet.EOSSynsetID, "EOS", wordnet.SuperUnknownSynsetID, wordnet.Undefined},
}

// SpecialWords map corpus placeholder tokens to their reserved synsets
var SpecialWords = map[string]wordnet.SynsetID{
	"<oov>":         wordnet.OOVSynsetID,
	"<proper_noun>": wordnet.ProperNounSynsetID,
	"<numeric>":     wordnet.NumericSynsetID,
	"<punctuation>": wordnet.PunctuationSynsetID,
	"<stop>":        wordnet.StopSynsetID,
	"<s>":           wordnet.BOSSynsetID,
	"</s>":          wordnet.EOSSynsetID,
}

// Ontology is the synset graph plus its vocabulary. It is in the extraction phase until
// Finalize is called; closures are only available once finalized.
type Ontology struct {
	graph   *graph
	lexicon lexicon.Database
	options Options
	logger  *zap.Logger

	words      map[wordnet.WordID]*Word
	wordIDs    map[string]wordnet.WordID
	senseWords map[wordnet.SynsetID]wordnet.WordSet
	nextWordID wordnet.WordID

	// extracted synsets by label set + gloss
	extracted map[string]wordnet.SynsetID

	finalized        bool
	ancestors        map[wordnet.SynsetID]wordnet.IDSet
	senseDescendants map[wordnet.SynsetID]wordnet.IDSet

	misses int
}

// New creates an empty ontology in the extraction phase. db may be nil for an ontology
// that is only loaded from disk.
func New(db lexicon.Database, options Options, logger *zap.Logger) *Ontology {
	o := newEmpty(db, options, logger)
	for _, r := range reservedSynsets {
		o.ensureReserved(r.id)
	}
	return o
}

func newEmpty(db lexicon.Database, options Options, logger *zap.Logger) *Ontology {
	return &Ontology{
		graph:      newGraph(),
		lexicon:    db,
		options:    options,
		logger:     logger,
		words:      make(map[wordnet.WordID]*Word),
		wordIDs:    make(map[string]wordnet.WordID),
		senseWords: make(map[wordnet.SynsetID]wordnet.WordSet),
		extracted:  make(map[string]wordnet.SynsetID),
	}
}

// ensureReserved recreates a reserved node (and its reserved parent) pruned by a finalize
func (o *Ontology) ensureReserved(id wordnet.SynsetID) {
	if _, ok := o.graph.get(id); ok {
		return
	}
	for _, r := range reservedSynsets {
		if r.id != id {
			continue
		}
		s := newSynset(r.id, []string{r.label}, "", r.pos)
		o.graph.nodes[r.id] = s
		if r.parent != r.id {
			o.ensureReserved(r.parent)
			o.graph.link(r.parent, r.id)
		}
		return
	}
}

// IsReserved reports whether id is one of the fixed top-level nodes
func IsReserved(id wordnet.SynsetID) bool {
	return id >= 0 && id < wordnet.FirstRegularSynsetID
}

func (o *Ontology) Options() Options {
	return o.options
}

// Finalized reports whether the ontology is in the query phase
func (o *Ontology) Finalized() bool {
	return o.finalized
}

// LookupMisses is the number of lookups of absent words or synsets since creation
func (o *Ontology) LookupMisses() int {
	return o.misses
}

// invalidate returns the ontology to the extraction phase
func (o *Ontology) invalidate() {
	if !o.finalized {
		return
	}
	o.finalized = false
	o.ancestors = nil
	o.senseDescendants = nil
}

func (o *Ontology) miss(what string, fields ...zap.Field) {
	o.misses++
	o.logger.Warn("Ontology lookup miss", append([]zap.Field{zap.String("kind", what)}, fields...)...)
}
