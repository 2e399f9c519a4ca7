package ontology

import (
	"fmt"
	"sort"

	"sensegraph/internal/model/wordnet"

	"go.uber.org/zap"
)

// WordID returns the id of a surface form
func (o *Ontology) WordID(form string) (wordnet.WordID, error) {
	id, ok := o.wordIDs[form]
	if !ok {
		o.miss("word", zap.String("word", form))
		return wordnet.NoWord, fmt.Errorf("word %q: %w", form, wordnet.ErrNotFound)
	}
	return id, nil
}

// HasWord is WordID without the miss accounting
func (o *Ontology) HasWord(form string) bool {
	_, ok := o.wordIDs[form]
	return ok
}

// Word returns a copy of the word record
func (o *Ontology) Word(id wordnet.WordID) (Word, error) {
	w, ok := o.words[id]
	if !ok {
		o.miss("word", zap.Int("word_id", int(id)))
		return Word{}, fmt.Errorf("word %d: %w", id, wordnet.ErrNotFound)
	}
	return w.clone(), nil
}

// WordSenses returns the senses of a word in native order
func (o *Ontology) WordSenses(id wordnet.WordID) []wordnet.SynsetID {
	w, ok := o.words[id]
	if !ok {
		o.miss("word", zap.Int("word_id", int(id)))
		return nil
	}
	return append([]wordnet.SynsetID(nil), w.Senses...)
}

// WordSensesForPOS returns the senses of a word with the given tag; AllPOS returns them all
func (o *Ontology) WordSensesForPOS(id wordnet.WordID, pos wordnet.POS) []wordnet.SynsetID {
	if pos == wordnet.AllPOS {
		return o.WordSenses(id)
	}
	w, ok := o.words[id]
	if !ok {
		o.miss("word", zap.Int("word_id", int(id)))
		return nil
	}
	return append([]wordnet.SynsetID(nil), w.SensesByPOS[pos]...)
}

// SenseWords returns the words a sense belongs to
func (o *Ontology) SenseWords(id wordnet.SynsetID) []wordnet.WordID {
	set, ok := o.senseWords[id]
	if !ok {
		o.miss("sense", zap.Int("synset_id", int(id)))
		return nil
	}
	return set.Sorted()
}

// IsSense reports whether at least one word references the synset
func (o *Ontology) IsSense(id wordnet.SynsetID) bool {
	return len(o.senseWords[id]) > 0
}

// IsVirtual reports whether the node is both a sense and a category. Such a node carries
// its own sense mass and is a valid stopping point shared with other branches.
func (o *Ontology) IsVirtual(id wordnet.SynsetID) bool {
	s, ok := o.graph.get(id)
	return ok && s.IsCategory() && o.IsSense(id)
}

// HasSynset is Synset without the miss accounting
func (o *Ontology) HasSynset(id wordnet.SynsetID) bool {
	_, ok := o.graph.get(id)
	return ok
}

// Synset returns a copy of the node record
func (o *Ontology) Synset(id wordnet.SynsetID) (Synset, error) {
	s, ok := o.graph.get(id)
	if !ok {
		o.miss("synset", zap.Int("synset_id", int(id)))
		return Synset{}, fmt.Errorf("synset %d: %w", id, wordnet.ErrNotFound)
	}
	return s.clone(), nil
}

// SynsetParents returns the direct parents of id
func (o *Ontology) SynsetParents(id wordnet.SynsetID) []wordnet.SynsetID {
	s, ok := o.graph.get(id)
	if !ok {
		o.miss("synset", zap.Int("synset_id", int(id)))
		return nil
	}
	return s.Parents.Sorted()
}

// SynsetChildren returns the direct children of id
func (o *Ontology) SynsetChildren(id wordnet.SynsetID) []wordnet.SynsetID {
	s, ok := o.graph.get(id)
	if !ok {
		o.miss("synset", zap.Int("synset_id", int(id)))
		return nil
	}
	return s.Children.Sorted()
}

// SynsetAncestors returns the nodes above id. maxLevel < 0 means no limit; level 1 is
// the direct parents. Requires a finalized ontology.
func (o *Ontology) SynsetAncestors(id wordnet.SynsetID, maxLevel int) (wordnet.IDSet, error) {
	if !o.finalized {
		return nil, fmt.Errorf("failed to get ancestors of %d: %w", id, wordnet.ErrNotFinalized)
	}
	full, ok := o.ancestors[id]
	if !ok {
		o.miss("synset", zap.Int("synset_id", int(id)))
		return wordnet.NewIDSet(), nil
	}
	if maxLevel < 0 {
		return full.Clone(), nil
	}

	result := wordnet.NewIDSet()
	frontier := []wordnet.SynsetID{id}
	for level := 1; level <= maxLevel && len(frontier) > 0; level++ {
		var next []wordnet.SynsetID
		for _, cur := range frontier {
			s, _ := o.graph.get(cur)
			for _, p := range s.Parents.Sorted() {
				if !result.Contains(p) {
					result.Add(p)
					next = append(next, p)
				}
			}
		}
		frontier = next
	}
	return result, nil
}

// AncestorClosure is SynsetAncestors(id, -1) without the copy, for hot loops.
// The returned set is shared and must not be modified; nil when not finalized.
func (o *Ontology) AncestorClosure(id wordnet.SynsetID) wordnet.IDSet {
	return o.ancestors[id]
}

// SynsetSenseDescendants returns the senses at or below id. Requires a finalized ontology.
func (o *Ontology) SynsetSenseDescendants(id wordnet.SynsetID) (wordnet.IDSet, error) {
	if !o.finalized {
		return nil, fmt.Errorf("failed to get descendants of %d: %w", id, wordnet.ErrNotFinalized)
	}
	set, ok := o.senseDescendants[id]
	if !ok {
		o.miss("synset", zap.Int("synset_id", int(id)))
		return wordnet.NewIDSet(), nil
	}
	return set.Clone(), nil
}

// SynsetWordDescendants returns the words of the senses at or below id
func (o *Ontology) SynsetWordDescendants(id wordnet.SynsetID) ([]wordnet.WordID, error) {
	senses, err := o.SynsetSenseDescendants(id)
	if err != nil {
		return nil, err
	}
	words := make(wordnet.WordSet)
	for s := range senses {
		for w := range o.senseWords[s] {
			words.Add(w)
		}
	}
	return words.Sorted(), nil
}

// Words returns every word id in ascending order
func (o *Ontology) Words() []wordnet.WordID {
	ids := make([]wordnet.WordID, 0, len(o.words))
	for id := range o.words {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Senses returns every sense id in ascending order
func (o *Ontology) Senses() []wordnet.SynsetID {
	return o.senseIDs()
}

// Synsets returns every node id in ascending order
func (o *Ontology) Synsets() []wordnet.SynsetID {
	return o.graph.ids()
}

func (o *Ontology) WordCount() int {
	return len(o.words)
}

func (o *Ontology) SynsetCount() int {
	return len(o.graph.nodes)
}
