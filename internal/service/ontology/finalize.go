package ontology

import (
	"sensegraph/internal/model/wordnet"

	"go.uber.org/zap"
)

// Finalize closes the extraction phase: POS tags are propagated upward, parentless nodes
// are hung under their POS root (or ROOT), synsets no word reaches are removed and the
// ancestor/descendant closures are recomputed. Calling it again is a no-op on the graph.
func (o *Ontology) Finalize() {
	o.ensureReserved(wordnet.RootSynsetID)
	o.propagatePOS()
	linked := o.linkOrphans()
	o.propagatePOS()
	removed := o.removeNonReachableSynsets()
	o.computeClosures()
	o.finalized = true

	o.logger.Info("Finalized ontology",
		zap.Int("words", len(o.words)),
		zap.Int("synsets", len(o.graph.nodes)),
		zap.Int("senses", len(o.senseWords)),
		zap.Int("linked_orphans", linked),
		zap.Int("removed_synsets", removed))
}

// propagatePOS adds the tag of every sense to all of its transitive ancestors
func (o *Ontology) propagatePOS() {
	for _, sense := range o.senseIDs() {
		s, ok := o.graph.get(sense)
		if !ok {
			continue
		}
		tags := s.POS
		o.graph.upward(sense, wordnet.NewIDSet(), func(id wordnet.SynsetID) {
			if anc, ok := o.graph.get(id); ok {
				anc.POS = anc.POS.Union(tags)
			}
		})
	}
}

// linkOrphans hangs every parentless node under the root of its single POS, or ROOT
func (o *Ontology) linkOrphans() int {
	linked := 0
	for _, id := range o.graph.ids() {
		if id == wordnet.RootSynsetID {
			continue
		}
		s, _ := o.graph.get(id)
		if len(s.Parents) > 0 {
			continue
		}
		parent := wordnet.RootSynsetID
		if pos, single := s.POS.Single(); single && !IsReserved(id) {
			parent = pos.RootSynset()
			o.ensureReserved(parent)
		}
		if o.graph.link(parent, id) {
			linked++
		}
	}
	return linked
}

// removeNonReachableSynsets marks every node reachable upward from a word's sense and
// sweeps the rest. ROOT always survives.
func (o *Ontology) removeNonReachableSynsets() int {
	marked := wordnet.NewIDSet(wordnet.RootSynsetID)
	for _, sense := range o.senseIDs() {
		if _, ok := o.graph.get(sense); !ok {
			continue
		}
		marked.Add(sense)
		o.graph.upward(sense, marked, func(wordnet.SynsetID) {})
	}

	removed := 0
	for _, id := range o.graph.ids() {
		if marked.Contains(id) {
			continue
		}
		o.graph.remove(id)
		removed++
	}
	if removed > 0 {
		for key, id := range o.extracted {
			if _, ok := o.graph.get(id); !ok {
				delete(o.extracted, key)
			}
		}
	}
	return removed
}

func (o *Ontology) computeClosures() {
	o.ancestors = make(map[wordnet.SynsetID]wordnet.IDSet, len(o.graph.nodes))
	for _, id := range o.graph.ids() {
		o.ancestorClosure(id)
	}

	o.senseDescendants = make(map[wordnet.SynsetID]wordnet.IDSet, len(o.graph.nodes))
	for _, id := range o.graph.ids() {
		o.descendantClosure(id)
	}
}

func (o *Ontology) ancestorClosure(id wordnet.SynsetID) wordnet.IDSet {
	if set, ok := o.ancestors[id]; ok {
		return set
	}
	set := wordnet.NewIDSet()
	o.ancestors[id] = set
	s, _ := o.graph.get(id)
	for p := range s.Parents {
		set.Add(p)
		for a := range o.ancestorClosure(p) {
			set.Add(a)
		}
	}
	return set
}

func (o *Ontology) descendantClosure(id wordnet.SynsetID) wordnet.IDSet {
	if set, ok := o.senseDescendants[id]; ok {
		return set
	}
	set := wordnet.NewIDSet()
	o.senseDescendants[id] = set
	if o.IsSense(id) {
		set.Add(id)
	}
	s, _ := o.graph.get(id)
	for c := range s.Children {
		for d := range o.descendantClosure(c) {
			set.Add(d)
		}
	}
	return set
}

func (o *Ontology) senseIDs() []wordnet.SynsetID {
	set := make(wordnet.IDSet, len(o.senseWords))
	for id := range o.senseWords {
		set.Add(id)
	}
	return set.Sorted()
}
