package ontology

import (
	"sort"
	"strings"

	"sensegraph/internal/model/wordnet"
)

// Synset is one node of the ontology DAG. Nodes are addressed by id; edges are id sets.
type Synset struct {
	ID     wordnet.SynsetID
	Labels []string
	Gloss  string
	// LexicalPOS is the tag the lexical database gave the synset
	LexicalPOS wordnet.POS
	// POS holds LexicalPOS plus every tag propagated up from descendant senses
	POS      wordnet.POSSet
	Unknown  bool
	Parents  wordnet.IDSet
	Children wordnet.IDSet
}

func newSynset(id wordnet.SynsetID, labels []string, gloss string, pos wordnet.POS) *Synset {
	return &Synset{
		ID:         id,
		Labels:     labels,
		Gloss:      gloss,
		LexicalPOS: pos,
		POS:        wordnet.POSSet(0).With(pos),
		Parents:    wordnet.NewIDSet(),
		Children:   wordnet.NewIDSet(),
	}
}

// IsCategory reports whether the node organizes other synsets
func (s *Synset) IsCategory() bool {
	return len(s.Children) > 0
}

func (s *Synset) clone() Synset {
	c := *s
	c.Labels = append([]string(nil), s.Labels...)
	c.Parents = s.Parents.Clone()
	c.Children = s.Children.Clone()
	return c
}

// signature identifies a synset across lookup paths: same label set, same gloss
func signature(labels []string, gloss string) string {
	sorted := make([]string, len(labels))
	for i, l := range labels {
		sorted[i] = strings.ToLower(l)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",") + "|" + gloss
}

// graph is the node arena. It knows nothing about words or phases.
type graph struct {
	nodes  map[wordnet.SynsetID]*Synset
	nextID wordnet.SynsetID
}

func newGraph() *graph {
	return &graph{
		nodes:  make(map[wordnet.SynsetID]*Synset),
		nextID: wordnet.FirstRegularSynsetID,
	}
}

func (g *graph) add(labels []string, gloss string, pos wordnet.POS) *Synset {
	s := newSynset(g.nextID, labels, gloss, pos)
	g.nodes[s.ID] = s
	g.nextID++
	return s
}

func (g *graph) put(s *Synset) {
	g.nodes[s.ID] = s
	if s.ID >= g.nextID {
		g.nextID = s.ID + 1
	}
}

func (g *graph) get(id wordnet.SynsetID) (*Synset, bool) {
	s, ok := g.nodes[id]
	return s, ok
}

// link adds the edge parent -> child. Self loops are ignored.
func (g *graph) link(parent, child wordnet.SynsetID) bool {
	if parent == child {
		return false
	}
	p, ok := g.nodes[parent]
	if !ok {
		return false
	}
	c, ok := g.nodes[child]
	if !ok {
		return false
	}
	p.Children.Add(child)
	c.Parents.Add(parent)
	return true
}

// remove deletes a node and every edge touching it
func (g *graph) remove(id wordnet.SynsetID) {
	s, ok := g.nodes[id]
	if !ok {
		return
	}
	for p := range s.Parents {
		if parent, ok := g.nodes[p]; ok {
			parent.Children.Remove(id)
		}
	}
	for c := range s.Children {
		if child, ok := g.nodes[c]; ok {
			child.Parents.Remove(id)
		}
	}
	delete(g.nodes, id)
}

func (g *graph) ids() []wordnet.SynsetID {
	ids := make([]wordnet.SynsetID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// upward visits id's ancestors breadth first, each once. visited is owned by the caller.
func (g *graph) upward(id wordnet.SynsetID, visited wordnet.IDSet, fn func(wordnet.SynsetID)) {
	s, ok := g.nodes[id]
	if !ok {
		return
	}
	queue := s.Parents.Sorted()
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited.Contains(cur) {
			continue
		}
		visited.Add(cur)
		fn(cur)
		if node, ok := g.nodes[cur]; ok {
			queue = append(queue, node.Parents.Sorted()...)
		}
	}
}
