package ontology

import (
	"fmt"

	"sensegraph/internal/model/wordnet"

	"go.uber.org/zap"
)

// DeepestCommonAncestor searches upward from b, breadth first, for the first node in a's
// ancestor set. a's set holds a itself only if isVirtual(a); the queue is seeded with b
// only if isVirtual(b), then with b's parents. The search is directional: with multiple
// inheritance the two argument orders may meet at different nodes.
func (o *Ontology) DeepestCommonAncestor(a, b wordnet.SynsetID, isVirtual func(wordnet.SynsetID) bool) (wordnet.SynsetID, error) {
	if !o.finalized {
		return wordnet.NoSynset, fmt.Errorf("failed to find common ancestor: %w", wordnet.ErrNotFinalized)
	}
	ancA, ok := o.ancestors[a]
	if !ok {
		o.miss("synset", zap.Int("synset_id", int(a)))
		return wordnet.NoSynset, fmt.Errorf("synset %d: %w", a, wordnet.ErrNotFound)
	}
	nodeB, ok := o.graph.get(b)
	if !ok {
		o.miss("synset", zap.Int("synset_id", int(b)))
		return wordnet.NoSynset, fmt.Errorf("synset %d: %w", b, wordnet.ErrNotFound)
	}

	virtualA := isVirtual(a)
	inA := func(id wordnet.SynsetID) bool {
		return ancA.Contains(id) || (virtualA && id == a)
	}

	visited := wordnet.NewIDSet()
	var queue []wordnet.SynsetID
	if isVirtual(b) {
		queue = append(queue, b)
	}
	queue = append(queue, nodeB.Parents.Sorted()...)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited.Contains(cur) {
			continue
		}
		visited.Add(cur)
		if inA(cur) {
			return cur, nil
		}
		if s, ok := o.graph.get(cur); ok {
			queue = append(queue, s.Parents.Sorted()...)
		}
	}
	return wordnet.NoSynset, wordnet.Inconsistent("DeepestCommonAncestor",
		"synsets %d and %d share no ancestor; every node must reach ROOT", a, b)
}
