package sensemodel

import (
	"math"

	"sensegraph/internal/model/wordnet"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Update recomputes every derived table from pS and pA, correcting pA first when the
// model was built with CorrectStopping
func (m *Model) Update() error {
	m.ComputeSubtreeMass()
	if m.options.CorrectStopping {
		m.CheckSetPA()
	}
	if err := m.ComputeReachedMass(); err != nil {
		return err
	}
	return m.CheckInvariants()
}

// Distribute is Update without the pA correction, for freshly initialized tables
func (m *Model) Distribute() error {
	m.ComputeSubtreeMass()
	if err := m.ComputeReachedMass(); err != nil {
		return err
	}
	return m.CheckInvariants()
}

// ComputeSubtreeMass fills pTC. Each sense sends pS upward, split evenly over its parents
// at every level, so pTC[ROOT] equals Σ pS. Pure senses keep pTC = 0; a node that is both
// sense and category counts its own pS.
func (m *Model) ComputeSubtreeMass() {
	flow := make(map[wordnet.SynsetID]float64)
	var upward func(id wordnet.SynsetID) float64
	upward = func(id wordnet.SynsetID) float64 {
		if f, ok := flow[id]; ok {
			return f
		}
		f := m.tables.PS[id]
		for _, child := range m.ont.SynsetChildren(id) {
			f += upward(child) / float64(len(m.ont.SynsetParents(child)))
		}
		flow[id] = f
		return f
	}

	ptc := make(map[wordnet.SynsetID]float64)
	for _, id := range m.ont.Synsets() {
		if len(m.ont.SynsetChildren(id)) == 0 {
			ptc[id] = 0
			continue
		}
		ptc[id] = upward(id)
	}
	m.tables.PTC = ptc
}

// ComputeReachedMass fills pMC and pC by a breadth-first pass from ROOT. A node is only
// settled once every parent carrying mass is settled. Nodes without subtree mass are never
// visited. Categories with no massive child stop with probability one.
func (m *Model) ComputeReachedMass() error {
	t := m.tables
	if t.PTC[wordnet.RootSynsetID] <= 0 {
		return wordnet.Inconsistent("ComputeReachedMass", "ROOT has no subtree mass")
	}

	t.PMC = make(map[wordnet.SynsetID]float64)
	t.PC = make(map[wordnet.SynsetID]float64)
	settled := wordnet.NewIDSet()
	queued := wordnet.NewIDSet(wordnet.RootSynsetID)
	queue := []wordnet.SynsetID{wordnet.RootSynsetID}
	stalled := 0

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		ready := true
		reached := 0.0
		if cur == wordnet.RootSynsetID {
			reached = 1
		} else {
			for _, p := range m.ont.SynsetParents(cur) {
				if t.PTC[p] <= 0 {
					continue
				}
				if !settled.Contains(p) {
					ready = false
					break
				}
				reached += t.PMC[p] * (1 - t.PA[p]) * t.PTC[cur] / m.childMass(p)
			}
		}
		if !ready {
			queue = append(queue, cur)
			stalled++
			if stalled > len(queue) {
				return wordnet.Inconsistent("ComputeReachedMass", "no settlement order for %d queued nodes", len(queue))
			}
			continue
		}
		stalled = 0

		if m.childMass(cur) <= 0 {
			t.PA[cur] = 1
		}
		t.PMC[cur] = reached
		t.PC[cur] = reached * t.PA[cur]
		settled.Add(cur)

		for _, child := range m.ont.SynsetChildren(cur) {
			if t.PTC[child] <= 0 || queued.Contains(child) {
				continue
			}
			queued.Add(child)
			queue = append(queue, child)
		}
	}

	sum := floats.Sum(sortedValues(t.PC))
	if !scalar.EqualWithinAbs(sum, 1, m.options.Tolerance) {
		return wordnet.Inconsistent("ComputeReachedMass", "Σ pC = %.8f", sum)
	}
	m.logger.Debug("Computed reached mass",
		zap.Int("visited", len(settled)),
		zap.Float64("pc_sum", sum))
	return nil
}

func (m *Model) childMass(id wordnet.SynsetID) float64 {
	total := 0.0
	for _, child := range m.ont.SynsetChildren(id) {
		total += m.tables.PTC[child]
	}
	return total
}

// CheckSetPA resets pA of every category with mass to the share of its subtree mass that
// stops there: its pure-sense children (discounted by their parent count) plus its own pS.
func (m *Model) CheckSetPA() {
	t := m.tables
	for _, id := range m.ont.Synsets() {
		if t.PTC[id] <= 0 {
			continue
		}
		direct := 0.0
		if m.ont.IsSense(id) {
			direct = t.PS[id]
		}
		for _, child := range m.ont.SynsetChildren(id) {
			if len(m.ont.SynsetChildren(child)) > 0 || !m.ont.IsSense(child) {
				continue
			}
			direct += t.PS[child] / float64(len(m.ont.SynsetParents(child)))
		}
		t.PA[id] = clamp(direct / t.PTC[id])
	}
}

// CheckInvariants verifies Σ pS ≈ 1, Σ pC ≈ 1 and that every table holds probabilities
func (m *Model) CheckInvariants() error {
	t := m.tables
	for name, table := range map[string]map[wordnet.SynsetID]float64{"pS": t.PS, "pA": t.PA, "pC": t.PC} {
		for id, p := range table {
			if p < 0 || p > 1+m.options.Tolerance || math.IsNaN(p) {
				return wordnet.Inconsistent("CheckInvariants", "%s[%d] = %g", name, id, p)
			}
		}
	}
	if sum := floats.Sum(sortedValues(t.PS)); !scalar.EqualWithinAbs(sum, 1, m.options.Tolerance) {
		return wordnet.Inconsistent("CheckInvariants", "Σ pS = %.8f", sum)
	}
	if sum := floats.Sum(sortedValues(t.PC)); !scalar.EqualWithinAbs(sum, 1, m.options.Tolerance) {
		return wordnet.Inconsistent("CheckInvariants", "Σ pC = %.8f", sum)
	}
	return nil
}

// sortedValues returns the table in id order so float sums are reproducible
func sortedValues(table map[wordnet.SynsetID]float64) []float64 {
	ids := make(wordnet.IDSet, len(table))
	for id := range table {
		ids.Add(id)
	}
	values := make([]float64, 0, len(table))
	for _, id := range ids.Sorted() {
		values = append(values, table[id])
	}
	return values
}
