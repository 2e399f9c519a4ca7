package sensemodel

import (
	"fmt"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/ontology"

	"go.uber.org/zap"
)

// DefaultTolerance bounds the drift allowed on Σ pS and Σ pC
const DefaultTolerance = 1e-4

// Tables holds the probability tables of a finalized ontology. Exported for checkpoints.
type Tables struct {
	// PS is the prior over senses
	PS map[wordnet.SynsetID]float64
	// PTC is the prior mass of the subtree below a category; zero for pure senses
	PTC map[wordnet.SynsetID]float64
	// PA is the probability of stopping at a category
	PA map[wordnet.SynsetID]float64
	// PMC is the probability mass reaching a category from ROOT
	PMC map[wordnet.SynsetID]float64
	// PC is PMC * PA, the probability of stopping exactly at the category
	PC map[wordnet.SynsetID]float64
}

// NewTables returns empty tables
func NewTables() *Tables {
	return &Tables{
		PS:  make(map[wordnet.SynsetID]float64),
		PTC: make(map[wordnet.SynsetID]float64),
		PA:  make(map[wordnet.SynsetID]float64),
		PMC: make(map[wordnet.SynsetID]float64),
		PC:  make(map[wordnet.SynsetID]float64),
	}
}

// Options tune the distributor
type Options struct {
	// CorrectStopping recomputes pA from the prior on every Update
	CorrectStopping bool
	Tolerance       float64
}

// Model attaches probability tables to a finalized ontology. It is not safe for
// concurrent mutation; readers may share it between updates.
type Model struct {
	ont     *ontology.Ontology
	tables  *Tables
	options Options
	logger  *zap.Logger
}

// NewModel fails with ErrNotFinalized unless the ontology is in the query phase
func NewModel(ont *ontology.Ontology, options Options, logger *zap.Logger) (*Model, error) {
	if !ont.Finalized() {
		return nil, fmt.Errorf("failed to create sense model: %w", wordnet.ErrNotFinalized)
	}
	if options.Tolerance <= 0 {
		options.Tolerance = DefaultTolerance
	}
	return &Model{
		ont:     ont,
		tables:  NewTables(),
		options: options,
		logger:  logger,
	}, nil
}

func (m *Model) Ontology() *ontology.Ontology {
	return m.ont
}

// Tables exposes the live tables
func (m *Model) Tables() *Tables {
	return m.tables
}

// SetTables replaces the tables, e.g. from a checkpoint. Derived tables are not recomputed.
func (m *Model) SetTables(t *Tables) {
	m.tables = t
}

func (m *Model) PS(id wordnet.SynsetID) float64  { return m.tables.PS[id] }
func (m *Model) PTC(id wordnet.SynsetID) float64 { return m.tables.PTC[id] }
func (m *Model) PA(id wordnet.SynsetID) float64  { return m.tables.PA[id] }
func (m *Model) PMC(id wordnet.SynsetID) float64 { return m.tables.PMC[id] }
func (m *Model) PC(id wordnet.SynsetID) float64  { return m.tables.PC[id] }

// IsVirtual reports whether a node carries its own sense mass as well as a subtree
func (m *Model) IsVirtual(id wordnet.SynsetID) bool {
	return m.ont.IsVirtual(id)
}

// SetUniformPrior spreads pS evenly over the given senses; every other sense gets zero
func (m *Model) SetUniformPrior(senses []wordnet.SynsetID) {
	m.tables.PS = make(map[wordnet.SynsetID]float64, len(senses))
	if len(senses) == 0 {
		return
	}
	p := 1.0 / float64(len(senses))
	for _, s := range senses {
		m.tables.PS[s] = p
	}
}

// SetPrior replaces pS. The values are normalized to sum to one.
func (m *Model) SetPrior(prior map[wordnet.SynsetID]float64) error {
	total := 0.0
	for id, p := range prior {
		if p < 0 {
			return wordnet.Inconsistent("SetPrior", "negative prior %g for synset %d", p, id)
		}
		if !m.ont.IsSense(id) {
			return fmt.Errorf("synset %d is not a sense: %w", id, wordnet.ErrNotFound)
		}
		total += p
	}
	if total == 0 {
		return wordnet.Inconsistent("SetPrior", "prior has no mass")
	}
	m.tables.PS = make(map[wordnet.SynsetID]float64, len(prior))
	for id, p := range prior {
		m.tables.PS[id] = p / total
	}
	return nil
}

// SetStopProbability sets pA of every category to p
func (m *Model) SetStopProbability(p float64) {
	m.tables.PA = make(map[wordnet.SynsetID]float64)
	for _, id := range m.ont.Synsets() {
		if len(m.ont.SynsetChildren(id)) > 0 {
			m.tables.PA[id] = clamp(p)
		}
	}
}

// SetPA overrides the stopping probability of one category
func (m *Model) SetPA(id wordnet.SynsetID, p float64) {
	m.tables.PA[id] = clamp(p)
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
