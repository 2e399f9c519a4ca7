package bitext

import (
	"fmt"
	"sync"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/ontology"
	"sensegraph/internal/service/sensemodel"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configure an Engine
type Options struct {
	// InitialStopProbability is pA of every category before the first epoch
	InitialStopProbability float64
	// Smoother re-estimates pS from expected sense counts; nil is the plain N(s)/ΣN
	Smoother Smoother
	// Tolerance bounds the per-pair mass conservation checks
	Tolerance float64
}

// DefaultOptions mirror the configuration defaults
func DefaultOptions() Options {
	return Options{
		InitialStopProbability: 0.1,
		Smoother:               NewAddKSmoother(0),
		Tolerance:              sensemodel.DefaultTolerance,
	}
}

// Engine estimates sense and stopping probabilities from aligned word pairs with EM.
// Likelihoods are computed from the tables of the previous M-step; the distributor runs
// once per epoch, never per pair.
type Engine struct {
	model   *sensemodel.Model
	ont     *ontology.Ontology
	target  *TargetVocabulary
	corpus  *PairCorpus
	options Options
	logger  *zap.Logger
	runID   string

	pES map[wordnet.WordID]map[wordnet.SynsetID]float64
	pFS map[TargetWordID]map[wordnet.SynsetID]float64

	// common ancestors per word pair, and the sense-pair results they were built from
	common    map[pairKey]wordnet.IDSet
	meetCache map[[2]wordnet.SynsetID]wordnet.SynsetID

	initialized bool
	epoch       int
	history     []EpochStats

	mu sync.RWMutex
}

// NewEngine wires an engine. Call Init before training or querying.
func NewEngine(model *sensemodel.Model, target *TargetVocabulary, corpus *PairCorpus, options Options, logger *zap.Logger) *Engine {
	if options.Smoother == nil {
		options.Smoother = NewAddKSmoother(0)
	}
	if options.Tolerance <= 0 {
		options.Tolerance = sensemodel.DefaultTolerance
	}
	if corpus == nil {
		corpus = NewPairCorpus()
	}
	return &Engine{
		model:     model,
		ont:       model.Ontology(),
		target:    target,
		corpus:    corpus,
		options:   options,
		logger:    logger,
		runID:     uuid.New().String(),
		common:    make(map[pairKey]wordnet.IDSet),
		meetCache: make(map[[2]wordnet.SynsetID]wordnet.SynsetID),
	}
}

func (e *Engine) Model() *sensemodel.Model { return e.model }

func (e *Engine) Target() *TargetVocabulary { return e.target }

func (e *Engine) Corpus() *PairCorpus { return e.corpus }

// RunID identifies this training run in checkpoints and logs
func (e *Engine) RunID() string { return e.runID }

// Init sets uniform pS (or pS smoothed from seed counts when seed is non-empty), uniform
// pES and pFS, constant pA, runs the distributor and builds the CommonNode table
func (e *Engine) Init(seed map[wordnet.SynsetID]float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	senses := e.ont.Senses()
	if len(senses) == 0 {
		return wordnet.Inconsistent("Init", "ontology has no senses")
	}
	if len(seed) > 0 {
		if err := e.model.SetPrior(e.smoothPrior(senses, seed)); err != nil {
			return fmt.Errorf("failed to seed prior: %w", err)
		}
	} else {
		e.model.SetUniformPrior(senses)
	}

	e.pES = make(map[wordnet.WordID]map[wordnet.SynsetID]float64)
	for _, w := range e.ont.Words() {
		e.pES[w] = uniform(e.ont.WordSenses(w))
	}
	e.pFS = make(map[TargetWordID]map[wordnet.SynsetID]float64)
	for f := 0; f < e.target.Len(); f++ {
		e.pFS[TargetWordID(f)] = uniform(e.target.Senses(TargetWordID(f)))
	}

	e.model.SetStopProbability(e.options.InitialStopProbability)
	if err := e.model.Distribute(); err != nil {
		return fmt.Errorf("failed to distribute initial mass: %w", err)
	}
	if err := e.buildCommonNodes(); err != nil {
		return err
	}
	e.initialized = true
	e.epoch = 0
	e.history = nil

	e.logger.Info("Initialized EM engine",
		zap.String("run_id", e.runID),
		zap.Int("senses", len(senses)),
		zap.Int("source_words", len(e.pES)),
		zap.Int("target_words", len(e.pFS)),
		zap.Int("pairs", len(e.corpus.Pairs())))
	return nil
}

func (e *Engine) smoothPrior(senses []wordnet.SynsetID, seed map[wordnet.SynsetID]float64) map[wordnet.SynsetID]float64 {
	total := 0.0
	for _, s := range senses {
		total += seed[s]
	}
	prior := make(map[wordnet.SynsetID]float64, len(senses))
	for _, s := range senses {
		prior[s] = e.options.Smoother.Smooth(seed[s], total, len(seed), 1/float64(len(senses)), len(senses))
	}
	return prior
}

func uniform(senses []wordnet.SynsetID) map[wordnet.SynsetID]float64 {
	dist := make(map[wordnet.SynsetID]float64, len(senses))
	for _, s := range senses {
		dist[s] = 1 / float64(len(senses))
	}
	return dist
}

// buildCommonNodes computes the deepest common ancestors of every sense pair of every
// corpus pair. Sense-pair results are shared between word pairs.
func (e *Engine) buildCommonNodes() error {
	e.common = make(map[pairKey]wordnet.IDSet, len(e.corpus.Pairs()))
	for _, p := range e.corpus.Pairs() {
		if _, err := e.commonNodes(p.Source, p.Target); err != nil {
			return err
		}
	}
	e.logger.Debug("Built CommonNode table",
		zap.Int("word_pairs", len(e.common)),
		zap.Int("sense_pairs", len(e.meetCache)))
	return nil
}

func (e *Engine) commonNodes(src wordnet.WordID, tgt TargetWordID) (wordnet.IDSet, error) {
	key := pairKey{src, tgt}
	if set, ok := e.common[key]; ok {
		return set, nil
	}
	set := wordnet.NewIDSet()
	for _, s := range e.ont.WordSenses(src) {
		for _, t := range e.target.Senses(tgt) {
			meet, ok := e.meetCache[[2]wordnet.SynsetID{s, t}]
			if !ok {
				var err error
				meet, err = e.ont.DeepestCommonAncestor(s, t, e.model.IsVirtual)
				if err != nil {
					return nil, fmt.Errorf("failed to find common ancestor of %d and %d: %w", s, t, err)
				}
				e.meetCache[[2]wordnet.SynsetID{s, t}] = meet
			}
			set.Add(meet)
		}
	}
	e.common[key] = set
	return set, nil
}

// CommonNodes returns the CommonNode set of a word pair
func (e *Engine) CommonNodes(src wordnet.WordID, tgt TargetWordID) ([]wordnet.SynsetID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return nil, fmt.Errorf("engine is not initialized")
	}
	set, err := e.commonNodes(src, tgt)
	if err != nil {
		return nil, err
	}
	return set.Sorted(), nil
}

// PES returns P(s | source word e)
func (e *Engine) PES(w wordnet.WordID, s wordnet.SynsetID) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pES[w][s]
}

// PFS returns P(s | target word f)
func (e *Engine) PFS(f TargetWordID, s wordnet.SynsetID) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pFS[f][s]
}

// SetPES overrides the sense distribution of a source word; used to pin test fixtures
func (e *Engine) SetPES(w wordnet.WordID, dist map[wordnet.SynsetID]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pES[w] = dist
}

// History returns the statistics of every epoch since Init
func (e *Engine) History() []EpochStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]EpochStats(nil), e.history...)
}

// under reports whether stopping at c can generate s: c is above s, or c is s itself
// carrying its own sense mass
func (e *Engine) under(c, s wordnet.SynsetID) bool {
	if c == s {
		return e.model.IsVirtual(s)
	}
	return e.ont.AncestorClosure(s).Contains(c)
}
