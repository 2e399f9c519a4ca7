package bitext

import (
	"context"
	"fmt"
	"math"
	"time"

	"sensegraph/internal/model/wordnet"

	"go.uber.org/zap"
)

// EpochStats summarizes one EM epoch. LogLikelihood is Σ nb·log L(e,f) under the tables
// the epoch started from.
type EpochStats struct {
	Epoch         int
	LogLikelihood float64
	Pairs         int
	Skipped       int
	Duration      time.Duration
}

// posterior is the per-pair state shared by the likelihood and the E-step
type posterior struct {
	common     []wordnet.SynsetID
	peC, pfC   map[wordnet.SynsetID]float64
	likelihood float64
}

// Likelihood returns L(e,f) = Σ_c peC[c]·pfC[c]·pC[c] over CommonNode(e,f)
func (e *Engine) Likelihood(src wordnet.WordID, tgt TargetWordID) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return 0, fmt.Errorf("engine is not initialized")
	}
	post, err := e.posterior(src, tgt)
	if err != nil {
		return 0, err
	}
	return post.likelihood, nil
}

func (e *Engine) posterior(src wordnet.WordID, tgt TargetWordID) (*posterior, error) {
	set, err := e.commonNodes(src, tgt)
	if err != nil {
		return nil, err
	}
	post := &posterior{
		common: set.Sorted(),
		peC:    make(map[wordnet.SynsetID]float64, len(set)),
		pfC:    make(map[wordnet.SynsetID]float64, len(set)),
	}

	for _, c := range post.common {
		for s, p := range e.pES[src] {
			if p > 0 && e.under(c, s) {
				post.peC[c] += p * e.model.PS(s)
			}
		}
		for s, p := range e.pFS[tgt] {
			if p > 0 && e.under(c, s) {
				post.pfC[c] += p * e.model.PS(s)
			}
		}
		ptc := e.model.PTC(c)
		if ptc <= 0 {
			// an unsmoothed M-step can empty a whole subtree; it then carries no mass
			if post.peC[c] > 0 || post.pfC[c] > 0 {
				return nil, wordnet.Inconsistent("Likelihood", "common node %d of pair (%d, %d) has no subtree mass", c, src, tgt)
			}
			continue
		}
		post.peC[c] /= ptc
		post.pfC[c] /= ptc
		post.likelihood += post.peC[c] * post.pfC[c] * e.model.PC(c)
	}
	return post, nil
}

// expectedCounts accumulates the E-step statistics of one epoch
type expectedCounts struct {
	source map[wordnet.WordID]map[wordnet.SynsetID]float64
	target map[TargetWordID]map[wordnet.SynsetID]float64
	sense  map[wordnet.SynsetID]float64
	stop   map[wordnet.SynsetID]float64
	mass   float64
}

func newExpectedCounts() *expectedCounts {
	return &expectedCounts{
		source: make(map[wordnet.WordID]map[wordnet.SynsetID]float64),
		target: make(map[TargetWordID]map[wordnet.SynsetID]float64),
		sense:  make(map[wordnet.SynsetID]float64),
		stop:   make(map[wordnet.SynsetID]float64),
	}
}

func addTo[K comparable](m map[K]map[wordnet.SynsetID]float64, k K, s wordnet.SynsetID, v float64) {
	inner, ok := m[k]
	if !ok {
		inner = make(map[wordnet.SynsetID]float64)
		m[k] = inner
	}
	inner[s] += v
}

// eStep accumulates expected counts over every distinct pair
func (e *Engine) eStep(counts *expectedCounts) (EpochStats, error) {
	var stats EpochStats
	for _, pair := range e.corpus.Pairs() {
		post, err := e.posterior(pair.Source, pair.Target)
		if err != nil {
			return stats, err
		}
		if post.likelihood <= 0 {
			stats.Skipped++
			continue
		}
		if err := e.accumulate(pair, post, counts); err != nil {
			return stats, err
		}
		stats.Pairs++
		stats.LogLikelihood += pair.Count * math.Log(post.likelihood)
	}
	return stats, nil
}

// accumulate adds the posterior counts of one pair. Each side receives exactly nb and the
// stopping events receive nb.
func (e *Engine) accumulate(pair Pair, post *posterior, counts *expectedCounts) error {
	nb, L := pair.Count, post.likelihood
	sourceMass, targetMass, stopMass := 0.0, 0.0, 0.0

	for _, c := range post.common {
		pc, ptc := e.model.PC(c), e.model.PTC(c)
		if pc == 0 || ptc <= 0 {
			continue
		}
		stop := nb * pc * post.peC[c] * post.pfC[c] / L
		counts.stop[c] += stop
		stopMass += stop

		for s, p := range e.pES[pair.Source] {
			if p <= 0 || !e.under(c, s) {
				continue
			}
			inc := nb * pc * p * e.model.PS(s) / ptc * post.pfC[c] / L
			addTo(counts.source, pair.Source, s, inc)
			counts.sense[s] += inc
			sourceMass += inc
		}
		for s, p := range e.pFS[pair.Target] {
			if p <= 0 || !e.under(c, s) {
				continue
			}
			inc := nb * pc * p * e.model.PS(s) / ptc * post.peC[c] / L
			addTo(counts.target, pair.Target, s, inc)
			counts.sense[s] += inc
			targetMass += inc
		}
	}
	counts.mass += nb

	tol := e.options.Tolerance * math.Max(1, nb)
	for name, got := range map[string]float64{"source": sourceMass, "target": targetMass, "stop": stopMass} {
		if math.Abs(got-nb) > tol {
			return wordnet.Inconsistent("EStep", "%s mass %.8f for pair (%d, %d) observed %g times",
				name, got, pair.Source, pair.Target, nb)
		}
	}
	return nil
}

// mStep re-estimates pS, pES, pFS and pA from the expected counts and reruns the distributor
func (e *Engine) mStep(counts *expectedCounts) error {
	senses := e.ont.Senses()
	total := 0.0
	for _, s := range senses {
		if counts.sense[s] < 0 {
			return wordnet.Inconsistent("MStep", "negative count %g for sense %d", counts.sense[s], s)
		}
		total += counts.sense[s]
	}
	prior := make(map[wordnet.SynsetID]float64, len(senses))
	for _, s := range senses {
		prior[s] = e.options.Smoother.Smooth(counts.sense[s], total, len(counts.sense), 1/float64(len(senses)), len(senses))
	}
	if err := e.model.SetPrior(prior); err != nil {
		return err
	}

	for w, dist := range counts.source {
		e.pES[w] = normalize(dist)
	}
	for f, dist := range counts.target {
		e.pFS[f] = normalize(dist)
	}

	if counts.mass > 0 {
		e.model.SetStopProbability(0)
		for c, n := range counts.stop {
			e.model.SetPA(c, n/counts.mass)
		}
	}
	return e.model.Update()
}

func normalize(dist map[wordnet.SynsetID]float64) map[wordnet.SynsetID]float64 {
	total := 0.0
	for _, v := range dist {
		total += v
	}
	out := make(map[wordnet.SynsetID]float64, len(dist))
	for s, v := range dist {
		out[s] = v / total
	}
	return out
}

// Step runs one E-step and one M-step
func (e *Engine) Step() (EpochStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return EpochStats{}, fmt.Errorf("engine is not initialized")
	}

	start := time.Now()
	counts := newExpectedCounts()
	stats, err := e.eStep(counts)
	if err != nil {
		return stats, fmt.Errorf("E-step failed: %w", err)
	}
	if err := e.mStep(counts); err != nil {
		return stats, fmt.Errorf("M-step failed: %w", err)
	}
	e.epoch++
	stats.Epoch = e.epoch
	stats.Duration = time.Since(start)
	e.history = append(e.history, stats)
	return stats, nil
}

// Train runs epochs of batch EM. Cancellation is checked between epochs; onEpoch, when
// set, sees every epoch's statistics.
func (e *Engine) Train(ctx context.Context, epochs int, onEpoch func(EpochStats)) ([]EpochStats, error) {
	var all []EpochStats
	for i := 0; i < epochs; i++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		stats, err := e.Step()
		if err != nil {
			e.logger.Error("EM epoch failed", zap.Int("epoch", i+1), zap.Error(err))
			return all, err
		}
		all = append(all, stats)
		e.logger.Info("EM epoch finished",
			zap.Int("epoch", stats.Epoch),
			zap.Float64("log_likelihood", stats.LogLikelihood),
			zap.Int("pairs", stats.Pairs),
			zap.Int("skipped", stats.Skipped),
			zap.Duration("duration", stats.Duration))
		if onEpoch != nil {
			onEpoch(stats)
		}
	}
	return all, nil
}
