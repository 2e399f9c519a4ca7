package bitext

import (
	"fmt"
	"math"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/rowstore"

	"go.uber.org/zap"
)

// WSDOptions control sense scoring
type WSDOptions struct {
	WindowSize int
	// Context, when set, adds ContextWeight·Σ log P(ctx | s) to every score
	Context       *ContextModel
	ContextWeight float64
}

// ScoredSense is a candidate with its log score
type ScoredSense struct {
	Sense wordnet.SynsetID
	Score float64
}

// Report summarizes a disambiguation run
type Report struct {
	Total        int
	Ambiguous    int
	Correct      int
	UnknownSense int
	Accuracy     float64
}

// Disambiguate scores the senses of word compatible with pos, in native order, and
// returns the index of the winner. Ties keep the earliest candidate, so a word without
// any signal gets its first sense.
func (e *Engine) Disambiguate(word wordnet.WordID, pos wordnet.POS, context []wordnet.WordID, opts WSDOptions) ([]ScoredSense, int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.disambiguate(word, pos, context, opts)
}

func (e *Engine) disambiguate(word wordnet.WordID, pos wordnet.POS, context []wordnet.WordID, opts WSDOptions) ([]ScoredSense, int, error) {
	if !e.initialized {
		return nil, -1, fmt.Errorf("engine is not initialized")
	}
	tag := pos
	if tag == wordnet.Undefined {
		tag = wordnet.AllPOS
	}
	candidates := e.ont.WordSensesForPOS(word, tag)
	if len(candidates) == 0 {
		return nil, -1, fmt.Errorf("word %d has no %s sense: %w", word, tag, wordnet.ErrNotFound)
	}

	scored := make([]ScoredSense, len(candidates))
	best, bestScore := 0, math.Inf(-1)
	for i, s := range candidates {
		score := math.Log(e.pES[word][s]) + math.Log(e.model.PS(s))
		if opts.Context != nil && opts.ContextWeight != 0 {
			score += opts.ContextWeight * opts.Context.LogScore(s, context)
		}
		scored[i] = ScoredSense{Sense: s, Score: score}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return scored, best, nil
}

// TestWSD disambiguates every sense-tagged window of store and compares with the gold
// sense. Single-candidate words are assigned directly. Words whose gold sense is not a
// candidate count as unknown-sense errors.
func (e *Engine) TestWSD(store rowstore.RowStore, opts WSDOptions) (Report, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var report Report
	for i := 0; i < store.Len(); i++ {
		row, err := store.Row(i)
		if err != nil {
			return report, err
		}
		win, err := rowstore.DecodeWindow(row, opts.WindowSize)
		if err != nil {
			return report, fmt.Errorf("row %d: %w", i, err)
		}
		gold := win.Target.Sense
		if gold == wordnet.NoSynset {
			continue
		}
		report.Total++

		scored, best, err := e.disambiguate(win.Target.Word, win.Target.POS, contextWords(win), opts)
		if err != nil {
			report.UnknownSense++
			continue
		}
		if !hasCandidate(scored, gold) {
			report.UnknownSense++
			continue
		}
		if len(scored) > 1 {
			report.Ambiguous++
		}
		if scored[best].Sense == gold {
			report.Correct++
		}
	}
	if report.Total > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Total)
	}

	e.logger.Info("Disambiguation finished",
		zap.Int("total", report.Total),
		zap.Int("ambiguous", report.Ambiguous),
		zap.Int("correct", report.Correct),
		zap.Int("unknown_sense_errors", report.UnknownSense),
		zap.Float64("accuracy", report.Accuracy))
	return report, nil
}

func hasCandidate(scored []ScoredSense, s wordnet.SynsetID) bool {
	for _, c := range scored {
		if c.Sense == s {
			return true
		}
	}
	return false
}
