package bitext

import (
	"fmt"
	"math"
	"sync"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/rowstore"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"
)

type contextKey struct {
	sense wordnet.SynsetID
	word  wordnet.WordID
}

// ContextModel estimates P(context word | sense) from sense-tagged windows
type ContextModel struct {
	pairCounts  map[contextKey]float64
	senseCounts map[wordnet.SynsetID]float64
	// distinct context words kept per sense
	continuations map[wordnet.SynsetID]int
	vocabulary    map[wordnet.WordID]struct{}
	smoother      Smoother

	// first sightings only go to the filter, so singletons never reach pairCounts
	bloomFilter *bloom.BloomFilter
	useBloom    bool

	mu sync.RWMutex
}

// NewContextModel creates an empty model. With useBloom, a (sense, word) pair is only
// counted from its second sighting on.
func NewContextModel(smoother Smoother, useBloom bool, expectedItems uint, falsePositiveRate float64) *ContextModel {
	if smoother == nil {
		smoother = NewAddKSmoother(1.0)
	}
	m := &ContextModel{
		pairCounts:    make(map[contextKey]float64),
		senseCounts:   make(map[wordnet.SynsetID]float64),
		continuations: make(map[wordnet.SynsetID]int),
		vocabulary:    make(map[wordnet.WordID]struct{}),
		smoother:      smoother,
		useBloom:      useBloom,
	}
	if useBloom {
		m.bloomFilter = bloom.NewWithEstimates(expectedItems, falsePositiveRate)
	}
	return m
}

// Add records the context words seen around one occurrence of sense
func (m *ContextModel) Add(sense wordnet.SynsetID, context []wordnet.WordID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range context {
		if w == wordnet.NoWord {
			continue
		}
		m.vocabulary[w] = struct{}{}
		m.senseCounts[sense]++

		key := contextKey{sense, w}
		if m.useBloom {
			raw := []byte(fmt.Sprintf("%d:%d", sense, w))
			if !m.bloomFilter.Test(raw) {
				m.bloomFilter.Add(raw)
				continue
			}
		}
		if m.pairCounts[key] == 0 {
			m.continuations[sense]++
		}
		m.pairCounts[key]++
	}
}

// Train adds every tagged window of the store
func (m *ContextModel) Train(store rowstore.RowStore, windowSize int, logger *zap.Logger) error {
	windows := 0
	for i := 0; i < store.Len(); i++ {
		row, err := store.Row(i)
		if err != nil {
			return err
		}
		win, err := rowstore.DecodeWindow(row, windowSize)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if win.Target.Sense == wordnet.NoSynset {
			continue
		}
		m.Add(win.Target.Sense, contextWords(win))
		windows++
	}
	logger.Info("Trained context model",
		zap.Int("windows", windows),
		zap.Int("vocabulary", m.VocabularySize()),
		zap.String("smoother", m.smoother.Name()),
		zap.Bool("bloom", m.useBloom))
	return nil
}

func contextWords(win rowstore.Window) []wordnet.WordID {
	words := make([]wordnet.WordID, 0, len(win.Context))
	for _, tok := range win.Context {
		words = append(words, tok.Word)
	}
	return words
}

// Probability returns the smoothed P(word | sense)
func (m *ContextModel) Probability(sense wordnet.SynsetID, word wordnet.WordID) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v := len(m.vocabulary)
	if v == 0 {
		return 0
	}
	return m.smoother.Smooth(m.pairCounts[contextKey{sense, word}], m.senseCounts[sense],
		m.continuations[sense], 1/float64(v), v)
}

// LogScore sums log P(word | sense) over a context, ignoring padding
func (m *ContextModel) LogScore(sense wordnet.SynsetID, context []wordnet.WordID) float64 {
	total := 0.0
	for _, w := range context {
		if w == wordnet.NoWord {
			continue
		}
		total += math.Log(m.Probability(sense, w))
	}
	return total
}

func (m *ContextModel) VocabularySize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vocabulary)
}
