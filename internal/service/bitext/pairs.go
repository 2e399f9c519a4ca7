package bitext

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/ontology"

	"go.uber.org/zap"
)

// Pair is a distinct (source word, target word) pair and how often it was observed
type Pair struct {
	Source wordnet.WordID
	Target TargetWordID
	Count  float64
}

type pairKey struct {
	source wordnet.WordID
	target TargetWordID
}

// PairCorpus holds deduplicated aligned word pairs in first-seen order
type PairCorpus struct {
	pairs   []Pair
	index   map[pairKey]int
	total   float64
	unknown int
}

func NewPairCorpus() *PairCorpus {
	return &PairCorpus{index: make(map[pairKey]int)}
}

// Add records n observations of (e, f)
func (c *PairCorpus) Add(e wordnet.WordID, f TargetWordID, n float64) {
	key := pairKey{e, f}
	if i, ok := c.index[key]; ok {
		c.pairs[i].Count += n
	} else {
		c.index[key] = len(c.pairs)
		c.pairs = append(c.pairs, Pair{Source: e, Target: f, Count: n})
	}
	c.total += n
}

// Pairs returns the distinct pairs
func (c *PairCorpus) Pairs() []Pair {
	return c.pairs
}

// Total is the summed observation count
func (c *PairCorpus) Total() float64 {
	return c.total
}

// Unknown is the number of lines skipped because a word was not in either vocabulary
func (c *PairCorpus) Unknown() int {
	return c.unknown
}

// LoadPairs reads lines "source<TAB>target[<TAB>count]"
func LoadPairs(path string, ont *ontology.Ontology, target *TargetVocabulary, logger *zap.Logger) (*PairCorpus, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pair corpus: %w", err)
	}
	defer file.Close()

	c := NewPairCorpus()
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, wordnet.Malformed(path, lineNo, "expected source<TAB>target[<TAB>count], got %d fields", len(fields))
		}
		n := 1.0
		if len(fields) == 3 {
			n, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
			if err != nil || n <= 0 {
				return nil, wordnet.Malformed(path, lineNo, "invalid count %q", fields[2])
			}
		}

		src := strings.TrimSpace(fields[0])
		f, ok := target.ID(strings.TrimSpace(fields[1]))
		if !ok || !ont.HasWord(src) {
			c.unknown++
			continue
		}
		e, _ := ont.WordID(src)
		c.Add(e, f, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pair corpus: %w", err)
	}

	logger.Info("Loaded pair corpus",
		zap.String("path", path),
		zap.Int("distinct_pairs", len(c.pairs)),
		zap.Float64("observations", c.total),
		zap.Int("unknown", c.unknown))
	return c, nil
}
