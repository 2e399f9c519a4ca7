package bitext

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"sensegraph/internal/model/wordnet"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadTranslations(t *testing.T) {
	f := newFixture(t, true)
	dir := t.TempDir()
	path := writeFile(t, dir, "fr.tsv", "# french\nbanque\tbank\nrivage\tshore unicorn\nrivage\tbank\nlicorne\tunicorn\n")

	v, err := LoadTranslations(path, f.ont, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadTranslations failed: %v", err)
	}
	if v.Len() != 2 {
		t.Fatalf("Expected 2 target words, got %d", v.Len())
	}
	if _, ok := v.ID("licorne"); ok {
		t.Fatalf("Expected a target without known sources to be dropped")
	}
	rivage, _ := v.ID("rivage")
	// shore's sense first, then bank's two senses
	if got := v.Senses(rivage); len(got) != 3 || got[0] != f.ont.WordSenses(wordID(t, f.ont, "shore"))[0] {
		t.Fatalf("Unexpected senses for rivage: %v", got)
	}

	bad := writeFile(t, dir, "bad.tsv", "banque\tbank\nrivage\n")
	_, err = LoadTranslations(bad, f.ont, zap.NewNop())
	var fe *wordnet.FormatError
	if !errors.As(err, &fe) || fe.Line != 2 {
		t.Fatalf("Expected FormatError on line 2, got %v", err)
	}
}

func TestLoadPairs(t *testing.T) {
	f := newFixture(t, true)
	dir := t.TempDir()
	path := writeFile(t, dir, "pairs.tsv", "bank\tbanque\nbank\tbanque\t2.5\nshore\trive\nunicorn\trive\nbank\tlicorne\n")

	c, err := LoadPairs(path, f.ont, f.target, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadPairs failed: %v", err)
	}
	if len(c.Pairs()) != 2 || c.Unknown() != 2 {
		t.Fatalf("Expected 2 distinct pairs and 2 unknown lines, got %d and %d", len(c.Pairs()), c.Unknown())
	}
	if c.Pairs()[0].Count != 3.5 || c.Total() != 4.5 {
		t.Fatalf("Expected deduplicated counts, got %+v (total %v)", c.Pairs(), c.Total())
	}

	for name, content := range map[string]string{
		"fields.tsv": "bank\n",
		"count.tsv":  "bank\tbanque\t-1\n",
	} {
		_, err := LoadPairs(writeFile(t, dir, name, content), f.ont, f.target, zap.NewNop())
		var fe *wordnet.FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("%s: expected FormatError, got %v", name, err)
		}
	}
}

func TestSmoothers_SumToOne(t *testing.T) {
	counts := []float64{5, 3, 0, 0, 2}
	total := 10.0
	for _, s := range []Smoother{NewAddKSmoother(0.5), NewWittenBellSmoother()} {
		sum := 0.0
		for _, c := range counts {
			sum += s.Smooth(c, total, 3, 1/float64(len(counts)), len(counts))
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("%s: probabilities sum to %v", s.Name(), sum)
		}
		if p := s.Smooth(0, total, 3, 0.2, len(counts)); p <= 0 {
			t.Fatalf("%s: unseen event got %v", s.Name(), p)
		}
		if p := s.Smooth(0, 0, 0, 0.2, 4); p != 0.25 {
			t.Fatalf("%s: empty context should be uniform, got %v", s.Name(), p)
		}
	}

	if _, err := NewSmoother("kneser-ney", 1); err == nil {
		t.Fatalf("Expected error for unknown smoother")
	}
	if _, err := NewSmoother("addk", -1); err == nil {
		t.Fatalf("Expected error for a negative add-k constant")
	}
}

func TestSmoothers_ZeroKIsRelativeFrequency(t *testing.T) {
	for _, name := range []string{"mle", "addk"} {
		s, err := NewSmoother(name, 0)
		if err != nil {
			t.Fatalf("NewSmoother(%q) failed: %v", name, err)
		}
		if p := s.Smooth(3, 10, 2, 0.2, 5); math.Abs(p-0.3) > 1e-12 {
			t.Fatalf("%s: expected 3/10, got %v", name, p)
		}
		if p := s.Smooth(0, 10, 2, 0.2, 5); p != 0 {
			t.Fatalf("%s: unseen event should get nothing, got %v", name, p)
		}
	}
}

func TestContextModel_BloomDropsSingletons(t *testing.T) {
	m := NewContextModel(NewAddKSmoother(1), true, 1000, 0.001)
	sense := wordnet.SynsetID(20)

	m.Add(sense, []wordnet.WordID{1, 2, wordnet.NoWord})
	if got := m.pairCounts[contextKey{sense, 1}]; got != 0 {
		t.Fatalf("Expected first sighting to stay in the filter, got count %v", got)
	}
	m.Add(sense, []wordnet.WordID{1})
	if got := m.pairCounts[contextKey{sense, 1}]; got != 1 {
		t.Fatalf("Expected second sighting to be counted once, got %v", got)
	}
	if m.VocabularySize() != 2 {
		t.Fatalf("Expected vocabulary of 2, got %d", m.VocabularySize())
	}
	if m.Probability(sense, 1) <= m.Probability(sense, 2) {
		t.Fatalf("Expected the repeated word to be more likely")
	}
}
