package sensemodel

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/lexicon"
	"sensegraph/internal/service/ontology"

	"go.uber.org/zap"
)

func buildOntology(t *testing.T, db lexicon.Database, forms ...string) *ontology.Ontology {
	t.Helper()
	o := ontology.New(db, ontology.Options{}, zap.NewNop())
	for _, form := range forms {
		if _, err := o.ExtractWord(form, ontology.ExtractOptions{}); err != nil {
			t.Fatalf("Failed to extract %q: %v", form, err)
		}
	}
	o.Finalize()
	return o
}

func senseOf(t *testing.T, o *ontology.Ontology, form string) wordnet.SynsetID {
	t.Helper()
	id, err := o.WordID(form)
	if err != nil {
		t.Fatalf("Missing word %q: %v", form, err)
	}
	return o.WordSenses(id)[0]
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ROOT -> NOUN -> {A, B}, A -> sense1, B -> sense2
func toyOntology(t *testing.T) (*ontology.Ontology, wordnet.SynsetID, wordnet.SynsetID) {
	db := lexicon.NewMemoryDatabase()
	a := db.AddSynset(wordnet.Noun, "category a", []string{"cat_a"})
	b := db.AddSynset(wordnet.Noun, "category b", []string{"cat_b"})
	db.AddSynset(wordnet.Noun, "first sense", []string{"sense1"}, a)
	db.AddSynset(wordnet.Noun, "second sense", []string{"sense2"}, b)

	o := buildOntology(t, db, "sense1", "sense2")
	return o, senseOf(t, o, "sense1"), senseOf(t, o, "sense2")
}

func TestNewModel_RequiresFinalizedOntology(t *testing.T) {
	o := ontology.New(lexicon.NewMemoryDatabase(), ontology.Options{}, zap.NewNop())
	if _, err := NewModel(o, Options{}, zap.NewNop()); !errors.Is(err, wordnet.ErrNotFinalized) {
		t.Fatalf("Expected ErrNotFinalized, got %v", err)
	}
}

func TestDistributor_ToyGraph(t *testing.T) {
	o, s1, s2 := toyOntology(t)
	m, err := NewModel(o, Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create model: %v", err)
	}
	if err := m.SetPrior(map[wordnet.SynsetID]float64{s1: 0.6, s2: 0.4}); err != nil {
		t.Fatalf("Failed to set prior: %v", err)
	}
	m.SetStopProbability(0.1)
	if err := m.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	a := o.SynsetParents(s1)[0]
	b := o.SynsetParents(s2)[0]
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"pTC[A]", m.PTC(a), 0.6},
		{"pTC[B]", m.PTC(b), 0.4},
		{"pTC[NOUN]", m.PTC(wordnet.NounSynsetID), 1.0},
		{"pTC[ROOT]", m.PTC(wordnet.RootSynsetID), 1.0},
		{"pTC[sense1]", m.PTC(s1), 0},
		{"pMC[NOUN]", m.PMC(wordnet.NounSynsetID), 0.9},
		{"pMC[A]", m.PMC(a), 0.9 * 0.9 * 0.6},
		{"pA[A]", m.PA(a), 1},
		{"pC[B]", m.PC(b), 0.9 * 0.9 * 0.4},
		{"pC[ROOT]", m.PC(wordnet.RootSynsetID), 0.1},
	}
	for _, c := range checks {
		if !approx(c.got, c.want) {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestDistributor_VirtualNode(t *testing.T) {
	db := lexicon.NewMemoryDatabase()
	dog := db.AddSynset(wordnet.Noun, "a domestic canine", []string{"dog"})
	db.AddSynset(wordnet.Noun, "a young dog", []string{"puppy"}, dog)
	o := buildOntology(t, db, "dog", "puppy")

	m, _ := NewModel(o, Options{CorrectStopping: true}, zap.NewNop())
	d, p := senseOf(t, o, "dog"), senseOf(t, o, "puppy")
	if err := m.SetPrior(map[wordnet.SynsetID]float64{d: 0.3, p: 0.7}); err != nil {
		t.Fatalf("Failed to set prior: %v", err)
	}
	m.SetStopProbability(0.1)
	if err := m.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if !approx(m.PTC(d), 1.0) {
		t.Fatalf("Expected dual node to hold its own and its child's mass, got %v", m.PTC(d))
	}
	if !approx(m.PA(d), 1.0) {
		t.Fatalf("Expected every sense below dog to stop at dog, got pA %v", m.PA(d))
	}
	if !approx(m.PA(wordnet.NounSynsetID), 0) {
		t.Fatalf("Expected NOUN to pass all its mass down, got pA %v", m.PA(wordnet.NounSynsetID))
	}
}

// randomOntology builds a noun DAG where every synset has 1-3 hypernyms among earlier ones
func randomOntology(t *testing.T, rng *rand.Rand, size int) *ontology.Ontology {
	db := lexicon.NewMemoryDatabase()
	var ptrs []lexicon.Pointer
	var forms []string
	for i := 0; i < size; i++ {
		var hypernyms []lexicon.Pointer
		if i > 0 {
			seen := make(map[int]bool)
			for k := rng.Intn(3) + 1; k > 0; k-- {
				j := rng.Intn(i)
				if !seen[j] {
					seen[j] = true
					hypernyms = append(hypernyms, ptrs[j])
				}
			}
		}
		form := fmt.Sprintf("w%d", i)
		ptrs = append(ptrs, db.AddSynset(wordnet.Noun, "gloss "+form, []string{form}, hypernyms...))
		if rng.Intn(3) > 0 {
			forms = append(forms, form)
		}
	}
	return buildOntology(t, db, forms...)
}

func TestDistributor_ConservesMass(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		o := randomOntology(t, rng, 40)
		m, err := NewModel(o, Options{CorrectStopping: trial%2 == 0}, zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to create model: %v", err)
		}

		prior := make(map[wordnet.SynsetID]float64)
		for _, s := range o.Senses() {
			prior[s] = rng.Float64() + 0.01
		}
		if err := m.SetPrior(prior); err != nil {
			t.Fatalf("Failed to set prior: %v", err)
		}
		m.SetStopProbability(0)
		for _, id := range o.Synsets() {
			if len(o.SynsetChildren(id)) > 0 {
				m.SetPA(id, rng.Float64())
			}
		}

		m.ComputeSubtreeMass()
		if got := m.PTC(wordnet.RootSynsetID); math.Abs(got-1) > 1e-6 {
			t.Fatalf("trial %d: pTC[ROOT] = %v, want 1", trial, got)
		}
		if err := m.Update(); err != nil {
			t.Fatalf("trial %d: Update failed: %v", trial, err)
		}
		sum := 0.0
		for _, id := range o.Synsets() {
			sum += m.PC(id)
		}
		if math.Abs(sum-1) > 1e-4 {
			t.Fatalf("trial %d: Σ pC = %v, want 1", trial, sum)
		}
	}
}

func TestSetPrior_Rejects(t *testing.T) {
	o, s1, _ := toyOntology(t)
	m, _ := NewModel(o, Options{}, zap.NewNop())

	if err := m.SetPrior(map[wordnet.SynsetID]float64{s1: -1}); !wordnet.IsConsistencyError(err) {
		t.Fatalf("Expected consistency error for negative prior, got %v", err)
	}
	if err := m.SetPrior(map[wordnet.SynsetID]float64{wordnet.NounSynsetID: 1}); !errors.Is(err, wordnet.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for a non-sense, got %v", err)
	}
	if err := m.SetPrior(map[wordnet.SynsetID]float64{}); !wordnet.IsConsistencyError(err) {
		t.Fatalf("Expected consistency error for empty prior, got %v", err)
	}
}

func TestCheckInvariants_DetectsDrift(t *testing.T) {
	o, s1, s2 := toyOntology(t)
	m, _ := NewModel(o, Options{}, zap.NewNop())
	m.SetUniformPrior([]wordnet.SynsetID{s1, s2})
	m.SetStopProbability(0.1)
	if err := m.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	m.Tables().PS[s1] = 0.9
	if err := m.CheckInvariants(); !wordnet.IsConsistencyError(err) {
		t.Fatalf("Expected consistency error, got %v", err)
	}
}
