package graphstore

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"sensegraph/internal/config"
	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/lexicon"
	"sensegraph/internal/service/ontology"

	"go.uber.org/zap"
)

func newOntology(t *testing.T) *ontology.Ontology {
	t.Helper()
	db := lexicon.NewMemoryDatabase()
	entity := db.AddSynset(wordnet.Noun, "that which exists", []string{"entity"})
	animal := db.AddSynset(wordnet.Noun, "a living organism", []string{"animal", "beast"}, entity)
	dog := db.AddSynset(wordnet.Noun, "a domestic canine", []string{"dog"}, animal)
	db.AddSynset(wordnet.Noun, "a young dog", []string{"puppy"}, dog)
	db.AddSynset(wordnet.Verb, "follow closely", []string{"dog", "tail"})

	o := ontology.New(db, ontology.Options{}, zap.NewNop())
	for _, form := range []string{"dog", "puppy", "animal"} {
		if _, err := o.ExtractWord(form, ontology.ExtractOptions{}); err != nil {
			t.Fatalf("Failed to extract %q: %v", form, err)
		}
	}
	o.Finalize()
	return o
}

func newKuzuGraph(t *testing.T) *OntologyGraph {
	t.Helper()
	cfg := config.Default()
	cfg.Kuzu.Path = ":memory:"
	g, err := NewOntologyGraphWithKuzu(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create graph with Kuzu: %v", err)
	}
	t.Cleanup(func() { g.Close(context.Background()) })
	return g
}

func TestOntologyGraph_Export(t *testing.T) {
	ctx := context.Background()
	o := newOntology(t)
	g := newKuzuGraph(t)

	stats, err := g.Export(ctx, o)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if stats.Synsets != o.SynsetCount() || stats.Words != o.WordCount() {
		t.Fatalf("Expected %d synsets and %d words, got %+v", o.SynsetCount(), o.WordCount(), stats)
	}

	dogID, _ := o.WordID("dog")
	dogNoun := o.WordSensesForPOS(dogID, wordnet.Noun)[0]

	rec, err := g.ReadSynset(ctx, dogNoun)
	if err != nil {
		t.Fatalf("ReadSynset failed: %v", err)
	}
	if rec.Gloss != "a domestic canine" || !rec.Sense || rec.Unknown {
		t.Fatalf("Unexpected synset record %+v", rec)
	}
	if !reflect.DeepEqual(rec.Labels, []string{"dog"}) {
		t.Fatalf("Unexpected labels %v", rec.Labels)
	}

	// exporting twice replaces rather than duplicates
	again, err := g.Export(ctx, o)
	if err != nil || again != stats {
		t.Fatalf("Expected a second export to write the same graph, got %+v, %v", again, err)
	}
}

func TestOntologyGraph_AncestorsMatchOntology(t *testing.T) {
	ctx := context.Background()
	o := newOntology(t)
	g := newKuzuGraph(t)
	if _, err := g.Export(ctx, o); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	for _, id := range o.Synsets() {
		want, err := o.SynsetAncestors(id, -1)
		if err != nil {
			t.Fatalf("SynsetAncestors(%d): %v", id, err)
		}
		got, err := g.Ancestors(ctx, id)
		if err != nil {
			t.Fatalf("Ancestors(%d): %v", id, err)
		}
		if len(got) != want.Len() {
			t.Fatalf("Synset %d: expected ancestors %v, got %v", id, want.Sorted(), got)
		}
		for _, a := range got {
			if !want.Contains(a) {
				t.Fatalf("Synset %d: unexpected ancestor %d", id, a)
			}
		}
	}

	puppyID, _ := o.WordID("puppy")
	dogID, _ := o.WordID("dog")
	puppy := o.WordSenses(puppyID)[0]
	dogVerb := o.WordSensesForPOS(dogID, wordnet.Verb)[0]
	shared, err := g.SharedAncestors(ctx, puppy, dogVerb)
	if err != nil {
		t.Fatalf("SharedAncestors failed: %v", err)
	}
	if !reflect.DeepEqual(shared, []wordnet.SynsetID{wordnet.RootSynsetID}) {
		t.Fatalf("Expected only ROOT shared across POS, got %v", shared)
	}
}

func TestOntologyGraph_WordSensesKeepOrder(t *testing.T) {
	ctx := context.Background()
	o := newOntology(t)
	g := newKuzuGraph(t)
	if _, err := g.Export(ctx, o); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dogID, _ := o.WordID("dog")
	got, err := g.WordSenses(ctx, "dog")
	if err != nil {
		t.Fatalf("WordSenses failed: %v", err)
	}
	if !reflect.DeepEqual(got, o.WordSenses(dogID)) {
		t.Fatalf("Expected senses %v, got %v", o.WordSenses(dogID), got)
	}

	none, err := g.WordSenses(ctx, "unicorn")
	if err != nil || len(none) != 0 {
		t.Fatalf("Expected no senses for an unknown word, got %v, %v", none, err)
	}
}

func TestOntologyGraph_Errors(t *testing.T) {
	ctx := context.Background()
	g := newKuzuGraph(t)

	if _, err := g.ReadSynset(ctx, 999); !errors.Is(err, wordnet.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	db := lexicon.NewMemoryDatabase()
	db.AddSynset(wordnet.Noun, "x", []string{"x"})
	o := ontology.New(db, ontology.Options{}, zap.NewNop())
	if _, err := g.Export(ctx, o); !errors.Is(err, wordnet.ErrNotFinalized) {
		t.Fatalf("Expected ErrNotFinalized, got %v", err)
	}
}
