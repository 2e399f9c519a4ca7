package service

import (
	"errors"
	"math"
	"testing"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/bitext"
	"sensegraph/internal/service/lexicon"
	"sensegraph/internal/service/ontology"
	"sensegraph/internal/service/sensemodel"

	"go.uber.org/zap"
)

// entity -> {institution -> bank#1, land -> {bank#2, shore}}
func newBankOntology(t *testing.T) *ontology.Ontology {
	t.Helper()
	db := lexicon.NewMemoryDatabase()
	entity := db.AddSynset(wordnet.Noun, "that which exists", []string{"entity"})
	institution := db.AddSynset(wordnet.Noun, "an organization", []string{"institution"}, entity)
	land := db.AddSynset(wordnet.Noun, "the solid ground", []string{"land"}, entity)
	db.AddSynset(wordnet.Noun, "a financial institution", []string{"bank"}, institution)
	db.AddSynset(wordnet.Noun, "sloping land beside water", []string{"bank"}, land)
	db.AddSynset(wordnet.Noun, "the land along a body of water", []string{"shore"}, land)

	ont := ontology.New(db, ontology.Options{}, zap.NewNop())
	for _, form := range []string{"bank", "shore"} {
		if _, err := ont.ExtractWord(form, ontology.ExtractOptions{}); err != nil {
			t.Fatalf("Failed to extract %q: %v", form, err)
		}
	}
	ont.Finalize()
	return ont
}

func newBankEngine(t *testing.T, ont *ontology.Ontology) *bitext.Engine {
	t.Helper()
	m, err := sensemodel.NewModel(ont, sensemodel.Options{CorrectStopping: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create model: %v", err)
	}
	bank, _ := ont.WordID("bank")
	shore, _ := ont.WordID("shore")

	target := bitext.NewTargetVocabulary()
	banque := target.Add(ont, "banque", bank)
	rive := target.Add(ont, "rive", shore)
	corpus := bitext.NewPairCorpus()
	corpus.Add(bank, banque, 2)
	corpus.Add(bank, rive, 1)
	corpus.Add(shore, rive, 1)

	engine := bitext.NewEngine(m, target, corpus, bitext.DefaultOptions(), zap.NewNop())
	if err := engine.Init(nil); err != nil {
		t.Fatalf("Failed to init engine: %v", err)
	}
	return engine
}

func TestSenseService_WithoutModel(t *testing.T) {
	ont := newBankOntology(t)
	svc, err := NewSenseService(ont, nil, bitext.WSDOptions{WindowSize: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	resp, err := svc.WordSenses("bank")
	if err != nil {
		t.Fatalf("WordSenses failed: %v", err)
	}
	if len(resp.Senses) != 2 || resp.Senses[0].Gloss != "a financial institution" || resp.Senses[0].POS != "noun" {
		t.Fatalf("Unexpected senses %+v", resp.Senses)
	}
	if resp.Senses[0].Prior != 0 {
		t.Fatalf("Expected no prior without a model, got %v", resp.Senses[0].Prior)
	}

	anc, err := svc.Ancestors(wordnet.SynsetID(resp.Senses[0].SynsetID), -1)
	if err != nil {
		t.Fatalf("Ancestors failed: %v", err)
	}
	// institution, entity, NOUN, ROOT
	if len(anc.Ancestors) != 4 {
		t.Fatalf("Expected 4 ancestors, got %+v", anc.Ancestors)
	}

	common, err := svc.CommonAncestor("bank", "shore")
	if err != nil {
		t.Fatalf("CommonAncestor failed: %v", err)
	}
	// bank#1 meets shore at entity, bank#2 at land
	if common.FromBitext || len(common.Common) != 2 || common.Likelihood != nil {
		t.Fatalf("Unexpected common ancestors %+v", common)
	}

	if _, err := svc.Disambiguate("bank", "noun", nil); !errors.Is(err, ErrNoModel) {
		t.Fatalf("Expected ErrNoModel, got %v", err)
	}
	if _, err := svc.WordSenses("unicorn"); !errors.Is(err, wordnet.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if stats := svc.Stats(); stats.Words != 2 || stats.Senses != 3 || stats.RunID != "" {
		t.Fatalf("Unexpected stats %+v", stats)
	}
}

func TestSenseService_WithModel(t *testing.T) {
	ont := newBankOntology(t)
	engine := newBankEngine(t, ont)
	svc, err := NewSenseService(ont, engine, bitext.WSDOptions{WindowSize: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	resp, err := svc.WordSenses("bank")
	if err != nil {
		t.Fatalf("WordSenses failed: %v", err)
	}
	if math.Abs(resp.Senses[0].Prior-1.0/3) > 1e-12 || math.Abs(resp.Senses[0].Conditional-0.5) > 1e-12 {
		t.Fatalf("Expected uniform tables, got %+v", resp.Senses[0])
	}

	common, err := svc.CommonAncestor("bank", "rive")
	if err != nil {
		t.Fatalf("CommonAncestor failed: %v", err)
	}
	if !common.FromBitext || common.Likelihood == nil || *common.Likelihood <= 0 {
		t.Fatalf("Expected a bitext likelihood, got %+v", common)
	}

	// equal tables tie, and ties keep the first sense
	dis, err := svc.Disambiguate("bank", "", []string{"river", "shore"})
	if err != nil {
		t.Fatalf("Disambiguate failed: %v", err)
	}
	if len(dis.Candidates) != 2 || dis.Best.SynsetID != resp.Senses[0].SynsetID {
		t.Fatalf("Unexpected disambiguation %+v", dis)
	}
	if _, err := svc.Disambiguate("bank", "preposition", nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Expected ErrInvalidRequest, got %v", err)
	}

	stats := svc.Stats()
	if stats.RunID == "" || stats.TargetWords != 2 || stats.Pairs != 3 {
		t.Fatalf("Unexpected stats %+v", stats)
	}
}

func TestSenseService_DisambiguateUsesContext(t *testing.T) {
	ont := newBankOntology(t)
	engine := newBankEngine(t, ont)
	bank, _ := ont.WordID("bank")
	shore, _ := ont.WordID("shore")
	senses := ont.WordSenses(bank)

	// the riverside sense of bank is seen next to shore, the financial one next to bank
	cm := bitext.NewContextModel(bitext.NewAddKSmoother(1), false, 0, 0)
	for i := 0; i < 3; i++ {
		cm.Add(senses[1], []wordnet.WordID{shore})
	}
	cm.Add(senses[0], []wordnet.WordID{bank})

	svc, err := NewSenseService(ont, engine, bitext.WSDOptions{WindowSize: 2, Context: cm, ContextWeight: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	plain, err := svc.Disambiguate("bank", "noun", nil)
	if err != nil {
		t.Fatalf("Disambiguate failed: %v", err)
	}
	if plain.Best.SynsetID != int(senses[0]) {
		t.Fatalf("Expected the first sense without context, got %+v", plain.Best)
	}

	withContext, err := svc.Disambiguate("bank", "noun", []string{"shore"})
	if err != nil {
		t.Fatalf("Disambiguate failed: %v", err)
	}
	if withContext.Best.SynsetID != int(senses[1]) {
		t.Fatalf("Expected shore to select the riverside sense, got %+v", withContext.Best)
	}
	want := plain.Candidates[1].Score + math.Log(cm.Probability(senses[1], shore))
	if math.Abs(withContext.Candidates[1].Score-want) > 1e-9 {
		t.Fatalf("Expected score %v with context, got %v", want, withContext.Candidates[1].Score)
	}
}

func TestSenseService_RequiresFinalizedOntology(t *testing.T) {
	ont := ontology.New(lexicon.NewMemoryDatabase(), ontology.Options{}, zap.NewNop())
	if _, err := NewSenseService(ont, nil, bitext.WSDOptions{}, zap.NewNop()); !errors.Is(err, wordnet.ErrNotFinalized) {
		t.Fatalf("Expected ErrNotFinalized, got %v", err)
	}
}
