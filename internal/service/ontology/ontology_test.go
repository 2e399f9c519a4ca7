package ontology

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/lexicon"

	"go.uber.org/zap"
)

// animalLexicon: entity <- animal <- dog <- puppy, with cat under animal
func animalLexicon() *lexicon.MemoryDatabase {
	db := lexicon.NewMemoryDatabase()
	entity := db.AddSynset(wordnet.Noun, "that which exists", []string{"entity"})
	animal := db.AddSynset(wordnet.Noun, "a living organism", []string{"animal", "beast"}, entity)
	dog := db.AddSynset(wordnet.Noun, "a domestic canine", []string{"dog"}, animal)
	db.AddSynset(wordnet.Noun, "a feline", []string{"cat"}, animal)
	db.AddSynset(wordnet.Noun, "a young dog", []string{"puppy"}, dog)
	db.AddSynset(wordnet.Verb, "follow closely", []string{"dog", "tail"})
	db.AddStem(wordnet.Noun, "dogs", "dog")
	return db
}

func extractAll(t *testing.T, o *Ontology, forms ...string) map[string]wordnet.WordID {
	t.Helper()
	ids := make(map[string]wordnet.WordID, len(forms))
	for _, form := range forms {
		id, err := o.ExtractWord(form, ExtractOptions{})
		if err != nil {
			t.Fatalf("Failed to extract %q: %v", form, err)
		}
		ids[form] = id
	}
	return ids
}

func senseOf(t *testing.T, o *Ontology, form string, pos wordnet.POS) wordnet.SynsetID {
	t.Helper()
	id, err := o.WordID(form)
	if err != nil {
		t.Fatalf("Word %q missing: %v", form, err)
	}
	senses := o.WordSensesForPOS(id, pos)
	if len(senses) == 0 {
		t.Fatalf("Word %q has no %s sense", form, pos)
	}
	return senses[0]
}

func TestExtractWord_BuildsHypernymChain(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())
	ids := extractAll(t, o, "dog")

	word, err := o.Word(ids["dog"])
	if err != nil {
		t.Fatalf("Failed to get word: %v", err)
	}
	if !word.InWordNet {
		t.Fatalf("Expected dog to be in WordNet")
	}
	if len(word.Senses) != 2 {
		t.Fatalf("Expected 2 senses (noun and verb), got %d", len(word.Senses))
	}
	if len(word.SensesByPOS[wordnet.Noun]) != 1 || len(word.SensesByPOS[wordnet.Verb]) != 1 {
		t.Fatalf("Unexpected senses by POS: %v", word.SensesByPOS)
	}

	o.Finalize()

	noun := word.SensesByPOS[wordnet.Noun][0]
	ancestors, err := o.SynsetAncestors(noun, -1)
	if err != nil {
		t.Fatalf("Failed to get ancestors: %v", err)
	}
	// animal, entity, NOUN, ROOT
	if ancestors.Len() != 4 {
		t.Fatalf("Expected 4 ancestors, got %v", ancestors.Sorted())
	}
	if !ancestors.Contains(wordnet.NounSynsetID) || !ancestors.Contains(wordnet.RootSynsetID) {
		t.Fatalf("Expected NOUN and ROOT among ancestors, got %v", ancestors.Sorted())
	}

	parents, err := o.SynsetAncestors(noun, 1)
	if err != nil {
		t.Fatalf("Failed to get parents: %v", err)
	}
	animal, _ := o.Synset(parents.Sorted()[0])
	if parents.Len() != 1 || animal.Labels[0] != "animal" {
		t.Fatalf("Expected animal as the only parent, got %v", parents.Sorted())
	}

	verb, _ := o.Synset(word.SensesByPOS[wordnet.Verb][0])
	if !verb.Parents.Contains(wordnet.VerbSynsetID) {
		t.Fatalf("Expected orphan verb sense under VERB, got parents %v", verb.Parents.Sorted())
	}
}

func TestExtractWord_SharesSynsetsAcrossWords(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())
	extractAll(t, o, "animal", "beast")

	a := senseOf(t, o, "animal", wordnet.Noun)
	b := senseOf(t, o, "beast", wordnet.Noun)
	if a != b {
		t.Fatalf("Expected animal and beast to share a synset, got %d and %d", a, b)
	}
	if got := o.SenseWords(a); len(got) != 2 {
		t.Fatalf("Expected 2 words for the shared sense, got %v", got)
	}
}

func TestExtractWord_Options(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())

	id, err := o.ExtractWord("dogs", ExtractOptions{POS: wordnet.Noun, Stem: true})
	if err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	word, _ := o.Word(id)
	if !word.InWordNet || len(word.Senses) != 1 {
		t.Fatalf("Expected stemmed noun sense, got %+v", word)
	}

	id, err = o.ExtractWord("big_dog", ExtractOptions{POS: wordnet.Noun, SplitUnderscores: true})
	if err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	word, _ = o.Word(id)
	if !word.InWordNet || word.Senses[0] != senseOf(t, o, "dogs", wordnet.Noun) {
		t.Fatalf("Expected compound to fall back to its head, got %+v", word)
	}

	if _, err := o.ExtractWord("  ", ExtractOptions{}); err == nil {
		t.Fatalf("Expected error for empty form")
	}
}

func TestExtractWord_UnknownWords(t *testing.T) {
	shared := New(animalLexicon(), Options{}, zap.NewNop())
	extractAll(t, shared, "zzz", "qqq", "<s>")

	if got := senseOf(t, shared, "zzz", wordnet.Undefined); got != wordnet.SuperUnknownSynsetID {
		t.Fatalf("Expected SUPER_UNKNOWN sense, got %d", got)
	}
	if got := senseOf(t, shared, "<s>", wordnet.Undefined); got != wordnet.BOSSynsetID {
		t.Fatalf("Expected BOS sense, got %d", got)
	}
	w, _ := shared.WordID("zzz")
	if word, _ := shared.Word(w); word.InWordNet {
		t.Fatalf("Expected zzz to be unknown")
	}

	distinct := New(animalLexicon(), Options{DifferentiateUnknownWords: true}, zap.NewNop())
	extractAll(t, distinct, "zzz", "qqq")
	a := senseOf(t, distinct, "zzz", wordnet.Undefined)
	b := senseOf(t, distinct, "qqq", wordnet.Undefined)
	if a == b {
		t.Fatalf("Expected distinct unknown senses, got %d twice", a)
	}
	s, _ := distinct.Synset(a)
	if !s.Unknown || !s.Parents.Contains(wordnet.SuperUnknownSynsetID) {
		t.Fatalf("Expected unknown synset under SUPER_UNKNOWN, got %+v", s)
	}
}

func TestExtractWord_SkipsCyclicHypernyms(t *testing.T) {
	db := lexicon.NewMemoryDatabase()
	// a points at b before b exists; b points back at a
	a := db.AddSynset(wordnet.Noun, "first", []string{"a"}, lexicon.Pointer{Offset: 2, POS: wordnet.Noun})
	db.AddSynset(wordnet.Noun, "second", []string{"b"}, a)

	o := New(db, Options{}, zap.NewNop())
	extractAll(t, o, "a", "b")
	o.Finalize()

	sa := senseOf(t, o, "a", wordnet.Noun)
	sb := senseOf(t, o, "b", wordnet.Noun)
	if o.AncestorClosure(sa).Contains(sa) || o.AncestorClosure(sb).Contains(sb) {
		t.Fatalf("Expected an acyclic graph")
	}
	if _, err := o.DeepestCommonAncestor(sa, sb, o.IsVirtual); err != nil {
		t.Fatalf("Expected a common ancestor: %v", err)
	}
}

func TestFinalize_Idempotent(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())
	extractAll(t, o, "dog", "cat", "puppy", "zzz")

	o.Finalize()
	nodes := o.Synsets()
	closures := make(map[wordnet.SynsetID][]wordnet.SynsetID)
	for _, id := range nodes {
		closures[id] = o.AncestorClosure(id).Sorted()
	}

	o.Finalize()
	if !reflect.DeepEqual(nodes, o.Synsets()) {
		t.Fatalf("Reachable set changed: %v vs %v", nodes, o.Synsets())
	}
	for _, id := range nodes {
		if got := o.AncestorClosure(id).Sorted(); !reflect.DeepEqual(got, closures[id]) {
			t.Fatalf("Ancestor closure of %d changed: %v vs %v", id, closures[id], got)
		}
	}
}

func TestFinalize_RemovesUnreachable(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())
	extractAll(t, o, "cat")
	o.Finalize()

	for _, id := range []wordnet.SynsetID{wordnet.VerbSynsetID, wordnet.AdjSynsetID, wordnet.SuperUnknownSynsetID} {
		if o.HasSynset(id) {
			t.Fatalf("Expected unused reserved synset %d to be pruned", id)
		}
	}
	if !o.HasSynset(wordnet.RootSynsetID) || !o.HasSynset(wordnet.NounSynsetID) {
		t.Fatalf("Expected ROOT and NOUN to survive")
	}
	// cat, animal, entity, NOUN, ROOT
	if o.SynsetCount() != 5 {
		t.Fatalf("Expected 5 synsets, got %v", o.Synsets())
	}
}

func TestPhases(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())
	extractAll(t, o, "dog")

	if _, err := o.SynsetAncestors(wordnet.RootSynsetID, -1); !errors.Is(err, wordnet.ErrNotFinalized) {
		t.Fatalf("Expected ErrNotFinalized, got %v", err)
	}
	o.Finalize()
	if !o.Finalized() {
		t.Fatalf("Expected finalized ontology")
	}
	extractAll(t, o, "cat")
	if o.Finalized() {
		t.Fatalf("Expected extraction to reopen the ontology")
	}
	if _, err := o.DeepestCommonAncestor(wordnet.RootSynsetID, wordnet.RootSynsetID, o.IsVirtual); !errors.Is(err, wordnet.ErrNotFinalized) {
		t.Fatalf("Expected ErrNotFinalized, got %v", err)
	}
}

func TestLookupMisses(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())
	extractAll(t, o, "dog")
	o.Finalize()

	if _, err := o.WordID("unicorn"); !errors.Is(err, wordnet.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if senses := o.WordSenses(999); senses != nil {
		t.Fatalf("Expected no senses for a missing word, got %v", senses)
	}
	if set, err := o.SynsetAncestors(999, -1); err != nil || set.Len() != 0 {
		t.Fatalf("Expected empty ancestors for a missing synset, got %v, %v", set, err)
	}
	if o.LookupMisses() != 3 {
		t.Fatalf("Expected 3 lookup misses, got %d", o.LookupMisses())
	}
}

func TestRemoveWord(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())
	extractAll(t, o, "dog", "puppy")
	o.Finalize()

	dog := senseOf(t, o, "dog", wordnet.Noun)
	puppy := senseOf(t, o, "puppy", wordnet.Noun)
	if !o.IsVirtual(dog) {
		t.Fatalf("Expected dog to be both sense and category")
	}

	if err := o.RemoveWord("puppy"); err != nil {
		t.Fatalf("Failed to remove word: %v", err)
	}
	if err := o.RemoveWord("puppy"); !errors.Is(err, wordnet.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on second removal, got %v", err)
	}
	o.Finalize()

	if o.HasSynset(puppy) {
		t.Fatalf("Expected the exclusive sense to be removed")
	}
	if o.IsVirtual(dog) {
		t.Fatalf("Expected dog to be a pure sense after removal")
	}
}

func TestDeepestCommonAncestor_SiblingSenses(t *testing.T) {
	db := lexicon.NewMemoryDatabase()
	db.AddSynset(wordnet.Noun, "first sense", []string{"e1"})
	db.AddSynset(wordnet.Noun, "second sense", []string{"e2"})

	o := New(db, Options{}, zap.NewNop())
	extractAll(t, o, "e1", "e2")
	o.Finalize()

	s1 := senseOf(t, o, "e1", wordnet.Noun)
	s2 := senseOf(t, o, "e2", wordnet.Noun)
	got, err := o.DeepestCommonAncestor(s1, s2, o.IsVirtual)
	if err != nil {
		t.Fatalf("Failed to find common ancestor: %v", err)
	}
	if got != wordnet.NounSynsetID {
		t.Fatalf("Expected NOUN (%d), got %d", wordnet.NounSynsetID, got)
	}
}

func TestDeepestCommonAncestor_TerminatesOnEveryPair(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())
	extractAll(t, o, "dog", "cat", "puppy", "animal", "entity", "tail", "zzz")
	o.Finalize()

	senses := o.Senses()
	for _, a := range senses {
		for _, b := range senses {
			c, err := o.DeepestCommonAncestor(a, b, o.IsVirtual)
			if err != nil {
				t.Fatalf("No common ancestor for %d, %d: %v", a, b, err)
			}
			for _, x := range []wordnet.SynsetID{a, b} {
				if c != x && !o.AncestorClosure(x).Contains(c) {
					t.Fatalf("Common ancestor %d of (%d, %d) is not above %d", c, a, b, x)
				}
			}
			back, err := o.DeepestCommonAncestor(b, a, o.IsVirtual)
			if err != nil {
				t.Fatalf("No common ancestor for %d, %d: %v", b, a, err)
			}
			if back != c {
				t.Fatalf("Direction changed the meeting point of %d, %d: %d vs %d", a, b, c, back)
			}
		}
	}
}

// Pins the seeding rules around nodes that are both sense and category.
func TestDeepestCommonAncestor_VirtualNodes(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())
	extractAll(t, o, "dog", "puppy", "animal")
	o.Finalize()

	dog := senseOf(t, o, "dog", wordnet.Noun)
	puppy := senseOf(t, o, "puppy", wordnet.Noun)
	animal := senseOf(t, o, "animal", wordnet.Noun)
	entity := o.SynsetParents(animal)[0]

	never := func(wordnet.SynsetID) bool { return false }
	cases := []struct {
		a, b      wordnet.SynsetID
		isVirtual func(wordnet.SynsetID) bool
		want      wordnet.SynsetID
	}{
		{dog, animal, o.IsVirtual, animal},
		{animal, dog, o.IsVirtual, animal},
		{dog, puppy, o.IsVirtual, dog},
		{puppy, dog, o.IsVirtual, dog},
		{dog, dog, o.IsVirtual, dog},
		// without the dual role neither endpoint can be the meeting point
		{dog, animal, never, entity},
		{animal, dog, never, entity},
		{puppy, dog, never, animal},
	}
	for _, tc := range cases {
		got, err := o.DeepestCommonAncestor(tc.a, tc.b, tc.isVirtual)
		if err != nil {
			t.Fatalf("DCA(%d, %d) failed: %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Fatalf("DCA(%d, %d) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}

	if _, err := o.DeepestCommonAncestor(dog, 999, o.IsVirtual); !errors.Is(err, wordnet.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	o := New(animalLexicon(), Options{DifferentiateUnknownWords: true}, zap.NewNop())
	extractAll(t, o, "dog", "cat", "puppy", "zzz", "<s>")
	o.Finalize()

	base := filepath.Join(t.TempDir(), "animals")
	if err := o.Save(base); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	loaded, err := Load(base, nil, o.Options(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if !loaded.Finalized() {
		t.Fatalf("Expected loaded ontology to be finalized")
	}
	if !reflect.DeepEqual(o.Synsets(), loaded.Synsets()) {
		t.Fatalf("Synsets differ: %v vs %v", o.Synsets(), loaded.Synsets())
	}
	for _, id := range o.Synsets() {
		want, _ := o.Synset(id)
		got, _ := loaded.Synset(id)
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("Synset %d differs: %+v vs %+v", id, want, got)
		}
	}
	for _, id := range o.Words() {
		want, _ := o.Word(id)
		got, err := loaded.Word(id)
		if err != nil {
			t.Fatalf("Word %d missing after load: %v", id, err)
		}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("Word %d differs: %+v vs %+v", id, want, got)
		}
	}

	// new synsets must not collide with loaded ones
	loaded = mustLoadWith(t, base, animalLexicon())
	id, err := loaded.ExtractWord("entity", ExtractOptions{})
	if err != nil {
		t.Fatalf("Failed to extract after load: %v", err)
	}
	word, _ := loaded.Word(id)
	if len(word.Senses) != 1 || !o.HasSynset(word.Senses[0]) {
		t.Fatalf("Expected entity to reuse its loaded synset, got %v", word.Senses)
	}
}

func mustLoadWith(t *testing.T, base string, db lexicon.Database) *Ontology {
	t.Helper()
	o, err := Load(base, db, Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	return o
}

func TestLoad_Malformed(t *testing.T) {
	o := New(animalLexicon(), Options{}, zap.NewNop())
	extractAll(t, o, "dog")
	o.Finalize()

	base := filepath.Join(t.TempDir(), "broken")
	if err := o.Save(base); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	writeFile(t, base+ontologySuffix, "w 0 1\nx 1 2\n")

	_, err := Load(base, nil, Options{}, zap.NewNop())
	var fe *wordnet.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected FormatError, got %v", err)
	}
	if fe.Line != 2 {
		t.Fatalf("Expected error on line 2, got %d", fe.Line)
	}
}

func TestExtractVocabulary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	writeFile(t, path, "dog\ncat\nzzz\n")

	o := New(animalLexicon(), Options{}, zap.NewNop())
	n, err := o.ExtractVocabulary(path, ExtractOptions{})
	if err != nil {
		t.Fatalf("Failed to extract vocabulary: %v", err)
	}
	if n != 3 || o.WordCount() != 3 {
		t.Fatalf("Expected 3 words, got %d (%d)", n, o.WordCount())
	}

	bad := filepath.Join(dir, "bad.txt")
	writeFile(t, bad, "dog\n\ncat\n")
	_, err = New(animalLexicon(), Options{}, zap.NewNop()).ExtractVocabulary(bad, ExtractOptions{})
	var fe *wordnet.FormatError
	if !errors.As(err, &fe) || fe.Line != 2 {
		t.Fatalf("Expected FormatError on line 2, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
