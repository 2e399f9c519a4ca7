package bitext

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/ontology"

	"go.uber.org/zap"
)

// TargetWordID identifies a word of the target language
type TargetWordID int

// TargetWord is a target-language word and the source senses it can express
type TargetWord struct {
	ID      TargetWordID
	Form    string
	Sources []wordnet.WordID
	Senses  []wordnet.SynsetID
}

// TargetVocabulary maps target words onto the source ontology's senses
type TargetVocabulary struct {
	words []*TargetWord
	ids   map[string]TargetWordID
}

func NewTargetVocabulary() *TargetVocabulary {
	return &TargetVocabulary{ids: make(map[string]TargetWordID)}
}

// Add registers form as a translation of the given source words. Its senses are the
// union of theirs, in first-seen order. Adding an existing form extends it.
func (v *TargetVocabulary) Add(ont *ontology.Ontology, form string, sources ...wordnet.WordID) TargetWordID {
	id, ok := v.ids[form]
	if !ok {
		id = TargetWordID(len(v.words))
		v.words = append(v.words, &TargetWord{ID: id, Form: form})
		v.ids[form] = id
	}
	word := v.words[id]
	for _, src := range sources {
		if containsWord(word.Sources, src) {
			continue
		}
		word.Sources = append(word.Sources, src)
		for _, s := range ont.WordSenses(src) {
			if !containsSense(word.Senses, s) {
				word.Senses = append(word.Senses, s)
			}
		}
	}
	return id
}

// ID returns the id of form
func (v *TargetVocabulary) ID(form string) (TargetWordID, bool) {
	id, ok := v.ids[form]
	return id, ok
}

// Word returns the entry for id, or nil
func (v *TargetVocabulary) Word(id TargetWordID) *TargetWord {
	if id < 0 || int(id) >= len(v.words) {
		return nil
	}
	return v.words[id]
}

// Senses returns the candidate senses of a target word
func (v *TargetVocabulary) Senses(id TargetWordID) []wordnet.SynsetID {
	if w := v.Word(id); w != nil {
		return w.Senses
	}
	return nil
}

func (v *TargetVocabulary) Len() int {
	return len(v.words)
}

// LoadTranslations reads lines of the form "target<TAB>source source ...". Source words
// missing from the ontology are skipped; a target left without senses is dropped.
func LoadTranslations(path string, ont *ontology.Ontology, logger *zap.Logger) (*TargetVocabulary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open translation lexicon: %w", err)
	}
	defer file.Close()

	v := NewTargetVocabulary()
	scanner := bufio.NewScanner(file)
	lineNo, unknownSources, dropped := 0, 0, 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		target, rest, ok := strings.Cut(line, "\t")
		target = strings.TrimSpace(target)
		if !ok || target == "" {
			return nil, wordnet.Malformed(path, lineNo, "expected target<TAB>sources")
		}
		forms := strings.Fields(rest)
		if len(forms) == 0 {
			return nil, wordnet.Malformed(path, lineNo, "target %q has no source words", target)
		}

		var sources []wordnet.WordID
		for _, form := range forms {
			if !ont.HasWord(form) {
				unknownSources++
				continue
			}
			id, _ := ont.WordID(form)
			sources = append(sources, id)
		}
		if len(sources) == 0 {
			if _, seen := v.ID(target); !seen {
				dropped++
			}
			continue
		}
		v.Add(ont, target, sources...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read translation lexicon: %w", err)
	}

	logger.Info("Loaded translation lexicon",
		zap.String("path", path),
		zap.Int("target_words", v.Len()),
		zap.Int("unknown_sources", unknownSources),
		zap.Int("dropped_targets", dropped))
	return v, nil
}

func containsWord(ids []wordnet.WordID, id wordnet.WordID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func containsSense(ids []wordnet.SynsetID, id wordnet.SynsetID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
