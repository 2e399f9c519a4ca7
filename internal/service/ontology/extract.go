package ontology

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/lexicon"

	"go.uber.org/zap"
)

// ExtractWord returns the id of form, creating the word and its senses on first sight.
// Words the lexical database does not know become unknown words; that is never an error.
func (o *Ontology) ExtractWord(form string, opts ExtractOptions) (wordnet.WordID, error) {
	form = strings.TrimSpace(form)
	if form == "" {
		return wordnet.NoWord, fmt.Errorf("failed to extract word: empty form")
	}
	if id, ok := o.wordIDs[form]; ok {
		return id, nil
	}

	o.invalidate()
	word := &Word{
		ID:          o.nextWordID,
		Form:        form,
		SensesByPOS: make(map[wordnet.POS][]wordnet.SynsetID),
	}
	o.nextWordID++
	o.words[word.ID] = word
	o.wordIDs[form] = word.ID

	if special, ok := SpecialWords[form]; ok {
		o.ensureReserved(special)
		o.attachSense(word, special, wordnet.Undefined)
		return word.ID, nil
	}

	if o.lexicon != nil {
		word.InWordNet = o.extractAllSenses(word, form, opts)
		if !word.InWordNet && opts.SplitUnderscores && strings.Contains(form, "_") {
			head := form[strings.LastIndex(form, "_")+1:]
			if head != "" {
				word.InWordNet = o.extractAllSenses(word, head, opts)
			}
		}
	}

	if !word.InWordNet {
		o.attachUnknownSense(word)
	}
	return word.ID, nil
}

func (o *Ontology) extractAllSenses(word *Word, form string, opts ExtractOptions) bool {
	tags := wordnet.LexicalPOS
	if opts.POS != wordnet.Undefined && opts.POS != wordnet.AllPOS {
		tags = []wordnet.POS{opts.POS}
	}

	found := false
	for _, pos := range tags {
		processed := form
		if opts.Stem {
			if stem := o.lexicon.MorphologicalStem(form, pos); stem != "" {
				processed = stem
			}
		}
		if o.ExtractSenses(word.ID, processed, pos) {
			found = true
		}
	}
	return found
}

// ExtractSenses attaches every synset of processedForm with tag pos to the word, extracting
// their hypernym chains. It returns false when the lexical database has no such synset.
func (o *Ontology) ExtractSenses(wordID wordnet.WordID, processedForm string, pos wordnet.POS) bool {
	word, ok := o.words[wordID]
	if !ok {
		o.miss("word", zap.Int("word_id", int(wordID)))
		return false
	}
	if o.lexicon == nil {
		return false
	}

	entries, err := o.lexicon.LookupSynsets(processedForm, pos)
	if err != nil {
		o.logger.Warn("Lexical lookup failed",
			zap.String("form", processedForm),
			zap.String("pos", pos.String()),
			zap.Error(err))
		return false
	}
	if len(entries) == 0 {
		return false
	}

	o.invalidate()
	for _, entry := range entries {
		id := o.synsetFor(entry)
		o.attachSense(word, id, entry.POS)
	}
	return true
}

// synsetFor returns the node of entry, creating it and its hypernym chain when new
func (o *Ontology) synsetFor(entry lexicon.Entry) wordnet.SynsetID {
	key := signature(entry.Labels, entry.Gloss)
	if id, ok := o.extracted[key]; ok {
		if _, alive := o.graph.get(id); alive {
			return id
		}
	}
	s := o.graph.add(append([]string(nil), entry.Labels...), entry.Gloss, entry.POS)
	o.extracted[key] = s.ID
	o.extractOntology(s.ID, entry)
	return s.ID
}

// extractOntology links id to its hypernyms, recursing into hypernyms seen for the first time
func (o *Ontology) extractOntology(id wordnet.SynsetID, entry lexicon.Entry) {
	for _, ptr := range entry.Hypernyms {
		parentEntry, err := o.lexicon.Synset(ptr)
		if err != nil {
			o.logger.Warn("Dangling hypernym pointer",
				zap.Int("synset_id", int(id)),
				zap.Int64("offset", ptr.Offset),
				zap.Error(err))
			continue
		}
		parent := o.synsetFor(parentEntry)
		if o.isAncestorOrSelf(id, parent) {
			o.logger.Warn("Skipping hypernym edge that would close a cycle",
				zap.Int("parent", int(parent)),
				zap.Int("child", int(id)))
			continue
		}
		o.graph.link(parent, id)
	}
}

// isAncestorOrSelf reports whether candidate is id or lies above it
func (o *Ontology) isAncestorOrSelf(candidate, id wordnet.SynsetID) bool {
	if candidate == id {
		return true
	}
	found := false
	o.graph.upward(id, wordnet.NewIDSet(), func(anc wordnet.SynsetID) {
		if anc == candidate {
			found = true
		}
	})
	return found
}

func (o *Ontology) attachSense(word *Word, id wordnet.SynsetID, pos wordnet.POS) {
	if word.hasSense(id) {
		return
	}
	word.Senses = append(word.Senses, id)
	word.SensesByPOS[pos] = append(word.SensesByPOS[pos], id)
	set, ok := o.senseWords[id]
	if !ok {
		set = make(wordnet.WordSet)
		o.senseWords[id] = set
	}
	set.Add(word.ID)
}

func (o *Ontology) attachUnknownSense(word *Word) {
	if !o.options.DifferentiateUnknownWords {
		o.ensureReserved(wordnet.SuperUnknownSynsetID)
		o.attachSense(word, wordnet.SuperUnknownSynsetID, wordnet.Undefined)
		return
	}
	o.ensureReserved(wordnet.SuperUnknownSynsetID)
	s := o.graph.add([]string{word.Form}, "", wordnet.Undefined)
	s.Unknown = true
	o.graph.link(wordnet.SuperUnknownSynsetID, s.ID)
	o.attachSense(word, s.ID, wordnet.Undefined)
}

// ExtractVocabulary extracts every line of path as a word, in file order
func (o *Ontology) ExtractVocabulary(path string, opts ExtractOptions) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo, unknown := 0, 0
	for scanner.Scan() {
		lineNo++
		form := strings.TrimSpace(scanner.Text())
		if form == "" {
			return lineNo - 1, wordnet.Malformed(path, lineNo, "empty vocabulary entry")
		}
		id, err := o.ExtractWord(form, opts)
		if err != nil {
			return lineNo - 1, fmt.Errorf("failed to extract %q: %w", form, err)
		}
		if !o.words[id].InWordNet {
			unknown++
		}
	}
	if err := scanner.Err(); err != nil {
		return lineNo, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	o.logger.Info("Extracted vocabulary",
		zap.String("path", path),
		zap.Int("words", lineNo),
		zap.Int("unknown_words", unknown),
		zap.Int("synsets", len(o.graph.nodes)))
	return lineNo, nil
}

// RemoveWord drops a word and the senses no other word references. Categories left
// without words disappear at the next Finalize.
func (o *Ontology) RemoveWord(form string) error {
	id, ok := o.wordIDs[form]
	if !ok {
		o.miss("word", zap.String("word", form))
		return fmt.Errorf("word %q: %w", form, wordnet.ErrNotFound)
	}
	o.invalidate()

	word := o.words[id]
	for _, sense := range word.Senses {
		set := o.senseWords[sense]
		delete(set, id)
		if len(set) > 0 {
			continue
		}
		delete(o.senseWords, sense)
		if s, ok := o.graph.get(sense); ok && !s.IsCategory() && !IsReserved(sense) {
			o.graph.remove(sense)
		}
	}
	delete(o.words, id)
	delete(o.wordIDs, form)
	return nil
}
