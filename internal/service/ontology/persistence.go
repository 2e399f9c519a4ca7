package ontology

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/lexicon"

	"go.uber.org/zap"
)

const (
	vocabularySuffix = ".voc"
	synsetsSuffix    = ".synsets"
	ontologySuffix   = ".ontology"
	unknownTag       = "unknown"
)

// Save writes <base>.voc, <base>.synsets and <base>.ontology. Probability tables are not
// part of this format.
func (o *Ontology) Save(base string) error {
	words := o.Words()

	if err := writeLines(base+vocabularySuffix, func(w *bufio.Writer) error {
		for _, id := range words {
			if _, err := fmt.Fprintln(w, o.words[id].Form); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to save vocabulary: %w", err)
	}

	if err := writeLines(base+synsetsSuffix, func(w *bufio.Writer) error {
		for _, id := range o.graph.ids() {
			s, _ := o.graph.get(id)
			if _, err := fmt.Fprintln(w, formatSynsetLine(s)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to save synsets: %w", err)
	}

	if err := writeLines(base+ontologySuffix, func(w *bufio.Writer) error {
		for _, id := range words {
			word := o.words[id]
			if _, err := fmt.Fprintf(w, "w %d %d\n", id, boolToInt(word.InWordNet)); err != nil {
				return err
			}
			for _, sense := range word.Senses {
				if _, err := fmt.Fprintf(w, "s %d %d\n", sense, id); err != nil {
					return err
				}
			}
		}
		for _, id := range o.graph.ids() {
			s, _ := o.graph.get(id)
			for _, child := range s.Children.Sorted() {
				if _, err := fmt.Fprintf(w, "c %d %d\n", id, child); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to save ontology: %w", err)
	}

	o.logger.Info("Saved ontology",
		zap.String("base", base),
		zap.Int("words", len(words)),
		zap.Int("synsets", len(o.graph.nodes)))
	return nil
}

// formatSynsetLine renders id*|pos|pos...*|gloss|label|label...
// The first tag is the lexical one; "unknown" marks synthetic unknown-word senses.
func formatSynsetLine(s *Synset) string {
	tags := []string{s.LexicalPOS.String()}
	for _, p := range s.POS.Tags() {
		if p != s.LexicalPOS {
			tags = append(tags, p.String())
		}
	}
	if s.Unknown {
		tags = append(tags, unknownTag)
	}
	fields := append([]string{sanitize(s.Gloss)}, s.Labels...)
	for i := 1; i < len(fields); i++ {
		fields[i] = sanitize(fields[i])
	}
	return fmt.Sprintf("%d*|%s*|%s", s.ID, strings.Join(tags, "|"), strings.Join(fields, "|"))
}

func sanitize(s string) string {
	return strings.NewReplacer("|", "/", "*", " ", "\n", " ").Replace(s)
}

// Load rebuilds an ontology saved by Save. The result is finalized. db may be nil when no
// further extraction is needed.
func Load(base string, db lexicon.Database, options Options, logger *zap.Logger) (*Ontology, error) {
	o := newEmpty(db, options, logger)

	if err := readTextLines(base+synsetsSuffix, func(line string, lineNo int) error {
		s, err := parseSynsetLine(line)
		if err != nil {
			return wordnet.Malformed(base+synsetsSuffix, lineNo, "%v", err)
		}
		if _, dup := o.graph.get(s.ID); dup {
			return wordnet.Malformed(base+synsetsSuffix, lineNo, "duplicate synset id %d", s.ID)
		}
		o.graph.put(s)
		if !IsReserved(s.ID) && !s.Unknown {
			o.extracted[signature(s.Labels, s.Gloss)] = s.ID
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var forms []string
	if err := readTextLines(base+vocabularySuffix, func(line string, lineNo int) error {
		form := strings.TrimSpace(line)
		if form == "" {
			return wordnet.Malformed(base+vocabularySuffix, lineNo, "empty vocabulary entry")
		}
		forms = append(forms, form)
		return nil
	}); err != nil {
		return nil, err
	}

	path := base + ontologySuffix
	wordLines := 0
	if err := readTextLines(path, func(line string, lineNo int) error {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return wordnet.Malformed(path, lineNo, "expected 3 fields, got %d", len(fields))
		}
		a, errA := strconv.Atoi(fields[1])
		b, errB := strconv.Atoi(fields[2])
		if errA != nil || errB != nil {
			return wordnet.Malformed(path, lineNo, "non-numeric id")
		}
		switch fields[0] {
		case "w":
			if wordLines >= len(forms) {
				return wordnet.Malformed(path, lineNo, "more words than vocabulary entries")
			}
			form := forms[wordLines]
			wordLines++
			id := wordnet.WordID(a)
			if _, dup := o.words[id]; dup {
				return wordnet.Malformed(path, lineNo, "duplicate word id %d", id)
			}
			o.words[id] = &Word{
				ID:          id,
				Form:        form,
				InWordNet:   b == 1,
				SensesByPOS: make(map[wordnet.POS][]wordnet.SynsetID),
			}
			o.wordIDs[form] = id
			if id >= o.nextWordID {
				o.nextWordID = id + 1
			}
		case "s":
			sense := wordnet.SynsetID(a)
			word, ok := o.words[wordnet.WordID(b)]
			if !ok {
				return wordnet.Malformed(path, lineNo, "sense of undeclared word %d", b)
			}
			s, ok := o.graph.get(sense)
			if !ok {
				return wordnet.Malformed(path, lineNo, "undeclared synset %d", sense)
			}
			o.attachSense(word, sense, s.LexicalPOS)
		case "c":
			if !o.graph.link(wordnet.SynsetID(a), wordnet.SynsetID(b)) {
				return wordnet.Malformed(path, lineNo, "edge between undeclared synsets %d -> %d", a, b)
			}
		default:
			return wordnet.Malformed(path, lineNo, "unknown record type %q", fields[0])
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if wordLines != len(forms) {
		return nil, wordnet.Malformed(path, 0, "%d words declared for %d vocabulary entries", wordLines, len(forms))
	}
	if _, ok := o.graph.get(wordnet.RootSynsetID); !ok {
		return nil, wordnet.Malformed(base+synsetsSuffix, 0, "no ROOT synset")
	}

	o.computeClosures()
	o.finalized = true

	logger.Info("Loaded ontology",
		zap.String("base", base),
		zap.Int("words", len(o.words)),
		zap.Int("synsets", len(o.graph.nodes)))
	return o, nil
}

func parseSynsetLine(line string) (*Synset, error) {
	parts := strings.SplitN(line, "*|", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected id*|tags*|gloss|labels")
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("bad synset id %q", parts[0])
	}

	tags := strings.Split(parts[1], "|")
	lexical, ok := wordnet.ParsePOS(tags[0])
	if !ok {
		return nil, fmt.Errorf("bad lexical tag %q", tags[0])
	}
	s := newSynset(wordnet.SynsetID(id), nil, "", lexical)
	for _, tag := range tags[1:] {
		if tag == unknownTag {
			s.Unknown = true
			continue
		}
		p, ok := wordnet.ParsePOS(tag)
		if !ok {
			return nil, fmt.Errorf("bad tag %q", tag)
		}
		s.POS = s.POS.With(p)
	}

	fields := strings.Split(parts[2], "|")
	s.Gloss = fields[0]
	s.Labels = append([]string(nil), fields[1:]...)
	return s, nil
}

func writeLines(path string, fn func(w *bufio.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := fn(w); err != nil {
		return err
	}
	return w.Flush()
}

func readTextLines(path string, fn func(line string, lineNo int) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if strings.TrimSpace(scanner.Text()) == "" && !strings.HasSuffix(path, vocabularySuffix) {
			continue
		}
		if err := fn(scanner.Text(), lineNo); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
