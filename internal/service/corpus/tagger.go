package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/ontology"
	"sensegraph/internal/service/rowstore"

	"go.uber.org/zap"
)

var (
	wordForm  = regexp.MustCompile(`^<wf\b([^>]*)>(.*)</wf>$`)
	punctForm = regexp.MustCompile(`^<punc>(.*)</punc>$`)
	attribute = regexp.MustCompile(`(\w+)=("[^"]*"|[^\s>]+)`)
)

// Stats counts what a tagging run saw
type Stats struct {
	Sentences     int
	Tokens        int
	Tagged        int
	UnknownWords  int
	UnknownSenses int
	Records       int
}

// Tagger turns a sense-tagged corpus into window records over an ontology's ids
type Tagger struct {
	ont        *ontology.Ontology
	windowSize int
	logger     *zap.Logger
}

func NewTagger(ont *ontology.Ontology, windowSize int, logger *zap.Logger) *Tagger {
	return &Tagger{ont: ont, windowSize: windowSize, logger: logger}
}

// token is a parsed corpus word before window assembly
type token struct {
	rowstore.Token
	tagged bool
	// unknown words are stored as <oov> when the ontology has it
	unknown bool
}

// TagFile tags the corpus at path into store
func (t *Tagger) TagFile(path string, store rowstore.RowStore) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer file.Close()
	return t.Tag(file, path, store)
}

// Tag reads <s>...</s> blocks of <wf> and <punc> lines and appends one window record per
// sense-tagged token. Other markup lines are ignored.
func (t *Tagger) Tag(r io.Reader, name string, store rowstore.RowStore) (Stats, error) {
	if store.Width() != rowstore.WindowWidth(t.windowSize) {
		return Stats{}, fmt.Errorf("store width %d does not fit window size %d", store.Width(), t.windowSize)
	}

	var stats Stats
	var sentence []token
	inSentence := false
	flush := func() error {
		if len(sentence) > 0 {
			stats.Sentences++
		}
		err := t.emit(sentence, store, &stats)
		sentence = sentence[:0]
		return err
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "<s>") || strings.HasPrefix(line, "<s "):
			if inSentence {
				return stats, wordnet.Malformed(name, lineNo, "sentence opened twice")
			}
			if err := flush(); err != nil {
				return stats, err
			}
			inSentence = true
		case line == "</s>":
			if !inSentence {
				return stats, wordnet.Malformed(name, lineNo, "sentence closed without being opened")
			}
			if err := flush(); err != nil {
				return stats, err
			}
			inSentence = false
		case strings.HasPrefix(line, "<wf"):
			tok, err := t.parseWord(line)
			if err != nil {
				return stats, wordnet.Malformed(name, lineNo, "%v", err)
			}
			stats.Tokens++
			if tok.unknown {
				stats.UnknownWords++
			}
			if tok.tagged {
				stats.Tagged++
				if tok.Sense == wordnet.NoSynset {
					stats.UnknownSenses++
				}
			}
			sentence = append(sentence, tok)
		case strings.HasPrefix(line, "<punc"):
			if !punctForm.MatchString(line) {
				return stats, wordnet.Malformed(name, lineNo, "unterminated punctuation tag")
			}
			stats.Tokens++
			sentence = append(sentence, token{Token: rowstore.Token{
				Word:  t.special("<punctuation>"),
				Sense: wordnet.NoSynset,
				POS:   wordnet.Undefined,
			}})
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read corpus: %w", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}

	t.logger.Info("Tagged corpus",
		zap.String("corpus", name),
		zap.Int("sentences", stats.Sentences),
		zap.Int("tokens", stats.Tokens),
		zap.Int("tagged", stats.Tagged),
		zap.Int("records", stats.Records),
		zap.Int("unknown_words", stats.UnknownWords),
		zap.Int("unknown_senses", stats.UnknownSenses))
	return stats, nil
}

// parseWord reads a <wf pos=.. lemma=.. wnsn=..>form</wf> line. wnsn is 1-based in the
// word's senses for the POS; only the first of several ';'-separated numbers is used.
func (t *Tagger) parseWord(line string) (token, error) {
	m := wordForm.FindStringSubmatch(line)
	if m == nil {
		return token{}, fmt.Errorf("unterminated word tag")
	}
	attrs := make(map[string]string)
	for _, a := range attribute.FindAllStringSubmatch(m[1], -1) {
		attrs[a[1]] = strings.Trim(a[2], `"`)
	}
	form := strings.TrimSpace(m[2])
	if form == "" {
		return token{}, fmt.Errorf("empty word form")
	}

	pos, _ := wordnet.ParsePOS(attrs["pos"])
	tok := token{Token: rowstore.Token{Sense: wordnet.NoSynset, POS: pos}}

	lemma := attrs["lemma"]
	if lemma == "" {
		lemma = strings.ToLower(form)
	}
	known := t.ont.HasWord(lemma)
	if !known && lemma != strings.ToLower(form) {
		lemma = strings.ToLower(form)
		known = t.ont.HasWord(lemma)
	}
	if known {
		tok.Word, _ = t.ont.WordID(lemma)
	} else {
		tok.Word = t.special("<oov>")
		tok.unknown = true
	}

	raw, ok := attrs["wnsn"]
	if !ok || attrs["cmd"] == "ignore" {
		return tok, nil
	}
	n, err := strconv.Atoi(strings.Split(raw, ";")[0])
	if err != nil {
		return token{}, fmt.Errorf("invalid sense number %q", raw)
	}
	if n <= 0 {
		return tok, nil
	}
	tok.tagged = true
	// the sense number of an unknown word says nothing about <oov>
	if tok.unknown {
		return tok, nil
	}
	tag := pos
	if tag == wordnet.Undefined {
		tag = wordnet.AllPOS
	}
	if senses := t.ont.WordSensesForPOS(tok.Word, tag); n <= len(senses) {
		tok.Sense = senses[n-1]
	}
	return tok, nil
}

// special returns the id of a placeholder word, or NoWord when the vocabulary lacks it
func (t *Tagger) special(form string) wordnet.WordID {
	if !t.ont.HasWord(form) {
		return wordnet.NoWord
	}
	id, _ := t.ont.WordID(form)
	return id
}

// emit writes a window for every tagged token of one sentence
func (t *Tagger) emit(sentence []token, store rowstore.RowStore, stats *Stats) error {
	w := t.windowSize
	for i, tok := range sentence {
		if !tok.tagged {
			continue
		}
		win := rowstore.Window{Target: tok.Token, Context: make([]rowstore.Token, 0, 2*w)}
		for j := i - w; j < i; j++ {
			win.Context = append(win.Context, slot(sentence, j))
		}
		for j := i + 1; j <= i+w; j++ {
			win.Context = append(win.Context, slot(sentence, j))
		}
		row, err := rowstore.EncodeWindow(win, w)
		if err != nil {
			return err
		}
		if err := store.Append(row); err != nil {
			return fmt.Errorf("failed to store window: %w", err)
		}
		stats.Records++
	}
	return nil
}

func slot(sentence []token, j int) rowstore.Token {
	if j < 0 || j >= len(sentence) {
		return rowstore.Padding
	}
	return sentence[j].Token
}
