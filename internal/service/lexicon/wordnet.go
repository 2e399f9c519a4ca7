package lexicon

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sensegraph/internal/model/wordnet"

	"go.uber.org/zap"
)

var dictSuffix = map[wordnet.POS]string{
	wordnet.Noun:      "noun",
	wordnet.Verb:      "verb",
	wordnet.Adjective: "adj",
	wordnet.Adverb:    "adv",
}

// WordNetDatabase is a read-only, in-ram copy of a WordNet dict directory
// (data.*, index.* and *.exc files). Safe for concurrent readers.
type WordNetDatabase struct {
	synsets    map[Pointer]*Entry
	index      map[wordnet.POS]map[string][]Pointer
	exceptions map[wordnet.POS]map[string][]string
	logger     *zap.Logger
}

// OpenWordNet loads the dict directory. Missing index files fall back to data-file order.
func OpenWordNet(dir string, logger *zap.Logger) (*WordNetDatabase, error) {
	db := &WordNetDatabase{
		synsets:    make(map[Pointer]*Entry),
		index:      make(map[wordnet.POS]map[string][]Pointer),
		exceptions: make(map[wordnet.POS]map[string][]string),
		logger:     logger,
	}

	for _, pos := range wordnet.LexicalPOS {
		start := time.Now()
		suffix := dictSuffix[pos]

		dataPath := filepath.Join(dir, "data."+suffix)
		if err := db.readData(dataPath, pos); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", dataPath, err)
		}

		indexPath := filepath.Join(dir, "index."+suffix)
		if _, err := os.Stat(indexPath); err == nil {
			if err := db.readIndex(indexPath, pos); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", indexPath, err)
			}
		} else {
			db.indexFromData(pos)
		}

		excPath := filepath.Join(dir, suffix+".exc")
		if _, err := os.Stat(excPath); err == nil {
			if err := db.readExceptions(excPath, pos); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", excPath, err)
			}
		}

		logger.Info("Loaded WordNet part of speech",
			zap.String("pos", pos.String()),
			zap.Int("lemmas", len(db.index[pos])),
			zap.Duration("elapsed", time.Since(start)))
	}

	if len(db.synsets) == 0 {
		return nil, fmt.Errorf("no synsets found in %s", dir)
	}
	return db, nil
}

func readLines(path string, fn func(line string, lineNo int) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		// license header lines start with blanks
		if line == "" || strings.HasPrefix(line, "  ") {
			continue
		}
		if err := fn(line, lineNo); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (db *WordNetDatabase) readData(path string, pos wordnet.POS) error {
	return readLines(path, func(line string, lineNo int) error {
		entry, err := parseDataLine(line, pos)
		if err != nil {
			return wordnet.Malformed(path, lineNo, "%v", err)
		}
		db.synsets[entry.Pointer] = entry
		return nil
	})
}

// parseDataLine reads
// offset lex_filenum ss_type w_cnt word lex_id [word lex_id...] p_cnt [ptr...] [frames...] | gloss
func parseDataLine(line string, pos wordnet.POS) (*Entry, error) {
	body, gloss, _ := strings.Cut(line, " | ")
	fields := strings.Fields(body)
	if len(fields) < 4 {
		return nil, fmt.Errorf("too few fields")
	}

	offset, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad offset %q", fields[0])
	}
	wordCount, err := strconv.ParseInt(fields[3], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("bad word count %q", fields[3])
	}

	i := 4
	entry := &Entry{
		Pointer: Pointer{Offset: offset, POS: pos},
		Gloss:   strings.TrimSpace(gloss),
	}
	for w := 0; w < int(wordCount); w++ {
		if i+1 >= len(fields) {
			return nil, fmt.Errorf("truncated word list")
		}
		entry.Labels = append(entry.Labels, stripAdjectiveMarker(fields[i]))
		i += 2
	}

	if i >= len(fields) {
		return nil, fmt.Errorf("missing pointer count")
	}
	ptrCount, err := strconv.Atoi(fields[i])
	if err != nil {
		return nil, fmt.Errorf("bad pointer count %q", fields[i])
	}
	i++
	for p := 0; p < ptrCount; p++ {
		if i+3 >= len(fields) {
			return nil, fmt.Errorf("truncated pointer list")
		}
		symbol, target, targetPOS := fields[i], fields[i+1], fields[i+2]
		i += 4
		if symbol != "@" && symbol != "@i" {
			continue
		}
		targetOffset, err := strconv.ParseInt(target, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad pointer offset %q", target)
		}
		// satellite pointers ("s") resolve into the adjective file
		tp, ok := wordnet.ParsePOS(targetPOS)
		if !ok {
			return nil, fmt.Errorf("bad pointer pos %q", targetPOS)
		}
		entry.Hypernyms = append(entry.Hypernyms, Pointer{Offset: targetOffset, POS: tp})
	}
	return entry, nil
}

// adjectives carry syntactic markers such as "(p)" glued to the word
func stripAdjectiveMarker(word string) string {
	if idx := strings.IndexByte(word, '('); idx > 0 {
		return word[:idx]
	}
	return word
}

// readIndex reads
// lemma pos synset_cnt p_cnt [ptr_symbol...] sense_cnt tagsense_cnt synset_offset...
func (db *WordNetDatabase) readIndex(path string, pos wordnet.POS) error {
	idx := make(map[string][]Pointer)
	db.index[pos] = idx
	return readLines(path, func(line string, lineNo int) error {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			return wordnet.Malformed(path, lineNo, "too few fields")
		}
		synsetCount, err := strconv.Atoi(fields[2])
		if err != nil {
			return wordnet.Malformed(path, lineNo, "bad synset count %q", fields[2])
		}
		ptrCount, err := strconv.Atoi(fields[3])
		if err != nil {
			return wordnet.Malformed(path, lineNo, "bad pointer count %q", fields[3])
		}
		start := 4 + ptrCount + 2
		if start+synsetCount > len(fields) {
			return wordnet.Malformed(path, lineNo, "truncated offset list")
		}
		key := Normalize(fields[0])
		for _, f := range fields[start : start+synsetCount] {
			offset, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return wordnet.Malformed(path, lineNo, "bad offset %q", f)
			}
			idx[key] = append(idx[key], Pointer{Offset: offset, POS: pos})
		}
		return nil
	})
}

func (db *WordNetDatabase) indexFromData(pos wordnet.POS) {
	idx := make(map[string][]Pointer)
	db.index[pos] = idx
	for p, entry := range db.synsets {
		if p.POS != pos {
			continue
		}
		for _, label := range entry.Labels {
			key := Normalize(label)
			idx[key] = append(idx[key], p)
		}
	}
	for key := range idx {
		sortPointers(idx[key])
	}
}

func (db *WordNetDatabase) readExceptions(path string, pos wordnet.POS) error {
	exc := make(map[string][]string)
	db.exceptions[pos] = exc
	return readLines(path, func(line string, lineNo int) error {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return wordnet.Malformed(path, lineNo, "exception without base form")
		}
		exc[Normalize(fields[0])] = fields[1:]
		return nil
	})
}

func (db *WordNetDatabase) LookupSynsets(form string, pos wordnet.POS) ([]Entry, error) {
	if form == "" {
		return nil, fmt.Errorf("empty form passed to lookup")
	}
	key := Normalize(form)
	var found []Entry
	for _, p := range expandPOS(pos) {
		for _, ptr := range db.index[p][key] {
			entry, ok := db.synsets[ptr]
			if !ok {
				db.logger.Warn("Index points to a missing synset",
					zap.String("form", form),
					zap.Int64("offset", ptr.Offset),
					zap.String("pos", ptr.POS.String()))
				continue
			}
			found = append(found, *entry)
		}
	}
	return found, nil
}

func (db *WordNetDatabase) Synset(p Pointer) (Entry, error) {
	entry, ok := db.synsets[p]
	if !ok {
		return Entry{}, fmt.Errorf("synset %d (%s): %w", p.Offset, p.POS, wordnet.ErrNotFound)
	}
	return *entry, nil
}

func (db *WordNetDatabase) MorphologicalStem(form string, pos wordnet.POS) string {
	for _, p := range expandPOS(pos) {
		if base := morphy(Normalize(form), p, db.exceptions[p], db.index[p]); base != "" {
			return base
		}
	}
	return ""
}
