package lexicon

import (
	"fmt"

	"sensegraph/internal/model/wordnet"
)

// MemoryDatabase is a lexical database built in code. Used by tests and by small
// hand-written lexicons.
type MemoryDatabase struct {
	synsets    map[Pointer]*Entry
	index      map[wordnet.POS]map[string][]Pointer
	stems      map[wordnet.POS]map[string]string
	nextOffset int64
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		synsets:    make(map[Pointer]*Entry),
		index:      make(map[wordnet.POS]map[string][]Pointer),
		stems:      make(map[wordnet.POS]map[string]string),
		nextOffset: 1,
	}
}

// AddSynset registers a synset whose labels become index entries, in call order.
// Hypernyms must already exist.
func (db *MemoryDatabase) AddSynset(pos wordnet.POS, gloss string, labels []string, hypernyms ...Pointer) Pointer {
	p := Pointer{Offset: db.nextOffset, POS: pos}
	db.nextOffset++

	entry := &Entry{
		Pointer:   p,
		Labels:    append([]string(nil), labels...),
		Gloss:     gloss,
		Hypernyms: append([]Pointer(nil), hypernyms...),
	}
	db.synsets[p] = entry

	idx, ok := db.index[pos]
	if !ok {
		idx = make(map[string][]Pointer)
		db.index[pos] = idx
	}
	for _, label := range labels {
		key := Normalize(label)
		idx[key] = append(idx[key], p)
	}
	return p
}

// AddStem registers an inflected form
func (db *MemoryDatabase) AddStem(pos wordnet.POS, inflected, base string) {
	m, ok := db.stems[pos]
	if !ok {
		m = make(map[string]string)
		db.stems[pos] = m
	}
	m[Normalize(inflected)] = Normalize(base)
}

func (db *MemoryDatabase) LookupSynsets(form string, pos wordnet.POS) ([]Entry, error) {
	if form == "" {
		return nil, fmt.Errorf("empty form passed to lookup")
	}
	key := Normalize(form)
	var found []Entry
	for _, p := range expandPOS(pos) {
		for _, ptr := range db.index[p][key] {
			found = append(found, *db.synsets[ptr])
		}
	}
	return found, nil
}

func (db *MemoryDatabase) Synset(p Pointer) (Entry, error) {
	e, ok := db.synsets[p]
	if !ok {
		return Entry{}, fmt.Errorf("synset %d (%s): %w", p.Offset, p.POS, wordnet.ErrNotFound)
	}
	return *e, nil
}

func (db *MemoryDatabase) MorphologicalStem(form string, pos wordnet.POS) string {
	key := Normalize(form)
	for _, p := range expandPOS(pos) {
		if base, ok := db.stems[p][key]; ok {
			return base
		}
		if _, ok := db.index[p][key]; ok {
			return key
		}
	}
	return ""
}
