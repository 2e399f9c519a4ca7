package lexicon

import (
	"sort"
	"strings"

	"sensegraph/internal/model/wordnet"
)

type detachment struct {
	suffix, ending string
}

var detachmentRules = map[wordnet.POS][]detachment{
	wordnet.Noun: {
		{"s", ""}, {"ses", "s"}, {"xes", "x"}, {"zes", "z"},
		{"ches", "ch"}, {"shes", "sh"}, {"men", "man"}, {"ies", "y"},
	},
	wordnet.Verb: {
		{"s", ""}, {"ies", "y"}, {"es", "e"}, {"es", ""},
		{"ed", "e"}, {"ed", ""}, {"ing", "e"}, {"ing", ""},
	},
	wordnet.Adjective: {
		{"er", ""}, {"est", ""}, {"er", "e"}, {"est", "e"},
	},
}

// morphy returns the base form of key: exception list first, then the form itself,
// then the detachment rules. Only forms present in the index qualify.
func morphy(key string, pos wordnet.POS, exceptions map[string][]string, index map[string][]Pointer) string {
	known := func(s string) bool {
		_, ok := index[s]
		return ok
	}

	for _, base := range exceptions[key] {
		if b := Normalize(base); known(b) {
			return b
		}
	}
	if known(key) {
		return key
	}
	// noun forms ending in "ss" are not plurals
	if pos == wordnet.Noun && strings.HasSuffix(key, "ss") {
		return ""
	}
	for _, rule := range detachmentRules[pos] {
		if !strings.HasSuffix(key, rule.suffix) || len(key) <= len(rule.suffix) {
			continue
		}
		candidate := strings.TrimSuffix(key, rule.suffix) + rule.ending
		if known(candidate) {
			return candidate
		}
	}
	return ""
}

func sortPointers(ptrs []Pointer) {
	sort.Slice(ptrs, func(i, j int) bool { return ptrs[i].Offset < ptrs[j].Offset })
}
