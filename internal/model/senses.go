package model

// SenseInfo describes one sense of a word
type SenseInfo struct {
	SynsetID int      `json:"synset_id"`
	POS      string   `json:"pos"`
	Labels   []string `json:"labels"`
	Gloss    string   `json:"gloss"`
	// Prior is pS; Conditional is P(s | word). Both are zero without a trained model.
	Prior       float64 `json:"prior"`
	Conditional float64 `json:"conditional"`
}

type WordSensesResponse struct {
	Word   string      `json:"word"`
	Senses []SenseInfo `json:"senses"`
}

// SynsetInfo is a synset with its hierarchy probabilities
type SynsetInfo struct {
	SynsetID int      `json:"synset_id"`
	Labels   []string `json:"labels"`
	Gloss    string   `json:"gloss"`
	POS      []string `json:"pos"`
	Virtual  bool     `json:"virtual"`
	PTC      float64  `json:"p_tc"`
	PA       float64  `json:"p_a"`
	PC       float64  `json:"p_c"`
}

type AncestorsResponse struct {
	SynsetID  int          `json:"synset_id"`
	Ancestors []SynsetInfo `json:"ancestors"`
}

// CommonAncestorResponse holds the deepest common ancestors over every sense pair of
// the two words. Likelihood is set when both words form a pair of the trained bitext model.
type CommonAncestorResponse struct {
	SourceWord string       `json:"source_word"`
	TargetWord string       `json:"target_word"`
	Common     []SynsetInfo `json:"common"`
	Likelihood *float64     `json:"likelihood,omitempty"`
	FromBitext bool         `json:"from_bitext"`
}

type ScoredSenseInfo struct {
	SenseInfo
	Score float64 `json:"score"`
}

type DisambiguateResponse struct {
	Word       string            `json:"word"`
	Best       *ScoredSenseInfo  `json:"best"`
	Candidates []ScoredSenseInfo `json:"candidates"`
}

type EpochInfo struct {
	Epoch         int     `json:"epoch"`
	LogLikelihood float64 `json:"log_likelihood"`
	Pairs         int     `json:"pairs"`
	Skipped       int     `json:"skipped"`
}

type StatsResponse struct {
	Words        int         `json:"words"`
	Synsets      int         `json:"synsets"`
	Senses       int         `json:"senses"`
	LookupMisses int         `json:"lookup_misses"`
	RunID        string      `json:"run_id,omitempty"`
	TargetWords  int         `json:"target_words"`
	Pairs        int         `json:"pairs"`
	History      []EpochInfo `json:"history,omitempty"`
}
