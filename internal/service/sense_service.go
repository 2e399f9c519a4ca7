package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"sensegraph/internal/model"
	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/bitext"
	"sensegraph/internal/service/ontology"

	"go.uber.org/zap"
)

var (
	ErrNoModel        = errors.New("no trained model loaded")
	ErrInvalidRequest = errors.New("invalid request")
)

// SenseService answers queries over a finalized ontology and, when one is loaded,
// a trained bitext model. It is shared by the HTTP controller and the MCP server.
type SenseService struct {
	ont    *ontology.Ontology
	engine *bitext.Engine
	wsd    bitext.WSDOptions
	logger *zap.Logger

	// the ontology counts lookup misses, so reads still serialize
	mu sync.Mutex
}

// NewSenseService wraps an ontology; engine may be nil
func NewSenseService(ont *ontology.Ontology, engine *bitext.Engine, wsd bitext.WSDOptions, logger *zap.Logger) (*SenseService, error) {
	if !ont.Finalized() {
		return nil, fmt.Errorf("failed to create sense service: %w", wordnet.ErrNotFinalized)
	}
	return &SenseService{ont: ont, engine: engine, wsd: wsd, logger: logger}, nil
}

func (s *SenseService) HasModel() bool {
	return s.engine != nil
}

// WordSenses lists the senses of a word in native order
func (s *SenseService) WordSenses(form string) (*model.WordSensesResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.ont.WordID(form)
	if err != nil {
		return nil, err
	}
	w, err := s.ont.Word(id)
	if err != nil {
		return nil, err
	}

	resp := &model.WordSensesResponse{Word: form, Senses: make([]model.SenseInfo, 0, len(w.Senses))}
	for _, sense := range w.Senses {
		resp.Senses = append(resp.Senses, s.senseInfo(&w, sense))
	}
	return resp, nil
}

func (s *SenseService) senseInfo(w *ontology.Word, sense wordnet.SynsetID) model.SenseInfo {
	info := model.SenseInfo{SynsetID: int(sense), POS: wordnet.Undefined.String()}
	for p, ids := range w.SensesByPOS {
		for _, id := range ids {
			if id == sense {
				info.POS = p.String()
			}
		}
	}
	if syn, err := s.ont.Synset(sense); err == nil {
		info.Labels = syn.Labels
		info.Gloss = syn.Gloss
	}
	if s.engine != nil {
		info.Prior = s.engine.Model().PS(sense)
		info.Conditional = s.engine.PES(w.ID, sense)
	}
	return info
}

func (s *SenseService) synsetInfo(id wordnet.SynsetID) model.SynsetInfo {
	info := model.SynsetInfo{SynsetID: int(id)}
	if syn, err := s.ont.Synset(id); err == nil {
		info.Labels = syn.Labels
		info.Gloss = syn.Gloss
		for _, p := range syn.POS.Tags() {
			info.POS = append(info.POS, p.String())
		}
	}
	info.Virtual = s.ont.IsVirtual(id)
	if s.engine != nil {
		m := s.engine.Model()
		info.PTC = m.PTC(id)
		info.PA = m.PA(id)
		info.PC = m.PC(id)
	}
	return info
}

// Ancestors returns the ancestors of a synset up to maxLevel levels up, sorted by id.
// A negative maxLevel returns the whole closure.
func (s *SenseService) Ancestors(id wordnet.SynsetID, maxLevel int) (*model.AncestorsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.ont.SynsetAncestors(id, maxLevel)
	if err != nil {
		return nil, err
	}
	resp := &model.AncestorsResponse{SynsetID: int(id)}
	for _, a := range set.Sorted() {
		resp.Ancestors = append(resp.Ancestors, s.synsetInfo(a))
	}
	return resp, nil
}

// CommonAncestor returns the deepest common ancestors of two words. A target word of the
// trained model's second language gives its CommonNode set and the pair likelihood; any
// other target is looked up in the ontology and its senses are met directly.
func (s *SenseService) CommonAncestor(source, target string) (*model.CommonAncestorResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.ont.WordID(source)
	if err != nil {
		return nil, err
	}
	resp := &model.CommonAncestorResponse{SourceWord: source, TargetWord: target}

	if s.engine != nil {
		if tgt, ok := s.engine.Target().ID(target); ok {
			common, err := s.engine.CommonNodes(src, tgt)
			if err != nil {
				return nil, err
			}
			l, err := s.engine.Likelihood(src, tgt)
			if err != nil {
				return nil, err
			}
			for _, c := range common {
				resp.Common = append(resp.Common, s.synsetInfo(c))
			}
			resp.Likelihood = &l
			resp.FromBitext = true
			return resp, nil
		}
	}

	tgt, err := s.ont.WordID(target)
	if err != nil {
		return nil, err
	}
	isVirtual := s.ont.IsVirtual
	if s.engine != nil {
		isVirtual = s.engine.Model().IsVirtual
	}
	common := wordnet.NewIDSet()
	for _, a := range s.ont.WordSenses(src) {
		for _, b := range s.ont.WordSenses(tgt) {
			meet, err := s.ont.DeepestCommonAncestor(a, b, isVirtual)
			if err != nil {
				return nil, err
			}
			common.Add(meet)
		}
	}
	for _, c := range common.Sorted() {
		resp.Common = append(resp.Common, s.synsetInfo(c))
	}
	return resp, nil
}

// Disambiguate scores the senses of word in the given context. Unknown context words
// are ignored.
func (s *SenseService) Disambiguate(form, pos string, context []string) (*model.DisambiguateResponse, error) {
	if s.engine == nil {
		return nil, ErrNoModel
	}
	tag, ok := wordnet.ParsePOS(pos)
	if !ok {
		return nil, fmt.Errorf("%w: unknown part of speech %q", ErrInvalidRequest, pos)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.ont.WordID(form)
	if err != nil {
		return nil, err
	}
	w, err := s.ont.Word(id)
	if err != nil {
		return nil, err
	}
	ctxIDs := make([]wordnet.WordID, 0, len(context))
	for _, c := range context {
		if cid, err := s.ont.WordID(c); err == nil {
			ctxIDs = append(ctxIDs, cid)
		}
	}

	scored, best, err := s.engine.Disambiguate(id, tag, ctxIDs, s.wsd)
	if err != nil {
		return nil, err
	}
	resp := &model.DisambiguateResponse{Word: form}
	for _, c := range scored {
		resp.Candidates = append(resp.Candidates, model.ScoredSenseInfo{SenseInfo: s.senseInfo(&w, c.Sense), Score: c.Score})
	}
	resp.Best = &resp.Candidates[best]
	return resp, nil
}

// Stats summarizes the loaded ontology and model
func (s *SenseService) Stats() *model.StatsResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &model.StatsResponse{
		Words:        s.ont.WordCount(),
		Synsets:      s.ont.SynsetCount(),
		Senses:       len(s.ont.Senses()),
		LookupMisses: s.ont.LookupMisses(),
	}
	if s.engine == nil {
		return resp
	}
	resp.RunID = s.engine.RunID()
	resp.TargetWords = s.engine.Target().Len()
	resp.Pairs = len(s.engine.Corpus().Pairs())
	for _, h := range s.engine.History() {
		resp.History = append(resp.History, model.EpochInfo{
			Epoch:         h.Epoch,
			LogLikelihood: h.LogLikelihood,
			Pairs:         h.Pairs,
			Skipped:       h.Skipped,
		})
	}
	sort.Slice(resp.History, func(i, j int) bool { return resp.History[i].Epoch < resp.History[j].Epoch })
	return resp
}
