package graphstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sensegraph/internal/config"
	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/ontology"

	"go.uber.org/zap"
)

const labelSeparator = "|"

// SynsetRecord is a synset as stored in the graph database
type SynsetRecord struct {
	ID      wordnet.SynsetID
	Labels  []string
	Gloss   string
	POS     []string
	Unknown bool
	Sense   bool
}

// ExportStats counts what Export wrote
type ExportStats struct {
	Synsets   int
	Words     int
	Hypernyms int
	Senses    int
}

// OntologyGraph mirrors a finalized ontology into a graph database and answers
// hierarchy queries against it
type OntologyGraph struct {
	db       GraphDatabase
	maxDepth int
	logger   *zap.Logger
}

func NewOntologyGraph(db GraphDatabase, maxDepth int, logger *zap.Logger) *OntologyGraph {
	if maxDepth <= 0 {
		maxDepth = 30
	}
	return &OntologyGraph{db: db, maxDepth: maxDepth, logger: logger}
}

// NewOntologyGraphFromConfig opens the backend named by graph_store.backend
func NewOntologyGraphFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*OntologyGraph, error) {
	switch cfg.GraphStore.Backend {
	case "neo4j":
		return NewOntologyGraphWithNeo4j(ctx, cfg, logger)
	case "kuzu", "":
		return NewOntologyGraphWithKuzu(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("unknown graph store backend %q", cfg.GraphStore.Backend)
}

func NewOntologyGraphWithKuzu(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*OntologyGraph, error) {
	databasePath := cfg.Kuzu.Path
	if databasePath == "" {
		databasePath = ":memory:"
		logger.Info("No Kuzu database path configured, using in-memory database")
	}

	db, err := NewKuzuDatabase(databasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kuzu database: %w", err)
	}
	if err := db.VerifyConnectivity(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to verify database connectivity: %w", err)
	}
	return NewOntologyGraph(db, cfg.GraphStore.MaxDepth, logger), nil
}

func NewOntologyGraphWithNeo4j(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*OntologyGraph, error) {
	db, err := NewNeo4jDatabase(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j database: %w", err)
	}
	if err := db.VerifyConnectivity(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to verify database connectivity: %w", err)
	}
	if err := db.InitializeSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, err
	}
	return NewOntologyGraph(db, cfg.GraphStore.MaxDepth, logger), nil
}

func (g *OntologyGraph) Close(ctx context.Context) error {
	return g.db.Close(ctx)
}

// Clear removes every node and relation
func (g *OntologyGraph) Clear(ctx context.Context) error {
	if _, err := g.db.ExecuteWrite(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	return nil
}

// Export replaces the graph contents with the ontology: synsets, words, hypernym edges
// and word-sense edges carrying the sense's rank in the word's native order
func (g *OntologyGraph) Export(ctx context.Context, ont *ontology.Ontology) (ExportStats, error) {
	var stats ExportStats
	if !ont.Finalized() {
		return stats, fmt.Errorf("failed to export ontology: %w", wordnet.ErrNotFinalized)
	}
	if err := g.Clear(ctx); err != nil {
		return stats, err
	}

	synsets := ont.Synsets()
	for _, id := range synsets {
		s, err := ont.Synset(id)
		if err != nil {
			return stats, err
		}
		if err := g.writeSynset(ctx, &s, ont.IsSense(id)); err != nil {
			return stats, err
		}
		stats.Synsets++
	}

	for _, id := range synsets {
		for _, parent := range ont.SynsetParents(id) {
			if id == parent {
				continue
			}
			if err := g.writeRelation(ctx, "MATCH (c:Synset {id: $child}), (p:Synset {id: $parent}) MERGE (c)-[:IS_A]->(p)",
				map[string]any{"child": int64(id), "parent": int64(parent)}); err != nil {
				return stats, err
			}
			stats.Hypernyms++
		}
	}

	for _, wid := range ont.Words() {
		w, err := ont.Word(wid)
		if err != nil {
			return stats, err
		}
		params := map[string]any{"id": int64(w.ID), "form": w.Form, "inWordNet": w.InWordNet}
		if _, err := g.db.ExecuteWrite(ctx, "MERGE (w:Word {id: $id}) SET w.form = $form, w.inWordNet = $inWordNet", params); err != nil {
			g.logger.Error("Failed to write word", zap.String("word", w.Form), zap.Error(err))
			return stats, fmt.Errorf("failed to write word: %w", err)
		}
		stats.Words++

		for rank, sense := range w.Senses {
			pos := wordnet.Undefined
			for p, ids := range w.SensesByPOS {
				if containsSynset(ids, sense) {
					pos = p
					break
				}
			}
			if err := g.writeRelation(ctx,
				"MATCH (w:Word {id: $word}), (s:Synset {id: $sense}) MERGE (w)-[r:HAS_SENSE]->(s) SET r.pos = $pos, r.rank = $rank",
				map[string]any{"word": int64(w.ID), "sense": int64(sense), "pos": pos.String(), "rank": int64(rank)}); err != nil {
				return stats, err
			}
			stats.Senses++
		}
	}

	g.logger.Info("Exported ontology to graph store",
		zap.Int("synsets", stats.Synsets),
		zap.Int("words", stats.Words),
		zap.Int("hypernyms", stats.Hypernyms),
		zap.Int("senses", stats.Senses))
	return stats, nil
}

func (g *OntologyGraph) writeSynset(ctx context.Context, s *ontology.Synset, sense bool) error {
	tags := make([]string, 0, 4)
	for _, p := range s.POS.Tags() {
		tags = append(tags, p.String())
	}
	params := map[string]any{
		"id":      int64(s.ID),
		"labels":  strings.Join(s.Labels, labelSeparator),
		"gloss":   s.Gloss,
		"pos":     strings.Join(tags, labelSeparator),
		"unknown": s.Unknown,
		"sense":   sense,
	}

	g.logger.Debug("Writing synset", zap.Int64("synsetId", int64(s.ID)))
	query := `
		MERGE (s:Synset {id: $id})
		SET s.labels = $labels, s.gloss = $gloss, s.pos = $pos, s.unknown = $unknown, s.sense = $sense
	`
	if _, err := g.db.ExecuteWrite(ctx, query, params); err != nil {
		g.logger.Error("Failed to write synset", zap.Int64("synsetId", int64(s.ID)), zap.Error(err))
		return fmt.Errorf("failed to write synset: %w", err)
	}
	return nil
}

func (g *OntologyGraph) writeRelation(ctx context.Context, query string, params map[string]any) error {
	if _, err := g.db.ExecuteWrite(ctx, query, params); err != nil {
		g.logger.Error("Failed to write relation", zap.Any("params", params), zap.Error(err))
		return fmt.Errorf("failed to write relation: %w", err)
	}
	return nil
}

// ReadSynset loads one synset back from the graph
func (g *OntologyGraph) ReadSynset(ctx context.Context, id wordnet.SynsetID) (SynsetRecord, error) {
	records, err := g.db.ExecuteRead(ctx, "MATCH (s:Synset {id: $id}) RETURN s", map[string]any{"id": int64(id)})
	if err != nil {
		return SynsetRecord{}, fmt.Errorf("failed to read synset: %w", err)
	}
	if len(records) == 0 {
		return SynsetRecord{}, fmt.Errorf("synset %d: %w", id, wordnet.ErrNotFound)
	}
	props, ok := records[0]["s"].(map[string]any)
	if !ok {
		return SynsetRecord{}, fmt.Errorf("unexpected synset record %T", records[0]["s"])
	}
	return recordToSynset(props)
}

func recordToSynset(props map[string]any) (SynsetRecord, error) {
	id, ok := toInt64(props["id"])
	if !ok {
		return SynsetRecord{}, fmt.Errorf("synset record without id")
	}
	rec := SynsetRecord{ID: wordnet.SynsetID(id)}
	rec.Labels = splitList(props["labels"])
	rec.POS = splitList(props["pos"])
	rec.Gloss, _ = props["gloss"].(string)
	rec.Unknown, _ = props["unknown"].(bool)
	rec.Sense, _ = props["sense"].(bool)
	return rec, nil
}

func splitList(value any) []string {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	return strings.Split(s, labelSeparator)
}

// Ancestors returns every synset reachable upward from id, sorted
func (g *OntologyGraph) Ancestors(ctx context.Context, id wordnet.SynsetID) ([]wordnet.SynsetID, error) {
	query := fmt.Sprintf("MATCH (s:Synset {id: $id})-[:IS_A*1..%d]->(a:Synset) RETURN DISTINCT a.id AS id", g.maxDepth)
	records, err := g.db.ExecuteRead(ctx, query, map[string]any{"id": int64(id)})
	if err != nil {
		return nil, fmt.Errorf("failed to query ancestors: %w", err)
	}
	return collectIDs(records)
}

// SharedAncestors returns the ancestors two synsets have in common, sorted
func (g *OntologyGraph) SharedAncestors(ctx context.Context, a, b wordnet.SynsetID) ([]wordnet.SynsetID, error) {
	left, err := g.Ancestors(ctx, a)
	if err != nil {
		return nil, err
	}
	right, err := g.Ancestors(ctx, b)
	if err != nil {
		return nil, err
	}
	seen := wordnet.NewIDSet(right...)
	var shared []wordnet.SynsetID
	for _, id := range left {
		if seen.Contains(id) {
			shared = append(shared, id)
		}
	}
	return shared, nil
}

// WordSenses returns the senses of a surface form in the word's native order
func (g *OntologyGraph) WordSenses(ctx context.Context, form string) ([]wordnet.SynsetID, error) {
	records, err := g.db.ExecuteRead(ctx,
		"MATCH (w:Word {form: $form})-[r:HAS_SENSE]->(s:Synset) RETURN s.id AS id, r.rank AS rank ORDER BY rank",
		map[string]any{"form": form})
	if err != nil {
		return nil, fmt.Errorf("failed to query word senses: %w", err)
	}
	ids := make([]wordnet.SynsetID, 0, len(records))
	for _, r := range records {
		id, ok := toInt64(r["id"])
		if !ok {
			return nil, fmt.Errorf("sense record without id")
		}
		ids = append(ids, wordnet.SynsetID(id))
	}
	return ids, nil
}

func collectIDs(records []map[string]any) ([]wordnet.SynsetID, error) {
	ids := make([]wordnet.SynsetID, 0, len(records))
	for _, r := range records {
		id, ok := toInt64(r["id"])
		if !ok {
			return nil, fmt.Errorf("record without id: %v", r)
		}
		ids = append(ids, wordnet.SynsetID(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func containsSynset(ids []wordnet.SynsetID, id wordnet.SynsetID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
