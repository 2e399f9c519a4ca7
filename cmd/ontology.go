package main

import (
	"context"
	"fmt"
	"sort"

	"sensegraph/internal/config"
	"sensegraph/internal/service/graphstore"
	"sensegraph/internal/service/lexicon"
	"sensegraph/internal/service/ontology"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"go.uber.org/zap"
)

var vocabularyPath, ontologyBase string

func ontologyOptions(cfg *config.Config) ontology.Options {
	return ontology.Options{DifferentiateUnknownWords: cfg.Ontology.DifferentiateUnknownWords}
}

// loadOntology loads the saved ontology named by ontology.base
func loadOntology(cfg *config.Config, logger *zap.Logger) (*ontology.Ontology, error) {
	if cfg.Ontology.Base == "" {
		return nil, fmt.Errorf("ontology.base is not configured")
	}
	ont, err := ontology.Load(cfg.Ontology.Base, nil, ontologyOptions(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load ontology: %w", err)
	}
	return ont, nil
}

func generateOntology(cmd *commander.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if vocabularyPath != "" {
		cfg.Ontology.Vocabulary = vocabularyPath
	}
	if ontologyBase != "" {
		cfg.Ontology.Base = ontologyBase
	}
	if cfg.Lexicon.Dir == "" || cfg.Ontology.Vocabulary == "" || cfg.Ontology.Base == "" {
		return fmt.Errorf("lexicon.dir, ontology.vocabulary and ontology.base are required")
	}

	db, err := lexicon.OpenWordNet(cfg.Lexicon.Dir, logger)
	if err != nil {
		return fmt.Errorf("failed to open WordNet: %w", err)
	}

	ont := ontology.New(db, ontologyOptions(cfg), logger)
	opts := ontology.ExtractOptions{Stem: cfg.Ontology.Stem, SplitUnderscores: cfg.Ontology.SplitUnderscores}
	specials := make([]string, 0, len(ontology.SpecialWords))
	for form := range ontology.SpecialWords {
		specials = append(specials, form)
	}
	sort.Strings(specials)
	for _, form := range specials {
		if _, err := ont.ExtractWord(form, opts); err != nil {
			return fmt.Errorf("failed to extract %q: %w", form, err)
		}
	}
	if _, err := ont.ExtractVocabulary(cfg.Ontology.Vocabulary, opts); err != nil {
		return err
	}
	ont.Finalize()

	if err := ont.Save(cfg.Ontology.Base); err != nil {
		return fmt.Errorf("failed to save ontology: %w", err)
	}
	logger.Info("Generated ontology",
		zap.String("base", cfg.Ontology.Base),
		zap.Int("words", ont.WordCount()),
		zap.Int("synsets", ont.SynsetCount()),
		zap.Int("lookup_misses", ont.LookupMisses()))
	return nil
}

func generateOntologyCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       generateOntology,
		UsageLine: "generate-ontology [options]",
		Short:     "extract a vocabulary's WordNet senses and hypernyms into a saved ontology",
		Long: `
extract every word of a vocabulary file (one word per line) with its senses and their
hypernym chains, finalize the graph and save it as <base>.voc, <base>.synsets and
<base>.ontology

	$ ./sensegraph generate-ontology -config app.yaml [-vocab words.txt] [-out data/en]

`,
		Flag: *flag.NewFlagSet("generate-ontology", flag.ExitOnError),
	}
	addConfigFlag(&cmd.Flag)
	cmd.Flag.StringVar(&vocabularyPath, "vocab", "", "vocabulary file, overrides ontology.vocabulary")
	cmd.Flag.StringVar(&ontologyBase, "out", "", "output base path, overrides ontology.base")
	return cmd
}

func exportGraph(cmd *commander.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ont, err := loadOntology(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	graph, err := graphstore.NewOntologyGraphFromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer graph.Close(ctx)

	_, err = graph.Export(ctx, ont)
	return err
}

func exportGraphCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       exportGraph,
		UsageLine: "export-graph [options]",
		Short:     "write the saved ontology into the configured graph store (kuzu or neo4j)",
		Flag:      *flag.NewFlagSet("export-graph", flag.ExitOnError),
	}
	addConfigFlag(&cmd.Flag)
	return cmd
}
