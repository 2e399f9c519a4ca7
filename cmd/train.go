package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sensegraph/internal/config"
	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/bitext"
	"sensegraph/internal/service/corpus"
	"sensegraph/internal/service/ontology"
	"sensegraph/internal/service/rowstore"
	"sensegraph/internal/service/sensemodel"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"go.uber.org/zap"
)

var (
	corpusInput, corpusStore string
	trainEpochs              int
	trainStore, testStore    string
)

func tagCorpus(cmd *commander.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if corpusInput != "" {
		cfg.Corpus.Input = corpusInput
	}
	if corpusStore != "" {
		cfg.Corpus.Store = corpusStore
	}
	if cfg.Corpus.Input == "" || cfg.Corpus.Store == "" {
		return fmt.Errorf("corpus.input and corpus.store are required")
	}

	ont, err := loadOntology(cfg, logger)
	if err != nil {
		return err
	}
	store, err := rowstore.Create(cfg.Corpus.Store, rowstore.WindowWidth(cfg.WSD.WindowSize), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = corpus.NewTagger(ont, cfg.WSD.WindowSize, logger).TagFile(cfg.Corpus.Input, store)
	return err
}

func tagCorpusCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       tagCorpus,
		UsageLine: "tag-corpus [options]",
		Short:     "convert a sense-tagged corpus into a window row store",
		Long: `
read a SemCor-style corpus (<s> ... </s> sentences of <wf> and <punc> lines) and write one
fixed-width window per sense-tagged token

	$ ./sensegraph tag-corpus -config app.yaml [-in semcor.txt] [-out semcor.rows]

`,
		Flag: *flag.NewFlagSet("tag-corpus", flag.ExitOnError),
	}
	addConfigFlag(&cmd.Flag)
	cmd.Flag.StringVar(&corpusInput, "in", "", "tagged corpus, overrides corpus.input")
	cmd.Flag.StringVar(&corpusStore, "out", "", "row store to create, overrides corpus.store")
	return cmd
}

// buildEngine loads the ontology, the translation lexicon and the pair corpus and wires
// an uninitialized engine over them
func buildEngine(cfg *config.Config, logger *zap.Logger) (*bitext.Engine, *ontology.Ontology, error) {
	ont, err := loadOntology(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	model, err := sensemodel.NewModel(ont, sensemodel.Options{
		CorrectStopping: cfg.EM.CorrectStopping,
		Tolerance:       cfg.EM.Tolerance,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.EM.Translations == "" {
		return nil, nil, fmt.Errorf("em.translations is required")
	}
	target, err := bitext.LoadTranslations(cfg.EM.Translations, ont, logger)
	if err != nil {
		return nil, nil, err
	}
	var pairs *bitext.PairCorpus
	if cfg.EM.Pairs != "" {
		if pairs, err = bitext.LoadPairs(cfg.EM.Pairs, ont, target, logger); err != nil {
			return nil, nil, err
		}
	}

	smoother, err := bitext.NewSmoother(cfg.EM.Smoother, cfg.EM.SmoothingK)
	if err != nil {
		return nil, nil, err
	}
	engine := bitext.NewEngine(model, target, pairs, bitext.Options{
		InitialStopProbability: cfg.EM.InitialStopProbability,
		Smoother:               smoother,
		Tolerance:              cfg.EM.Tolerance,
	}, logger)
	return engine, ont, nil
}

func train(cmd *commander.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if trainEpochs > 0 {
		cfg.EM.Epochs = trainEpochs
	}
	if cfg.EM.Pairs == "" || cfg.EM.Checkpoint == "" {
		return fmt.Errorf("em.pairs and em.checkpoint are required")
	}

	engine, _, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	// a tagged corpus, when present, seeds pS with smoothed gold sense counts
	var seed map[wordnet.SynsetID]float64
	if cfg.Corpus.Store != "" {
		if _, statErr := os.Stat(cfg.Corpus.Store); statErr == nil {
			store, err := rowstore.Open(cfg.Corpus.Store, logger)
			if err != nil {
				return err
			}
			seed, err = rowstore.SenseCounts(store, cfg.WSD.WindowSize)
			store.Close()
			if err != nil {
				return err
			}
			logger.Info("Seeding prior from tagged corpus",
				zap.String("store", cfg.Corpus.Store),
				zap.Int("senses", len(seed)))
		}
	}
	if err := engine.Init(seed); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, trainErr := engine.Train(ctx, cfg.EM.Epochs, func(stats bitext.EpochStats) {
		logger.Info("Epoch finished",
			zap.Int("epoch", stats.Epoch),
			zap.Float64("log_likelihood", stats.LogLikelihood),
			zap.Int("pairs", stats.Pairs),
			zap.Int("skipped", stats.Skipped),
			zap.Duration("duration", stats.Duration))
	})
	// an interrupted run still keeps its last completed epoch
	if err := engine.SaveCheckpoint(cfg.EM.Checkpoint); err != nil {
		return err
	}
	return trainErr
}

func trainCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       train,
		UsageLine: "train [options]",
		Short:     "estimate sense and stopping probabilities from a bitext pair corpus with EM",
		Long: `
initialize the model (uniformly, or from the tagged corpus at corpus.store when it exists),
run EM over the aligned pairs at em.pairs and write a checkpoint to em.checkpoint

	$ ./sensegraph train -config app.yaml [-epochs 20]

`,
		Flag: *flag.NewFlagSet("train", flag.ExitOnError),
	}
	addConfigFlag(&cmd.Flag)
	cmd.Flag.IntVar(&trainEpochs, "epochs", 0, "number of EM epochs, overrides em.epochs")
	return cmd
}

// trainContextModel counts (sense, context word) pairs over the tagged windows at path
func trainContextModel(cfg *config.Config, path string, logger *zap.Logger) (*bitext.ContextModel, error) {
	smoother, err := bitext.NewSmoother(cfg.WSD.ContextSmoother, cfg.WSD.ContextSmoothingK)
	if err != nil {
		return nil, err
	}
	store, err := rowstore.Open(path, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	model := bitext.NewContextModel(smoother, cfg.WSD.UseBloom, cfg.WSD.BloomExpectedItems, cfg.WSD.BloomFalsePositiveRate)
	if err := model.Train(store, cfg.WSD.WindowSize, logger); err != nil {
		return nil, err
	}
	return model, nil
}

func evaluate(cmd *commander.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if testStore == "" {
		testStore = cfg.Corpus.Store
	}
	if testStore == "" || cfg.EM.Checkpoint == "" {
		return fmt.Errorf("a test store and em.checkpoint are required")
	}

	engine, _, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	if err := engine.LoadCheckpoint(cfg.EM.Checkpoint); err != nil {
		return err
	}

	opts := bitext.WSDOptions{WindowSize: cfg.WSD.WindowSize, ContextWeight: cfg.WSD.ContextWeight}
	if trainStore != "" {
		if opts.Context, err = trainContextModel(cfg, trainStore, logger); err != nil {
			return err
		}
	}

	store, err := rowstore.Open(testStore, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := engine.TestWSD(store, opts)
	if err != nil {
		return err
	}
	fmt.Printf("total: %d\nambiguous: %d\ncorrect: %d\nunknown senses: %d\naccuracy: %.4f\n",
		report.Total, report.Ambiguous, report.Correct, report.UnknownSense, report.Accuracy)
	return nil
}

func evaluateCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       evaluate,
		UsageLine: "evaluate [options]",
		Short:     "disambiguate every window of a tagged row store and report accuracy",
		Long: `
load the checkpoint at em.checkpoint and score each window of the test store; with
-train-store, a sense/context-word model trained on that store adds a context term

	$ ./sensegraph evaluate -config app.yaml [-test test.rows] [-train-store train.rows]

`,
		Flag: *flag.NewFlagSet("evaluate", flag.ExitOnError),
	}
	addConfigFlag(&cmd.Flag)
	cmd.Flag.StringVar(&testStore, "test", "", "row store to evaluate on, defaults to corpus.store")
	cmd.Flag.StringVar(&trainStore, "train-store", "", "row store to train the context model on")
	return cmd
}
