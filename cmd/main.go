package main

import (
	"fmt"
	"log"
	"os"

	"sensegraph/internal/config"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"go.uber.org/zap"
)

var cmd = &commander.Command{
	UsageLine: os.Args[0] + " <command> [options]",
	Short:     "build a WordNet ontology, train the bitext sense model and serve it",
	Subcommands: []*commander.Command{
		generateOntologyCmd(),
		tagCorpusCmd(),
		trainCmd(),
		evaluateCmd(),
		exportGraphCmd(),
		serveCmd(),
	},
}

// configPath is shared by every subcommand's -config flag
var configPath string

func addConfigFlag(fs *flag.FlagSet) {
	fs.StringVar(&configPath, "config", "app.yaml", "path to the YAML configuration file")
}

// setup loads the configuration and builds the production logger at the configured level
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	if cfg.App.WorkDir != "" {
		if err := os.Chdir(cfg.App.WorkDir); err != nil {
			return nil, nil, fmt.Errorf("failed to enter workdir: %w", err)
		}
	}

	cfgZap := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(cfg.App.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfgZap.Level = level
	cfgZap.OutputPaths = []string{"stdout"}
	if cfg.App.LogFile != "" {
		cfgZap.OutputPaths = append(cfgZap.OutputPaths, cfg.App.LogFile)
	}
	logger, err := cfgZap.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Configuration loaded successfully", zap.String("path", configPath), zap.Any("config", cfg))
	return cfg, logger, nil
}

func main() {
	if err := cmd.Dispatch(os.Args[1:]); err != nil {
		log.Fatalf("**error**: %v", err)
	}
}
