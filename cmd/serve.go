package main

import (
	"fmt"
	"net/http"
	"os"

	"sensegraph/internal/controller"
	"sensegraph/internal/handler"
	"sensegraph/internal/service"
	"sensegraph/internal/service/bitext"
	"sensegraph/internal/service/ontology"
	"sensegraph/pkg/mcp"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"go.uber.org/zap"
)

var servePort int

func serve(cmd *commander.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if servePort > 0 {
		cfg.App.Port = servePort
	}

	// the model is optional; without a checkpoint only ontology queries are served
	var engine *bitext.Engine
	var ont *ontology.Ontology
	if _, statErr := os.Stat(cfg.EM.Checkpoint); cfg.EM.Checkpoint != "" && statErr == nil {
		if engine, ont, err = buildEngine(cfg, logger); err != nil {
			return err
		}
		if err := engine.LoadCheckpoint(cfg.EM.Checkpoint); err != nil {
			return err
		}
	} else {
		logger.Warn("No checkpoint found, serving the ontology without a model",
			zap.String("checkpoint", cfg.EM.Checkpoint))
		if ont, err = loadOntology(cfg, logger); err != nil {
			return err
		}
	}

	wsd := bitext.WSDOptions{WindowSize: cfg.WSD.WindowSize, ContextWeight: cfg.WSD.ContextWeight}
	if engine != nil && cfg.WSD.ContextWeight > 0 {
		if _, statErr := os.Stat(cfg.Corpus.Store); cfg.Corpus.Store != "" && statErr == nil {
			if wsd.Context, err = trainContextModel(cfg, cfg.Corpus.Store, logger); err != nil {
				return err
			}
		} else {
			logger.Warn("No tagged corpus found, disambiguation ignores context words",
				zap.String("store", cfg.Corpus.Store))
		}
	}

	senseService, err := service.NewSenseService(ont, engine, wsd, logger)
	if err != nil {
		return err
	}

	senseController := controller.NewSenseController(senseService, logger)
	mcpServer := mcp.NewSenseGraphServer(senseService, logger)
	router := handler.SetupRouter(senseController, mcpServer, logger)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	logger.Info("Starting HTTP server", zap.String("address", addr), zap.Bool("model", engine != nil))
	if err := http.ListenAndServe(addr, router); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func serveCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       serve,
		UsageLine: "serve [options]",
		Short:     "serve sense queries over HTTP (/api/v1) and MCP (/mcp)",
		Flag:      *flag.NewFlagSet("serve", flag.ExitOnError),
	}
	addConfigFlag(&cmd.Flag)
	cmd.Flag.IntVar(&servePort, "port", 0, "listen port, overrides app.port")
	return cmd
}
