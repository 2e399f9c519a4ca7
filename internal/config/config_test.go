package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKuzuConfig_Parsing(t *testing.T) {
	cfg, err := Parse([]byte("graph_store:\n  backend: kuzu\nkuzu:\n  path: /path/to/kuzu.db\n"))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}
	if cfg.Kuzu.Path != "/path/to/kuzu.db" {
		t.Fatalf("Expected path '/path/to/kuzu.db', got '%s'", cfg.Kuzu.Path)
	}
	if cfg.GraphStore.Backend != "kuzu" {
		t.Fatalf("Expected kuzu backend, got '%s'", cfg.GraphStore.Backend)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	doc := `
app:
  port: 9090
em:
  epochs: 5
  smoother: wittenbell
wsd:
  context_weight: 0.5
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.App.Port != 9090 || cfg.EM.Epochs != 5 || cfg.EM.Smoother != "wittenbell" {
		t.Fatalf("Explicit values were not kept: %+v", cfg)
	}
	if cfg.EM.InitialStopProbability != 0.1 || cfg.EM.SmoothingK != 0 || cfg.EM.Tolerance != 1e-4 {
		t.Fatalf("EM defaults were not applied: %+v", cfg.EM)
	}
	if cfg.WSD.WindowSize != 3 || cfg.WSD.ContextWeight != 0.5 || cfg.WSD.ContextSmoother != "wittenbell" {
		t.Fatalf("Unexpected WSD config: %+v", cfg.WSD)
	}
	if cfg.App.LogLevel != "info" || cfg.GraphStore.MaxDepth != 30 {
		t.Fatalf("Unexpected defaults: %+v %+v", cfg.App, cfg.GraphStore)
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := map[string]string{
		"backend":    "graph_store:\n  backend: sqlite\n",
		"neo4j uri":  "graph_store:\n  backend: neo4j\n",
		"smoother":   "em:\n  smoother: kneser-ney\n",
		"context k":  "wsd:\n  context_smoother: addk\n",
		"negative k": "em:\n  smoother: addk\n  smoothing_k: -1\n",
		"stop":       "em:\n  initial_stop_probability: 1.5\n",
		"window":     "wsd:\n  window_size: -1\n",
		"log level":  "app:\n  log_level: trace\n",
		"yaml":       "app: [",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}

func TestLoadConfig_UnsmoothedPriorByDefault(t *testing.T) {
	cfg, err := Parse([]byte("em:\n  smoother: addk\n  smoothing_k: 0\n"))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}
	if cfg.EM.Smoother != "addk" || cfg.EM.SmoothingK != 0 {
		t.Fatalf("smoothing_k 0 must be kept, got %+v", cfg.EM)
	}
	if Default().EM.Smoother != "mle" {
		t.Fatalf("Expected the mle smoother by default, got %q", Default().EM.Smoother)
	}
}
