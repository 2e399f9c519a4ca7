package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Ontology   OntologyConfig   `yaml:"ontology"`
	Lexicon    LexiconConfig    `yaml:"lexicon"`
	GraphStore GraphStoreConfig `yaml:"graph_store"`
	Kuzu       KuzuConfig       `yaml:"kuzu"`
	Neo4j      Neo4jConfig      `yaml:"neo4j"`
	EM         EMConfig         `yaml:"em"`
	WSD        WSDConfig        `yaml:"wsd"`
	Corpus     CorpusConfig     `yaml:"corpus"`
}

type AppConfig struct {
	Port     int    `yaml:"port"`
	WorkDir  string `yaml:"workdir"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// OntologyConfig locates the saved ontology (<base>.voc, <base>.synsets, <base>.ontology)
// and the vocabulary it is generated from
type OntologyConfig struct {
	Base                      string `yaml:"base"`
	Vocabulary                string `yaml:"vocabulary"`
	DifferentiateUnknownWords bool   `yaml:"differentiate_unknown_words"`
	Stem                      bool   `yaml:"stem"`
	SplitUnderscores          bool   `yaml:"split_underscores"`
}

// LexiconConfig points at a WordNet dict directory
type LexiconConfig struct {
	Dir string `yaml:"dir"`
}

type GraphStoreConfig struct {
	// Backend is "kuzu" (the default) or "neo4j"
	Backend  string `yaml:"backend"`
	MaxDepth int    `yaml:"max_depth"`
}

type KuzuConfig struct {
	Path string `yaml:"path"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// EMConfig drives training. Smoother is "mle" (pS = N(s)/ΣN, the default), "addk" or
// "wittenbell"; addk with smoothing_k 0 is the same plain estimate.
type EMConfig struct {
	Epochs                 int     `yaml:"epochs"`
	InitialStopProbability float64 `yaml:"initial_stop_probability"`
	Smoother               string  `yaml:"smoother"`
	SmoothingK             float64 `yaml:"smoothing_k"`
	CorrectStopping        bool    `yaml:"correct_stopping"`
	Tolerance              float64 `yaml:"tolerance"`
	Translations           string  `yaml:"translations"`
	Pairs                  string  `yaml:"pairs"`
	Checkpoint             string  `yaml:"checkpoint"`
}

// WSDConfig tunes disambiguation. ContextSmoother estimates P(context word | sense) and is
// "wittenbell" (default) or "addk".
type WSDConfig struct {
	WindowSize             int     `yaml:"window_size"`
	ContextWeight          float64 `yaml:"context_weight"`
	ContextSmoother        string  `yaml:"context_smoother"`
	ContextSmoothingK      float64 `yaml:"context_smoothing_k"`
	UseBloom               bool    `yaml:"use_bloom"`
	BloomExpectedItems     uint    `yaml:"bloom_expected_items"`
	BloomFalsePositiveRate float64 `yaml:"bloom_false_positive_rate"`
}

// CorpusConfig names the sense-tagged corpus and the window store it is tagged into
type CorpusConfig struct {
	Input string `yaml:"input"`
	Store string `yaml:"store"`
}

// LoadConfig reads a YAML configuration file, fills defaults and validates the result
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse is LoadConfig over an in-memory document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.GraphStore.MaxDepth == 0 {
		c.GraphStore.MaxDepth = 30
	}
	if c.EM.Epochs == 0 {
		c.EM.Epochs = 10
	}
	if c.EM.InitialStopProbability == 0 {
		c.EM.InitialStopProbability = 0.1
	}
	if c.EM.Smoother == "" {
		c.EM.Smoother = "mle"
	}
	if c.EM.Tolerance == 0 {
		c.EM.Tolerance = 1e-4
	}
	if c.WSD.WindowSize == 0 {
		c.WSD.WindowSize = 3
	}
	if c.WSD.ContextSmoother == "" {
		c.WSD.ContextSmoother = "wittenbell"
	}
	if c.WSD.BloomExpectedItems == 0 {
		c.WSD.BloomExpectedItems = 1000000
	}
	if c.WSD.BloomFalsePositiveRate == 0 {
		c.WSD.BloomFalsePositiveRate = 0.01
	}
}

// Validate rejects values no component can run with
func (c *Config) Validate() error {
	if c.App.Port < 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid app.port %d", c.App.Port)
	}
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid app.log_level %q", c.App.LogLevel)
	}
	switch c.GraphStore.Backend {
	case "":
	case "kuzu":
	case "neo4j":
		if c.Neo4j.URI == "" {
			return fmt.Errorf("graph_store.backend is neo4j but neo4j.uri is empty")
		}
	default:
		return fmt.Errorf("unknown graph_store.backend %q", c.GraphStore.Backend)
	}
	if c.GraphStore.MaxDepth < 1 {
		return fmt.Errorf("graph_store.max_depth must be positive")
	}
	if c.EM.Epochs < 0 {
		return fmt.Errorf("em.epochs must not be negative")
	}
	if p := c.EM.InitialStopProbability; p <= 0 || p > 1 {
		return fmt.Errorf("em.initial_stop_probability %v is outside (0, 1]", p)
	}
	switch c.EM.Smoother {
	case "mle", "addk", "wittenbell":
	default:
		return fmt.Errorf("unknown em.smoother %q", c.EM.Smoother)
	}
	if c.EM.SmoothingK < 0 {
		return fmt.Errorf("em.smoothing_k must not be negative")
	}
	if c.EM.Tolerance <= 0 {
		return fmt.Errorf("em.tolerance must be positive")
	}
	if c.WSD.WindowSize < 1 {
		return fmt.Errorf("wsd.window_size must be positive")
	}
	if c.WSD.ContextWeight < 0 {
		return fmt.Errorf("wsd.context_weight must not be negative")
	}
	switch c.WSD.ContextSmoother {
	case "addk":
		if c.WSD.ContextSmoothingK <= 0 {
			return fmt.Errorf("wsd.context_smoothing_k must be positive for addk")
		}
	case "wittenbell":
	default:
		return fmt.Errorf("unknown wsd.context_smoother %q", c.WSD.ContextSmoother)
	}
	if r := c.WSD.BloomFalsePositiveRate; r <= 0 || r >= 1 {
		return fmt.Errorf("wsd.bloom_false_positive_rate %v is outside (0, 1)", r)
	}
	return nil
}
