package bitext

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service/sensemodel"

	"go.uber.org/zap"
)

const checkpointVersion = "1.0"

// Checkpoint is the serializable state of an engine between epochs. The ontology itself
// is saved separately in its text format.
type Checkpoint struct {
	Version   string
	RunID     string
	CreatedAt time.Time
	Epoch     int
	Smoother  string

	Tables  *sensemodel.Tables
	PES     map[wordnet.WordID]map[wordnet.SynsetID]float64
	PFS     map[TargetWordID]map[wordnet.SynsetID]float64
	History []EpochStats
}

// SaveCheckpoint writes the engine's tables to path with gob
func (e *Engine) SaveCheckpoint(path string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.initialized {
		return fmt.Errorf("failed to save checkpoint: engine is not initialized")
	}

	cp := &Checkpoint{
		Version:   checkpointVersion,
		RunID:     e.runID,
		CreatedAt: time.Now(),
		Epoch:     e.epoch,
		Smoother:  e.options.Smoother.Name(),
		Tables:    e.model.Tables(),
		PES:       e.pES,
		PFS:       e.pFS,
		History:   e.history,
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(cp); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	e.logger.Info("Saved checkpoint",
		zap.String("path", path),
		zap.String("run_id", cp.RunID),
		zap.Int("epoch", cp.Epoch))
	return nil
}

// LoadCheckpoint restores tables saved by SaveCheckpoint over the same ontology and
// rebuilds the CommonNode table for the current corpus
func (e *Engine) LoadCheckpoint(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := gob.NewDecoder(file).Decode(&cp); err != nil {
		return fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version != checkpointVersion {
		return fmt.Errorf("unsupported checkpoint version %q", cp.Version)
	}
	if cp.Tables == nil {
		return fmt.Errorf("checkpoint %s has no tables", path)
	}
	for id := range cp.Tables.PS {
		if !e.ont.IsSense(id) {
			return fmt.Errorf("checkpoint sense %d is not in the ontology: %w", id, wordnet.ErrNotFound)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.model.SetTables(cp.Tables)
	if err := e.model.CheckInvariants(); err != nil {
		return fmt.Errorf("checkpoint %s is inconsistent: %w", path, err)
	}
	e.pES = cp.PES
	e.pFS = cp.PFS
	if e.pFS == nil {
		e.pFS = make(map[TargetWordID]map[wordnet.SynsetID]float64)
	}
	e.runID = cp.RunID
	e.epoch = cp.Epoch
	e.history = cp.History
	e.meetCache = make(map[[2]wordnet.SynsetID]wordnet.SynsetID)
	if err := e.buildCommonNodes(); err != nil {
		return err
	}
	e.initialized = true

	e.logger.Info("Loaded checkpoint",
		zap.String("path", path),
		zap.String("run_id", cp.RunID),
		zap.Int("epoch", cp.Epoch),
		zap.Time("created_at", cp.CreatedAt))
	return nil
}
