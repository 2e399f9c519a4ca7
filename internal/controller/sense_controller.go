package controller

import (
	"errors"
	"net/http"

	"sensegraph/internal/model/wordnet"
	"sensegraph/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SenseController struct {
	senseService *service.SenseService
	logger       *zap.Logger
}

func NewSenseController(senseService *service.SenseService, logger *zap.Logger) *SenseController {
	return &SenseController{
		senseService: senseService,
		logger:       logger,
	}
}

type WordSensesRequest struct {
	Word string `json:"word" binding:"required"`
}

type AncestorsRequest struct {
	SynsetID *int `json:"synset_id" binding:"required"`
	// MaxLevel limits the walk; omitted or negative returns the whole closure
	MaxLevel *int `json:"max_level"`
}

type CommonAncestorRequest struct {
	SourceWord string `json:"source_word" binding:"required"`
	TargetWord string `json:"target_word" binding:"required"`
}

type DisambiguateRequest struct {
	Word    string   `json:"word" binding:"required"`
	POS     string   `json:"pos"`
	Context []string `json:"context"`
}

func (sc *SenseController) bind(c *gin.Context, request any) bool {
	if err := c.ShouldBindJSON(request); err != nil {
		sc.logger.Error("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// fail maps service errors to status codes
func (sc *SenseController) fail(c *gin.Context, what string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, wordnet.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNoModel), errors.Is(err, wordnet.ErrNotFinalized):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		sc.logger.Error("Failed to "+what, zap.Error(err))
	} else {
		sc.logger.Info("Request rejected", zap.String("operation", what), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   "Failed to " + what,
		"details": err.Error(),
	})
}

func (sc *SenseController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"model":  sc.senseService.HasModel(),
	})
}

func (sc *SenseController) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, sc.senseService.Stats())
}

func (sc *SenseController) WordSenses(c *gin.Context) {
	var request WordSensesRequest
	if !sc.bind(c, &request) {
		return
	}
	sc.logger.Debug("Getting word senses", zap.String("word", request.Word))

	response, err := sc.senseService.WordSenses(request.Word)
	if err != nil {
		sc.fail(c, "get word senses", err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (sc *SenseController) Ancestors(c *gin.Context) {
	var request AncestorsRequest
	if !sc.bind(c, &request) {
		return
	}
	maxLevel := -1
	if request.MaxLevel != nil {
		maxLevel = *request.MaxLevel
	}
	sc.logger.Debug("Getting ancestors", zap.Int("synset_id", *request.SynsetID), zap.Int("max_level", maxLevel))

	response, err := sc.senseService.Ancestors(wordnet.SynsetID(*request.SynsetID), maxLevel)
	if err != nil {
		sc.fail(c, "get ancestors", err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (sc *SenseController) CommonAncestor(c *gin.Context) {
	var request CommonAncestorRequest
	if !sc.bind(c, &request) {
		return
	}
	sc.logger.Debug("Getting common ancestor",
		zap.String("source_word", request.SourceWord),
		zap.String("target_word", request.TargetWord))

	response, err := sc.senseService.CommonAncestor(request.SourceWord, request.TargetWord)
	if err != nil {
		sc.fail(c, "get common ancestor", err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (sc *SenseController) Disambiguate(c *gin.Context) {
	var request DisambiguateRequest
	if !sc.bind(c, &request) {
		return
	}
	sc.logger.Debug("Disambiguating", zap.String("word", request.Word), zap.Strings("context", request.Context))

	response, err := sc.senseService.Disambiguate(request.Word, request.POS, request.Context)
	if err != nil {
		sc.fail(c, "disambiguate", err)
		return
	}
	c.JSON(http.StatusOK, response)
}
