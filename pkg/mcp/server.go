package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"sensegraph/internal/model"
	"sensegraph/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type SenseGraphServer struct {
	server       *mcp.Server
	senseService *service.SenseService
	logger       *zap.Logger
	handler      *mcp.StreamableHTTPHandler
}

type WordSensesParams struct {
	Word string `json:"word" jsonschema:"the English word to look up"`
}

type CommonAncestorParams struct {
	SourceWord string `json:"source_word" jsonschema:"an English word"`
	TargetWord string `json:"target_word" jsonschema:"a second-language word of the trained model, or another English word"`
}

type DisambiguateParams struct {
	Word    string   `json:"word" jsonschema:"the English word to disambiguate"`
	POS     string   `json:"pos,omitempty" jsonschema:"part of speech: noun, verb, adj or adv"`
	Context []string `json:"context,omitempty" jsonschema:"the words around the target"`
}

func NewSenseGraphServer(senseService *service.SenseService, logger *zap.Logger) *SenseGraphServer {
	server := &SenseGraphServer{
		senseService: senseService,
		logger:       logger,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "SenseGraph",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "getWordSenses",
		Description: "List the WordNet senses of a word in sense-number order, with glosses and the trained prior of each sense",
	}, server.handleWordSenses)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "getCommonAncestor",
		Description: "Find the deepest common ancestors in the WordNet hierarchy of the senses of two words",
	}, server.handleCommonAncestor)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "disambiguate",
		Description: "Rank the senses of a word given its part of speech and surrounding words",
	}, server.handleDisambiguate)

	server.handler = mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	server.server = mcpServer
	return server
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func (s *SenseGraphServer) handleWordSenses(ctx context.Context, req *mcp.CallToolRequest, args WordSensesParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling getWordSenses request", zap.String("word", args.Word))

	resp, err := s.senseService.WordSenses(args.Word)
	if err != nil {
		s.logger.Error("Failed to get word senses", zap.String("word", args.Word), zap.Error(err))
		return textResult(fmt.Sprintf("Failed to get senses of %q: %v", args.Word, err)), nil, nil
	}
	return textResult(formatSenses(resp)), nil, nil
}

func (s *SenseGraphServer) handleCommonAncestor(ctx context.Context, req *mcp.CallToolRequest, args CommonAncestorParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling getCommonAncestor request",
		zap.String("source_word", args.SourceWord),
		zap.String("target_word", args.TargetWord))

	resp, err := s.senseService.CommonAncestor(args.SourceWord, args.TargetWord)
	if err != nil {
		s.logger.Error("Failed to get common ancestor", zap.Error(err))
		return textResult(fmt.Sprintf("Failed to find common ancestors of %q and %q: %v", args.SourceWord, args.TargetWord, err)), nil, nil
	}
	return textResult(formatCommonAncestor(resp)), nil, nil
}

func (s *SenseGraphServer) handleDisambiguate(ctx context.Context, req *mcp.CallToolRequest, args DisambiguateParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling disambiguate request", zap.String("word", args.Word), zap.String("pos", args.POS))

	resp, err := s.senseService.Disambiguate(args.Word, args.POS, args.Context)
	if err != nil {
		s.logger.Error("Failed to disambiguate", zap.String("word", args.Word), zap.Error(err))
		return textResult(fmt.Sprintf("Failed to disambiguate %q: %v", args.Word, err)), nil, nil
	}
	return textResult(formatDisambiguation(resp)), nil, nil
}

func label(labels []string) string {
	if len(labels) == 0 {
		return "(unlabeled)"
	}
	return strings.Join(labels, ", ")
}

func formatSenses(resp *model.WordSensesResponse) string {
	if len(resp.Senses) == 0 {
		return fmt.Sprintf("%q has no senses.", resp.Word)
	}
	var result strings.Builder
	for i, s := range resp.Senses {
		result.WriteString(fmt.Sprintf("%d. [%s] %s (synset %d, prior %.4g)\n", i+1, s.POS, label(s.Labels), s.SynsetID, s.Prior))
		if s.Gloss != "" {
			result.WriteString(fmt.Sprintf("   %s\n", s.Gloss))
		}
	}
	return result.String()
}

func formatCommonAncestor(resp *model.CommonAncestorResponse) string {
	if len(resp.Common) == 0 {
		return fmt.Sprintf("%q and %q share no ancestor.", resp.SourceWord, resp.TargetWord)
	}
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Common ancestors of %q and %q:\n", resp.SourceWord, resp.TargetWord))
	for _, c := range resp.Common {
		result.WriteString(fmt.Sprintf("<ancestor> %s (synset %d, pC %.4g)", label(c.Labels), c.SynsetID, c.PC))
		if c.Gloss != "" {
			result.WriteString(fmt.Sprintf("\n  Description: %s", c.Gloss))
		}
		result.WriteString("\n</ancestor>\n")
	}
	if resp.Likelihood != nil {
		result.WriteString(fmt.Sprintf("Translation likelihood: %.6g\n", *resp.Likelihood))
	}
	return result.String()
}

func formatDisambiguation(resp *model.DisambiguateResponse) string {
	var result strings.Builder
	if resp.Best != nil {
		result.WriteString(fmt.Sprintf("Best sense of %q: %s (synset %d)\n", resp.Word, label(resp.Best.Labels), resp.Best.SynsetID))
		if resp.Best.Gloss != "" {
			result.WriteString(fmt.Sprintf("  %s\n", resp.Best.Gloss))
		}
	}
	for _, c := range resp.Candidates {
		result.WriteString(fmt.Sprintf("- %s (synset %d): log score %.4f\n", label(c.Labels), c.SynsetID, c.Score))
	}
	return result.String()
}

// SetupHTTPRoutes serves the streamable MCP transport at /mcp on the API router
func (s *SenseGraphServer) SetupHTTPRoutes(router *gin.Engine) {
	router.Any("/mcp", gin.WrapH(s.handler))
}
