package api

import (
	"context"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/parser"
	"github.com/lysyi3m/news-harvest/app/tasks"
)

// ContentParser is the parser engine surface exposed over HTTP.
type ContentParser interface {
	ParseContent(ctx context.Context, parserID, pageURL string) (*parser.ParseResponse, error)
	TestCustomParser(ctx context.Context, pageURL string, def *database.Parser) (*parser.Result, error)
	RefineWithAI(ctx context.Context, pageURL string, def *database.Parser) (*database.Parser, error)
	AnalyzeURL(ctx context.Context, pageURL string) (*parser.URLAnalysis, error)
	AnalyzeAllParsers(ctx context.Context) ([]parser.ParserIssue, error)
	CreateParser(ctx context.Context, p *database.Parser) (*database.Parser, error)
	UpdateParser(ctx context.Context, id string, p *database.Parser) (*database.Parser, error)
}

var _ ContentParser = (*parser.Engine)(nil)

type Handler struct {
	processor   tasks.FeedProcessor
	parser      ContentParser
	channelRepo database.ChannelRepository
	aiContent   database.AIContentRepository
	scheduler   tasks.TaskSchedulerInterface
}

// parserRequest is the body of the refine and test endpoints.
type parserRequest struct {
	URL    string          `json:"url" binding:"required"`
	Parser database.Parser `json:"parser"`
}
