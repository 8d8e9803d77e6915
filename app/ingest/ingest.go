package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/feed"
	"github.com/lysyi3m/news-harvest/app/fetcher"
	"github.com/lysyi3m/news-harvest/app/parser"
)

const (
	MaxAge       = 7 * 24 * time.Hour
	ParseTimeout = 20 * time.Second

	minParsedContent = 100
	minDirectContent = 50
)

const (
	ReasonChannelNotFound = "Channel not found"
	ReasonTooOld          = "Item is older than 7 days"
	ReasonEmptyLink       = "Empty link"
	ReasonExists          = "Item already exists"
)

// ContentParser resolves the full article behind a link.
type ContentParser interface {
	ParseContent(ctx context.Context, parserID, pageURL string) (*parser.ParseResponse, error)
}

type Result struct {
	Added  bool   `json:"added"`
	Reason string `json:"reason,omitempty"`
}

type Ingestor struct {
	channels database.ChannelRepository
	items    database.RawItemRepository
	fetcher  *fetcher.Fetcher
	parser   ContentParser

	ParseTimeout time.Duration
	now          func() time.Time
}

func New(channels database.ChannelRepository, items database.RawItemRepository, f *fetcher.Fetcher, p ContentParser) *Ingestor {
	return &Ingestor{
		channels:     channels,
		items:        items,
		fetcher:      f,
		parser:       p,
		ParseTimeout: ParseTimeout,
		now:          time.Now,
	}
}

// Ingest turns item into a pending raw record of channelID. Rejections are
// reported through Result.Reason and never returned as errors.
func (in *Ingestor) Ingest(ctx context.Context, item feed.NormalizedItem, feedKind, channelID string) Result {
	ch, err := in.channels.FindOne(ctx, channelID)
	if errors.Is(err, database.ErrNotFound) {
		return Result{Reason: ReasonChannelNotFound}
	}
	if err != nil {
		return Result{Reason: err.Error()}
	}

	now := in.now()
	pubDate := item.PubDate
	if pubDate.IsZero() {
		pubDate = now
	}
	if pubDate.Before(now.Add(-MaxAge)) {
		return Result{Reason: ReasonTooOld}
	}

	if item.Link == "" {
		return Result{Reason: ReasonEmptyLink}
	}

	_, err = in.items.FindOneByLink(ctx, item.Link)
	if err == nil {
		return Result{Reason: ReasonExists}
	}
	if !errors.Is(err, database.ErrNotFound) {
		return Result{Reason: err.Error()}
	}

	record := &database.RawItem{
		Title:        item.Title,
		Content:      item.Content,
		FeatureImage: item.FeatureImage,
		Link:         item.Link,
		PubDate:      pubDate,
		Category:     item.Category,
		Channel:      ch.ID,
		FeedType:     feedKind,
		Status:       database.StatusPending,
	}

	if record.FeatureImage == "" {
		record.FeatureImage = in.metaImage(ctx, item.Link)
		if record.FeatureImage != "" {
			slog.Debug("Image extracted from meta tags", "link", item.Link, "image", record.FeatureImage)
		}
	}

	if ch.RequestLink {
		in.resolveContent(ctx, record)
	}

	if err := in.items.Insert(ctx, record); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return Result{Reason: ReasonExists}
		}
		slog.Error("Failed to store item", "link", item.Link, "error", err)
		return Result{Reason: err.Error()}
	}

	return Result{Added: true}
}

// resolveContent replaces the feed excerpt with the parsed article, falling
// back to direct extraction when the content is still too short.
func (in *Ingestor) resolveContent(ctx context.Context, record *database.RawItem) {
	if in.parser != nil {
		parseCtx, cancel := context.WithTimeout(ctx, in.ParseTimeout)
		resp, err := in.parser.ParseContent(parseCtx, "", record.Link)
		cancel()

		switch {
		case err != nil:
			slog.Debug("Parser failed, trying direct extraction", "link", record.Link, "error", err)
		case resp != nil && resp.Success:
			if resp.Data.Title != "" {
				record.Title = resp.Data.Title
			}
			if resp.Data.Content != "" {
				record.Content = resp.Data.Content
			}
			if resp.Data.FeatureImage != "" {
				record.FeatureImage = resp.Data.FeatureImage
			}
			record.HasParser = true
			record.ParsedBy = resp.Data.ParserID
		}
	}

	if len(record.Content) >= minParsedContent {
		return
	}

	content, err := in.extractDirect(ctx, record.Link)
	if err != nil {
		slog.Debug("Direct content extraction failed", "link", record.Link, "error", err)
		return
	}
	if len(content) > minDirectContent {
		record.Content = content
		slog.Debug("Content extracted directly", "link", record.Link, "length", len(content))
	}
}
