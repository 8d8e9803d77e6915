package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/feed"
	"github.com/lysyi3m/news-harvest/app/ingest"
	"github.com/lysyi3m/news-harvest/app/scraper"
)

// BranchLimits bounds the items handled for one channel.
type BranchLimits struct {
	MaxItems    int
	ItemTimeout time.Duration
	Pacing      time.Duration
}

type Limits struct {
	MaxChannels    int
	Budget         time.Duration
	Margin         time.Duration
	ChannelTimeout time.Duration
	ChannelPacing  time.Duration
	RSS            BranchLimits
	Scraping       BranchLimits
}

func DefaultLimits() Limits {
	return Limits{
		MaxChannels:    1000,
		Budget:         600 * time.Second,
		Margin:         10 * time.Second,
		ChannelTimeout: 120 * time.Second,
		ChannelPacing:  time.Second,
		RSS:            BranchLimits{MaxItems: 10, ItemTimeout: 15 * time.Second, Pacing: 1500 * time.Millisecond},
		Scraping:       BranchLimits{MaxItems: 20, ItemTimeout: 30 * time.Second, Pacing: 500 * time.Millisecond},
	}
}

type ChannelResult struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Added   int    `json:"added"`
	Error   string `json:"error,omitempty"`
}

type Summary struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Results []ChannelResult `json:"results,omitempty"`
}

type ChannelNotFoundError struct {
	ChannelID string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("channel not found: %s", e.ChannelID)
}

type FeedSource interface {
	FetchFeed(ctx context.Context, url string) (*feed.Document, error)
	ToItems(doc *feed.Document) ([]feed.NormalizedItem, error)
}

type ListScraper interface {
	ScrapeList(ctx context.Context, listURL string, cfg scraper.ScrapingConfig) ([]scraper.ScrapedArticle, error)
}

type ItemIngestor interface {
	Ingest(ctx context.Context, item feed.NormalizedItem, feedKind, channelID string) ingest.Result
}

// Orchestrator pulls due channels and pushes their items through the ingestor.
// Channels are handled one at a time.
type Orchestrator struct {
	channels database.ChannelRepository
	feeds    FeedSource
	scraper  ListScraper
	ingestor ItemIngestor

	Limits Limits
	now    func() time.Time
}

func NewOrchestrator(channels database.ChannelRepository, feeds FeedSource, s ListScraper, ingestor ItemIngestor) *Orchestrator {
	return &Orchestrator{
		channels: channels,
		feeds:    feeds,
		scraper:  s,
		ingestor: ingestor,
		Limits:   DefaultLimits(),
		now:      time.Now,
	}
}

// ProcessFeeds runs every active channel that is due, or all of them when
// force is set. It never fails; problems are reported in the summary.
func (o *Orchestrator) ProcessFeeds(ctx context.Context, force bool) Summary {
	ctx, cancel := context.WithTimeout(ctx, o.Limits.Budget)
	defer cancel()
	deadline, _ := ctx.Deadline()

	channels, err := o.channels.FindAll(ctx, database.Filter{database.Eq("active", true)}, o.Limits.MaxChannels)
	if err != nil {
		return Summary{Message: fmt.Sprintf("Feed processing failed: %v", err)}
	}
	if len(channels) == 0 {
		return Summary{Success: true, Message: "No channels found to process."}
	}

	limiter := rate.NewLimiter(rate.Every(o.Limits.ChannelPacing), 1)
	results := make([]ChannelResult, 0, len(channels))
	now := o.now()
	timedOut := false

	for i := range channels {
		ch := &channels[i]
		if !force && !isDue(ch, now) {
			continue
		}

		if time.Until(deadline) < o.Limits.Margin {
			slog.Warn("Global time budget exhausted, stopping channel processing", "processed", len(results))
			timedOut = true
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			timedOut = true
			break
		}

		results = append(results, o.runChannel(ctx, ch))
	}

	failures := 0
	for _, r := range results {
		if !r.Success {
			failures++
		}
	}

	summary := Summary{
		Success: !timedOut,
		Message: fmt.Sprintf("Processed %d channels (%d successful, %d failed)", len(results), len(results)-failures, failures),
		Results: results,
	}
	if timedOut {
		summary.Message = "Global timeout reached for feed processing. " + summary.Message
	}
	return summary
}

// ProcessFeed runs a single channel regardless of its schedule.
func (o *Orchestrator) ProcessFeed(ctx context.Context, channelID string) (Summary, error) {
	ch, err := o.channels.FindOne(ctx, channelID)
	if errors.Is(err, database.ErrNotFound) {
		return Summary{}, &ChannelNotFoundError{ChannelID: channelID}
	}
	if err != nil {
		return Summary{}, err
	}

	added, err := o.processChannel(ctx, ch)
	o.touch(ch)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Success: true,
		Message: fmt.Sprintf("Feed processed successfully using %s mode.", sourceType(ch)),
		Results: []ChannelResult{{Channel: ch.Name, Success: true, Added: added}},
	}, nil
}

func (o *Orchestrator) runChannel(ctx context.Context, ch *database.Channel) ChannelResult {
	start := time.Now()
	channelCtx, cancel := context.WithTimeout(ctx, o.Limits.ChannelTimeout)
	defer cancel()

	added, err := o.processChannel(channelCtx, ch)
	o.touch(ch)

	if err != nil {
		slog.Error("Channel processing failed", "channel", ch.Name, "error", err)
		return ChannelResult{Channel: ch.Name, Added: added, Error: err.Error()}
	}

	slog.Info("Task completed",
		"type", "ProcessChannel",
		"channel", ch.Name,
		"duration", time.Since(start),
		"added", added)

	return ChannelResult{Channel: ch.Name, Success: true, Added: added}
}

func (o *Orchestrator) processChannel(ctx context.Context, ch *database.Channel) (int, error) {
	if sourceType(ch) == database.SourceWebScraping {
		return o.processScraping(ctx, ch)
	}
	return o.processRSS(ctx, ch)
}

func (o *Orchestrator) processRSS(ctx context.Context, ch *database.Channel) (int, error) {
	doc, err := o.feeds.FetchFeed(ctx, ch.RSS)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch feed: %w", err)
	}

	items, err := o.feeds.ToItems(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	return o.ingestAll(ctx, ch, items, string(doc.Family()), o.Limits.RSS)
}

func (o *Orchestrator) processScraping(ctx context.Context, ch *database.Channel) (int, error) {
	if ch.ListPageURL == "" {
		return 0, fmt.Errorf("listPageUrl is required for %s source type", database.SourceWebScraping)
	}

	cfg, err := scraper.ParseConfig(ch.ScrapingConfig)
	if err != nil {
		slog.Warn("Failed to parse scraping config, using defaults", "channel", ch.Name, "error", err)
	}

	articles, err := o.scraper.ScrapeList(ctx, ch.ListPageURL, cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to scrape list page: %w", err)
	}
	if len(articles) == 0 {
		slog.Debug("No articles found", "channel", ch.Name)
		return 0, nil
	}

	items := make([]feed.NormalizedItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, feed.NormalizedItem{
			Link:         a.Link,
			Title:        a.Title,
			Content:      a.Excerpt,
			FeatureImage: a.Image,
			PubDate:      a.Date,
		})
	}

	return o.ingestAll(ctx, ch, items, database.SourceWebScraping, o.Limits.Scraping)
}

// ingestAll feeds at most limits.MaxItems items to the ingestor, pacing
// between them. Item failures are logged and skipped.
func (o *Orchestrator) ingestAll(ctx context.Context, ch *database.Channel, items []feed.NormalizedItem, feedKind string, limits BranchLimits) (int, error) {
	if len(items) > limits.MaxItems {
		items = items[:limits.MaxItems]
	}

	limiter := rate.NewLimiter(rate.Every(limits.Pacing), 1)
	added := 0

	for i, item := range items {
		if err := limiter.Wait(ctx); err != nil {
			return added, err
		}

		itemCtx, cancel := context.WithTimeout(ctx, limits.ItemTimeout)
		res := o.ingestor.Ingest(itemCtx, item, feedKind, ch.ID)
		cancel()

		if res.Added {
			added++
		} else {
			slog.Debug("Item skipped", "channel", ch.Name, "item", i+1, "link", item.Link, "reason", res.Reason)
		}
	}

	return added, nil
}

// touch advances lastUpdate even when processing failed.
func (o *Orchestrator) touch(ch *database.Channel) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.channels.UpdateLastUpdate(ctx, ch.ID, o.now()); err != nil {
		slog.Error("Failed to update channel last update", "channel", ch.Name, "error", err)
	}
}

func isDue(ch *database.Channel, now time.Time) bool {
	if ch.LastUpdate == nil {
		return true
	}
	return now.Sub(*ch.LastUpdate) > ch.Interval()
}

func sourceType(ch *database.Channel) string {
	if ch.SourceType == "" {
		return database.SourceRSS
	}
	return ch.SourceType
}
