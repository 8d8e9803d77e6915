package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/feed"
	"github.com/lysyi3m/news-harvest/app/scraper"
)

var testNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func fastLimits() Limits {
	limits := DefaultLimits()
	limits.ChannelPacing = 0
	limits.RSS.Pacing = 0
	limits.Scraping.Pacing = 0
	return limits
}

func newTestOrchestrator(channels *MockChannelRepository, feeds *MockFeedSource, s *MockScraper, ing *MockIngestor) *Orchestrator {
	o := NewOrchestrator(channels, feeds, s, ing)
	o.Limits = fastLimits()
	o.now = func() time.Time { return testNow }
	return o
}

func feedItems(n int) []feed.NormalizedItem {
	items := make([]feed.NormalizedItem, n)
	for i := range items {
		items[i] = feed.NormalizedItem{Link: fmt.Sprintf("https://example.com/%d", i), Title: fmt.Sprintf("Item %d", i)}
	}
	return items
}

func at(t time.Time) *time.Time {
	return &t
}

func TestProcessFeedsSelectsDueChannels(t *testing.T) {
	hour := time.Hour.Milliseconds()
	channels := &MockChannelRepository{channels: []database.Channel{
		{ID: "never", Name: "Never updated", Active: true, RSS: "https://a.example.com/rss", IntervalUpdate: hour},
		{ID: "fresh", Name: "Fresh", Active: true, RSS: "https://b.example.com/rss", IntervalUpdate: hour, LastUpdate: at(testNow.Add(-10 * time.Minute))},
		{ID: "stale", Name: "Stale", Active: true, RSS: "https://c.example.com/rss", IntervalUpdate: hour, LastUpdate: at(testNow.Add(-2 * time.Hour))},
		{ID: "inactive", Name: "Inactive", Active: false, RSS: "https://d.example.com/rss"},
	}}
	feeds := &MockFeedSource{items: feedItems(2)}
	o := newTestOrchestrator(channels, feeds, &MockScraper{}, &MockIngestor{})

	summary := o.ProcessFeeds(context.Background(), false)

	if !summary.Success {
		t.Errorf("Expected success, got: %s", summary.Message)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(summary.Results))
	}
	if summary.Results[0].Channel != "Never updated" || summary.Results[1].Channel != "Stale" {
		t.Errorf("Expected due channels in order, got %+v", summary.Results)
	}
	if summary.Results[0].Added != 2 || summary.Results[1].Added != 0 {
		t.Errorf("Expected 2 then 0 added items, got %+v", summary.Results)
	}
	if _, ok := channels.lastUpdated("fresh"); ok {
		t.Error("Expected fresh channel to be left alone")
	}
	if updated, ok := channels.lastUpdated("stale"); !ok || !updated.Equal(testNow) {
		t.Errorf("Expected stale channel lastUpdate to advance, got %v", updated)
	}
	if summary.Message != "Processed 2 channels (2 successful, 0 failed)" {
		t.Errorf("Unexpected message: %s", summary.Message)
	}
}

func TestProcessFeedsForce(t *testing.T) {
	channels := &MockChannelRepository{channels: []database.Channel{
		{ID: "fresh", Name: "Fresh", Active: true, RSS: "https://b.example.com/rss", IntervalUpdate: time.Hour.Milliseconds(), LastUpdate: at(testNow)},
	}}
	o := newTestOrchestrator(channels, &MockFeedSource{}, &MockScraper{}, &MockIngestor{})

	summary := o.ProcessFeeds(context.Background(), true)

	if len(summary.Results) != 1 {
		t.Errorf("Expected forced channel to be processed, got %d results", len(summary.Results))
	}
}

func TestProcessFeedsFailureAdvancesLastUpdate(t *testing.T) {
	channels := &MockChannelRepository{channels: []database.Channel{
		{ID: "broken", Name: "Broken", Active: true, RSS: "https://broken.example.com/rss"},
		{ID: "ok", Name: "Working", Active: true, RSS: "https://ok.example.com/rss"},
	}}
	feeds := &MockFeedSource{
		items: feedItems(1),
		errs:  map[string]error{"https://broken.example.com/rss": errors.New("connection refused")},
	}
	o := newTestOrchestrator(channels, feeds, &MockScraper{}, &MockIngestor{})

	summary := o.ProcessFeeds(context.Background(), false)

	if !summary.Success {
		t.Errorf("Expected channel failure not to fail the batch, got: %s", summary.Message)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(summary.Results))
	}

	failed := summary.Results[0]
	if failed.Success || !strings.Contains(failed.Error, "connection refused") {
		t.Errorf("Expected recorded failure, got %+v", failed)
	}
	if !summary.Results[1].Success {
		t.Errorf("Expected second channel to succeed, got %+v", summary.Results[1])
	}
	if _, ok := channels.lastUpdated("broken"); !ok {
		t.Error("Expected lastUpdate to advance after failure")
	}
}

func TestProcessFeedsGlobalBudget(t *testing.T) {
	channels := &MockChannelRepository{channels: []database.Channel{
		{ID: "a", Name: "A", Active: true, RSS: "https://a.example.com/rss"},
	}}
	feeds := &MockFeedSource{}
	o := newTestOrchestrator(channels, feeds, &MockScraper{}, &MockIngestor{})
	o.Limits.Budget = 50 * time.Millisecond
	o.Limits.Margin = time.Second

	summary := o.ProcessFeeds(context.Background(), false)

	if summary.Success {
		t.Error("Expected budget exhaustion to report failure")
	}
	if len(summary.Results) != 0 || feeds.fetchCount() != 0 {
		t.Errorf("Expected no channel to be admitted, got %d results", len(summary.Results))
	}
	if !strings.Contains(summary.Message, "Global timeout") {
		t.Errorf("Expected global timeout message, got: %s", summary.Message)
	}
}

func TestProcessFeedsRepositoryFailure(t *testing.T) {
	channels := &MockChannelRepository{err: errors.New("database is locked")}
	o := newTestOrchestrator(channels, &MockFeedSource{}, &MockScraper{}, &MockIngestor{})

	summary := o.ProcessFeeds(context.Background(), false)

	if summary.Success || !strings.Contains(summary.Message, "database is locked") {
		t.Errorf("Expected failed summary, got %+v", summary)
	}
}

func TestProcessFeedsNoChannels(t *testing.T) {
	o := newTestOrchestrator(&MockChannelRepository{}, &MockFeedSource{}, &MockScraper{}, &MockIngestor{})

	summary := o.ProcessFeeds(context.Background(), false)

	if !summary.Success || summary.Message != "No channels found to process." {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestProcessFeedChannelNotFound(t *testing.T) {
	o := newTestOrchestrator(&MockChannelRepository{}, &MockFeedSource{}, &MockScraper{}, &MockIngestor{})

	_, err := o.ProcessFeed(context.Background(), "missing")

	var notFound *ChannelNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected ChannelNotFoundError, got: %v", err)
	}
	if notFound.ChannelID != "missing" {
		t.Errorf("Expected channel ID 'missing', got '%s'", notFound.ChannelID)
	}
}

func TestProcessFeedRSSLimit(t *testing.T) {
	channels := &MockChannelRepository{channels: []database.Channel{
		{ID: "rss", Name: "Feed", Active: true, RSS: "https://a.example.com/rss"},
	}}
	ing := &MockIngestor{}
	o := newTestOrchestrator(channels, &MockFeedSource{items: feedItems(12)}, &MockScraper{}, ing)

	summary, err := o.ProcessFeed(context.Background(), "rss")
	if err != nil {
		t.Fatal(err)
	}

	if len(ing.calls) != 10 {
		t.Errorf("Expected 10 ingested items, got %d", len(ing.calls))
	}
	if ing.calls[0].feedKind != string(feed.FamilyAtom) || ing.calls[0].channelID != "rss" {
		t.Errorf("Unexpected ingest call: %+v", ing.calls[0])
	}
	if summary.Message != "Feed processed successfully using RSS mode." {
		t.Errorf("Unexpected message: %s", summary.Message)
	}
	if _, ok := channels.lastUpdated("rss"); !ok {
		t.Error("Expected lastUpdate to advance")
	}
}

func TestProcessFeedScraping(t *testing.T) {
	channels := &MockChannelRepository{channels: []database.Channel{
		{ID: "web", Name: "Portal", Active: true, SourceType: database.SourceWebScraping, ListPageURL: "https://portal.example.com/news", ScrapingConfig: "{broken"},
	}}

	articles := make([]scraper.ScrapedArticle, 25)
	for i := range articles {
		articles[i] = scraper.ScrapedArticle{
			Title:   fmt.Sprintf("Article %d", i),
			Link:    fmt.Sprintf("https://portal.example.com/news/%d", i),
			Image:   "https://portal.example.com/img.jpg",
			Excerpt: "Excerpt",
			Date:    testNow.Add(-time.Hour),
		}
	}
	s := &MockScraper{articles: articles}
	ing := &MockIngestor{}
	o := newTestOrchestrator(channels, &MockFeedSource{}, s, ing)

	summary, err := o.ProcessFeed(context.Background(), "web")
	if err != nil {
		t.Fatal(err)
	}

	if len(ing.calls) != 20 {
		t.Fatalf("Expected 20 ingested articles, got %d", len(ing.calls))
	}
	call := ing.calls[0]
	if call.feedKind != database.SourceWebScraping {
		t.Errorf("Expected feed kind WEB_SCRAPING, got %s", call.feedKind)
	}
	if call.item.Content != "Excerpt" || call.item.FeatureImage == "" || call.item.PubDate.IsZero() {
		t.Errorf("Expected article fields to be carried over, got %+v", call.item)
	}
	if s.config.ArticleSelector != scraper.DefaultConfig().ArticleSelector {
		t.Errorf("Expected default config after parse failure, got %+v", s.config)
	}
	if summary.Results[0].Added != 20 {
		t.Errorf("Expected 20 added, got %d", summary.Results[0].Added)
	}
}

func TestProcessFeedScrapingRequiresListPage(t *testing.T) {
	channels := &MockChannelRepository{channels: []database.Channel{
		{ID: "web", Name: "Portal", Active: true, SourceType: database.SourceWebScraping},
	}}
	o := newTestOrchestrator(channels, &MockFeedSource{}, &MockScraper{}, &MockIngestor{})

	_, err := o.ProcessFeed(context.Background(), "web")
	if err == nil || !strings.Contains(err.Error(), "listPageUrl is required") {
		t.Errorf("Expected listPageUrl error, got: %v", err)
	}
	if _, ok := channels.lastUpdated("web"); !ok {
		t.Error("Expected lastUpdate to advance after failure")
	}
}

func TestIsDue(t *testing.T) {
	ch := &database.Channel{IntervalUpdate: time.Hour.Milliseconds()}
	if !isDue(ch, testNow) {
		t.Error("Expected channel without lastUpdate to be due")
	}

	ch.LastUpdate = at(testNow.Add(-time.Hour))
	if isDue(ch, testNow) {
		t.Error("Expected channel exactly one interval old not to be due")
	}

	ch.LastUpdate = at(testNow.Add(-time.Hour - time.Second))
	if !isDue(ch, testNow) {
		t.Error("Expected channel older than its interval to be due")
	}
}
