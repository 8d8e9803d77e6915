package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/feed"
	"github.com/lysyi3m/news-harvest/app/ingest"
	"github.com/lysyi3m/news-harvest/app/scraper"
)

// MockChannelRepository keeps channels in memory.
type MockChannelRepository struct {
	mu       sync.Mutex
	channels []database.Channel
	updated  map[string]time.Time
	upserts  []database.Channel
	err      error
}

func (m *MockChannelRepository) FindOne(ctx context.Context, id string) (*database.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.channels {
		if m.channels[i].ID == id {
			ch := m.channels[i]
			return &ch, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockChannelRepository) FindAll(ctx context.Context, filter database.Filter, limit int) ([]database.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []database.Channel
	for _, ch := range m.channels {
		if ch.Active && len(out) < limit {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (m *MockChannelRepository) Insert(ctx context.Context, ch *database.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, *ch)
	return nil
}

func (m *MockChannelRepository) Upsert(ctx context.Context, ch *database.Channel) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, *ch)
	return "id-" + ch.Name, nil
}

func (m *MockChannelRepository) UpdateLastUpdate(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updated == nil {
		m.updated = make(map[string]time.Time)
	}
	m.updated[id] = at
	return nil
}

func (m *MockChannelRepository) lastUpdated(id string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.updated[id]
	return at, ok
}

func (m *MockChannelRepository) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts)
}

// MockParserRepository records parser replacements.
type MockParserRepository struct {
	mu       sync.Mutex
	replaced map[string][]database.Parser
}

func (m *MockParserRepository) FindOne(ctx context.Context, id string) (*database.Parser, error) {
	return nil, database.ErrNotFound
}

func (m *MockParserRepository) FindAll(ctx context.Context, filter database.Filter, limit int) ([]database.Parser, error) {
	return nil, nil
}

func (m *MockParserRepository) Insert(ctx context.Context, p *database.Parser) error {
	return nil
}

func (m *MockParserRepository) Update(ctx context.Context, p *database.Parser) error {
	return nil
}

func (m *MockParserRepository) ReplaceForChannel(ctx context.Context, channelID string, parsers []database.Parser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaced == nil {
		m.replaced = make(map[string][]database.Parser)
	}
	m.replaced[channelID] = parsers
	return nil
}

func (m *MockParserRepository) parsersFor(channelID string) ([]database.Parser, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.replaced[channelID]
	return p, ok
}

// MockFeedSource serves the same items for every feed URL.
type MockFeedSource struct {
	mu      sync.Mutex
	items   []feed.NormalizedItem
	errs    map[string]error
	fetched []string
}

func (m *MockFeedSource) FetchFeed(ctx context.Context, url string) (*feed.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, url)
	if err := m.errs[url]; err != nil {
		return nil, err
	}
	return &feed.Document{Root: "feed"}, nil
}

func (m *MockFeedSource) ToItems(doc *feed.Document) ([]feed.NormalizedItem, error) {
	return m.items, nil
}

func (m *MockFeedSource) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fetched)
}

type MockScraper struct {
	articles []scraper.ScrapedArticle
	config   scraper.ScrapingConfig
	err      error
}

func (m *MockScraper) ScrapeList(ctx context.Context, listURL string, cfg scraper.ScrapingConfig) ([]scraper.ScrapedArticle, error) {
	m.config = cfg
	return m.articles, m.err
}

type ingestCall struct {
	item      feed.NormalizedItem
	feedKind  string
	channelID string
}

// MockIngestor adds every link it has not seen before.
type MockIngestor struct {
	mu    sync.Mutex
	calls []ingestCall
	seen  map[string]bool
}

func (m *MockIngestor) Ingest(ctx context.Context, item feed.NormalizedItem, feedKind, channelID string) ingest.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ingestCall{item: item, feedKind: feedKind, channelID: channelID})
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[item.Link] {
		return ingest.Result{Reason: ingest.ReasonExists}
	}
	m.seen[item.Link] = true
	return ingest.Result{Added: true}
}
