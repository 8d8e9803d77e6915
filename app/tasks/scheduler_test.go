package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/news-harvest/app/config"
	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/parser"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

func TestNewSchedulerDefaults(t *testing.T) {
	scheduler := NewScheduler(nil, nil, &MockChannelRepository{}, &MockParserRepository{}, 0, 0)

	if scheduler.workerCount != 1 {
		t.Errorf("Expected worker count 1, got %d", scheduler.workerCount)
	}
	if scheduler.interval != time.Hour {
		t.Errorf("Expected interval 1h, got %v", scheduler.interval)
	}
}

func TestSchedulerSyncsConfigsAtStartup(t *testing.T) {
	dir := t.TempDir()
	content := `
name: "Portal"
rss: "https://portal.example.com/rss"
settings:
  active: true
parsers:
  - name: "portal-article"
    title:
      regex: "<h1>(.*?)</h1>"
`
	if err := os.WriteFile(filepath.Join(dir, "portal.yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cache := config.NewChannelConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	channels := &MockChannelRepository{}
	parsers := &MockParserRepository{}
	scheduler := NewScheduler(nil, cache, channels, parsers, time.Hour, 1)

	scheduler.Start()
	waitFor(t, func() bool {
		_, ok := parsers.parsersFor("id-Portal")
		return ok
	})
	scheduler.Stop()

	if channels.upsertCount() != 1 {
		t.Errorf("Expected 1 channel upsert, got %d", channels.upsertCount())
	}
	synced, _ := parsers.parsersFor("id-Portal")
	if len(synced) != 1 || synced[0].Name != "portal-article" || synced[0].Channel != "id-Portal" {
		t.Errorf("Unexpected synced parsers: %+v", synced)
	}
}

func TestSchedulerRunsSweepOnTick(t *testing.T) {
	channels := &MockChannelRepository{channels: []database.Channel{
		{ID: "a", Name: "A", Active: true, RSS: "https://a.example.com/rss"},
	}}
	feeds := &MockFeedSource{items: feedItems(1)}
	o := newTestOrchestrator(channels, feeds, &MockScraper{}, &MockIngestor{})

	scheduler := NewScheduler(o, nil, channels, &MockParserRepository{}, 50*time.Millisecond, 1)
	scheduler.Start()
	waitFor(t, func() bool {
		_, ok := channels.lastUpdated("a")
		return ok
	})
	scheduler.Stop()

	if feeds.fetchCount() == 0 {
		t.Error("Expected sweep to fetch the channel feed")
	}
}

func TestSyncChannelConfigTaskKeepsParsersWhenUnlisted(t *testing.T) {
	channels := &MockChannelRepository{}
	parsers := &MockParserRepository{}
	cfg := &config.ChannelConfig{Key: "plain", RSS: "https://plain.example.com/rss"}

	task := NewSyncChannelConfigTask(cfg, channels, parsers)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, ok := parsers.parsersFor("id-plain"); ok {
		t.Error("Expected parsers to be left alone when the file lists none")
	}
	if channels.upserts[0].SourceType != database.SourceRSS {
		t.Errorf("Expected RSS source type, got %s", channels.upserts[0].SourceType)
	}
}

func TestSyncChannelConfigTaskRejectsInvalidParser(t *testing.T) {
	cfg := &config.ChannelConfig{
		Key: "bad",
		RSS: "https://bad.example.com/rss",
		Parsers: []config.ParserConfig{
			{Name: "broken", Content: &database.FieldRule{Regex: "(unclosed"}},
		},
	}
	parsers := &MockParserRepository{}

	err := NewSyncChannelConfigTask(cfg, &MockChannelRepository{}, parsers).Execute(context.Background())

	var invalid *parser.InvalidPatternError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidPatternError, got: %v", err)
	}
	if invalid.Field != database.FieldContent {
		t.Errorf("Expected field 'content', got '%s'", invalid.Field)
	}
	if _, ok := parsers.parsersFor("id-bad"); ok {
		t.Error("Expected no parsers to be stored")
	}
}

type failingProcessor struct {
	mu    sync.Mutex
	calls int
}

func (p *failingProcessor) ProcessFeeds(ctx context.Context, force bool) Summary {
	return Summary{Success: true}
}

func (p *failingProcessor) ProcessFeed(ctx context.Context, channelID string) (Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return Summary{}, errors.New("feed unavailable")
}

func (p *failingProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestSchedulerRetriesChannelTask(t *testing.T) {
	processor := &failingProcessor{}
	scheduler := NewScheduler(processor, nil, &MockChannelRepository{}, &MockParserRepository{}, time.Hour, 1)
	scheduler.SetChannelRetries(1)
	scheduler.Start()
	defer scheduler.Stop()

	task := NewProcessChannelTask("a", processor)
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}
	if task.GetMaxRetries() != 1 {
		t.Errorf("Expected max retries 1, got %d", task.GetMaxRetries())
	}

	// First retry is requeued after a one second backoff.
	waitFor(t, func() bool { return processor.callCount() == 2 })

	time.Sleep(1500 * time.Millisecond)
	if processor.callCount() != 2 {
		t.Errorf("Expected retries to stop after 1, got %d calls", processor.callCount())
	}
}

func TestSchedulerDoesNotRetrySweeps(t *testing.T) {
	scheduler := NewScheduler(&failingProcessor{}, nil, &MockChannelRepository{}, &MockParserRepository{}, time.Hour, 1)
	scheduler.SetChannelRetries(3)

	task := NewProcessFeedsTask(false, scheduler.processor)
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}
	if task.CanRetry() {
		t.Error("Expected sweep tasks not to be retried")
	}
}

func TestTaskRetryBookkeeping(t *testing.T) {
	task := NewTask(TaskTypeProcessFeeds, "")
	if task.CanRetry() {
		t.Error("Expected tasks not to be retried by default")
	}
	task.SetMaxRetries(1)
	if !task.CanRetry() {
		t.Error("Expected a retry to be allowed")
	}
	task.IncrementRetryCount()
	if task.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}
	task.Start()
	if task.StartedAt == nil {
		t.Error("Expected start time to be set")
	}
}
