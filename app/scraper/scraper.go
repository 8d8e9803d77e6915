package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/news-harvest/app/fetcher"
	"github.com/lysyi3m/news-harvest/app/urls"
)

type Scraper struct {
	fetcher *fetcher.Fetcher
	now     func() time.Time
}

func New(f *fetcher.Fetcher) *Scraper {
	return &Scraper{fetcher: f, now: time.Now}
}

// ScrapeList downloads a listing page and extracts its articles.
func (s *Scraper) ScrapeList(ctx context.Context, listURL string, cfg ScrapingConfig) ([]ScrapedArticle, error) {
	html, err := s.fetcher.Fetch(ctx, listURL, fetcher.Options{MaxBytes: fetcher.ScrapeMaxBytes})
	if err != nil {
		return nil, err
	}

	articles := s.Extract(html, listURL, cfg)
	slog.Debug("Scraped listing page", "url", listURL, "articles", len(articles), "engine", engineName(cfg))

	return articles, nil
}

// Extract applies cfg to html. When the configured selectors yield nothing
// the news listing heuristics are tried.
func (s *Scraper) Extract(html, baseURL string, cfg ScrapingConfig) []ScrapedArticle {
	now := s.now()
	engine := engineFor(cfg)

	var articles []ScrapedArticle
	for _, container := range engine.Containers(html, cfg.ArticleSelector) {
		if a, ok := extractArticle(engine, container, baseURL, cfg, now); ok {
			articles = append(articles, a)
		}
	}

	if len(articles) == 0 {
		articles = fallbackArticles(html, baseURL, now)
	}

	return dedupe(articles)
}

func extractArticle(engine SelectorEngine, html, baseURL string, cfg ScrapingConfig, now time.Time) (ScrapedArticle, bool) {
	title := CleanText(engine.Text(html, cfg.TitleSelector))
	link := engine.Link(html, cfg.LinkSelector)
	if title == "" || link == "" {
		return ScrapedArticle{}, false
	}

	article := ScrapedArticle{
		Title: title,
		Link:  urls.Resolve(urls.DecodeEntities(link), baseURL),
	}

	if img := engine.Image(html, cfg.ImageSelector); img != "" {
		article.Image = urls.Resolve(urls.DecodeEntities(img), baseURL)
	}

	if cfg.DateSelector != "" {
		article.Date = articleDate(engine, html, cfg.DateSelector, now)
	}

	if cfg.ExcerptSelector != "" {
		article.Excerpt = CleanText(engine.Text(html, cfg.ExcerptSelector))
	}

	return article, true
}

func articleDate(engine SelectorEngine, html, selector string, now time.Time) time.Time {
	if t := ParseDate(engine.Text(html, selector), now); !t.IsZero() {
		return t
	}
	if m := datetimeRe.FindStringSubmatch(html); m != nil {
		return ParseDate(m[1], now)
	}
	return time.Time{}
}

func dedupe(articles []ScrapedArticle) []ScrapedArticle {
	seen := make(map[string]bool, len(articles))
	out := articles[:0]
	for _, a := range articles {
		if seen[a.Link] {
			continue
		}
		seen[a.Link] = true
		out = append(out, a)
	}
	return out
}

func engineFor(cfg ScrapingConfig) SelectorEngine {
	if strings.EqualFold(cfg.Engine, EngineDOM) {
		return DOMEngine{}
	}
	return RegexEngine{}
}

func engineName(cfg ScrapingConfig) string {
	if strings.EqualFold(cfg.Engine, EngineDOM) {
		return EngineDOM
	}
	return EngineRegex
}
