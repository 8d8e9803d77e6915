package scraper

import (
	"encoding/json"
	"time"
)

type ScrapingConfig struct {
	ArticleSelector string `json:"articleSelector" yaml:"article_selector"`
	TitleSelector   string `json:"titleSelector" yaml:"title_selector"`
	LinkSelector    string `json:"linkSelector" yaml:"link_selector"`
	ImageSelector   string `json:"imageSelector" yaml:"image_selector"`
	DateSelector    string `json:"dateSelector,omitempty" yaml:"date_selector"`
	ExcerptSelector string `json:"excerptSelector,omitempty" yaml:"excerpt_selector"`
	// Engine selects the selector strategy: "regex" (default) or "dom".
	Engine string `json:"engine,omitempty" yaml:"engine"`
}

type ScrapedArticle struct {
	Title   string
	Link    string
	Image   string
	Date    time.Time
	Excerpt string
}

func DefaultConfig() ScrapingConfig {
	return ScrapingConfig{
		ArticleSelector: ".article-card, .news-item, .post-item, article",
		TitleSelector:   ".news-item-header, h3 a, h2 a, .title a",
		LinkSelector:    "a.news-item, h3 a, h2 a, .title a",
		ImageSelector:   ".news-item-image img, img, .image img",
		DateSelector:    ".news-item-time, .date, .published, time",
		ExcerptSelector: ".news-item-content, .excerpt, .summary",
	}
}

// ParseConfig decodes a stored JSON config. Empty or invalid input yields the defaults.
func ParseConfig(raw string) (ScrapingConfig, error) {
	if raw == "" {
		return DefaultConfig(), nil
	}

	var cfg ScrapingConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return DefaultConfig(), err
	}
	if cfg.ArticleSelector == "" {
		return DefaultConfig(), nil
	}

	return cfg, nil
}
