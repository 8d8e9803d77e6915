package config

import (
	"cmp"
	"encoding/json"
	"time"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/scraper"
)

// ChannelConfig is one channel seed file.
type ChannelConfig struct {
	Key      string                  `yaml:"-"` // file name without extension
	Name     string                  `yaml:"name"`
	Source   string                  `yaml:"source_type"`
	RSS      string                  `yaml:"rss"`
	ListPage string                  `yaml:"list_page_url"`
	URL      string                  `yaml:"url"`
	Settings ChannelSettings         `yaml:"settings"`
	Scraping *scraper.ScrapingConfig `yaml:"scraping"`
	Parsers  []ParserConfig          `yaml:"parsers"`
}

type ChannelSettings struct {
	Active          bool `yaml:"active"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	RequestLink     bool `yaml:"request_link"`
}

type ParserConfig struct {
	Name         string              `yaml:"name"`
	Title        *database.FieldRule `yaml:"title"`
	Content      *database.FieldRule `yaml:"content"`
	Category     *database.FieldRule `yaml:"category"`
	FeatureImage *database.FieldRule `yaml:"feature_image"`
	Tags         *database.FieldRule `yaml:"tags"`
}

// GetRefreshInterval returns the refresh interval, one hour when unset.
func (s *ChannelSettings) GetRefreshInterval() time.Duration {
	if s.RefreshInterval <= 0 {
		return 3600 * time.Second
	}
	return time.Duration(s.RefreshInterval) * time.Second
}

// Channel converts the seed into a storable channel row.
func (c *ChannelConfig) Channel() (*database.Channel, error) {
	ch := &database.Channel{
		Name:           cmp.Or(c.Name, c.Key),
		SourceType:     cmp.Or(c.Source, database.SourceRSS),
		RSS:            c.RSS,
		ListPageURL:    c.ListPage,
		URL:            c.URL,
		Active:         c.Settings.Active,
		IntervalUpdate: c.Settings.GetRefreshInterval().Milliseconds(),
		RequestLink:    c.Settings.RequestLink,
	}

	if c.Scraping != nil {
		data, err := json.Marshal(c.Scraping)
		if err != nil {
			return nil, err
		}
		ch.ScrapingConfig = string(data)
	}

	return ch, nil
}

// ParserDefinitions returns the seeded parsers bound to channelID.
func (c *ChannelConfig) ParserDefinitions(channelID string) []database.Parser {
	parsers := make([]database.Parser, 0, len(c.Parsers))
	for _, p := range c.Parsers {
		parsers = append(parsers, database.Parser{
			Channel:      channelID,
			Name:         p.Name,
			Title:        p.Title,
			Content:      p.Content,
			Category:     p.Category,
			FeatureImage: p.FeatureImage,
			Tags:         p.Tags,
		})
	}
	return parsers
}
