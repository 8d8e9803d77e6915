package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	SourceRSS         = "RSS"
	SourceWebScraping = "WEB_SCRAPING"

	StatusPending = "pending"
)

type Channel struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	SourceType     string     `db:"source_type" json:"sourceType"`
	RSS            string     `db:"rss" json:"rss"`
	ListPageURL    string     `db:"list_page_url" json:"listPageUrl"`
	URL            string     `db:"url" json:"url"`
	Active         bool       `db:"active" json:"active"`
	IntervalUpdate int64      `db:"interval_update" json:"intervalUpdate"` // milliseconds
	LastUpdate     *time.Time `db:"last_update" json:"lastUpdate"`
	RequestLink    bool       `db:"request_link" json:"requestLink"`
	ScrapingConfig string     `db:"scraping_config" json:"scrapingConfig"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// Interval returns the refresh interval of the channel.
func (c *Channel) Interval() time.Duration {
	return time.Duration(c.IntervalUpdate) * time.Millisecond
}

type RawItem struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Content      string    `db:"content" json:"content"`
	FeatureImage string    `db:"feature_image" json:"featureImage"`
	Link         string    `db:"link" json:"link"`
	PubDate      time.Time `db:"pub_date" json:"pubDate"`
	Category     string    `db:"category" json:"category"`
	Channel      string    `db:"channel" json:"channel"`
	FeedType     string    `db:"feed_type" json:"feedType"`
	HasParser    bool      `db:"has_parser" json:"hasParser"`
	ParsedBy     string    `db:"parsed_by" json:"parsedBy"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// FieldRule is the extraction rule of one parser field.
type FieldRule struct {
	Regex  string `json:"regex"`
	Locked bool   `json:"locked"`
}

func (r FieldRule) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (r *FieldRule) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = FieldRule{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), r)
	case []byte:
		return json.Unmarshal(v, r)
	default:
		return fmt.Errorf("unsupported field rule type %T", src)
	}
}

const (
	FieldTitle        = "title"
	FieldContent      = "content"
	FieldCategory     = "category"
	FieldFeatureImage = "featureImage"
	FieldTags         = "tags"
)

// ParserFields lists parser fields in evaluation order.
var ParserFields = []string{FieldTitle, FieldContent, FieldCategory, FieldFeatureImage, FieldTags}

type Parser struct {
	ID           string     `db:"id" json:"id"`
	Channel      string     `db:"channel" json:"channel"`
	Name         string     `db:"name" json:"name"`
	Title        *FieldRule `db:"title" json:"title,omitempty"`
	Content      *FieldRule `db:"content" json:"content,omitempty"`
	Category     *FieldRule `db:"category" json:"category,omitempty"`
	FeatureImage *FieldRule `db:"feature_image" json:"featureImage,omitempty"`
	Tags         *FieldRule `db:"tags" json:"tags,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Field returns the rule stored for the named field, or nil.
func (p *Parser) Field(name string) *FieldRule {
	switch name {
	case FieldTitle:
		return p.Title
	case FieldContent:
		return p.Content
	case FieldCategory:
		return p.Category
	case FieldFeatureImage:
		return p.FeatureImage
	case FieldTags:
		return p.Tags
	}
	return nil
}

func (p *Parser) SetField(name string, rule *FieldRule) {
	switch name {
	case FieldTitle:
		p.Title = rule
	case FieldContent:
		p.Content = rule
	case FieldCategory:
		p.Category = rule
	case FieldFeatureImage:
		p.FeatureImage = rule
	case FieldTags:
		p.Tags = rule
	}
}

// Clone returns a deep copy of p.
func (p *Parser) Clone() *Parser {
	c := *p
	for _, name := range ParserFields {
		if rule := p.Field(name); rule != nil {
			r := *rule
			c.SetField(name, &r)
		}
	}
	return &c
}

type AIContent struct {
	ID                  string    `db:"id" json:"id"`
	RawID               string    `db:"raw_id" json:"rawId"`
	Title               string    `db:"title" json:"title"`
	Content             string    `db:"content" json:"content"`
	FeatureImage        string    `db:"feature_image" json:"featureImage"`
	SuggestedTags       string    `db:"suggested_tags" json:"suggestedTags"`
	SuggestedCategories string    `db:"suggested_categories" json:"suggestedCategories"`
	PostRef             *string   `db:"post_ref" json:"postRef"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}
