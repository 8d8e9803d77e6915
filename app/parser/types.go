package parser

import "time"

const (
	weightTitle        = 25
	weightContent      = 25
	weightCategory     = 20
	weightFeatureImage = 20
	weightTags         = 10
	weightPubDate      = 10

	genericConfidence = 5
)

// Result is what one parser, or the merge of several, extracted from a page.
type Result struct {
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	FeatureImage string    `json:"featureImage"`
	Category     string    `json:"category"`
	Tags         string    `json:"tags"`
	PubDate      time.Time `json:"pubDate"`
	Link         string    `json:"link"`
	Confidence   int       `json:"confidence"`
	ParserID     string    `json:"parserId,omitempty"`

	hasPubDate bool
}

func (r *Result) contributed() bool {
	return r.Title != "" || r.Content != "" || r.FeatureImage != "" ||
		r.Category != "" || r.Tags != "" || r.hasPubDate
}

type ParseResponse struct {
	Success bool   `json:"success"`
	Data    Result `json:"data"`
	Message string `json:"message"`
}

// FieldAnalysis is the model's answer for one field of a page.
type FieldAnalysis struct {
	Value      any    `json:"value"`
	Regex      string `json:"regex"`
	Confidence string `json:"confidence"`
}

type URLAnalysis struct {
	URL           string         `json:"url"`
	Title         *FieldAnalysis `json:"title,omitempty"`
	Content       *FieldAnalysis `json:"content,omitempty"`
	Category      *FieldAnalysis `json:"category,omitempty"`
	FeaturedImage *FieldAnalysis `json:"featuredImage,omitempty"`
	Tags          *FieldAnalysis `json:"tags,omitempty"`
}

type PatternIssue struct {
	Field string `json:"field"`
	Error string `json:"error"`
	Regex string `json:"regex"`
}

type ParserIssue struct {
	ParserID  string         `json:"parserId"`
	ChannelID string         `json:"channelId"`
	Issues    []PatternIssue `json:"issues"`
}
