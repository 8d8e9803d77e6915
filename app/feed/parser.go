package feed

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/news-harvest/app/fetcher"
)

var prologEncodingRe = regexp.MustCompile(`^(\s*<\?xml[^>]*?)\s+encoding=["'][^"']*["']`)

type Parser struct {
	fetcher      *fetcher.Fetcher
	gofeedParser *gofeed.Parser
}

func NewParser(f *fetcher.Fetcher) *Parser {
	return &Parser{
		fetcher:      f,
		gofeedParser: gofeed.NewParser(),
	}
}

// FetchFeed downloads and decodes the feed at url.
func (p *Parser) FetchFeed(ctx context.Context, url string) (*Document, error) {
	body, err := p.fetcher.Fetch(ctx, url, fetcher.Options{
		Headers: map[string]string{"Accept": "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"},
	})
	if err != nil {
		return nil, err
	}
	// The body is already UTF-8; a stale prolog encoding would decode it twice.
	return p.Run([]byte(prologEncodingRe.ReplaceAllString(body, "$1")))
}

// Run decodes raw feed bytes into a Document.
func (p *Parser) Run(data []byte) (*Document, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeJSON:
		parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON feed: %w", err)
		}
		return &Document{Root: "json", json: parsed}, nil
	case gofeed.FeedTypeUnknown:
		return nil, &UnsupportedFormatError{}
	}

	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if doc.Family() == FamilyUnknown {
		return nil, &UnsupportedFormatError{Root: doc.Root}
	}
	return doc, nil
}

// ToItems converts every entry of doc into a NormalizedItem, in document order.
func (p *Parser) ToItems(doc *Document) ([]NormalizedItem, error) {
	family := doc.Family()

	switch family {
	case FamilyJSON:
		return p.jsonItems(doc.json), nil
	case FamilyUnknown:
		return nil, &UnsupportedFormatError{Root: doc.Root}
	}

	entries := doc.entries()
	items := make([]NormalizedItem, 0, len(entries))
	for _, entry := range entries {
		if family == FamilyAtom {
			items = append(items, atomItem(entry))
		} else {
			items = append(items, rssItem(entry))
		}
	}

	return items, nil
}

func rssItem(item Value) NormalizedItem {
	normalized := NormalizedItem{
		Link:         strings.TrimSpace(Text(Child(item, "link"))),
		Title:        stripCDATA(Text(Child(item, "title"))),
		FeatureImage: ExtractImage(item),
		PubDate:      parseDate(Text(Child(item, "pubDate"))),
	}

	for _, field := range []string{"content:encoded", "content", "description"} {
		if content := stripCDATA(Text(Child(item, field))); content != "" {
			normalized.Content = content
			break
		}
	}

	if normalized.PubDate.IsZero() {
		normalized.PubDate = parseDate(Text(Child(item, "dc:date")))
	}

	var categories []string
	for _, c := range Items(Child(item, "category")) {
		if text := stripCDATA(Text(c)); text != "" {
			categories = append(categories, text)
		}
	}
	normalized.Category = strings.Join(categories, ", ")

	return normalized
}

func atomItem(entry Value) NormalizedItem {
	normalized := NormalizedItem{
		Link:         atomLink(Child(entry, "link")),
		Title:        stripCDATA(Text(Child(entry, "title"))),
		FeatureImage: ExtractImage(entry),
	}

	if content := Child(entry, "content"); content != nil {
		normalized.Content = stripCDATA(Text(content))
	} else if summary := Child(entry, "summary"); summary != nil {
		normalized.Content = stripCDATA(Text(summary))
	}

	if published := Text(Child(entry, "published")); published != "" {
		normalized.PubDate = parseDate(published)
	} else {
		normalized.PubDate = parseDate(Text(Child(entry, "updated")))
	}

	normalized.Category = Attr(Child(entry, "category"), "term")

	return normalized
}

// atomLink prefers the rel="alternate" link, else the first link with an href.
func atomLink(links Value) string {
	candidates := Items(links)
	for _, l := range candidates {
		if Attr(l, "rel") == "alternate" && Attr(l, "href") != "" {
			return Attr(l, "href")
		}
	}
	for _, l := range candidates {
		if href := Attr(l, "href"); href != "" {
			return href
		}
		if text := strings.TrimSpace(Text(l)); text != "" {
			return text
		}
	}
	return ""
}

func (p *Parser) jsonItems(parsed *gofeed.Feed) []NormalizedItem {
	items := make([]NormalizedItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		normalized := NormalizedItem{
			Link:     item.Link,
			Title:    item.Title,
			Content:  item.Content,
			Category: strings.Join(item.Categories, ", "),
			Tags:     item.Categories,
		}
		if normalized.Content == "" {
			normalized.Content = item.Description
		}
		if item.Image != nil {
			normalized.FeatureImage = item.Image.URL
		} else {
			for _, enc := range item.Enclosures {
				if enc != nil && strings.HasPrefix(enc.Type, "image/") {
					normalized.FeatureImage = enc.URL
					break
				}
			}
		}
		if item.PublishedParsed != nil {
			normalized.PubDate = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			normalized.PubDate = *item.UpdatedParsed
		}
		items = append(items, normalized)
	}
	return items
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
