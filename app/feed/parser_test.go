package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/lysyi3m/news-harvest/app/fetcher"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <item>
      <title><![CDATA[Test Item 1]]></title>
      <link>https://example.com/item1</link>
      <description>Short description</description>
      <content:encoded><![CDATA[<p>Full content</p>]]></content:encoded>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <category>Technology</category>
      <category>Programming</category>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Test Item 2 Description</description>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	parser := NewParser(nil)
	doc, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if doc.Family() != FamilyRSS {
		t.Errorf("Expected family RSS, got: %s", doc.Family())
	}

	items, err := parser.ToItems(doc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	item1 := items[0]
	if item1.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %s", item1.Title)
	}
	if item1.Link != "https://example.com/item1" {
		t.Errorf("Expected link 'https://example.com/item1', got: %s", item1.Link)
	}
	if item1.Content != "<p>Full content</p>" {
		t.Errorf("Expected content:encoded to win, got: %s", item1.Content)
	}
	if item1.Category != "Technology, Programming" {
		t.Errorf("Expected joined categories, got: %s", item1.Category)
	}
	if item1.PubDate.IsZero() || item1.PubDate.Hour() != 10 {
		t.Errorf("Expected pubDate 10:00, got: %v", item1.PubDate)
	}

	if items[1].Content != "Test Item 2 Description" {
		t.Errorf("Expected description fallback, got: %s", items[1].Content)
	}
}

func TestSingleItemIsOneElementSequence(t *testing.T) {
	single := `<rss><channel><item><title>Only</title><link>https://a.com/1</link></item></channel></rss>`
	double := `<rss><channel><item><title>Only</title><link>https://a.com/1</link></item><item><title>Only</title><link>https://a.com/1</link></item></channel></rss>`

	parser := NewParser(nil)

	singleDoc, err := parser.Run([]byte(single))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	singleItems, _ := parser.ToItems(singleDoc)

	doubleDoc, err := parser.Run([]byte(double))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	doubleItems, _ := parser.ToItems(doubleDoc)

	if len(singleItems) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(singleItems))
	}
	if !reflect.DeepEqual(singleItems[0], doubleItems[0]) {
		t.Errorf("Expected single item to equal first element of sequence, got %+v vs %+v", singleItems[0], doubleItems[0])
	}
}

func TestParseAtomPrefersAlternateLink(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <entry>
    <title type="html">Atom Entry</title>
    <link rel="self" href="https://example.com/self"/>
    <link rel="alternate" href="https://example.com/entry"/>
    <summary>Entry summary</summary>
    <updated>2023-07-03T12:00:00Z</updated>
    <category term="news"/>
    <category term="world"/>
  </entry>
</feed>`

	parser := NewParser(nil)
	doc, err := parser.Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if doc.Family() != FamilyAtom {
		t.Errorf("Expected family Atom, got: %s", doc.Family())
	}

	items, _ := parser.ToItems(doc)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}

	item := items[0]
	if item.Link != "https://example.com/entry" {
		t.Errorf("Expected alternate link, got: %s", item.Link)
	}
	if item.Title != "Atom Entry" {
		t.Errorf("Expected title 'Atom Entry', got: %s", item.Title)
	}
	if item.Content != "Entry summary" {
		t.Errorf("Expected summary as content, got: %s", item.Content)
	}
	if item.Category != "news" {
		t.Errorf("Expected first category term 'news', got: %s", item.Category)
	}
	if item.PubDate.Year() != 2023 {
		t.Errorf("Expected updated date fallback, got: %v", item.PubDate)
	}
}

func TestParseAtomSingleLink(t *testing.T) {
	atomData := `<feed xmlns="http://www.w3.org/2005/Atom"><entry><title>E</title><link href="https://example.com/only"/><published>2023-07-01T00:00:00Z</published><content type="html">&lt;p&gt;Body&lt;/p&gt;</content></entry></feed>`

	parser := NewParser(nil)
	doc, err := parser.Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	items, _ := parser.ToItems(doc)

	if items[0].Link != "https://example.com/only" {
		t.Errorf("Expected link 'https://example.com/only', got: %s", items[0].Link)
	}
	if items[0].Content != "<p>Body</p>" {
		t.Errorf("Expected decoded content, got: %s", items[0].Content)
	}
}

func TestParseJSONFeed(t *testing.T) {
	jsonData := `{
  "version": "https://jsonfeed.org/version/1.1",
  "title": "JSON Feed",
  "items": [
    {
      "id": "1",
      "url": "https://example.com/json-item",
      "title": "JSON Item",
      "content_html": "<p>Hello</p>",
      "image": "https://example.com/json.png",
      "date_published": "2023-07-03T10:00:00Z",
      "tags": ["go", "feeds"]
    }
  ]
}`

	parser := NewParser(nil)
	doc, err := parser.Run([]byte(jsonData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if doc.Family() != FamilyJSON {
		t.Errorf("Expected family JSON, got: %s", doc.Family())
	}

	items, _ := parser.ToItems(doc)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}
	if items[0].Link != "https://example.com/json-item" {
		t.Errorf("Expected link, got: %s", items[0].Link)
	}
	if items[0].FeatureImage != "https://example.com/json.png" {
		t.Errorf("Expected image, got: %s", items[0].FeatureImage)
	}
	if items[0].Category != "go, feeds" {
		t.Errorf("Expected tags as category, got: %s", items[0].Category)
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	parser := NewParser(nil)

	_, err := parser.Run([]byte(`<html><body>not a feed</body></html>`))

	var formatErr *UnsupportedFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Expected UnsupportedFormatError, got: %v", err)
	}
}

func TestFetchFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Write([]byte(`<rss><channel><item><title>Fetched</title><link>https://a.com/f</link></item></channel></rss>`))
	}))
	defer server.Close()

	parser := NewParser(fetcher.New(server.Client(), "test-agent"))
	doc, err := parser.FetchFeed(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	items, _ := parser.ToItems(doc)
	if len(items) != 1 || items[0].Title != "Fetched" {
		t.Errorf("Expected fetched item, got: %+v", items)
	}
}

func TestDecodeLatin1Feed(t *testing.T) {
	data := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><rss><channel><item><title>Not`), 0xED)
	data = append(data, []byte(`cia</title><link>https://a.com/n</link></item></channel></rss>`)...)

	parser := NewParser(nil)
	doc, err := parser.Run(data)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	items, _ := parser.ToItems(doc)
	if !strings.HasPrefix(items[0].Title, "Notícia") {
		t.Errorf("Expected decoded Latin-1 title, got: %s", items[0].Title)
	}
}

func TestFetchFeedLatin1DecodedOnce(t *testing.T) {
	body := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><rss><channel><item><title>Not`), 0xED)
	body = append(body, []byte(`cia</title><link>https://a.com/n</link></item></channel></rss>`)...)

	contentTypes := []string{
		"application/rss+xml; charset=ISO-8859-1",
		"application/rss+xml",
	}

	for _, contentType := range contentTypes {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			w.Write(body)
		}))

		parser := NewParser(fetcher.New(server.Client(), "test-agent"))
		doc, err := parser.FetchFeed(context.Background(), server.URL)
		server.Close()
		if err != nil {
			t.Fatalf("Expected no error for %q, got: %v", contentType, err)
		}

		items, _ := parser.ToItems(doc)
		if len(items) != 1 || items[0].Title != "Notícia" {
			t.Errorf("Expected title 'Notícia' for %q, got: %+v", contentType, items)
		}
	}
}
