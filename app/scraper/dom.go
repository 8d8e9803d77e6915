package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DOMEngine evaluates full CSS selectors against a parsed document.
type DOMEngine struct{}

func (DOMEngine) Containers(html, selector string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if outer, err := goquery.OuterHtml(s); err == nil {
			out = append(out, outer)
		}
	})
	return out
}

func (DOMEngine) Text(html, selector string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var text string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text = CleanText(s.Text())
		return text == ""
	})
	return text
}

func (e DOMEngine) Link(html, selector string) string {
	return e.attribute(html, selector, "a[href]", "href")
}

func (e DOMEngine) Image(html, selector string) string {
	if src := e.attribute(html, selector, "img[src]", "src"); src != "" {
		return src
	}
	return e.attribute(html, selector, "img[data-src]", "data-src")
}

func (DOMEngine) attribute(html, selector, inner, attr string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	sel := doc.Find(selector).First()
	if v, ok := sel.Attr(attr); ok && v != "" {
		return v
	}
	if v, ok := sel.Find(inner).First().Attr(attr); ok {
		return v
	}
	return ""
}
