package scraper

import (
	"regexp"
	"strings"
	"time"

	"github.com/lysyi3m/news-harvest/app/urls"
)

const contextRadius = 1000

var (
	newsItemOpenRe    = regexp.MustCompile(`(?i)<a\s+[^>]*class=["'][^"']*news-item[^"']*["'][^>]*>`)
	newsHrefRe        = regexp.MustCompile(`(?i)href=["']([^"']*/(?:noticias|news)/[^"']+)["']`)
	newsHeaderRe      = regexp.MustCompile(`(?is)<div[^>]*class=["'][^"']*news-item-header[^"']*["'][^>]*>(.*?)</div>`)
	newsImageRe       = regexp.MustCompile(`(?is)<div[^>]*class=["'][^"']*news-item-image[^"']*["'][^>]*>.*?<img[^>]*src=["']([^"']+)["']`)
	newsTimeRe        = regexp.MustCompile(`(?is)<[^>]*class=["'][^"']*news-item-time[^"']*["'][^>]*>(.*?)</`)
	newsContentRe     = regexp.MustCompile(`(?is)<div[^>]*class=["'][^"']*news-item-content[^"']*["'][^>]*>(.*?)</div>`)
	genericNewsLinkRe = regexp.MustCompile(`(?is)<a[^>]*href=["']([^"']*/(?:noticias|news)/[^"']+)["'][^>]*>(.*?)</a>`)
	galleryImgRe      = regexp.MustCompile(`(?i)<img[^>]*src=["']([^"']+(?:gallerypicture|img-cdn)[^"']+)["']`)
	anyImgRe          = regexp.MustCompile(`(?i)<img[^>]*src=["']([^"']+)["']`)
)

// fallbackArticles recognises news listings when the configured selectors
// find nothing: first anchors with a news-item class, then any link into a
// /noticias/ or /news/ path.
func fallbackArticles(html, baseURL string, now time.Time) []ScrapedArticle {
	if articles := newsItemArticles(html, baseURL, now); len(articles) > 0 {
		return articles
	}
	return genericNewsLinks(html, baseURL, now)
}

func newsItemArticles(html, baseURL string, now time.Time) []ScrapedArticle {
	var articles []ScrapedArticle
	seen := make(map[string]bool)

	for _, loc := range newsItemOpenRe.FindAllStringIndex(html, -1) {
		openTag := html[loc[0]:loc[1]]
		m := newsHrefRe.FindStringSubmatch(openTag)
		if m == nil {
			continue
		}
		href := m[1]
		if seen[href] {
			continue
		}

		inner, ok := anchorInner(html, loc[1])
		if !ok {
			continue
		}

		title := ""
		if h := newsHeaderRe.FindStringSubmatch(inner); h != nil {
			title = StripTags(h[1])
		}
		if title == "" {
			if text := StripTags(inner); len(text) > 10 {
				title = text
			}
		}
		if len(title) < 5 {
			continue
		}
		seen[href] = true

		article := ScrapedArticle{
			Title: title,
			Link:  urls.Resolve(href, baseURL),
		}

		if img := newsImageRe.FindStringSubmatch(inner); img != nil {
			article.Image = urls.Resolve(urls.DecodeEntities(img[1]), baseURL)
		}

		if t := newsTimeRe.FindStringSubmatch(inner); t != nil {
			if d, ok := relativeDate(StripTags(t[1]), now); ok {
				article.Date = d
			}
		}

		if c := newsContentRe.FindStringSubmatch(inner); c != nil {
			excerpt := strings.ReplaceAll(StripTags(c[1]), title, "")
			excerpt = CleanText(relativeRe.ReplaceAllString(excerpt, ""))
			if len(excerpt) > 20 && len(excerpt) < 300 {
				article.Excerpt = excerpt
			}
		}

		articles = append(articles, article)
	}

	return articles
}

// anchorInner returns the HTML between start and the </a> closing the anchor
// opened just before start, skipping nested anchors.
func anchorInner(html string, start int) (string, bool) {
	lower := asciiLower(html)
	depth := 0

	for i := start; i < len(lower); i++ {
		if lower[i] != '<' {
			continue
		}
		rest := lower[i:]
		switch {
		case strings.HasPrefix(rest, "</a>"):
			if depth == 0 {
				return html[start:i], true
			}
			depth--
		case len(rest) > 2 && rest[1] == 'a' && isSpace(rest[2]):
			depth++
		}
	}

	return "", false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func genericNewsLinks(html, baseURL string, now time.Time) []ScrapedArticle {
	var articles []ScrapedArticle
	seen := make(map[string]bool)

	for _, loc := range genericNewsLinkRe.FindAllStringSubmatchIndex(html, -1) {
		href := html[loc[2]:loc[3]]
		title := StripTags(html[loc[4]:loc[5]])
		if len(title) < 5 || seen[href] {
			continue
		}
		seen[href] = true

		article := ScrapedArticle{
			Title: title,
			Link:  urls.Resolve(href, baseURL),
		}

		around := html[max(0, loc[0]-contextRadius):min(len(html), loc[1]+contextRadius)]

		img := galleryImgRe.FindStringSubmatch(around)
		if img == nil {
			img = anyImgRe.FindStringSubmatch(around)
		}
		if img != nil {
			article.Image = urls.Resolve(urls.DecodeEntities(img[1]), baseURL)
		}

		if d, ok := relativeDate(around, now); ok {
			article.Date = d
		}

		articles = append(articles, article)
	}

	return articles
}
