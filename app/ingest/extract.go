package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/lysyi3m/news-harvest/app/fetcher"
)

const (
	directTimeout  = 15 * time.Second
	minContainer   = 200
	minMarkupChars = 200
)

var errNoContent = errors.New("no content extracted")

var directHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
}

var (
	containerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<article[^>]*>(.*?)</article>`),
		regexp.MustCompile(`(?is)<div[^>]*class=["'][^"']*article-content[^"']*["'][^>]*>(.*?)</div>`),
		regexp.MustCompile(`(?is)<div[^>]*class=["'][^"']*post-content[^"']*["'][^>]*>(.*?)</div>`),
		regexp.MustCompile(`(?is)<div[^>]*class=["'][^"']*content[^"']*["'][^>]*>(.*?)</div>`),
		regexp.MustCompile(`(?is)<h1[^>]*>.*?</h1>.*?<p[^>]*>(.*?)(?:<div[^>]*class=["'][^"']*(?:footer|comments|sidebar)[^"']*["']|</body>)`),
	}
	afterHeadingRe = regexp.MustCompile(`(?is)<h1[^>]*>.*?</h1>(.*?)(?:<h2[^>]*>Leia também|</div>\s*<div[^>]*class=["'][^"']*footer|<footer)`)

	scriptRe = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style.*?</style>`)
	adRe     = regexp.MustCompile(`(?is)<div[^>]*class=["'](?:[^"']*\s)?(?:ad|ads|advert[\w-]*|ad-[\w-]+)(?:\s[^"']*)?["'][^>]*>.*?</div>`)

	paragraphOpenRe  = regexp.MustCompile(`(?i)<p[^>]*>`)
	paragraphCloseRe = regexp.MustCompile(`(?i)</p>`)
	breakRe          = regexp.MustCompile(`(?i)<br\s*/?>`)
	headingOpenRe    = regexp.MustCompile(`(?i)<h[1-6][^>]*>`)
	headingCloseRe   = regexp.MustCompile(`(?i)</h[1-6]>`)
	strongRe         = regexp.MustCompile(`(?i)</?strong[^>]*>`)
	emRe             = regexp.MustCompile(`(?i)</?em[^>]*>`)
	anchorRe         = regexp.MustCompile(`(?is)<a[^>]*href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	tagRe            = regexp.MustCompile(`<[^>]+>`)
	blankLinesRe     = regexp.MustCompile(`\n{3,}`)

	markupEntities = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// extractDirect downloads link and pulls the article body out of it without a
// parser definition. Container heuristics are tried first, readability last.
func (in *Ingestor) extractDirect(ctx context.Context, link string) (string, error) {
	if in.fetcher == nil {
		return "", errNoContent
	}

	html, err := in.fetcher.Fetch(ctx, link, fetcher.Options{
		Timeout:  directTimeout,
		Headers:  directHeaders,
		MaxBytes: fetcher.PageMaxBytes,
	})
	if err != nil {
		return "", err
	}

	if content := toMarkup(articleBody(html)); len(content) >= minMarkupChars {
		return content, nil
	}

	return readable(html, link)
}

// articleBody returns the raw HTML of the most plausible article container.
func articleBody(html string) string {
	for _, re := range containerPatterns {
		if m := re.FindStringSubmatch(html); m != nil && len(m[1]) > minContainer {
			return m[1]
		}
	}

	if m := afterHeadingRe.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return ""
}

// toMarkup strips noise from an HTML fragment and renders the remaining
// structure as lightweight markup.
func toMarkup(fragment string) string {
	if fragment == "" {
		return ""
	}

	s := scriptRe.ReplaceAllString(fragment, "")
	s = styleRe.ReplaceAllString(s, "")
	s = adRe.ReplaceAllString(s, "")

	s = paragraphOpenRe.ReplaceAllString(s, "\n\n")
	s = paragraphCloseRe.ReplaceAllString(s, "")
	s = breakRe.ReplaceAllString(s, "\n")
	s = headingOpenRe.ReplaceAllString(s, "\n\n**")
	s = headingCloseRe.ReplaceAllString(s, "**\n\n")
	s = strongRe.ReplaceAllString(s, "**")
	s = emRe.ReplaceAllString(s, "*")
	s = anchorRe.ReplaceAllString(s, "$2 ($1)")
	s = tagRe.ReplaceAllString(s, "")
	s = markupEntities.Replace(s)
	s = blankLinesRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

func readable(html, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", errNoContent
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	content := toMarkup(article.Content)
	if content == "" {
		return "", errNoContent
	}
	return content, nil
}
