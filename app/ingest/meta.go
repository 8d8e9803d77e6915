package ingest

import (
	"context"
	"regexp"
	"strings"

	"github.com/lysyi3m/news-harvest/app/urls"
)

// metaImagePatterns are tried in priority order.
var metaImagePatterns = []*regexp.Regexp{
	metaImagePattern(`property="og:image"`),
	metaImagePattern(`name="twitter:image"`),
	metaImagePattern(`property="article:image"`),
	metaImagePattern(`name="image"`),
}

func metaImagePattern(attr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)<meta[^>]+` + regexp.QuoteMeta(attr) + `[^>]+content=["']([^"']+)["']`)
}

// metaImage reads the head of link for a sharing image. Failures yield "".
func (in *Ingestor) metaImage(ctx context.Context, link string) string {
	if in.fetcher == nil {
		return ""
	}

	head, err := in.fetcher.FetchHead(ctx, link)
	if err != nil {
		return ""
	}

	return findMetaImage(head, link)
}

func findMetaImage(html, pageURL string) string {
	for _, re := range metaImagePatterns {
		if m := re.FindStringSubmatch(html); m != nil {
			if image := strings.TrimSpace(m[1]); image != "" {
				return urls.Resolve(urls.DecodeEntities(image), pageURL)
			}
		}
	}
	return ""
}
