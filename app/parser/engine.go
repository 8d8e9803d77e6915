package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/news-harvest/app/ai"
	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/fetcher"
	"github.com/lysyi3m/news-harvest/app/sandbox"
	"github.com/lysyi3m/news-harvest/app/urls"
)

const (
	DefaultParserTimeout = 6 * time.Second
	MaxParsers           = 5
	genericContentLimit  = 5000
	fieldFlags           = "is"
	publishedTimePattern = `<meta\s+property=["']article:published_time["']\s+content=["']([^"']+)["']`
)

var (
	titleTagRe = regexp.MustCompile(`(?i)<title>(.*?)</title>`)
	firstImgRe = regexp.MustCompile(`(?i)<img[^>]+(?:src|data-src)=["']([^"']+)["']`)
	ogImageRe  = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:image["'][^>]+content=["']([^"']+)["']`)
	twImageRe  = regexp.MustCompile(`(?i)<meta[^>]+name=["']twitter:image["'][^>]+content=["']([^"']+)["']`)
	articleRe  = regexp.MustCompile(`(?i)<article[\s\S]*?</article>`)
	bodyRe     = regexp.MustCompile(`(?i)<body[^>]*>([\s\S]*?)</body>`)
)

type Engine struct {
	fetcher       *fetcher.Fetcher
	sandbox       *sandbox.Sandbox
	channels      database.ChannelRepository
	parsers       database.ParserRepository
	generator     ai.Generator
	ParserTimeout time.Duration
	now           func() time.Time
}

func NewEngine(f *fetcher.Fetcher, sb *sandbox.Sandbox, channels database.ChannelRepository, parsers database.ParserRepository, generator ai.Generator) *Engine {
	if generator == nil {
		generator = ai.Disabled{}
	}
	return &Engine{
		fetcher:       f,
		sandbox:       sb,
		channels:      channels,
		parsers:       parsers,
		generator:     generator,
		ParserTimeout: DefaultParserTimeout,
		now:           time.Now,
	}
}

// ParseContent extracts article fields from pageURL. With a parserID only
// that parser runs; otherwise up to MaxParsers of the channels sharing the
// page host run in parallel and their results are merged in order.
func (e *Engine) ParseContent(ctx context.Context, parserID, pageURL string) (*ParseResponse, error) {
	pageURL = decodeURL(pageURL)

	var parsers []database.Parser
	if parserID != "" {
		p, err := e.parsers.FindOne(ctx, parserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parser %s: %w", parserID, err)
		}
		parsers = []database.Parser{*p}
	} else {
		found, err := e.parsersForHost(ctx, urls.Host(pageURL))
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			slog.Debug("No parsers for URL, using generic extraction", "url", pageURL)
			return e.genericExtraction(ctx, pageURL)
		}
		parsers = found
	}

	html, err := e.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	slog.Debug("Running parsers", "url", pageURL, "parsers", len(parsers))

	results := make([]*Result, len(parsers))
	g, gctx := errgroup.WithContext(ctx)
	for i := range parsers {
		p := &parsers[i]
		g.Go(func() error {
			results[i] = e.runWithTimeout(gctx, p, html, pageURL)
			return nil
		})
	}
	_ = g.Wait()

	best := e.merge(results, pageURL)

	return &ParseResponse{
		Success: true,
		Data:    best,
		Message: fmt.Sprintf("Successfully parsed content with confidence score %d%%", best.Confidence),
	}, nil
}

// TestCustomParser runs an unsaved parser definition against pageURL.
func (e *Engine) TestCustomParser(ctx context.Context, pageURL string, def *database.Parser) (*Result, error) {
	pageURL = decodeURL(pageURL)

	html, err := e.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	result := e.runParser(ctx, def, html, pageURL)
	return &result, nil
}

func (e *Engine) parsersForHost(ctx context.Context, host string) ([]database.Parser, error) {
	if host == "" {
		return nil, nil
	}

	channels, err := e.channels.FindAll(ctx, database.Filter{database.Contains("url", host)}, 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to find channels for host %s: %w", host, err)
	}

	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
	}

	parsers, err := e.parsers.FindAll(ctx, database.Filter{database.In("channel", ids...)}, MaxParsers)
	if err != nil {
		return nil, fmt.Errorf("failed to find parsers: %w", err)
	}
	return parsers, nil
}

func (e *Engine) fetchPage(ctx context.Context, pageURL string) (string, error) {
	html, err := e.fetcher.Fetch(ctx, pageURL, fetcher.Options{MaxBytes: fetcher.PageMaxBytes})
	if err != nil {
		return "", err
	}
	if html == "" {
		return "", &fetcher.FetchError{URL: pageURL, Err: fmt.Errorf("empty HTML content")}
	}
	return html, nil
}

// runWithTimeout returns nil when the parser does not finish within ParserTimeout.
func (e *Engine) runWithTimeout(ctx context.Context, p *database.Parser, html, pageURL string) *Result {
	ctx, cancel := context.WithTimeout(ctx, e.ParserTimeout)
	defer cancel()

	result := e.runParser(ctx, p, html, pageURL)
	if ctx.Err() != nil {
		err := &ParseTimeoutError{ParserID: p.ID, Timeout: e.ParserTimeout}
		slog.Warn("Parser discarded", "parser", p.ID, "error", err)
		return nil
	}
	return &result
}

func (e *Engine) runParser(ctx context.Context, p *database.Parser, html, pageURL string) Result {
	result := Result{
		PubDate:  e.now(),
		Link:     pageURL,
		ParserID: p.ID,
	}

	if m := e.match(ctx, html, p.Title); m != nil {
		result.Title = strings.TrimSpace(sandbox.Group(m))
		result.Confidence += weightTitle
	}
	if m := e.match(ctx, html, p.Content); m != nil {
		result.Content = strings.TrimSpace(m[0])
		result.Confidence += weightContent
	}
	if m := e.match(ctx, html, p.Category); m != nil {
		result.Category = strings.TrimSpace(sandbox.Group(m))
		result.Confidence += weightCategory
	}
	if m := e.match(ctx, html, p.FeatureImage); m != nil {
		result.FeatureImage = urls.Resolve(strings.TrimSpace(sandbox.Group(m)), pageURL)
		result.Confidence += weightFeatureImage
	}
	if m := e.match(ctx, html, p.Tags); m != nil {
		result.Tags = strings.TrimSpace(sandbox.Group(m))
		result.Confidence += weightTags
	}

	if m := e.sandbox.Run(ctx, html, publishedTimePattern, fieldFlags); m != nil {
		if t, err := dateparse.ParseAny(sandbox.Group(m)); err == nil {
			result.PubDate = t
			result.hasPubDate = true
			result.Confidence += weightPubDate
		}
	}

	slog.Debug("Parser finished", "parser", p.ID, "confidence", result.Confidence)

	return result
}

func (e *Engine) match(ctx context.Context, html string, rule *database.FieldRule) []string {
	if rule == nil || rule.Regex == "" {
		return nil
	}
	return e.sandbox.Run(ctx, html, rule.Regex, fieldFlags)
}

// merge applies results in definition order; a later parser's non-empty
// field replaces an earlier one.
func (e *Engine) merge(results []*Result, pageURL string) Result {
	best := Result{PubDate: e.now(), Link: pageURL}

	for _, r := range results {
		if r == nil || !r.contributed() {
			continue
		}
		if r.Title != "" {
			best.Title = r.Title
		}
		if r.Content != "" {
			best.Content = r.Content
		}
		if r.FeatureImage != "" {
			best.FeatureImage = r.FeatureImage
		}
		if r.Category != "" {
			best.Category = r.Category
		}
		if r.Tags != "" {
			best.Tags = r.Tags
		}
		if r.hasPubDate {
			best.PubDate = r.PubDate
			best.hasPubDate = true
		}
		best.Confidence = r.Confidence
		best.ParserID = r.ParserID
	}

	return best
}

func (e *Engine) genericExtraction(ctx context.Context, pageURL string) (*ParseResponse, error) {
	html, err := e.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	result := Result{
		PubDate:    e.now(),
		Link:       pageURL,
		Confidence: genericConfidence,
	}

	if m := titleTagRe.FindStringSubmatch(html); m != nil {
		result.Title = strings.TrimSpace(m[1])
	}

	for _, re := range []*regexp.Regexp{firstImgRe, ogImageRe, twImageRe} {
		if m := re.FindStringSubmatch(html); m != nil {
			result.FeatureImage = urls.Resolve(m[1], pageURL)
			break
		}
	}

	if m := articleRe.FindString(html); m != "" {
		result.Content = m
	} else if m := bodyRe.FindStringSubmatch(html); m != nil {
		result.Content = m[1]
	}
	if runes := []rune(result.Content); len(runes) > genericContentLimit {
		result.Content = string(runes[:genericContentLimit]) + "..."
	}

	return &ParseResponse{
		Success: true,
		Data:    result,
		Message: "Generic extraction applied.",
	}, nil
}

func decodeURL(raw string) string {
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
