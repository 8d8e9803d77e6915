package scraper

import (
	"regexp"
)

const (
	EngineRegex = "regex"
	EngineDOM   = "dom"
)

// SelectorEngine evaluates the selectors of a ScrapingConfig against HTML.
type SelectorEngine interface {
	// Containers returns the outer HTML of every element matching selector.
	Containers(html, selector string) []string
	// Text returns the cleaned text of the first element matching selector.
	Text(html, selector string) string
	// Link returns the first href found through selector.
	Link(html, selector string) string
	// Image returns the first image source found through selector.
	Image(html, selector string) string
}

var (
	hrefRe     = regexp.MustCompile(`(?is)<a[^>]*?\shref=["']([^"']+)["'][^>]*>`)
	imgSrcRe   = regexp.MustCompile(`(?is)<img[^>]*?\s(?:src|data-src)=["']([^"']+)["'][^>]*>`)
	datetimeRe = regexp.MustCompile(`(?i)datetime=["']([^"']+)["']`)
)

// RegexEngine matches selectors with regular expressions derived from them.
// Only simple selectors are understood: .class, #id, tag, tag.class and
// descendant chains, of which the last element is used.
type RegexEngine struct{}

func (RegexEngine) Containers(html, selector string) []string {
	var out []string
	for _, sel := range splitSelectors(selector) {
		last := lastSimple(sel)
		if pattern := openTagPattern(last); pattern != "" {
			if open := compiled(pattern); open != nil {
				out = append(out, balancedElements(html, open)...)
			}
			continue
		}
		if re := compiled(BuildSelectorPattern(last)); re != nil {
			out = append(out, re.FindAllString(html, -1)...)
		}
	}
	return out
}

func (e RegexEngine) Text(html, selector string) string {
	for _, sel := range splitSelectors(selector) {
		for _, element := range e.Containers(html, lastSimple(sel)) {
			if text := StripTags(element); text != "" {
				return text
			}
		}
	}
	return ""
}

func (e RegexEngine) Link(html, selector string) string {
	return e.attribute(html, selector, "a", hrefRe)
}

func (e RegexEngine) Image(html, selector string) string {
	return e.attribute(html, selector, "img", imgSrcRe)
}

// attribute searches the region matched by each selector for attrRe. A
// selector that ends in the attribute's own tag searches the whole fragment.
func (e RegexEngine) attribute(html, selector, tag string, attrRe *regexp.Regexp) string {
	for _, sel := range splitSelectors(selector) {
		last := lastSimple(sel)
		region := html
		if last != tag {
			found := e.Containers(html, last)
			if len(found) == 0 {
				continue
			}
			region = found[0]
		}
		if m := attrRe.FindStringSubmatch(region); m != nil {
			return m[1]
		}
	}
	return ""
}
