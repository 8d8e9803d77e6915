package scraper

import (
	"regexp"
	"strings"
	"sync"
)

var (
	tagNameRe      = regexp.MustCompile(`(?i)^[a-z][a-z0-9-]*$`)
	tagWithClassRe = regexp.MustCompile(`(?i)^([a-z][a-z0-9-]*)\.([\w-]+)$`)
)

// BuildSelectorPattern converts one simple CSS-like selector into a regex
// pattern matching the whole element.
func BuildSelectorPattern(selector string) string {
	selector = strings.TrimSpace(selector)

	switch {
	case strings.HasPrefix(selector, "."):
		return attrPattern("class", selector[1:])
	case strings.HasPrefix(selector, "#"):
		return attrPattern("id", selector[1:])
	case tagNameRe.MatchString(selector):
		return `<` + selector + `(?:\s[^>]*)?>.*?</` + selector + `>`
	}

	if m := tagWithClassRe.FindStringSubmatch(selector); m != nil {
		return `<` + m[1] + `\s[^>]*class=["'][^"']*` + fuzzyName(m[2]) + `[^"']*["'][^>]*>.*?</` + m[1] + `>`
	}

	return regexp.QuoteMeta(selector)
}

func attrPattern(attr, name string) string {
	return `<[^>]*` + attr + `=["'][^"']*` + fuzzyName(name) + `[^"']*["'][^>]*>.*?</[^>]+>`
}

// fuzzyName lets dashes in class and id names match dash, underscore or nothing.
func fuzzyName(name string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(name), "-", "[-_]?")
}

// splitSelectors splits a selector list on commas.
func splitSelectors(selector string) []string {
	var parts []string
	for _, p := range strings.Split(selector, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// lastSimple returns the last simple selector of a descendant chain ("h3 a" -> "a").
func lastSimple(selector string) string {
	fields := strings.Fields(selector)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// openTagPattern matches the opening tag of selector, capturing the tag name.
// It returns an empty pattern for selectors it does not understand.
func openTagPattern(selector string) string {
	switch {
	case strings.HasPrefix(selector, "."):
		return `<([a-z][a-z0-9-]*)\b[^>]*\sclass=["'][^"']*` + fuzzyName(selector[1:]) + `[^"']*["'][^>]*>`
	case strings.HasPrefix(selector, "#"):
		return `<([a-z][a-z0-9-]*)\b[^>]*\sid=["'][^"']*` + fuzzyName(selector[1:]) + `[^"']*["'][^>]*>`
	case tagNameRe.MatchString(selector):
		return `<(` + selector + `)\b[^>]*>`
	}

	if m := tagWithClassRe.FindStringSubmatch(selector); m != nil {
		return `<(` + m[1] + `)\b[^>]*\sclass=["'][^"']*` + fuzzyName(m[2]) + `[^"']*["'][^>]*>`
	}

	return ""
}

var voidElements = map[string]bool{
	"area": true, "br": true, "hr": true, "img": true, "input": true,
	"link": true, "meta": true, "source": true, "wbr": true,
}

// balancedElements returns the outer HTML of every element whose opening tag
// matches open, closing it at the matching end tag of the same name.
func balancedElements(html string, open *regexp.Regexp) []string {
	lower := asciiLower(html)

	var out []string
	for _, loc := range open.FindAllStringSubmatchIndex(html, -1) {
		tag := lower[loc[2]:loc[3]]
		if voidElements[tag] || strings.HasSuffix(html[loc[0]:loc[1]], "/>") {
			out = append(out, html[loc[0]:loc[1]])
			continue
		}
		if end := closingIndex(lower, tag, loc[1]); end > 0 {
			out = append(out, html[loc[0]:end])
		}
	}
	return out
}

// closingIndex returns the offset just past the end tag closing tag, or -1.
func closingIndex(lower, tag string, from int) int {
	depth := 0
	for i := from; i < len(lower); i++ {
		if lower[i] != '<' {
			continue
		}
		rest := lower[i+1:]
		closing := strings.HasPrefix(rest, "/")
		if closing {
			rest = rest[1:]
		}
		if !strings.HasPrefix(rest, tag) || len(rest) == len(tag) || isNameChar(rest[len(tag)]) {
			continue
		}
		if !closing {
			depth++
			continue
		}
		if depth == 0 {
			if end := strings.IndexByte(lower[i:], '>'); end >= 0 {
				return i + end + 1
			}
			return -1
		}
		depth--
	}
	return -1
}

func isNameChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '-' || b == ':'
}

var patternCache sync.Map

// compiled returns the case-insensitive, dot-all compiled form of pattern.
func compiled(pattern string) *regexp.Regexp {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	re, err := regexp.Compile(`(?is)` + pattern)
	if err != nil {
		return nil
	}
	patternCache.Store(pattern, re)
	return re
}
