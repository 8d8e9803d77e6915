package scraper

import (
	"regexp"
	"strings"
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	anyTagRe      = regexp.MustCompile(`<[^>]+>`)
	spaceRunRe    = regexp.MustCompile(`\s+`)

	textEntities = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// StripTags removes scripts, styles and markup, decodes common entities and
// collapses whitespace.
func StripTags(html string) string {
	text := scriptBlockRe.ReplaceAllString(html, "")
	text = styleBlockRe.ReplaceAllString(text, "")
	text = anyTagRe.ReplaceAllString(text, "")
	text = textEntities.Replace(text)
	return CleanText(text)
}

// CleanText collapses whitespace runs into single spaces.
func CleanText(s string) string {
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}

// asciiLower lowercases ASCII letters only, keeping byte offsets aligned with s.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
