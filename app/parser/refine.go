package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lysyi3m/news-harvest/app/database"
)

const (
	promptHTMLLimit = 30000
	jsonObjectRegex = `\{[\s\S]*\}`
)

var (
	ErrNoJSON = errors.New("no JSON found in AI response")

	fixedTags = []string{"div", "p", "span", "h1", "h2", "h3", "h4", "h5", "h6", "a", "img", "ul", "ol", "li", "article", "section", "main", "header", "footer"}

	partialClosingRes = func() []*regexp.Regexp {
		res := make([]*regexp.Regexp, len(fixedTags))
		for i, tag := range fixedTags {
			res[i] = regexp.MustCompile(`</` + tag + `([^>])`)
		}
		return res
	}()

	contentClassRe = regexp.MustCompile(`<([a-zA-Z0-9]+)\s+class="([^"]+)"`)
	contentIDRe    = regexp.MustCompile(`<([a-zA-Z0-9]+)\s+id="([^"]+)"`)
	openTagRe      = regexp.MustCompile(`<([a-zA-Z0-9]+)(?:[\s>]|\\s)`)
	attrTagRe      = regexp.MustCompile(`<([a-zA-Z0-9]+)\s+[^>]*?([a-zA-Z0-9\-]+)="[^"]*"[^>]*>`)
)

// FixRegexPattern repairs common defects of model-suggested patterns:
// unescaped closing tags, over-specific attributes and, for content,
// a missing closing tag.
func FixRegexPattern(regex, field string) string {
	if regex == "" {
		return regex
	}

	fixed := regex
	for i, tag := range fixedTags {
		fixed = strings.ReplaceAll(fixed, "</"+tag+">", `<\/`+tag+">")
		fixed = partialClosingRes[i].ReplaceAllString(fixed, `<\/`+tag+"${1}")
	}

	if field != database.FieldContent {
		return attrTagRe.ReplaceAllString(fixed, "<${1} .*?>")
	}

	fixed = replaceFirst(contentClassRe, fixed, `<${1}\s+class="[^"]*${2}[^"]*"`)
	fixed = replaceFirst(contentIDRe, fixed, `<${1}\s+id="${2}"`)

	if !strings.Contains(fixed, `<\/`) {
		if m := openTagRe.FindStringSubmatch(fixed); m != nil {
			if !strings.Contains(fixed, `<\/`+m[1]) {
				fixed += `(?:.|\s)*?<\/` + m[1] + ">"
			}
		}
	}

	return fixed
}

func replaceFirst(re *regexp.Regexp, s, template string) string {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	expanded := re.ExpandString(nil, template, s, loc)
	return s[:loc[0]] + string(expanded) + s[loc[1]:]
}

// RefineWithAI asks the model for better patterns for every unlocked field
// of def. Locked fields are returned untouched.
func (e *Engine) RefineWithAI(ctx context.Context, pageURL string, def *database.Parser) (*database.Parser, error) {
	pageURL = decodeURL(pageURL)

	html, err := e.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	prompt, unlocked := buildRefinePrompt(html, def)
	if len(unlocked) == 0 {
		slog.Debug("All fields are locked, no refinement needed", "parser", def.ID)
		return def, nil
	}

	var suggestions map[string]*FieldAnalysis
	if err := e.generateJSON(ctx, prompt, &suggestions); err != nil {
		return nil, err
	}

	refined := def.Clone()
	for _, field := range unlocked {
		s, ok := suggestions[field]
		if !ok || s == nil || strings.TrimSpace(s.Regex) == "" {
			continue
		}
		refined.SetField(field, &database.FieldRule{
			Regex:  FixRegexPattern(s.Regex, field),
			Locked: false,
		})
	}

	return refined, nil
}

// AnalyzeURL asks the model to extract every field of the page at pageURL
// together with a pattern for similar pages.
func (e *Engine) AnalyzeURL(ctx context.Context, pageURL string) (*URLAnalysis, error) {
	pageURL = decodeURL(pageURL)

	html, err := e.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var analysis URLAnalysis
	if err := e.generateJSON(ctx, fmt.Sprintf(analyzePrompt, truncateHTML(html)), &analysis); err != nil {
		return nil, err
	}
	analysis.URL = pageURL

	fields := map[string]*FieldAnalysis{
		database.FieldTitle:        analysis.Title,
		database.FieldContent:      analysis.Content,
		database.FieldCategory:     analysis.Category,
		database.FieldFeatureImage: analysis.FeaturedImage,
		database.FieldTags:         analysis.Tags,
	}
	for field, f := range fields {
		if f != nil && f.Regex != "" {
			f.Regex = FixRegexPattern(f.Regex, field)
		}
	}

	return &analysis, nil
}

func (e *Engine) generateJSON(ctx context.Context, prompt string, v any) error {
	text, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return err
	}

	m := e.sandbox.Run(ctx, text, jsonObjectRegex, "")
	if m == nil {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(m[0]), v); err != nil {
		return fmt.Errorf("failed to decode AI response: %w", err)
	}
	return nil
}

func unlockedFields(def *database.Parser) []string {
	var fields []string
	for _, name := range database.ParserFields {
		if rule := def.Field(name); rule != nil && !rule.Locked {
			fields = append(fields, name)
		}
	}
	return fields
}

func buildRefinePrompt(html string, def *database.Parser) (string, []string) {
	unlocked := unlockedFields(def)

	var locked strings.Builder
	for _, name := range database.ParserFields {
		if rule := def.Field(name); rule != nil && rule.Locked {
			fmt.Fprintf(&locked, "- %s: %s\n", name, rule.Regex)
		}
	}

	return fmt.Sprintf(refinePrompt, locked.String(), strings.Join(unlocked, ", "), truncateHTML(html)), unlocked
}

func truncateHTML(html string) string {
	if runes := []rune(html); len(runes) > promptHTMLLimit {
		return string(runes[:promptHTMLLimit]) + "..."
	}
	return html
}

const refinePrompt = `
You are an expert in HTML parsing and creating precise regular expressions.
Your task is to refine an existing set of regex patterns to better extract structured content from a web page.

**INSTRUCTIONS:**
1.  Analyze the provided HTML.
2.  You have been given a set of existing regex patterns. Some are "locked" and **MUST NOT BE CHANGED**.
3.  You **MUST** generate new, improved regex patterns ONLY for the "unlocked" fields listed below.
4.  For each unlocked field, provide the new regex, the extracted value, and a confidence score (high, medium, or low).
5.  Always escape forward slashes in closing HTML tags (e.g., <\/div>).
6.  Return your response as a JSON object containing ONLY the unlocked fields.

**LOCKED FIELDS (DO NOT CHANGE):**
%s
**UNLOCKED FIELDS (IMPROVE THESE):**
%s

**EXPECTED JSON OUTPUT FORMAT (only include unlocked fields):**
{
  "fieldName": {
    "value": "The extracted content for the unlocked field",
    "regex": "The new, improved regular expression",
    "confidence": "high|medium|low"
  }
}

**HTML to analyze:**
%s
`

const analyzePrompt = `
You are an expert in HTML parsing and extracting structured content from web pages.

Analyze the following HTML page and extract key information that would be needed for a feed/blog system.

IMPORTANT GUIDELINES:
1. For the title, prioritize extracting the main visible heading (h1) that would be seen by users over meta tags. Look for the actual article title, not site titles.
2. For content, extract the FULL article body content, not short meta descriptions or structured data. Look for the complete text within <article>, <main>, or content div containers.
3. For category, try to determine from visible UI elements like breadcrumbs or category labels, not hidden metadata.
4. For featured image, look for the main article image, not icons or logos.
5. For tags, look for tag elements, keywords, or related topics shown in the page.

IMPORTANT REGEX GUIDELINES:
1. Make your regex patterns generalizable but still precise enough to capture only relevant content.
2. For HTML tags, keep important attributes that identify the content, especially for the article body content.
3. Always escape forward slashes in closing HTML tags with a backslash, like <\/tag> NOT </tag>.
4. For the content section, identify specific container elements with distinct classes or IDs that uniquely identify the article content.
5. Include both opening and closing tags in your content regex to capture the complete article.
6. Use non-greedy operators (.*?) to avoid capturing too much content.
7. Use only RE2 syntax: no lookahead, lookbehind or backreferences.

For each field, provide:
- The extracted content
- A regular expression pattern that would reliably extract this information from similar pages on this site
- A confidence level (high, medium, or low) for your extraction

Return your analysis as a JSON object with the following format:
{
  "title": {"value": "The extracted title", "regex": "...", "confidence": "high|medium|low"},
  "content": {"value": "The first ~1000 characters of the article body", "regex": "...", "confidence": "high|medium|low"},
  "category": {"value": "The extracted category", "regex": "...", "confidence": "high|medium|low"},
  "featuredImage": {"value": "URL of the featured image", "regex": "...", "confidence": "high|medium|low"},
  "tags": {"value": ["tag1", "tag2"], "regex": "...", "confidence": "high|medium|low"}
}

HTML to analyze:
%s
`
