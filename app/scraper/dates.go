package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	relativeRe  = regexp.MustCompile(`(?i)(\d{1,2})\s+(minutos?|minutes?|horas?|hours?|dias?|days?)\s+(?:atr[áa]s|ago)`)
	dayMonthRe  = regexp.MustCompile(`(?i)(\d{1,2})\s+(?:de\s+)?([\p{L}]+)\.?\s+(?:de\s+)?(\d{4})`)
	monthByName = map[string]time.Month{
		"jan": time.January, "fev": time.February, "feb": time.February,
		"mar": time.March, "abr": time.April, "apr": time.April,
		"mai": time.May, "may": time.May, "jun": time.June,
		"jul": time.July, "ago": time.August, "aug": time.August,
		"set": time.September, "sep": time.September,
		"out": time.October, "oct": time.October,
		"nov": time.November, "dez": time.December, "dec": time.December,
	}
)

// ParseDate interprets a listing date. It understands relative phrases
// ("3 horas atrás", "2 days ago"), anything dateparse recognises and
// "31 de outubro de 2025" style dates. Unparseable input yields the zero time.
func ParseDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	if t, ok := relativeDate(s, now); ok {
		return t
	}

	if strings.Contains(strings.ToLower(s), " de ") {
		if t, ok := dayMonthDate(s); ok {
			return t
		}
	}

	if t, err := dateparse.ParseAny(s); err == nil {
		return t
	}

	t, _ := dayMonthDate(s)
	return t
}

func dayMonthDate(s string) (time.Time, bool) {
	m := dayMonthRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	name := []rune(strings.ToLower(m[2]))
	if len(name) < 3 {
		return time.Time{}, false
	}
	month, ok := monthByName[string(name[:3])]
	if !ok {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

func relativeDate(s string, now time.Time) (time.Time, bool) {
	m := relativeRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	n, _ := strconv.Atoi(m[1])
	unit := strings.ToLower(m[2])

	switch {
	case strings.HasPrefix(unit, "min"):
		return now.Add(-time.Duration(n) * time.Minute), true
	case strings.HasPrefix(unit, "hora"), strings.HasPrefix(unit, "hour"):
		return now.Add(-time.Duration(n) * time.Hour), true
	default:
		return now.AddDate(0, 0, -n), true
	}
}
