package urls

import (
	"net/url"
	"strings"
)

// Resolve makes u absolute against base. A malformed base returns u unchanged.
func Resolve(u, base string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}

	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" || b.Host == "" {
		return u
	}

	if strings.HasPrefix(u, "//") {
		return b.Scheme + ":" + u
	}

	if strings.HasPrefix(u, "/") {
		return b.Scheme + "://" + b.Host + u
	}

	dir := b.Path
	if !strings.HasSuffix(dir, "/") {
		dir = dir[:strings.LastIndex(dir, "/")+1]
	}
	if dir == "" {
		dir = "/"
	}

	return b.Scheme + "://" + b.Host + dir + u
}

// Host returns the host part of raw, or an empty string.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&#039;", "'",
)

// DecodeEntities decodes the entities that commonly leak into attribute URLs.
func DecodeEntities(s string) string {
	return entityReplacer.Replace(s)
}
