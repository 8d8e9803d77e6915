package feed

import (
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// NormalizedItem is the uniform shape produced from any feed family or scraped page.
type NormalizedItem struct {
	Link         string
	Title        string
	Content      string
	FeatureImage string
	PubDate      time.Time // zero when the source carried no usable date
	Category     string
	Tags         []string
}

// Document is a decoded feed. XML feeds keep their Value tree; JSON feeds are
// parsed by gofeed.
type Document struct {
	Root  string
	Value Value
	json  *gofeed.Feed
}

// Family detects the feed family from the top-level shape.
func (d *Document) Family() Family {
	if d.json != nil {
		return FamilyJSON
	}
	switch d.Root {
	case "rss":
		if Child(d.Value, "channel") != nil {
			return FamilyRSS
		}
	case "rdf:RDF", "RDF":
		return FamilyRSS
	case "feed":
		return FamilyAtom
	}
	return FamilyUnknown
}

// entries returns the item or entry nodes for the detected family.
func (d *Document) entries() []Value {
	switch d.Family() {
	case FamilyRSS:
		if d.Root == "rss" {
			return Items(Child(Child(d.Value, "channel"), "item"))
		}
		return Items(Child(d.Value, "item"))
	case FamilyAtom:
		return Items(Child(d.Value, "entry"))
	}
	return nil
}

type UnsupportedFormatError struct {
	Root string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Root == "" {
		return "unsupported feed format"
	}
	return fmt.Sprintf("unsupported feed format: root element <%s>", e.Root)
}
