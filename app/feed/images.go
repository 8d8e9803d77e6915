package feed

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lysyi3m/news-harvest/app/urls"
)

var imageExtRe = regexp.MustCompile(`(?i)\.(?:jpe?g|png|gif|webp|avif)(?:[?#].*)?$`)

// ExtractImage picks the feature image of an item or entry. Priority:
// media:content (largest width, then quality), image enclosure, itunes:image,
// image, thumbnail, media:thumbnail.
func ExtractImage(item Value) string {
	if img := mediaContentImage(Child(item, "media:content")); img != "" {
		return urls.DecodeEntities(img)
	}

	if img := enclosureImage(Child(item, "enclosure")); img != "" {
		return urls.DecodeEntities(img)
	}

	if itunes := Child(item, "itunes:image"); itunes != nil {
		return urls.DecodeEntities(firstNonEmpty(Attr(itunes, "href"), Text(itunes)))
	}

	if image := Child(item, "image"); image != nil {
		return urls.DecodeEntities(firstNonEmpty(Text(Child(image, "url")), Attr(image, "url"), Text(image)))
	}

	for _, name := range []string{"thumbnail", "media:thumbnail"} {
		if thumb := Child(item, name); thumb != nil {
			return urls.DecodeEntities(firstNonEmpty(Attr(thumb, "url"), Text(thumb)))
		}
	}

	return ""
}

// enclosureImage returns the first enclosure typed image/*, or untyped with an
// image file extension.
func enclosureImage(enclosures Value) string {
	for _, enc := range Items(enclosures) {
		img := strings.TrimSpace(Attr(enc, "url"))
		if img == "" {
			continue
		}
		mimeType := Attr(enc, "type")
		if strings.HasPrefix(mimeType, "image/") || (mimeType == "" && imageExtRe.MatchString(img)) {
			return img
		}
	}
	return ""
}

func mediaContentImage(media Value) string {
	switch media.(type) {
	case nil:
		return ""
	case Sequence:
		candidates := make([]Value, 0)
		for _, m := range Items(media) {
			if isImageMedia(m) && Attr(m, "url") != "" {
				candidates = append(candidates, m)
			}
		}
		if len(candidates) == 0 {
			return ""
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			wi, wj := intAttr(candidates[i], "width"), intAttr(candidates[j], "width")
			if wi != wj {
				return wi > wj
			}
			return intAttr(candidates[i], "quality") > intAttr(candidates[j], "quality")
		})
		return Attr(candidates[0], "url")
	default:
		if isImageMedia(media) {
			return Attr(media, "url")
		}
		return ""
	}
}

// isImageMedia accepts image MIME types, and untyped entries unless their
// medium says otherwise.
func isImageMedia(m Value) bool {
	mimeType := Attr(m, "type")
	if mimeType != "" {
		return strings.HasPrefix(mimeType, "image/")
	}
	medium := Attr(m, "medium")
	return medium == "" || medium == "image"
}

func intAttr(v Value, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(Attr(v, name)))
	if err != nil {
		return 0
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
