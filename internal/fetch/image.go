package fetch

import (
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

// imgSrcPattern matches the src attribute of the first inline image tag in
// raw item markup.
var imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)

// extractImageURL resolves an item's lead image in strict priority order:
// an explicit thumbnail reference, a media content reference with an image
// MIME type, an image enclosure, and finally the first inline image found
// in the item markup. Returns "" when no candidate is found.
func extractImageURL(item *gofeed.Item) string {
	if url := mediaThumbnail(item); url != "" {
		return url
	}
	if url := mediaContentImage(item); url != "" {
		return url
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if m := imgSrcPattern.FindStringSubmatch(item.Content); m != nil {
		return m[1]
	}
	if m := imgSrcPattern.FindStringSubmatch(item.Description); m != nil {
		return m[1]
	}
	return ""
}

func mediaThumbnail(item *gofeed.Item) string {
	for _, ext := range item.Extensions["media"]["thumbnail"] {
		if url := ext.Attrs["url"]; url != "" {
			return url
		}
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	return ""
}

func mediaContentImage(item *gofeed.Item) string {
	for _, ext := range item.Extensions["media"]["content"] {
		if !strings.HasPrefix(ext.Attrs["type"], "image/") {
			continue
		}
		if url := ext.Attrs["url"]; url != "" {
			return url
		}
	}
	return ""
}
