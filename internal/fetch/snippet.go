package fetch

import (
	"strings"

	"golang.org/x/net/html"
)

const maxSnippetLen = 300

// Snippet derives a plain-text summary from raw item markup: tags are
// stripped, whitespace collapsed, and the result truncated.
func Snippet(markup string) string {
	if markup == "" {
		return ""
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	if len(text) > maxSnippetLen {
		cut := text[:maxSnippetLen]
		if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
			cut = cut[:idx]
		}
		text = cut + "..."
	}
	return text
}
