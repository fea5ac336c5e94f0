// Package fetch retrieves remote RSS/Atom documents and normalizes their
// items into canonical article candidates.
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
)

const (
	defaultUserAgent = "feedbox-reader/1.0"
	defaultTimeout   = 10 * time.Second

	// UntitledItem is substituted when an item carries no title at all.
	UntitledItem = "Untitled"
	// UntitledFeed is substituted when the feed document carries no title.
	UntitledFeed = "Untitled Feed"
)

// Candidate is one article shape freshly parsed from a remote document,
// prior to dedup-insert. PublishedAt is never zero.
type Candidate struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Result holds the feed-level metadata and the finite candidate batch
// produced by one fetch.
type Result struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Articles    []Candidate `json:"articles"`
}

// Config holds fetcher settings.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher fetches and normalizes remote feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

// New creates a Fetcher with a bounded-timeout HTTP client and an
// identifying User-Agent header.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	parser := gofeed.NewParser()
	parser.UserAgent = cfg.UserAgent
	parser.Client = &http.Client{Timeout: cfg.Timeout}

	return &Fetcher{parser: parser}
}

// Fetch retrieves the feed document at url and returns its normalized
// contents. Any network, TLS, timeout or parse failure aborts the whole
// fetch and is returned as a classified *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		ferr := Classify(err)
		log.Debug().
			Err(err).
			Str("url", url).
			Str("category", string(ferr.Category)).
			Msg("Feed fetch failed")
		return nil, ferr
	}

	result := &Result{
		Title:       parsed.Title,
		Description: parsed.Description,
		Articles:    make([]Candidate, 0, len(parsed.Items)),
	}
	if result.Title == "" {
		result.Title = UntitledFeed
	}

	now := time.Now()
	for _, item := range parsed.Items {
		result.Articles = append(result.Articles, normalizeItem(item, now))
	}

	log.Debug().
		Str("url", url).
		Str("title", result.Title).
		Int("items", len(result.Articles)).
		Msg("Feed fetched")
	return result, nil
}

// normalizeItem applies the per-field fallback rules, first match wins.
func normalizeItem(item *gofeed.Item, fetchedAt time.Time) Candidate {
	c := Candidate{
		Title:       item.Title,
		Description: item.Description,
		Content:     item.Content,
		URL:         item.Link,
		ImageURL:    extractImageURL(item),
		PublishedAt: fetchedAt,
	}

	if c.Title == "" {
		c.Title = UntitledItem
	}
	if c.Content == "" {
		c.Content = item.Description
	}
	if c.Description == "" {
		c.Description = Snippet(item.Content)
	}
	if item.PublishedParsed != nil {
		c.PublishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		c.PublishedAt = *item.UpdatedParsed
	}

	return c
}
