package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Example Tech News</title>
    <description>All the news</description>
    <item>
      <title>First article</title>
      <link>https://example.com/articles/1</link>
      <description>A short summary</description>
      <content:encoded><![CDATA[<p>Full body</p><img src="https://example.com/lead.png">]]></content:encoded>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <guid>bare-item</guid>
    </item>
    <item>
      <title>Third article</title>
      <link>https://example.com/articles/3</link>
      <description>Only a description</description>
    </item>
  </channel>
</rss>`

const untitledRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <description>no title here</description>
    <item><title>a</title><link>https://example.com/a</link></item>
  </channel>
</rss>`

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchNormalizesItems(t *testing.T) {
	srv := feedServer(t, sampleRSS)
	fetcher := New(Config{})

	result, err := fetcher.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if result.Title != "Example Tech News" {
		t.Errorf("feed title = %q", result.Title)
	}
	if result.Description != "All the news" {
		t.Errorf("feed description = %q", result.Description)
	}
	if len(result.Articles) != 3 {
		t.Fatalf("got %d articles, want 3", len(result.Articles))
	}

	first := result.Articles[0]
	if first.Title != "First article" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Description != "A short summary" {
		t.Errorf("description = %q", first.Description)
	}
	if first.URL != "https://example.com/articles/1" {
		t.Errorf("url = %q", first.URL)
	}
	if first.ImageURL != "https://example.com/lead.png" {
		t.Errorf("image url = %q", first.ImageURL)
	}
	want := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Errorf("published at = %v, want %v", first.PublishedAt, want)
	}
}

func TestFetchFallbacksForBareItem(t *testing.T) {
	srv := feedServer(t, sampleRSS)
	fetcher := New(Config{})

	before := time.Now()
	result, err := fetcher.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	bare := result.Articles[1]
	if bare.Title != UntitledItem {
		t.Errorf("title = %q, want %q", bare.Title, UntitledItem)
	}
	if bare.Description != "" || bare.Content != "" || bare.URL != "" || bare.ImageURL != "" {
		t.Errorf("bare item fields not empty: %+v", bare)
	}
	if bare.PublishedAt.Before(before) || bare.PublishedAt.After(time.Now()) {
		t.Errorf("published at %v not defaulted to fetch time", bare.PublishedAt)
	}
}

func TestFetchContentFallsBackToDescription(t *testing.T) {
	srv := feedServer(t, sampleRSS)
	fetcher := New(Config{})

	result, err := fetcher.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	third := result.Articles[2]
	if third.Content != "Only a description" {
		t.Errorf("content = %q, want description fallback", third.Content)
	}
}

func TestFetchUntitledFeed(t *testing.T) {
	srv := feedServer(t, untitledRSS)
	fetcher := New(Config{})

	result, err := fetcher.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if result.Title != UntitledFeed {
		t.Errorf("feed title = %q, want %q", result.Title, UntitledFeed)
	}
}

func TestFetchClassifiesHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	fetcher := New(Config{})
	_, err := fetcher.Fetch(context.Background(), srv.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Fetch() error %v is not a *FetchError", err)
	}
	if fetchErr.Category != CategoryNotFound {
		t.Errorf("category = %s, want %s", fetchErr.Category, CategoryNotFound)
	}
}

func TestFetchClassifiesUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening anymore

	fetcher := New(Config{})
	_, err := fetcher.Fetch(context.Background(), url)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Fetch() error %v is not a *FetchError", err)
	}
	if fetchErr.Category != CategoryHostUnreachable {
		t.Errorf("category = %s, want %s", fetchErr.Category, CategoryHostUnreachable)
	}
}

func TestFetchClassifiesMalformedDocument(t *testing.T) {
	srv := feedServer(t, "this is not a feed at all")

	fetcher := New(Config{})
	_, err := fetcher.Fetch(context.Background(), srv.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Fetch() error %v is not a *FetchError", err)
	}
	if fetchErr.Category != CategoryMalformedFeed {
		t.Errorf("category = %s, want %s", fetchErr.Category, CategoryMalformedFeed)
	}
}

func TestFetchClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	fetcher := New(Config{Timeout: 50 * time.Millisecond})
	_, err := fetcher.Fetch(context.Background(), srv.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Fetch() error %v is not a *FetchError", err)
	}
	if fetchErr.Category != CategoryTimeout {
		t.Errorf("category = %s, want %s", fetchErr.Category, CategoryTimeout)
	}
}
