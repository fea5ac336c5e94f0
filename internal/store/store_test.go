package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedbox/reader/internal/database"
	"feedbox/reader/internal/models"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(":memory:"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func mustCreateFeed(t *testing.T, s *SQLStore, title, url, category string) *models.Feed {
	t.Helper()
	feed, err := s.CreateFeed(context.Background(), title, url, category)
	if err != nil {
		t.Fatalf("CreateFeed(%q) failed: %v", url, err)
	}
	return feed
}

func article(feedID int64, title, url string, published time.Time) NewArticle {
	return NewArticle{
		FeedID:      feedID,
		Title:       title,
		Description: "desc of " + title,
		Content:     "content of " + title,
		URL:         url,
		PublishedAt: published,
	}
}

func TestCreateFeedDuplicateURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := mustCreateFeed(t, s, "First", "https://example.com/feed.xml", "Tech")

	_, err := s.CreateFeed(ctx, "Second", "https://example.com/feed.xml", "News")
	if !errors.Is(err, ErrFeedExists) {
		t.Fatalf("second create returned %v, want ErrFeedExists", err)
	}

	// First feed unaffected.
	got, err := s.GetFeed(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetFeed() failed: %v", err)
	}
	if got.Title != "First" || got.Category != "Tech" {
		t.Errorf("first feed mutated: %+v", got)
	}
}

func TestCreateFeedDefaultCategory(t *testing.T) {
	s := newTestStore(t)
	feed := mustCreateFeed(t, s, "t", "https://example.com/f", "")
	if feed.Category != models.DefaultCategory {
		t.Errorf("category = %q, want %q", feed.Category, models.DefaultCategory)
	}
}

func TestInsertArticleIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, s, "t", "https://example.com/f", "")

	a := article(feed.ID, "one", "https://example.com/1", time.Now())

	inserted, err := s.InsertArticleIfAbsent(ctx, a)
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if !inserted {
		t.Error("first insert reported not inserted")
	}

	inserted, err = s.InsertArticleIfAbsent(ctx, a)
	if err != nil {
		t.Fatalf("second insert errored: %v", err)
	}
	if inserted {
		t.Error("second insert reported newly inserted")
	}

	articles, err := s.ListArticles(ctx, ArticleFilter{FeedID: &feed.ID})
	if err != nil {
		t.Fatalf("ListArticles() failed: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("got %d rows, want exactly 1", len(articles))
	}
}

func TestInsertArticleEmptyURLHashIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, s, "t", "https://example.com/f", "")

	a := article(feed.ID, "alpha", "", time.Now())
	b := article(feed.ID, "beta", "", time.Now())

	if inserted, err := s.InsertArticleIfAbsent(ctx, a); err != nil || !inserted {
		t.Fatalf("insert a = (%v, %v), want inserted", inserted, err)
	}
	// A distinct URL-less item must not collide with the first.
	if inserted, err := s.InsertArticleIfAbsent(ctx, b); err != nil || !inserted {
		t.Fatalf("insert b = (%v, %v), want inserted", inserted, err)
	}
	// The same URL-less item again is still a duplicate.
	if inserted, err := s.InsertArticleIfAbsent(ctx, a); err != nil || inserted {
		t.Fatalf("re-insert a = (%v, %v), want duplicate no-op", inserted, err)
	}

	articles, err := s.ListArticles(ctx, ArticleFilter{FeedID: &feed.ID})
	if err != nil {
		t.Fatalf("ListArticles() failed: %v", err)
	}
	if len(articles) != 2 {
		t.Errorf("got %d rows, want 2", len(articles))
	}
}

func TestListArticlesOrderingAndAnnotations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, s, "Tech Blog", "https://example.com/f", "Tech")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"oldest", "middle", "newest"} {
		a := article(feed.ID, title, "https://example.com/"+title, base.Add(time.Duration(i)*time.Hour))
		if _, err := s.InsertArticleIfAbsent(ctx, a); err != nil {
			t.Fatalf("insert %q failed: %v", title, err)
		}
	}

	articles, err := s.ListArticles(ctx, ArticleFilter{})
	if err != nil {
		t.Fatalf("ListArticles() failed: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("got %d articles, want 3", len(articles))
	}
	if articles[0].Title != "newest" || articles[2].Title != "oldest" {
		t.Errorf("ordering wrong: %q ... %q", articles[0].Title, articles[2].Title)
	}
	if articles[0].FeedTitle != "Tech Blog" || articles[0].FeedCategory != "Tech" {
		t.Errorf("annotations missing: %+v", articles[0])
	}
	if articles[0].IsFavorite {
		t.Error("unfavorited article annotated as favorite")
	}

	if err := s.AddFavorite(ctx, articles[0].ID); err != nil {
		t.Fatalf("AddFavorite() failed: %v", err)
	}
	articles, err = s.ListArticles(ctx, ArticleFilter{})
	if err != nil {
		t.Fatalf("ListArticles() failed: %v", err)
	}
	if !articles[0].IsFavorite {
		t.Error("favorite flag not annotated")
	}
}

func TestListArticlesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tech := mustCreateFeed(t, s, "a", "https://example.com/a", "Tech")
	news := mustCreateFeed(t, s, "b", "https://example.com/b", "News")

	now := time.Now()
	s.InsertArticleIfAbsent(ctx, article(tech.ID, "t1", "https://example.com/t1", now))
	s.InsertArticleIfAbsent(ctx, article(tech.ID, "t2", "https://example.com/t2", now))
	s.InsertArticleIfAbsent(ctx, article(news.ID, "n1", "https://example.com/n1", now))

	byFeed, err := s.ListArticles(ctx, ArticleFilter{FeedID: &news.ID})
	if err != nil {
		t.Fatalf("ListArticles(feed) failed: %v", err)
	}
	if len(byFeed) != 1 || byFeed[0].Title != "n1" {
		t.Errorf("feed filter returned %+v", byFeed)
	}

	cat := "Tech"
	byCategory, err := s.ListArticles(ctx, ArticleFilter{Category: &cat})
	if err != nil {
		t.Fatalf("ListArticles(category) failed: %v", err)
	}
	if len(byCategory) != 2 {
		t.Errorf("category filter returned %d rows, want 2", len(byCategory))
	}
}

func TestListArticlesCursorPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, s, "t", "https://example.com/f", "")

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		a := article(feed.ID, string(rune('a'+i)), "https://example.com/"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		if _, err := s.InsertArticleIfAbsent(ctx, a); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	page1, err := s.ListArticles(ctx, ArticleFilter{Limit: 2})
	if err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 has %d rows, want 2", len(page1))
	}

	last := page1[len(page1)-1]
	page2, err := s.ListArticles(ctx, ArticleFilter{
		Limit:             10,
		CursorPublishedAt: &last.PublishedAt,
		CursorID:          &last.ID,
	})
	if err != nil {
		t.Fatalf("page 2 failed: %v", err)
	}
	if len(page2) != 3 {
		t.Fatalf("page 2 has %d rows, want 3", len(page2))
	}
	for _, a := range page2 {
		if !a.PublishedAt.Before(last.PublishedAt) {
			t.Errorf("article %q not strictly older than cursor", a.Title)
		}
	}
}

func TestDeleteFeedCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, s, "t", "https://example.com/f", "")

	now := time.Now()
	var ids []int64
	for i := 0; i < 5; i++ {
		a := article(feed.ID, string(rune('a'+i)), "", now)
		a.URL = "" // force hash identity, content differs per title
		if _, err := s.InsertArticleIfAbsent(ctx, a); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	articles, err := s.ListArticles(ctx, ArticleFilter{FeedID: &feed.ID})
	if err != nil {
		t.Fatalf("ListArticles() failed: %v", err)
	}
	if len(articles) != 5 {
		t.Fatalf("got %d articles, want 5", len(articles))
	}
	for _, a := range articles {
		ids = append(ids, a.ID)
	}

	// Favorite two of them.
	if err := s.AddFavorite(ctx, ids[0]); err != nil {
		t.Fatalf("AddFavorite() failed: %v", err)
	}
	if err := s.AddFavorite(ctx, ids[1]); err != nil {
		t.Fatalf("AddFavorite() failed: %v", err)
	}

	if err := s.DeleteFeed(ctx, feed.ID); err != nil {
		t.Fatalf("DeleteFeed() failed: %v", err)
	}

	remaining, err := s.ListArticles(ctx, ArticleFilter{})
	if err != nil {
		t.Fatalf("ListArticles() failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d articles survived cascade", len(remaining))
	}

	favorites, err := s.ListFavorites(ctx)
	if err != nil {
		t.Fatalf("ListFavorites() failed: %v", err)
	}
	if len(favorites) != 0 {
		t.Errorf("%d favorites survived cascade", len(favorites))
	}
}

func TestFavoritesIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, s, "t", "https://example.com/f", "")
	s.InsertArticleIfAbsent(ctx, article(feed.ID, "a", "https://example.com/a", time.Now()))

	articles, _ := s.ListArticles(ctx, ArticleFilter{})
	id := articles[0].ID

	if err := s.AddFavorite(ctx, id); err != nil {
		t.Fatalf("AddFavorite() failed: %v", err)
	}
	// Favoriting again is a silent no-op.
	if err := s.AddFavorite(ctx, id); err != nil {
		t.Fatalf("second AddFavorite() errored: %v", err)
	}

	fav, err := s.IsFavorite(ctx, id)
	if err != nil || !fav {
		t.Fatalf("IsFavorite() = (%v, %v), want true", fav, err)
	}

	favorites, _ := s.ListFavorites(ctx)
	if len(favorites) != 1 {
		t.Errorf("got %d favorites, want 1", len(favorites))
	}

	if err := s.RemoveFavorite(ctx, id); err != nil {
		t.Fatalf("RemoveFavorite() failed: %v", err)
	}
	// Removing again is a silent no-op.
	if err := s.RemoveFavorite(ctx, id); err != nil {
		t.Fatalf("second RemoveFavorite() errored: %v", err)
	}
	if fav, _ := s.IsFavorite(ctx, id); fav {
		t.Error("article still favorited after removal")
	}
}

func TestUpdateFeedPartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, s, "Old Title", "https://example.com/f", "Tech")

	newTitle := "New Title"
	if err := s.UpdateFeed(ctx, feed.ID, models.FeedUpdate{Title: &newTitle}); err != nil {
		t.Fatalf("UpdateFeed() failed: %v", err)
	}

	got, _ := s.GetFeed(ctx, feed.ID)
	if got.Title != "New Title" {
		t.Errorf("title = %q", got.Title)
	}
	if got.URL != feed.URL || got.Category != "Tech" {
		t.Errorf("untouched fields mutated: %+v", got)
	}

	// No-op update with no fields set.
	if err := s.UpdateFeed(ctx, feed.ID, models.FeedUpdate{}); err != nil {
		t.Errorf("empty update errored: %v", err)
	}

	if err := s.UpdateFeed(ctx, 9999, models.FeedUpdate{Title: &newTitle}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of missing feed = %v, want ErrNotFound", err)
	}
}

func TestTouchLastFetched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	feed := mustCreateFeed(t, s, "t", "https://example.com/f", "")

	if feed.LastFetched.Valid {
		t.Fatal("new feed already has last_fetched")
	}
	if err := s.TouchLastFetched(ctx, feed.ID); err != nil {
		t.Fatalf("TouchLastFetched() failed: %v", err)
	}

	got, _ := s.GetFeed(ctx, feed.ID)
	if !got.LastFetched.Valid {
		t.Error("last_fetched not set")
	}
}

func TestListFeedsOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateFeed(t, s, "Zeta", "https://example.com/z", "News")
	mustCreateFeed(t, s, "Alpha", "https://example.com/a", "Tech")
	mustCreateFeed(t, s, "Beta", "https://example.com/b", "News")

	feeds, err := s.ListFeeds(ctx)
	if err != nil {
		t.Fatalf("ListFeeds() failed: %v", err)
	}

	var got []string
	for _, f := range feeds {
		got = append(got, f.Category+"/"+f.Title)
	}
	want := []string{"News/Beta", "News/Zeta", "Tech/Alpha"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ordering = %v, want %v", got, want)
		}
	}
}

func TestListCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateFeed(t, s, "a", "https://example.com/a", "Tech")
	mustCreateFeed(t, s, "b", "https://example.com/b", "Tech")
	mustCreateFeed(t, s, "c", "https://example.com/c", "News")

	categories, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() failed: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(categories))
	}
	if categories[0].Name != "News" || categories[0].Count != 1 {
		t.Errorf("categories[0] = %+v", categories[0])
	}
	if categories[1].Name != "Tech" || categories[1].Count != 2 {
		t.Errorf("categories[1] = %+v", categories[1])
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Seeded by migration.
	theme, err := s.GetSetting(ctx, "theme")
	if err != nil {
		t.Fatalf("GetSetting(theme) failed: %v", err)
	}
	if theme != "light" {
		t.Errorf("default theme = %q, want light", theme)
	}

	if err := s.SetSetting(ctx, "theme", "dark"); err != nil {
		t.Fatalf("SetSetting() failed: %v", err)
	}
	theme, _ = s.GetSetting(ctx, "theme")
	if theme != "dark" {
		t.Errorf("theme after upsert = %q, want dark", theme)
	}

	if _, err := s.GetSetting(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key = %v, want ErrNotFound", err)
	}
}

func TestGetFeedNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetFeed(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFeed(42) = %v, want ErrNotFound", err)
	}
}
