package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedbox/reader/internal/models"
)

const articleColumns = `
	a.id, a.feed_id, a.title, a.description, a.content, a.url, a.image_url,
	a.published_at, a.created_at,
	f.title AS feed_title, f.category AS feed_category,
	CASE WHEN fav.article_id IS NOT NULL THEN 1 ELSE 0 END AS is_favorite`

const articleJoins = `
	FROM articles a
	JOIN feeds f ON a.feed_id = f.id
	LEFT JOIN favorites fav ON a.id = fav.article_id`

// dedupKey is the article identity within a feed. Items without a permalink
// fall back to a hash of their content so that distinct URL-less items do
// not collapse onto a single row.
func dedupKey(a NewArticle) string {
	if a.URL != "" {
		return a.URL
	}
	sum := sha256.Sum256([]byte(a.Title + "\x00" + a.Content))
	return "hash:" + hex.EncodeToString(sum[:])
}

// InsertArticleIfAbsent inserts the article unless its (feed, identity) pair
// already exists. Reports whether a row was newly inserted; a duplicate is a
// silent no-op, not an error.
func (s *SQLStore) InsertArticleIfAbsent(ctx context.Context, a NewArticle) (bool, error) {
	published := a.PublishedAt
	if published.IsZero() {
		published = time.Now()
	}

	var imageURL sql.NullString
	if a.ImageURL != "" {
		imageURL = sql.NullString{String: a.ImageURL, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (feed_id, title, description, content, url, dedup_key, image_url, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_id, dedup_key) DO NOTHING`,
		a.FeedID, a.Title, a.Description, a.Content, a.URL, dedupKey(a),
		imageURL, published, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to insert article %q: %w", a.URL, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for article %q: %w", a.URL, err)
	}
	return n > 0, nil
}

// ListArticles returns articles newest first, each annotated with the owning
// feed's title/category and a favorite flag. Optional feed and category
// filters narrow the result; cursor fields page it.
func (s *SQLStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]models.Article, error) {
	conditions := []string{}
	args := []any{}

	if filter.FeedID != nil {
		conditions = append(conditions, "a.feed_id = ?")
		args = append(args, *filter.FeedID)
	}
	if filter.Category != nil {
		conditions = append(conditions, "f.category = ?")
		args = append(args, *filter.Category)
	}
	if filter.CursorPublishedAt != nil && filter.CursorID != nil {
		conditions = append(conditions, "(a.published_at < ? OR (a.published_at = ? AND a.id < ?))")
		args = append(args, *filter.CursorPublishedAt, *filter.CursorPublishedAt, *filter.CursorID)
	}

	query := "SELECT " + articleColumns + articleJoins
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.published_at DESC, a.created_at DESC, a.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	articles := []models.Article{}
	if err := s.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// GetArticle returns one annotated article by id, or ErrNotFound.
func (s *SQLStore) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	var article models.Article
	err := s.db.GetContext(ctx, &article,
		"SELECT "+articleColumns+articleJoins+" WHERE a.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query article %d: %w", id, err)
	}
	return &article, nil
}
