package store

import (
	"context"
	"fmt"
	"time"

	"feedbox/reader/internal/models"
)

// AddFavorite marks the article as favorited. Favoriting an already
// favorited article is a silent no-op.
func (s *SQLStore) AddFavorite(ctx context.Context, articleID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (article_id, created_at)
		VALUES (?, ?)
		ON CONFLICT(article_id) DO NOTHING`,
		articleID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add favorite for article %d: %w", articleID, err)
	}
	return nil
}

// RemoveFavorite clears the favorite marker. Removing a non-favorited
// article is a silent no-op.
func (s *SQLStore) RemoveFavorite(ctx context.Context, articleID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE article_id = ?", articleID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite for article %d: %w", articleID, err)
	}
	return nil
}

// IsFavorite reports whether the article carries a favorite marker.
func (s *SQLStore) IsFavorite(ctx context.Context, articleID int64) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM favorites WHERE article_id = ?", articleID)
	if err != nil {
		return false, fmt.Errorf("failed to query favorite for article %d: %w", articleID, err)
	}
	return n > 0, nil
}

// ListFavorites returns favorited articles, most recently favorited first.
func (s *SQLStore) ListFavorites(ctx context.Context) ([]models.Article, error) {
	articles := []models.Article{}
	err := s.db.SelectContext(ctx, &articles, `
		SELECT
			a.id, a.feed_id, a.title, a.description, a.content, a.url, a.image_url,
			a.published_at, a.created_at,
			f.title AS feed_title, f.category AS feed_category,
			1 AS is_favorite
		FROM favorites fav
		JOIN articles a ON fav.article_id = a.id
		JOIN feeds f ON a.feed_id = f.id
		ORDER BY fav.created_at DESC, fav.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return articles, nil
}
