package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"feedbox/reader/internal/models"
)

// CreateFeed persists a new feed. The URL uniqueness constraint is the sole
// cross-invocation coordination point: a second create with the same URL
// fails with ErrFeedExists and leaves the first row untouched.
func (s *SQLStore) CreateFeed(ctx context.Context, title, url, category string) (*models.Feed, error) {
	feed := models.NewFeed(title, url, category)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (title, url, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		feed.Title, feed.URL, feed.Category, feed.CreatedAt, feed.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrFeedExists
		}
		return nil, fmt.Errorf("failed to insert feed: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted feed id: %w", err)
	}
	feed.ID = id
	return feed, nil
}

// GetFeed returns the feed with the given id, or ErrNotFound.
func (s *SQLStore) GetFeed(ctx context.Context, id int64) (*models.Feed, error) {
	var feed models.Feed
	err := s.db.GetContext(ctx, &feed, `
		SELECT id, title, url, category, created_at, updated_at, last_fetched
		FROM feeds WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query feed %d: %w", id, err)
	}
	return &feed, nil
}

// ListFeeds returns all feeds ordered by category then title.
func (s *SQLStore) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	feeds := []models.Feed{}
	err := s.db.SelectContext(ctx, &feeds, `
		SELECT id, title, url, category, created_at, updated_at, last_fetched
		FROM feeds ORDER BY category, title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	return feeds, nil
}

// UpdateFeed applies the non-nil fields of upd to the feed row.
func (s *SQLStore) UpdateFeed(ctx context.Context, id int64, upd models.FeedUpdate) error {
	fields := []string{}
	args := []any{}

	if upd.Title != nil {
		fields = append(fields, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.URL != nil {
		fields = append(fields, "url = ?")
		args = append(args, *upd.URL)
	}
	if upd.Category != nil {
		fields = append(fields, "category = ?")
		args = append(args, *upd.Category)
	}
	if len(fields) == 0 {
		return nil
	}

	fields = append(fields, "updated_at = ?")
	args = append(args, time.Now(), id)

	query := fmt.Sprintf("UPDATE feeds SET %s WHERE id = ?", strings.Join(fields, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrFeedExists
		}
		return fmt.Errorf("failed to update feed %d: %w", id, err)
	}
	return requireRow(res, id)
}

// DeleteFeed removes the feed row; the schema cascades the delete to the
// feed's articles and their favorites.
func (s *SQLStore) DeleteFeed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM feeds WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete feed %d: %w", id, err)
	}
	return requireRow(res, id)
}

// TouchLastFetched records a successful fetch on the feed row.
func (s *SQLStore) TouchLastFetched(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE feeds SET last_fetched = ?, updated_at = ? WHERE id = ?`,
		time.Now(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to touch last_fetched for feed %d: %w", id, err)
	}
	return requireRow(res, id)
}

// ListCategories derives the category grouping and per-category feed count.
func (s *SQLStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories, `
		SELECT category AS name, COUNT(*) AS count
		FROM feeds GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
