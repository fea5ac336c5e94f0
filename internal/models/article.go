package models

import (
	"database/sql"
	"time"
)

// Article represents a row in the 'articles' table. Articles are immutable
// once created; they are only inserted or removed via feed cascade.
type Article struct {
	ID          int64          `db:"id" json:"id"`
	FeedID      int64          `db:"feed_id" json:"feed_id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Content     string         `db:"content" json:"content"`
	URL         string         `db:"url" json:"url"`
	ImageURL    sql.NullString `db:"image_url" json:"image_url"`
	PublishedAt time.Time      `db:"published_at" json:"published_at"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`

	// Read-time annotations from the owning feed and the favorites table.
	FeedTitle    string `db:"feed_title" json:"feed_title"`
	FeedCategory string `db:"feed_category" json:"feed_category"`
	IsFavorite   bool   `db:"is_favorite" json:"is_favorite"`
}

// Favorite marks an article as favorited. Presence is the entire state.
type Favorite struct {
	ID        int64     `db:"id" json:"id"`
	ArticleID int64     `db:"article_id" json:"article_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Setting is one row of the process-wide key/value settings map.
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
