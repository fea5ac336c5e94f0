package models

import (
	"database/sql"
	"time"
)

// DefaultCategory is assigned to feeds created without an explicit category.
const DefaultCategory = "General"

// Feed represents a row in the 'feeds' table
type Feed struct {
	ID          int64        `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	URL         string       `db:"url" json:"url"`
	Category    string       `db:"category" json:"category"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
	LastFetched sql.NullTime `db:"last_fetched" json:"last_fetched"`
}

// NewFeed creates a new Feed with default values
func NewFeed(title, url, category string) *Feed {
	if category == "" {
		category = DefaultCategory
	}
	now := time.Now()
	return &Feed{
		Title:     title,
		URL:       url,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FeedUpdate carries the partial fields of a feed update. Nil fields are
// left untouched.
type FeedUpdate struct {
	Title    *string `json:"title,omitempty"`
	URL      *string `json:"url,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Category is derived at read time as a grouping over Feed.Category values;
// it is not a stored entity.
type Category struct {
	Name  string `db:"name" json:"name"`
	Count int    `db:"count" json:"count"`
}
