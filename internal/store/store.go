// Package store implements the persistence and dedup layer over sqlite.
package store

import (
	"context"
	"errors"
	"time"

	"feedbox/reader/internal/database"
	"feedbox/reader/internal/models"
)

var (
	// ErrFeedExists is returned when creating a feed whose URL is already
	// registered.
	ErrFeedExists = errors.New("feed URL already registered")
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
)

// NewArticle carries the fields of an article insert. The dedup identity is
// derived from URL, falling back to a content hash when the URL is empty.
type NewArticle struct {
	FeedID      int64
	Title       string
	Description string
	Content     string
	URL         string
	ImageURL    string
	PublishedAt time.Time
}

// ArticleFilter narrows and pages an article listing. Nil fields are
// ignored. Cursor fields must be set together.
type ArticleFilter struct {
	FeedID   *int64
	Category *string
	Limit    int

	CursorPublishedAt *time.Time
	CursorID          *int64
}

// Store is the persistence contract the orchestrators and the HTTP surface
// depend on. All write operations are idempotent under repeated calls with
// identical arguments.
type Store interface {
	CreateFeed(ctx context.Context, title, url, category string) (*models.Feed, error)
	GetFeed(ctx context.Context, id int64) (*models.Feed, error)
	ListFeeds(ctx context.Context) ([]models.Feed, error)
	UpdateFeed(ctx context.Context, id int64, upd models.FeedUpdate) error
	DeleteFeed(ctx context.Context, id int64) error
	TouchLastFetched(ctx context.Context, id int64) error

	InsertArticleIfAbsent(ctx context.Context, a NewArticle) (bool, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]models.Article, error)
	GetArticle(ctx context.Context, id int64) (*models.Article, error)

	AddFavorite(ctx context.Context, articleID int64) error
	RemoveFavorite(ctx context.Context, articleID int64) error
	ListFavorites(ctx context.Context) ([]models.Article, error)
	IsFavorite(ctx context.Context, articleID int64) (bool, error)

	ListCategories(ctx context.Context) ([]models.Category, error)

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// SQLStore implements Store using sqlx over the shared sqlite connection.
type SQLStore struct {
	db *database.DB
}

// New creates a store over an existing database connection.
func New(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

var _ Store = (*SQLStore)(nil)
