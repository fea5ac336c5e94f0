// Package ingest drives feed ingestion: single-feed addition and bulk
// refresh, with per-step progress reporting.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"feedbox/reader/internal/fetch"
	"feedbox/reader/internal/models"
	"feedbox/reader/internal/store"
)

// defaultFeedTimeout bounds one feed's refresh during a bulk run so a
// single slow feed cannot stall the whole batch indefinitely.
const defaultFeedTimeout = 30 * time.Second

// Fetcher retrieves and normalizes one remote feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Config holds orchestrator settings.
type Config struct {
	// FeedTimeout bounds each feed's fetch-and-import during RefreshAll.
	FeedTimeout time.Duration
}

// Service orchestrates feed ingestion against an injected store and fetcher.
type Service struct {
	store       store.Store
	fetcher     Fetcher
	feedTimeout time.Duration
}

// NewService constructs the ingestion service.
func NewService(st store.Store, f Fetcher, cfg Config) *Service {
	timeout := cfg.FeedTimeout
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}
	return &Service{
		store:       st,
		fetcher:     f,
		feedTimeout: timeout,
	}
}

// Outcome records one feed's result within a bulk refresh.
type Outcome struct {
	FeedID       int64  `json:"feedId"`
	Success      bool   `json:"success"`
	ArticleCount int    `json:"articleCount,omitempty"`
	Error        string `json:"error,omitempty"`
}

// AddFeed validates the feed at url by fetching it, persists the feed record
// and its initial articles, and returns the stored feed. Progress events are
// delivered to progress in order; the terminal event is Completed on success
// or Error with the classified message on failure. The caller-supplied title
// wins over the feed's own title when non-empty.
func (s *Service) AddFeed(ctx context.Context, url, title, category string, progress AddProgressFunc) (*models.Feed, error) {
	emit := progressEmitter(progress)

	emit(AddProgress{Step: StepFetching, Message: "Fetching feed...", Progress: 20})

	result, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		emit(AddProgress{Step: StepError, Message: err.Error(), Progress: 0})
		return nil, err
	}

	actualTitle := title
	if actualTitle == "" {
		actualTitle = result.Title
	}

	emit(AddProgress{Step: StepCreating, Message: "Creating feed...", Progress: 40})

	feed, err := s.store.CreateFeed(ctx, actualTitle, url, category)
	if err != nil {
		emit(AddProgress{Step: StepError, Message: err.Error(), Progress: 0})
		return nil, err
	}

	emit(AddProgress{
		Step:     StepImporting,
		Message:  fmt.Sprintf("Importing articles... (%d items)", len(result.Articles)),
		Progress: 60,
	})

	imported := s.importCandidates(ctx, feed.ID, result.Articles, emit)

	emit(AddProgress{Step: StepFinalizing, Message: "Finalizing...", Progress: 95})

	if err := s.store.TouchLastFetched(ctx, feed.ID); err != nil {
		emit(AddProgress{Step: StepError, Message: err.Error(), Progress: 0})
		return nil, err
	}

	emit(AddProgress{
		Step:     StepCompleted,
		Message:  fmt.Sprintf("Feed added (%d new articles)", imported),
		Progress: 100,
	})

	log.Info().
		Int64("feed_id", feed.ID).
		Str("url", url).
		Int("imported", imported).
		Msg("Feed added")

	return s.store.GetFeed(ctx, feed.ID)
}

// importCandidates inserts each candidate idempotently and returns the count
// of newly inserted rows. Progress scales from 60 to 90 proportional to
// candidates processed, so feedback stays monotonic even when most
// candidates are duplicates.
func (s *Service) importCandidates(ctx context.Context, feedID int64, candidates []fetch.Candidate, emit AddProgressFunc) int {
	imported := 0
	for i, candidate := range candidates {
		inserted, err := s.store.InsertArticleIfAbsent(ctx, store.NewArticle{
			FeedID:      feedID,
			Title:       candidate.Title,
			Description: candidate.Description,
			Content:     candidate.Content,
			URL:         candidate.URL,
			ImageURL:    candidate.ImageURL,
			PublishedAt: candidate.PublishedAt,
		})
		if err != nil {
			log.Warn().
				Err(err).
				Int64("feed_id", feedID).
				Str("url", candidate.URL).
				Msg("Failed to insert article")
			continue
		}
		if inserted {
			imported++
		}

		if emit != nil {
			pct := 60 + float64(i+1)/float64(len(candidates))*30
			emit(AddProgress{
				Step:     StepImporting,
				Message:  fmt.Sprintf("Importing articles... (%d/%d)", i+1, len(candidates)),
				Progress: int(pct + 0.5),
			})
		}
	}
	return imported
}

// RefreshAll refetches every registered feed strictly sequentially. A
// per-feed failure is recorded in that feed's outcome and never aborts the
// batch; the returned outcome list covers every feed in order.
func (s *Service) RefreshAll(ctx context.Context, progress RefreshProgressFunc) ([]Outcome, error) {
	emit := refreshEmitter(progress)

	feeds, err := s.store.ListFeeds(ctx)
	if err != nil {
		emit(RefreshProgress{Step: RefreshError, Message: err.Error(), Progress: 0})
		return nil, err
	}

	total := len(feeds)
	emit(RefreshProgress{
		Step:     RefreshStarting,
		Message:  fmt.Sprintf("Refreshing %d feeds...", total),
		Progress: 0,
		Current:  0,
		Total:    total,
	})

	outcomes := make([]Outcome, 0, total)
	totalNew := 0

	for i, feed := range feeds {
		emit(RefreshProgress{
			Step:     RefreshUpdating,
			Message:  fmt.Sprintf("Updating %q...", feed.Title),
			Progress: int(float64(i)/float64(total)*100 + 0.5),
			Current:  i + 1,
			Total:    total,
		})

		count, err := s.refreshFeed(ctx, feed.ID, feed.URL)
		if err != nil {
			log.Warn().
				Err(err).
				Int64("feed_id", feed.ID).
				Str("url", feed.URL).
				Msg("Feed refresh failed")
			outcomes = append(outcomes, Outcome{FeedID: feed.ID, Success: false, Error: err.Error()})
			continue
		}

		totalNew += count
		outcomes = append(outcomes, Outcome{FeedID: feed.ID, Success: true, ArticleCount: count})
	}

	emit(RefreshProgress{
		Step:     RefreshCompleted,
		Message:  fmt.Sprintf("Refresh complete (%d new articles)", totalNew),
		Progress: 100,
		Current:  total,
		Total:    total,
	})

	log.Info().
		Int("feeds", total).
		Int("new_articles", totalNew).
		Msg("Bulk refresh finished")

	return outcomes, nil
}

// refreshFeed refetches one feed and imports its candidates under a bounded
// per-feed deadline. Returns the count of newly inserted articles.
func (s *Service) refreshFeed(ctx context.Context, feedID int64, url string) (int, error) {
	feedCtx, cancel := context.WithTimeout(ctx, s.feedTimeout)
	defer cancel()

	result, err := s.fetcher.Fetch(feedCtx, url)
	if err != nil {
		return 0, err
	}

	imported := s.importCandidates(feedCtx, feedID, result.Articles, nil)

	if err := s.store.TouchLastFetched(feedCtx, feedID); err != nil {
		return 0, err
	}
	return imported, nil
}

// Preview fetches and normalizes the feed at url without touching the
// store, for preview-before-subscribe use.
func (s *Service) Preview(ctx context.Context, url string) ([]fetch.Candidate, error) {
	result, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return result.Articles, nil
}

func progressEmitter(fn AddProgressFunc) AddProgressFunc {
	if fn == nil {
		return func(AddProgress) {}
	}
	return fn
}

func refreshEmitter(fn RefreshProgressFunc) RefreshProgressFunc {
	if fn == nil {
		return func(RefreshProgress) {}
	}
	return fn
}
