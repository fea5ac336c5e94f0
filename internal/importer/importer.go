// Package importer bulk-subscribes feeds from a CSV file by driving the
// same add-feed flow used for interactive subscription.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"feedbox/reader/internal/ingest"
)

// Importer reads subscription rows and feeds them to the ingestion service.
type Importer struct {
	ingest *ingest.Service
}

// New creates a new feed importer
func New(svc *ingest.Service) *Importer {
	return &Importer{ingest: svc}
}

// ImportFeeds subscribes to every feed listed in the CSV file at csvPath.
// The file must carry a 'url' column; 'title' and 'category' are optional.
// A failing row is recorded and skipped, never aborting the run.
func (i *Importer) ImportFeeds(ctx context.Context, csvPath string) error {
	log.Info().Str("csv", csvPath).Msg("Starting feed import")

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	if err := i.parseAndImportFeeds(ctx, f); err != nil {
		return fmt.Errorf("failed to import feeds: %w", err)
	}

	log.Info().Msg("Import completed successfully")
	return nil
}

func (i *Importer) parseAndImportFeeds(ctx context.Context, csvData io.Reader) error {
	reader := csv.NewReader(csvData)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	urlIdx := findColumnIndex(header, "url")
	if urlIdx < 0 {
		return fmt.Errorf("required column 'url' not found in CSV header")
	}
	titleIdx := findColumnIndex(header, "title")
	categoryIdx := findColumnIndex(header, "category")

	lineCount := 1 // Header was already read
	successCount := 0
	var failures []string

	for {
		lineCount++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", lineCount).Msg("Error reading CSV line")
			failures = append(failures, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		url := safeGetValue(record, urlIdx)
		if url == "" {
			log.Warn().Int("line", lineCount).Msg("Skipping row with empty URL")
			failures = append(failures, fmt.Sprintf("line %d: empty URL", lineCount))
			continue
		}
		title := safeGetValue(record, titleIdx)
		category := safeGetValue(record, categoryIdx)

		logger := log.With().
			Int("line", lineCount).
			Str("url", url).
			Logger()

		feed, err := i.ingest.AddFeed(ctx, url, title, category, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to subscribe feed")
			failures = append(failures, fmt.Sprintf("line %d: %s: %v", lineCount, url, err))
			continue
		}

		successCount++
		logger.Debug().Int64("feed_id", feed.ID).Msg("Feed subscribed")
	}

	log.Info().
		Int("total", lineCount-1).
		Int("success", successCount).
		Int("errors", len(failures)).
		Msg("Import summary")

	fmt.Printf("Imported %d feeds successfully\n", successCount)
	if len(failures) > 0 {
		fmt.Printf("Encountered %d errors:\n", len(failures))
		for _, failure := range failures {
			fmt.Printf("  - %s\n", failure)
		}
	}

	return nil
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(col, columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns the value at index, or "" when the index is out of
// bounds for the record.
func safeGetValue(record []string, index int) string {
	if index >= 0 && index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}
