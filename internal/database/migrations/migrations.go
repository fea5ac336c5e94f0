package migrations

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Up      string
}

// All returns the full ordered migration set. Migrations are compiled in so
// the schema travels with the binary and in-memory test databases work.
func All() []Migration {
	return []Migration{
		{
			Version: 1,
			Up: `
				CREATE TABLE IF NOT EXISTS feeds (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					title TEXT NOT NULL,
					url TEXT NOT NULL UNIQUE,
					category TEXT NOT NULL DEFAULT 'General',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					last_fetched DATETIME
				);

				CREATE TABLE IF NOT EXISTS articles (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					feed_id INTEGER NOT NULL,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					content TEXT NOT NULL DEFAULT '',
					url TEXT NOT NULL DEFAULT '',
					dedup_key TEXT NOT NULL,
					image_url TEXT,
					published_at DATETIME NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (feed_id) REFERENCES feeds (id) ON DELETE CASCADE,
					UNIQUE (feed_id, dedup_key)
				);

				CREATE INDEX IF NOT EXISTS idx_articles_feed_id ON articles (feed_id);
				CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at DESC, created_at DESC);

				CREATE TABLE IF NOT EXISTS favorites (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					article_id INTEGER NOT NULL UNIQUE,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (article_id) REFERENCES articles (id) ON DELETE CASCADE
				);

				CREATE TABLE IF NOT EXISTS settings (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`,
		},
		{
			Version: 2,
			Up: `
				INSERT OR IGNORE INTO settings (key, value) VALUES ('theme', 'light');
				INSERT OR IGNORE INTO settings (key, value) VALUES ('autoplay_interval_ms', '5000');
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(db *sql.DB, migrations []Migration) error {
	// Create migrations table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get applied migrations
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate applied migrations: %w", err)
	}

	// Run pending migrations
	for _, migration := range migrations {
		if applied[migration.Version] {
			log.Debug().
				Int("version", migration.Version).
				Msg("Migration already applied, skipping")
			continue
		}

		log.Info().
			Int("version", migration.Version).
			Msg("Running migration")

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		// Execute migration
		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		// Record migration
		if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		log.Info().
			Int("version", migration.Version).
			Msg("Migration completed successfully")
	}

	return nil
}
