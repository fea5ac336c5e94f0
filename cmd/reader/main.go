package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"feedbox/reader/internal/config"
	"feedbox/reader/internal/database"
	"feedbox/reader/internal/fetch"
	"feedbox/reader/internal/importer"
	"feedbox/reader/internal/ingest"
	"feedbox/reader/internal/server"
	"feedbox/reader/internal/store"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func usage() {
	fmt.Println("Usage: reader [command] [options]")
	fmt.Println("Commands: serve, add, refresh, import")
	fmt.Println("\nFor command-specific options, use: reader [command] -h")
}

func main() {
	cfg := config.Load()

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	addDBFlags(serveCmd, cfg)
	serveCmd.StringVar(&cfg.ServerHost, "host", cfg.ServerHost,
		"Host to bind the server to (env: READER_HOST)")
	serveCmd.IntVar(&cfg.ServerPort, "port", cfg.ServerPort,
		"Port to listen on (env: READER_PORT)")

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	addDBFlags(addCmd, cfg)
	var addURL, addTitle, addCategory string
	addCmd.StringVar(&addURL, "url", "", "Feed URL to subscribe to (required)")
	addCmd.StringVar(&addTitle, "title", "", "Feed title override (defaults to the feed's own title)")
	addCmd.StringVar(&addCategory, "category", "", "Feed category (defaults to General)")

	refreshCmd := flag.NewFlagSet("refresh", flag.ExitOnError)
	addDBFlags(refreshCmd, cfg)
	var intervalMinutes int
	refreshCmd.IntVar(&intervalMinutes, "interval", config.GetEnvInt("READER_REFRESH_INTERVAL_MINUTES", config.DefaultRefreshMinutes),
		"Interval in minutes between refresh runs, 0 for one-shot mode (env: READER_REFRESH_INTERVAL_MINUTES)")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	addDBFlags(importCmd, cfg)
	importCmd.StringVar(&cfg.FeedsCSVPath, "csv", cfg.FeedsCSVPath,
		"Path to the feeds CSV file (env: READER_CSV_PATH)")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		serveCmd.Parse(os.Args[2:])
		applyLogLevel(cfg)
		err = runServe(cfg)

	case "add":
		addCmd.Parse(os.Args[2:])
		applyLogLevel(cfg)
		if addURL == "" {
			addCmd.Usage()
			os.Exit(1)
		}
		err = runAdd(cfg, addURL, addTitle, addCategory)

	case "refresh":
		refreshCmd.Parse(os.Args[2:])
		applyLogLevel(cfg)
		cfg.RefreshInterval = time.Duration(intervalMinutes) * time.Minute
		err = runRefresh(cfg)

	case "import":
		importCmd.Parse(os.Args[2:])
		applyLogLevel(cfg)
		err = runImport(cfg)

	case "-h", "--help", "help":
		usage()
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		os.Exit(1)
	}
}

var logLevelStr string

func addDBFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath,
		"Path to the SQLite database file (env: READER_DB_PATH)")
	fs.StringVar(&logLevelStr, "log-level", config.GetEnvString("READER_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: READER_LOG_LEVEL)")
}

func applyLogLevel(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(logLevelStr); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

// openService wires the database, store, fetcher and ingestion service
// together; the caller owns the returned DB handle.
func openService(cfg *config.Config) (*database.DB, *store.SQLStore, *ingest.Service, error) {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	st := store.New(db)
	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
	})
	svc := ingest.NewService(st, fetcher, ingest.Config{FeedTimeout: cfg.FeedTimeout})
	return db, st, svc, nil
}

// runServe starts the HTTP API server.
func runServe(cfg *config.Config) error {
	db, st, svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return server.RunServer(st, svc, cfg.ListenAddr(), log.Logger, cfg.APIKey)
}

// runAdd subscribes to a single feed, printing each progress step.
func runAdd(cfg *config.Config, url, title, category string) error {
	db, _, svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	feed, err := svc.AddFeed(ctx, url, title, category, func(p ingest.AddProgress) {
		log.Info().
			Str("step", string(p.Step)).
			Int("progress", p.Progress).
			Msg(p.Message)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Subscribed to %q (feed %d, category %s)\n", feed.Title, feed.ID, feed.Category)
	return nil
}

// runRefresh refetches all feeds either once or periodically based on configuration.
func runRefresh(cfg *config.Config) error {
	db, _, svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := runRefreshCycle(ctx, svc); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("Refresh canceled by shutdown signal")
			return nil
		}
		return err
	}

	if cfg.RefreshInterval <= 0 {
		log.Info().Msg("One-shot refresh completed, exiting")
		return nil
	}

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", cfg.RefreshInterval).
		Time("next_run", time.Now().Add(cfg.RefreshInterval)).
		Msg("Waiting for next refresh cycle")

	for {
		select {
		case <-ticker.C:
			if err := runRefreshCycle(ctx, svc); err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info().Msg("Refresh canceled by shutdown signal")
					return nil
				}
				log.Error().Err(err).Msg("Refresh cycle failed")
				// Continue to the next cycle rather than exiting
			}

			log.Info().
				Time("next_run", time.Now().Add(cfg.RefreshInterval)).
				Msg("Waiting for next refresh cycle")

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic refresh")
			return nil
		}
	}
}

// runRefreshCycle executes one bulk refresh and reports the outcomes.
func runRefreshCycle(ctx context.Context, svc *ingest.Service) error {
	startTime := time.Now()

	outcomes, err := svc.RefreshAll(ctx, func(p ingest.RefreshProgress) {
		log.Info().
			Str("step", string(p.Step)).
			Int("progress", p.Progress).
			Int("current", p.Current).
			Int("total", p.Total).
			Msg(p.Message)
	})
	if err != nil {
		return err
	}

	succeeded, failed, newArticles := 0, 0, 0
	for _, outcome := range outcomes {
		if outcome.Success {
			succeeded++
			newArticles += outcome.ArticleCount
		} else {
			failed++
		}
	}

	log.Info().
		Dur("duration", time.Since(startTime)).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Int("new_articles", newArticles).
		Msg("Refresh cycle finished")
	return nil
}

// runImport bulk-subscribes feeds from a CSV file.
func runImport(cfg *config.Config) error {
	db, _, svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	return importer.New(svc).ImportFeeds(ctx, cfg.FeedsCSVPath)
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	return ctx, cancel
}
