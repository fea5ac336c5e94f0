package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	DBPath       string
	FeedsCSVPath string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Ingestion settings
	UserAgent       string
	FetchTimeout    time.Duration
	FeedTimeout     time.Duration
	RefreshInterval time.Duration

	// Log settings
	LogLevel zerolog.Level
}

// Load returns the initial configuration: hardcoded defaults overridden by
// the environment, with an optional .env file loaded first.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env file")
	}

	return &Config{
		DBPath:          GetEnvString("READER_DB_PATH", DefaultDBPath),
		FeedsCSVPath:    GetEnvString("READER_CSV_PATH", DefaultFeedsCSVPath),
		ServerHost:      GetEnvString("READER_HOST", DefaultServerHost),
		ServerPort:      GetEnvInt("READER_PORT", DefaultServerPort),
		APIKey:          GetEnvString("READER_API_KEY", ""),
		UserAgent:       GetEnvString("READER_USER_AGENT", DefaultUserAgent),
		FetchTimeout:    GetEnvDuration("READER_FETCH_TIMEOUT", time.Duration(DefaultFetchTimeout)*time.Second),
		FeedTimeout:     GetEnvDuration("READER_FEED_TIMEOUT", time.Duration(DefaultFeedTimeout)*time.Second),
		RefreshInterval: GetEnvDuration("READER_REFRESH_INTERVAL", time.Duration(DefaultRefreshMinutes)*time.Minute),
		LogLevel:        GetEnvLogLevel("READER_LOG_LEVEL", zerolog.InfoLevel),
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
