package config

// Constants defining default values for application configuration
const (
	DefaultDBPath       = "./reader.db"
	DefaultFeedsCSVPath = "./feeds.csv"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultUserAgent      = "feedbox-reader/1.0"
	DefaultFetchTimeout   = 10 // Seconds for one HTTP fetch
	DefaultFeedTimeout    = 30 // Seconds for one feed within a bulk refresh
	DefaultRefreshMinutes = 0  // 0 means one-shot refresh

	DefaultLogLevel = "info"
)
