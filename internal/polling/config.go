package polling

import (
	"os"
	"time"
)

// DefaultInterval is how often scan status is refreshed when nothing is
// configured.
const DefaultInterval = time.Second

// Config holds the polling configuration
type Config struct {
	Interval time.Duration
}

// NewConfig creates a new polling configuration from environment variables
func NewConfig() *Config {
	// Check for environment variable override (format like "500ms", "2s")
	intervalStr := os.Getenv("SCANDEMO_POLL_INTERVAL")
	if intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err == nil && interval > 0 {
			return &Config{Interval: interval}
		}
	}

	return &Config{Interval: DefaultInterval}
}
