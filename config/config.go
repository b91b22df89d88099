package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// TomlRealtime holds realtime channel settings
type TomlRealtime struct {
	Hosts     []string `toml:"hosts"`
	Compress  bool     `toml:"compress"`
	UserAgent string   `toml:"user_agent,omitempty"`
}

// TomlCache holds freshness windows in seconds per key class
type TomlCache struct {
	FeedFreshSeconds    int `toml:"feed_fresh_seconds"`
	RepliesFreshSeconds int `toml:"replies_fresh_seconds"`
}

// TomlJournal holds snapshot persistence settings
type TomlJournal struct {
	Database      string `toml:"database"`
	RetentionDays int    `toml:"retention_days"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	APIURL     string       `toml:"api_url"`
	TokenFile  string       `toml:"token_file"`
	CORSOrigin string       `toml:"cors_origin,omitempty"`
	Realtime   TomlRealtime `toml:"realtime"`
	Cache      TomlCache    `toml:"cache"`
	Journal    TomlJournal  `toml:"journal"`
}

// DefaultConfig mirrors the fallbacks used when no config file is given
func DefaultConfig() *TomlConfig {
	return &TomlConfig{
		APIURL:    "http://localhost:5000",
		TokenFile: "huddle-token",
		Realtime: TomlRealtime{
			Hosts: []string{"ws://localhost:5000"},
		},
		Cache: TomlCache{
			FeedFreshSeconds:    10,
			RepliesFreshSeconds: 30,
		},
		Journal: TomlJournal{
			Database:      "huddle.db",
			RetentionDays: 30,
		},
	}
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

// FeedFreshFor returns the feed freshness window as a duration
func (c *TomlConfig) FeedFreshFor() time.Duration {
	return time.Duration(c.Cache.FeedFreshSeconds) * time.Second
}

// RepliesFreshFor returns the replies freshness window as a duration
func (c *TomlConfig) RepliesFreshFor() time.Duration {
	return time.Duration(c.Cache.RepliesFreshSeconds) * time.Second
}
