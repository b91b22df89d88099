package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, "http://localhost:5000", cfg.APIURL)
	assert.Equal(t, []string{"ws://localhost:5000"}, cfg.Realtime.Hosts)
	assert.Equal(t, 10*time.Second, cfg.FeedFreshFor())
	assert.Equal(t, 30*time.Second, cfg.RepliesFreshFor())
	assert.Equal(t, "huddle.db", cfg.Journal.Database)
	assert.Equal(t, 30, cfg.Journal.RetentionDays)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huddle.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url = "https://community.example.com"
token_file = "/var/lib/huddle/token"

[realtime]
hosts = ["wss://community.example.com", "wss://backup.example.com"]
compress = true

[cache]
feed_fresh_seconds = 5

[journal]
database = "/var/lib/huddle/huddle.db"
retention_days = 7
`), 0644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://community.example.com", cfg.APIURL)
	assert.Equal(t, "/var/lib/huddle/token", cfg.TokenFile)
	assert.Equal(t, []string{"wss://community.example.com", "wss://backup.example.com"}, cfg.Realtime.Hosts)
	assert.True(t, cfg.Realtime.Compress)
	assert.Equal(t, 5*time.Second, cfg.FeedFreshFor())
	// Unset keys keep their defaults
	assert.Equal(t, 30*time.Second, cfg.RepliesFreshFor())
	assert.Equal(t, "/var/lib/huddle/huddle.db", cfg.Journal.Database)
	assert.Equal(t, 7, cfg.Journal.RetentionDays)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
