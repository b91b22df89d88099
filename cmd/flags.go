package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"huddle/config"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to TOML configuration file",
		EnvVars: []string{"HUDDLE_CONFIG"},
	}
}

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database",
		Aliases: []string{"d"},
		Usage:   "SQLite journal file location",
		EnvVars: []string{"HUDDLE_DATABASE"},
	}
}

// loadConfig reads the TOML file when given and applies flag overrides
// on top of the defaults.
func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	cfg := config.DefaultConfig()

	if path := ctx.String("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if ctx.IsSet("api-url") {
		cfg.APIURL = ctx.String("api-url")
	}
	if ctx.IsSet("hosts") {
		cfg.Realtime.Hosts = ctx.StringSlice("hosts")
	}
	if ctx.IsSet("compress") {
		cfg.Realtime.Compress = ctx.Bool("compress")
	}
	if ctx.IsSet("database") {
		cfg.Journal.Database = ctx.String("database")
	}
	if ctx.IsSet("token-file") {
		cfg.TokenFile = ctx.String("token-file")
	}

	return cfg, nil
}
