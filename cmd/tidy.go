package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"huddle/journal"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the journal database",
		Description: `Tidy up the journal by removing snapshot rows older than
		the retention window.

		Keeps the journal small; the snapshot only needs to cover what a
		warm start would render anyway.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
			&cli.IntFlag{
				Name:    "retention-days",
				Usage:   "Remove snapshot rows older than this many days",
				EnvVars: []string{"HUDDLE_RETENTION_DAYS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			retention := cfg.Journal.RetentionDays
			if ctx.IsSet("retention-days") {
				retention = ctx.Int("retention-days")
			}

			jnl, err := journal.Open(cfg.Journal.Database)
			if err != nil {
				return err
			}
			defer jnl.Close()

			return jnl.Tidy(ctx.Context, time.Duration(retention)*24*time.Hour)
		},
	}
}
