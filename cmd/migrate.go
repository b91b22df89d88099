package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"huddle/journal"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run journal migrations",
		Description: `Runs migrations on the journal database. Will create the database if it does not exist.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			fmt.Println("Running migrations...")
			return journal.Migrate(cfg.Journal.Database)
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Roll back the last journal migration",
		Description: `Reverts the most recent migration on the journal database.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			fmt.Println("Rolling back last migration...")
			return journal.Rollback(cfg.Journal.Database)
		},
	}
}
