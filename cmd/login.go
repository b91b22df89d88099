package cmd

import (
	"errors"
	"fmt"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/urfave/cli/v2"

	"huddle/api"
)

func loginCmd() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Store the access token for the community backend",
		Description: `Prompts for an access token and writes it to the token
file. Every REST request carries the token as a bearer token; without
one, authenticated endpoints return 401 and huddle only logs warnings.`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "token-file",
				Usage:   "Path to the access token file",
				EnvVars: []string{"HUDDLE_TOKEN_FILE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			token, err := prompt.New().Ask("Access token:").Input("", input.WithEchoMode(input.EchoNone))
			if err != nil {
				return err
			}

			if token == "" {
				return errors.New("no token provided")
			}

			tokens := api.NewTokenStore(cfg.TokenFile)
			if err := tokens.Save(token); err != nil {
				return fmt.Errorf("could not save token: %w", err)
			}

			fmt.Println("Token saved to", cfg.TokenFile)
			return nil
		},
	}
}
