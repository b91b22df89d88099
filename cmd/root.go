package cmd

import (
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "huddle",
		Usage: "A local sync engine for the huddle community backend",
		Description: `Keeps a local read cache of the community feed converged
		with the backend.

		Huddle works by fetching the feed over the REST API and merging
		server-pushed realtime events (new posts, comments, reaction
		updates) into the cached copy under dedup and idempotency rules.
		The synced state is served over a local HTTP API with an SSE
		stream of merged events, and a SQLite snapshot keeps the
		last-known feed available across restarts.

		Flags can generally be set via environment variables, e.g.:

		--api-url => HUDDLE_API_URL=http://localhost:5000
		--port => HUDDLE_PORT=3000
		`,
		Commands: []*cli.Command{
			serveCmd(),
			subscribeCmd(),
			loginCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}
