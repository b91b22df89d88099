package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"huddle/api"
	"huddle/cache"
	"huddle/journal"
	"huddle/realtime"
	"huddle/server"
	"huddle/syncer"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the sync engine and serve the local API",
		Description: `Connects to the backend's realtime event channel, merges
pushed events into the local read cache, and serves the synced feed,
comments and an SSE stream of merged events on the local HTTP API.

The SQLite journal warms the feed cache on startup so the last-known
feed is available before the first fetch completes.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the community backend",
				EnvVars: []string{"HUDDLE_API_URL"},
			},
			&cli.StringSliceFlag{
				Name:    "hosts",
				Usage:   "Realtime websocket hosts to try in order",
				EnvVars: []string{"HUDDLE_REALTIME_HOSTS"},
			},
			&cli.BoolFlag{
				Name:    "compress",
				Usage:   "Request zstd-compressed realtime frames",
				EnvVars: []string{"HUDDLE_REALTIME_COMPRESS"},
			},
			&cli.StringFlag{
				Name:    "token-file",
				Usage:   "Path to the access token file",
				EnvVars: []string{"HUDDLE_TOKEN_FILE"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port for the local HTTP API",
				EnvVars: []string{"HUDDLE_PORT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			log.Info("Starting huddle...")

			runCtx, cancel := context.WithCancel(ctx.Context)
			defer cancel()

			// Journal: migrate, open, warm the cache, follow changes
			if err := journal.Migrate(cfg.Journal.Database); err != nil {
				return fmt.Errorf("failed to migrate journal: %w", err)
			}

			jnl, err := journal.Open(cfg.Journal.Database)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer jnl.Close()

			store := cache.NewStore()
			if err := jnl.Warm(runCtx, store, 100); err != nil {
				log.Errorf("Failed to warm cache from journal: %v", err)
			}
			go jnl.Follow(runCtx, store)

			// REST client and loader
			tokens := api.NewTokenStore(cfg.TokenFile)
			client := api.NewClient(cfg.APIURL, tokens)
			defer client.Close()

			loader := syncer.NewLoader(store, client, cfg.FeedFreshFor(), cfg.RepliesFreshFor())
			views := syncer.NewViews()
			toggler := syncer.NewToggler(store, client)

			// Realtime channel into the syncer
			decoder, err := realtime.NewDecoder(cfg.Realtime.Compress)
			if err != nil {
				return err
			}

			workerQueue := make(chan *realtime.RawMessage, 1000)
			sc := syncer.New(store, views, decoder)
			sc.EventChan = make(chan interface{}, 100)

			bc := server.NewBroadcaster()
			go func() {
				for event := range sc.EventChan {
					bc.Broadcast(event)
				}
			}()

			app := server.Server(&server.ServerConfig{
				CORSOrigin:  cfg.CORSOrigin,
				Loader:      loader,
				Toggler:     toggler,
				Views:       views,
				Broadcaster: bc,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)

			go func() {
				<-c
				log.Info("Gracefully shutting down...")
				cancel()
				app.ShutdownWithTimeout(60 * time.Second)
				bc.Shutdown()
			}()

			go func() {
				log.Info("Connecting to realtime channel...")
				if err := realtime.Run(runCtx, realtime.ChannelConfig{
					Hosts:     cfg.Realtime.Hosts,
					Compress:  cfg.Realtime.Compress,
					UserAgent: cfg.Realtime.UserAgent,
				}, workerQueue); err != nil && runCtx.Err() == nil {
					log.Errorf("Realtime channel failed: %v", err)
				}
			}()

			go sc.Run(runCtx, workerQueue)

			log.Info("Starting server...")
			if err := app.Listen(fmt.Sprintf(":%d", ctx.Int("port"))); err != nil {
				return err
			}

			log.Info("Done!")
			return nil
		},
	}
}
