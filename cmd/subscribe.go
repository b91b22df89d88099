package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"huddle/cache"
	"huddle/realtime"
	"huddle/syncer"
)

func subscribeCmd() *cli.Command {
	return &cli.Command{
		Name:  "subscribe",
		Usage: "Log merged realtime events to the command line",
		Description: `Connects to the backend's realtime event channel and logs
every decoded event to stdout as a JSON object on a single line. Use a
tool like jq to process the output.

Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			configFlag(),
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
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			// Keep stdout clean for the event stream
			log.SetOutput(os.Stderr)

			decoder, err := realtime.NewDecoder(cfg.Realtime.Compress)
			if err != nil {
				return err
			}

			workerQueue := make(chan *realtime.RawMessage, 1000)

			store := cache.NewStore()
			views := syncer.NewViews()
			sc := syncer.New(store, views, decoder)
			sc.EventChan = make(chan interface{}, 100)

			go func() {
				log.Info("Connecting to realtime channel...")
				if err := realtime.Run(ctx.Context, realtime.ChannelConfig{
					Hosts:     cfg.Realtime.Hosts,
					Compress:  cfg.Realtime.Compress,
					UserAgent: cfg.Realtime.UserAgent,
				}, workerQueue); err != nil && ctx.Context.Err() == nil {
					log.Errorf("Realtime channel failed: %v", err)
				}
			}()

			go sc.Run(ctx.Context, workerQueue)

			printEvents(ctx.Context, sc.EventChan)
			return nil
		},
	}
}

// printEvents writes each event to stdout until ctx is cancelled or the
// channel closes.
func printEvents(ctx context.Context, events <-chan interface{}) {
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping subscription")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			printStdout(event)
		}
	}
}

func printStdout(event interface{}) {
	// Print as single JSON string on a single line
	data, err := json.Marshal(event)
	if err == nil {
		fmt.Println(string(data))
	}
}
