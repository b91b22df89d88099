// Package syncer keeps the local read cache converged with the
// backend's pushed events.
package syncer

import (
	"context"

	log "github.com/sirupsen/logrus"

	"huddle/cache"
	"huddle/realtime"
)

// Syncer consumes raw realtime messages, decodes them and applies the
// merge policy. Messages are processed by a single worker: merge order
// matters for prepends, so fan-out would trade correctness for
// throughput we do not need.
type Syncer struct {
	store   *cache.Store
	views   *Views
	merger  *Merger
	decoder *realtime.Decoder

	// EventChan, when set, receives every decoded event after it has
	// been merged. Used by the SSE re-broadcast and the subscribe
	// command.
	EventChan chan interface{}
}

func New(store *cache.Store, views *Views, decoder *realtime.Decoder) *Syncer {
	return &Syncer{
		store:   store,
		views:   views,
		merger:  NewMerger(store, views),
		decoder: decoder,
	}
}

// Run drains the worker queue until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context, workerQueue chan *realtime.RawMessage) {
	for {
		select {
		case <-ctx.Done():
			log.Info("Syncer shutting down")
			return
		case msg := <-workerQueue:
			event, err := s.decoder.Decode(msg)
			if err != nil {
				log.Errorf("Error decoding realtime message: %v", err)
				continue
			}
			if event == nil {
				continue
			}

			s.merger.Apply(event)

			if s.EventChan != nil {
				select {
				case s.EventChan <- event:
				default:
					log.Warn("Event channel full, dropping re-broadcast")
				}
			}
		}
	}
}

// Views exposes the mounted-view registry for the HTTP surface.
func (s *Syncer) MountedViews() *Views {
	return s.views
}
