package cmd

import (
	"context"
	"testing"
	"time"

	"huddle/models"
)

func TestPrintEventsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan interface{}, 1)

	done := make(chan struct{})
	go func() {
		printEvents(ctx, events)
		close(done)
	}()

	events <- models.NewPostEvent{Post: models.Post{Id: "P1"}}
	cancel()

	// Cancellation alone must unblock the loop; no further event is
	// needed
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("printEvents did not stop on cancellation")
	}
}

func TestPrintEventsStopsOnClosedChannel(t *testing.T) {
	events := make(chan interface{})
	close(events)

	done := make(chan struct{})
	go func() {
		printEvents(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("printEvents did not stop on channel close")
	}
}
